package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/recipepanel/foodsync/internal/usecase"
	"github.com/recipepanel/foodsync/pkg/logger"
	"github.com/robfig/cron/v3"
)

// SeedStepper is the part of the seed service the scheduler drives
type SeedStepper interface {
	Step(ctx context.Context, req usecase.SeedRequest) (*usecase.SeedResponse, error)
}

// SeedScheduler advances one seed run by one unit of work per cron tick.
// Ticks never overlap, so the run is stepped serially.
type SeedScheduler struct {
	cron  *cron.Cron
	seeds SeedStepper
	base  usecase.SeedRequest

	mu       sync.Mutex
	runID    uuid.UUID
	finished bool
}

// NewSeedScheduler creates a scheduler. A non-nil runID resumes that run; otherwise the
// first tick creates a run from base.
func NewSeedScheduler(seeds SeedStepper, base usecase.SeedRequest, runID uuid.UUID) *SeedScheduler {
	printf := logger.Printf{}
	c := cron.New(
		cron.WithLogger(cron.PrintfLogger(printf)),
		cron.WithChain(
			cron.Recover(cron.PrintfLogger(printf)),
			cron.SkipIfStillRunning(cron.PrintfLogger(printf)),
		),
	)

	return &SeedScheduler{
		cron:  c,
		seeds: seeds,
		base:  base,
		runID: runID,
	}
}

// Start registers the tick on schedule and starts the cron loop
func (s *SeedScheduler) Start(ctx context.Context, schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.Tick(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Str("schedule", schedule).Msg("seed scheduler started")
	return nil
}

// Tick performs one seed step. It is a no-op once the run is done.
func (s *SeedScheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return
	}

	req := s.base
	req.RunID = s.runID

	resp, err := s.seeds.Step(ctx, req)
	if resp != nil {
		s.runID = resp.RunID
	}

	switch {
	case errors.Is(err, domain.ErrSeedRunNotFound):
		logger.Error().Str("run_id", req.RunID.String()).Msg("scheduled seed run does not exist, stopping")
		s.finished = true
	case err != nil:
		// the run keeps its cursor; the next tick retries the same unit
		logger.Warn().Err(err).Str("run_id", s.runID.String()).Msg("scheduled seed step failed")
	case resp.Status == domain.SeedStatusDone:
		logger.Info().Str("run_id", s.runID.String()).Int("processed", resp.Progress.Processed).Msg("scheduled seed run finished")
		s.finished = true
	}
}

// RunID returns the run being driven, or uuid.Nil before the first tick
func (s *SeedScheduler) RunID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Finished reports whether the scheduler has stopped stepping
func (s *SeedScheduler) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Stop stops the cron loop and waits for a running tick
func (s *SeedScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("seed scheduler stopped")
}

// Entries exposes the registered cron entries
func (s *SeedScheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

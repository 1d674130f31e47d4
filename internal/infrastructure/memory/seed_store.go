package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/recipepanel/foodsync/internal/domain"
)

// SeedRunStore keeps seed runs in a map. Runs are copied on the way in and out.
type SeedRunStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]domain.SeedRun
}

func NewSeedRunStore() *SeedRunStore {
	return &SeedRunStore{runs: make(map[uuid.UUID]domain.SeedRun)}
}

func (s *SeedRunStore) Create(ctx context.Context, run *domain.SeedRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = cloneRun(*run)
	return nil
}

func (s *SeedRunStore) Get(ctx context.Context, id uuid.UUID) (*domain.SeedRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrSeedRunNotFound
	}
	out := cloneRun(run)
	return &out, nil
}

func (s *SeedRunStore) Save(ctx context.Context, run *domain.SeedRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return domain.ErrSeedRunNotFound
	}
	s.runs[run.ID] = cloneRun(*run)
	return nil
}

func cloneRun(run domain.SeedRun) domain.SeedRun {
	run.Terms = append([]string(nil), run.Terms...)
	run.Logs = append([]domain.SeedLogEntry{}, run.Logs...)
	return run
}

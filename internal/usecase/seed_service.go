package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/recipepanel/foodsync/internal/infrastructure/off"
	"github.com/recipepanel/foodsync/pkg/logger"
	"github.com/recipepanel/foodsync/pkg/metrics"
)

// MaxSeedPageSize mirrors the upstream page size cap
const MaxSeedPageSize = off.MaxPageSize

// SeedServiceConfig holds defaults for newly created runs
type SeedServiceConfig struct {
	DefaultLocale   string
	DefaultTerms    []string
	DefaultPageSize int
	ProductTTL      time.Duration
}

// SeedRequest starts a run (RunID zero) or advances an existing one.
// Locale, Terms, Page and PageSize only apply when a run is created.
type SeedRequest struct {
	RunID    uuid.UUID
	Locale   string
	Terms    []string
	Page     int
	PageSize int
}

// SeedProgress describes the unit of work a call handled plus running totals
type SeedProgress struct {
	Term      string `json:"term"`
	Page      int    `json:"page"`
	Processed int    `json:"processed"`
	Upserted  int    `json:"upserted"`
	Errors    int    `json:"errors"`
}

// SeedResponse is the body returned for every seed call
type SeedResponse struct {
	RunID    uuid.UUID          `json:"runId"`
	Status   domain.SeedStatus  `json:"status"`
	Progress SeedProgress       `json:"progress"`
	Next     *domain.SeedCursor `json:"next"`
}

// SeedService drives seed runs one (term, page) unit per call
type SeedService struct {
	runs     domain.SeedRunRepository
	upstream domain.UpstreamClient
	products domain.ProductRepository
	cache    domain.CacheRepository
	cfg      SeedServiceConfig
	now      func() time.Time
}

func NewSeedService(
	runs domain.SeedRunRepository,
	upstream domain.UpstreamClient,
	products domain.ProductRepository,
	cache domain.CacheRepository,
	cfg SeedServiceConfig,
) *SeedService {
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "en"
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.ProductTTL == 0 {
		cfg.ProductTTL = 720 * time.Hour
	}

	return &SeedService{
		runs:     runs,
		upstream: upstream,
		products: products,
		cache:    cache,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Step performs one unit of work. On a failed unit it returns both the response
// (so callers can report the run id) and an error wrapping ErrSeedStepFailed.
func (s *SeedService) Step(ctx context.Context, req SeedRequest) (*SeedResponse, error) {
	run, err := s.loadOrCreate(ctx, req)
	if err != nil {
		return nil, err
	}

	if run.Exhausted() {
		done := CompleteSeedRun(*run, s.now().UTC())
		if err := s.runs.Save(ctx, &done); err != nil {
			return nil, fmt.Errorf("save seed run: %w", err)
		}
		metrics.RecordSeedStep("done")
		return buildSeedResponse(done, "", done.Cursor.Page), nil
	}

	term := run.CurrentTerm()
	page := run.Cursor.Page
	if page < 1 {
		page = 1
		run.Cursor.Page = 1
	}

	res := s.work(ctx, run, term, page)
	next := AdvanceSeedRun(*run, res, s.now().UTC())

	if err := s.runs.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("save seed run: %w", err)
	}

	resp := buildSeedResponse(next, term, page)
	if res.Err != nil {
		metrics.RecordSeedStep("error")
		logger.Error().Err(res.Err).
			Str("run_id", next.ID.String()).
			Str("term", term).
			Int("page", page).
			Msg("seed step failed")
		return resp, fmt.Errorf("%w: %w", domain.ErrSeedStepFailed, res.Err)
	}

	metrics.RecordSeedStep("ok")
	logger.Info().
		Str("run_id", next.ID.String()).
		Str("term", term).
		Int("page", page).
		Int("items", res.Items).
		Int("upserted", res.Upserted).
		Str("status", string(next.Status)).
		Msg("seed step completed")
	return resp, nil
}

// Get reports a run's state without doing any work
func (s *SeedService) Get(ctx context.Context, id uuid.UUID) (*SeedResponse, error) {
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildSeedResponse(*run, run.CurrentTerm(), run.Cursor.Page), nil
}

func (s *SeedService) work(ctx context.Context, run *domain.SeedRun, term string, page int) StepResult {
	raw, err := s.upstream.Search(ctx, term, run.Locale, page, run.PageSize)
	if err != nil {
		return StepResult{Err: err}
	}

	items := off.NormalizeSearchResults(raw, run.Locale)
	total := off.TotalPages(raw, run.PageSize)

	upserted, err := s.products.Upsert(ctx, items, domain.SourceOpenFoodFacts)
	if err != nil {
		return StepResult{Err: err}
	}
	metrics.RecordProductsUpserted(domain.SourceOpenFoodFacts, upserted)

	s.cacheProducts(ctx, items)

	return StepResult{Items: len(items), Upserted: upserted, TotalPages: total}
}

// cacheProducts warms the product keyspace; failures are logged and ignored
func (s *SeedService) cacheProducts(ctx context.Context, items []domain.ProductItem) {
	if s.cache == nil {
		return
	}
	for i := range items {
		payload, err := json.Marshal(items[i])
		if err != nil {
			continue
		}
		if err := s.cache.Put(ctx, domain.CacheSpaceProduct, items[i].Barcode, payload, s.cfg.ProductTTL); err != nil {
			metrics.RecordCacheError(string(domain.CacheSpaceProduct), "put")
			logger.Warn().Err(err).Str("barcode", items[i].Barcode).Msg("seed cache write failed")
			return
		}
	}
}

func (s *SeedService) loadOrCreate(ctx context.Context, req SeedRequest) (*domain.SeedRun, error) {
	if req.RunID != uuid.Nil {
		return s.runs.Get(ctx, req.RunID)
	}

	locale, err := resolveLocale(req.Locale, s.cfg.DefaultLocale)
	if err != nil {
		return nil, err
	}

	terms := cleanTerms(req.Terms)
	if len(terms) == 0 {
		terms = cleanTerms(s.cfg.DefaultTerms)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no seed terms given or configured", domain.ErrInvalidRequest)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > MaxSeedPageSize {
		pageSize = MaxSeedPageSize
	}

	now := s.now().UTC()
	run := &domain.SeedRun{
		ID:        uuid.New(),
		Locale:    locale,
		Terms:     terms,
		PageSize:  pageSize,
		Status:    domain.SeedStatusRunning,
		Cursor:    domain.SeedCursor{TermIndex: 0, Page: page},
		Logs:      []domain.SeedLogEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create seed run: %w", err)
	}

	logger.Info().Str("run_id", run.ID.String()).Str("lc", locale).Strs("terms", terms).Msg("seed run created")
	return run, nil
}

func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func buildSeedResponse(run domain.SeedRun, term string, page int) *SeedResponse {
	resp := &SeedResponse{
		RunID:  run.ID,
		Status: run.Status,
		Progress: SeedProgress{
			Term:      term,
			Page:      page,
			Processed: run.ProcessedCount,
			Upserted:  run.UpsertedCount,
			Errors:    run.ErrorCount,
		},
	}
	if run.Status != domain.SeedStatusDone {
		cursor := run.Cursor
		resp.Next = &cursor
	}
	return resp
}

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/recipepanel/foodsync/internal/domain"
)

type productKey struct {
	source   string
	sourceID string
}

// ProductStore is an in-process domain.ProductRepository with the same merge rules as
// the postgres upsert: id and created_at survive, every other column is replaced.
type ProductStore struct {
	mu     sync.RWMutex
	rows   map[productKey]domain.ProductRecord
	nextID int64
	now    func() time.Time
}

func NewProductStore() *ProductStore {
	return &ProductStore{
		rows: make(map[productKey]domain.ProductRecord),
		now:  time.Now,
	}
}

// WithClock replaces time.Now and returns the store
func (s *ProductStore) WithClock(now func() time.Time) *ProductStore {
	s.now = now
	return s
}

func (s *ProductStore) Upsert(ctx context.Context, items []domain.ProductItem, source string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	items = domain.DedupeByBarcode(items)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for _, item := range items {
		rec := domain.NewProductRecord(item, source, now)
		key := productKey{source: rec.Source, sourceID: rec.SourceID}

		if existing, ok := s.rows[key]; ok {
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
		} else {
			s.nextID++
			rec.ID = s.nextID
		}
		s.rows[key] = rec
	}

	return len(items), nil
}

func (s *ProductStore) FindByBarcode(ctx context.Context, source, barcode string) (*domain.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.rows[productKey{source: source, sourceID: barcode}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *ProductStore) FindByBarcodes(ctx context.Context, source string, barcodes []string) ([]domain.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ProductRecord, 0, len(barcodes))
	seen := make(map[string]bool, len(barcodes))
	for _, code := range barcodes {
		if seen[code] {
			continue
		}
		if rec, ok := s.rows[productKey{source: source, sourceID: code}]; ok {
			out = append(out, rec)
			seen[code] = true
		}
	}
	return out, nil
}

func (s *ProductStore) SearchByName(ctx context.Context, source, query string, limit int) ([]domain.ProductRecord, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []domain.ProductRecord{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ProductRecord, 0)
	for key, rec := range s.rows {
		if key.source != source {
			continue
		}
		if containsFold(rec.NameLocal, query) || containsFold(deref(rec.NameEn), query) || containsFold(deref(rec.Brand), query) {
			out = append(out, rec)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored rows
func (s *ProductStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func containsFold(s, lowerSub string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), lowerSub)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

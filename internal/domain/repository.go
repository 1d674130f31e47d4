package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CacheRepository defines the TTL cache used for search result sets and single-item lookups
type CacheRepository interface {
	// Get returns ErrCacheMiss when the key is absent or its entry has expired
	Get(ctx context.Context, space CacheSpace, key string) (*CacheEntry, error)
	// Put overwrites any previous entry under the same key
	Put(ctx context.Context, space CacheSpace, key string, payload json.RawMessage, ttl time.Duration) error
}

// UpstreamClient defines the raw calls made against the upstream food catalog
type UpstreamClient interface {
	Search(ctx context.Context, query, locale string, page, pageSize int) (json.RawMessage, error)
	FetchByBarcode(ctx context.Context, barcode, locale string) (json.RawMessage, error)
}

// ProductRepository is the single write path for upstream-derived product data
type ProductRepository interface {
	// Upsert merges items on (source, barcode) and returns the number of rows written
	Upsert(ctx context.Context, items []ProductItem, source string) (int, error)
	// FindByBarcode returns nil, nil when no row exists
	FindByBarcode(ctx context.Context, source, barcode string) (*ProductRecord, error)
	FindByBarcodes(ctx context.Context, source string, barcodes []string) ([]ProductRecord, error)
	SearchByName(ctx context.Context, source, query string, limit int) ([]ProductRecord, error)
}

// SeedRunRepository persists seed run state between invocations
type SeedRunRepository interface {
	Create(ctx context.Context, run *SeedRun) error
	// Get returns ErrSeedRunNotFound for unknown ids
	Get(ctx context.Context, id uuid.UUID) (*SeedRun, error)
	Save(ctx context.Context, run *SeedRun) error
}

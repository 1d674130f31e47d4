package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/recipepanel/foodsync/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheRepository implements domain.CacheRepository on two row-store tables
type CacheRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCacheRepository(db *gorm.DB) *CacheRepository {
	return &CacheRepository{db: db, now: time.Now}
}

func cacheTable(space domain.CacheSpace) (string, error) {
	switch space {
	case domain.CacheSpaceSearch:
		return searchCacheTable, nil
	case domain.CacheSpaceProduct:
		return productCacheTable, nil
	default:
		return "", fmt.Errorf("unknown cache space %q", space)
	}
}

func (r *CacheRepository) Get(ctx context.Context, space domain.CacheSpace, key string) (*domain.CacheEntry, error) {
	table, err := cacheTable(space)
	if err != nil {
		return nil, err
	}

	var rows []cacheRow
	if err := r.db.WithContext(ctx).Table(table).Where("key = ?", key).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: read %s cache: %w", domain.ErrCacheUnavailable, space, err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrCacheMiss
	}

	entry := &domain.CacheEntry{
		Key:       rows[0].Key,
		Payload:   json.RawMessage(rows[0].Payload),
		ExpiresAt: rows[0].ExpiresAt,
	}
	if !entry.ValidAt(r.now()) {
		return nil, domain.ErrCacheMiss
	}
	return entry, nil
}

// Put upserts by key; an expired row is simply overwritten
func (r *CacheRepository) Put(ctx context.Context, space domain.CacheSpace, key string, payload json.RawMessage, ttl time.Duration) error {
	table, err := cacheTable(space)
	if err != nil {
		return err
	}

	now := r.now().UTC()
	row := cacheRow{
		Key:       key,
		Payload:   string(payload),
		ExpiresAt: now.Add(ttl),
		UpdatedAt: now,
	}

	err = r.db.WithContext(ctx).Table(table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: write %s cache: %w", domain.ErrCacheUnavailable, space, err)
	}
	return nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/recipepanel/foodsync/internal/domain"
	"gorm.io/gorm"
)

// SeedRunRepository implements domain.SeedRunRepository over seed_runs
type SeedRunRepository struct {
	db *gorm.DB
}

func NewSeedRunRepository(db *gorm.DB) *SeedRunRepository {
	return &SeedRunRepository{db: db}
}

func (r *SeedRunRepository) Create(ctx context.Context, run *domain.SeedRun) error {
	model := newSeedRunModel(run)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create seed run: %w", err)
	}
	return nil
}

func (r *SeedRunRepository) Get(ctx context.Context, id uuid.UUID) (*domain.SeedRun, error) {
	var rows []seedRunModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get seed run: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrSeedRunNotFound
	}
	return rows[0].run(), nil
}

// Save overwrites the mutable state of an existing run
func (r *SeedRunRepository) Save(ctx context.Context, run *domain.SeedRun) error {
	model := newSeedRunModel(run)

	result := r.db.WithContext(ctx).
		Model(&seedRunModel{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":            model.Status,
			"terms":             pq.StringArray(run.Terms),
			"page_size":         model.PageSize,
			"cursor_term_index": model.CursorTermIndex,
			"cursor_page":       model.CursorPage,
			"processed_count":   model.ProcessedCount,
			"upserted_count":    model.UpsertedCount,
			"error_count":       model.ErrorCount,
			"logs":              gorm.Expr("?::jsonb", logsJSON(model.Logs)),
			"updated_at":        model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save seed run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrSeedRunNotFound
	}
	return nil
}

func logsJSON(logs []domain.SeedLogEntry) string {
	if len(logs) == 0 {
		return "[]"
	}
	data, err := json.Marshal(logs)
	if err != nil {
		return "[]"
	}
	return string(data)
}

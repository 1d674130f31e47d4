package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/recipepanel/foodsync/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository implements domain.ProductRepository over the food_products table
type ProductRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db, now: time.Now}
}

// Upsert writes all items in one INSERT ... ON CONFLICT (source, source_id) DO UPDATE.
// Every column except id and created_at is overwritten, so replaying the same batch
// only moves updated_at.
func (r *ProductRepository) Upsert(ctx context.Context, items []domain.ProductItem, source string) (int, error) {
	items = domain.DedupeByBarcode(items)
	if len(items) == 0 {
		return 0, nil
	}

	now := r.now().UTC()
	models := make([]productModel, 0, len(items))
	for _, item := range items {
		models = append(models, newProductModel(domain.NewProductRecord(item, source, now)))
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}, {Name: "source_id"}},
			DoUpdates: clause.AssignmentColumns(productUpdateColumns),
		}).
		Create(&models)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to upsert %d products: %w", len(models), result.Error)
	}

	return int(result.RowsAffected), nil
}

// FindByBarcode returns nil, nil when no row matches
func (r *ProductRepository) FindByBarcode(ctx context.Context, source, barcode string) (*domain.ProductRecord, error) {
	var rows []productModel
	err := r.db.WithContext(ctx).
		Where("source = ? AND source_id = ?", source, barcode).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", barcode, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	rec := rows[0].record()
	return &rec, nil
}

// FindByBarcodes returns the rows that exist, in the order of barcodes
func (r *ProductRepository) FindByBarcodes(ctx context.Context, source string, barcodes []string) ([]domain.ProductRecord, error) {
	if len(barcodes) == 0 {
		return []domain.ProductRecord{}, nil
	}

	var rows []productModel
	err := r.db.WithContext(ctx).
		Where("source = ? AND source_id IN ?", source, barcodes).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	byBarcode := make(map[string]productModel, len(rows))
	for _, row := range rows {
		byBarcode[row.SourceID] = row
	}

	out := make([]domain.ProductRecord, 0, len(rows))
	for _, code := range barcodes {
		if row, ok := byBarcode[code]; ok {
			out = append(out, row.record())
			delete(byBarcode, code)
		}
	}
	return out, nil
}

// SearchByName does a case-insensitive substring match on both names and the brand
func (r *ProductRepository) SearchByName(ctx context.Context, source, query string, limit int) ([]domain.ProductRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.ProductRecord{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + escapeLike(query) + "%"

	var rows []productModel
	err := r.db.WithContext(ctx).
		Where("source = ?", source).
		Where("name_local ILIKE ? OR name_en ILIKE ? OR brand ILIKE ?", pattern, pattern, pattern).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	out := make([]domain.ProductRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

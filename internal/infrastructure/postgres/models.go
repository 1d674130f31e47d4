package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/recipepanel/foodsync/internal/domain"
)

const (
	searchCacheTable  = "off_search_cache"
	productCacheTable = "off_product_cache"
)

type productModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Source        string `gorm:"size:32;not null;uniqueIndex:idx_food_products_source_id,priority:1"`
	SourceID      string `gorm:"column:source_id;size:64;not null;uniqueIndex:idx_food_products_source_id,priority:2"`
	Barcode       string `gorm:"size:64;not null;index"`
	NameLocal     string `gorm:"not null"`
	NameEn        *string
	Brand         *string
	Categories    pq.StringArray `gorm:"type:text[]"`
	Allergens     pq.StringArray `gorm:"type:text[]"`
	ImageURL      *string        `gorm:"column:image_url"`
	NutrimentsRaw map[string]any `gorm:"type:jsonb;serializer:json"`
	Kcal100g      *float64       `gorm:"column:kcal_100g"`
	Protein100g   *float64       `gorm:"column:protein_100g"`
	Fat100g       *float64       `gorm:"column:fat_100g"`
	Carbs100g     *float64       `gorm:"column:carbs_100g"`
	Sugar100g     *float64       `gorm:"column:sugar_100g"`
	Fiber100g     *float64       `gorm:"column:fiber_100g"`
	Salt100g      *float64       `gorm:"column:salt_100g"`
	CreatedAt     time.Time      `gorm:"autoCreateTime:false"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime:false"`
}

func (productModel) TableName() string { return "food_products" }

// productUpdateColumns is every column except id and created_at
var productUpdateColumns = []string{
	"barcode", "name_local", "name_en", "brand", "categories", "allergens", "image_url",
	"nutriments_raw", "kcal_100g", "protein_100g", "fat_100g", "carbs_100g", "sugar_100g",
	"fiber_100g", "salt_100g", "updated_at",
}

func newProductModel(rec domain.ProductRecord) productModel {
	return productModel{
		Source:        rec.Source,
		SourceID:      rec.SourceID,
		Barcode:       rec.Barcode,
		NameLocal:     rec.NameLocal,
		NameEn:        rec.NameEn,
		Brand:         rec.Brand,
		Categories:    pq.StringArray(rec.Categories),
		Allergens:     pq.StringArray(rec.Allergens),
		ImageURL:      rec.ImageURL,
		NutrimentsRaw: rec.NutrimentsRaw,
		Kcal100g:      rec.Kcal100g,
		Protein100g:   rec.Protein100g,
		Fat100g:       rec.Fat100g,
		Carbs100g:     rec.Carbs100g,
		Sugar100g:     rec.Sugar100g,
		Fiber100g:     rec.Fiber100g,
		Salt100g:      rec.Salt100g,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func (m productModel) record() domain.ProductRecord {
	return domain.ProductRecord{
		ID:            m.ID,
		Source:        m.Source,
		SourceID:      m.SourceID,
		Barcode:       m.Barcode,
		NameLocal:     m.NameLocal,
		NameEn:        m.NameEn,
		Brand:         m.Brand,
		Categories:    []string(m.Categories),
		Allergens:     []string(m.Allergens),
		ImageURL:      m.ImageURL,
		NutrimentsRaw: m.NutrimentsRaw,
		Kcal100g:      m.Kcal100g,
		Protein100g:   m.Protein100g,
		Fat100g:       m.Fat100g,
		Carbs100g:     m.Carbs100g,
		Sugar100g:     m.Sugar100g,
		Fiber100g:     m.Fiber100g,
		Salt100g:      m.Salt100g,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// cacheRow backs both cache tables; the table is chosen per query
type cacheRow struct {
	Key       string    `gorm:"primaryKey;size:512"`
	Payload   string    `gorm:"type:jsonb;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

type seedRunModel struct {
	ID              uuid.UUID             `gorm:"type:uuid;primaryKey"`
	Locale          string                `gorm:"size:8;not null"`
	Terms           pq.StringArray        `gorm:"type:text[];not null"`
	PageSize        int                   `gorm:"not null"`
	Status          string                `gorm:"size:16;not null"`
	CursorTermIndex int                   `gorm:"not null"`
	CursorPage      int                   `gorm:"not null"`
	ProcessedCount  int                   `gorm:"not null"`
	UpsertedCount   int                   `gorm:"not null"`
	ErrorCount      int                   `gorm:"not null"`
	Logs            []domain.SeedLogEntry `gorm:"type:jsonb;serializer:json"`
	CreatedAt       time.Time             `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time             `gorm:"autoUpdateTime:false"`
}

func (seedRunModel) TableName() string { return "seed_runs" }

func newSeedRunModel(run *domain.SeedRun) seedRunModel {
	return seedRunModel{
		ID:              run.ID,
		Locale:          run.Locale,
		Terms:           pq.StringArray(run.Terms),
		PageSize:        run.PageSize,
		Status:          string(run.Status),
		CursorTermIndex: run.Cursor.TermIndex,
		CursorPage:      run.Cursor.Page,
		ProcessedCount:  run.ProcessedCount,
		UpsertedCount:   run.UpsertedCount,
		ErrorCount:      run.ErrorCount,
		Logs:            run.Logs,
		CreatedAt:       run.CreatedAt,
		UpdatedAt:       run.UpdatedAt,
	}
}

func (m seedRunModel) run() *domain.SeedRun {
	logs := m.Logs
	if logs == nil {
		logs = []domain.SeedLogEntry{}
	}
	return &domain.SeedRun{
		ID:             m.ID,
		Locale:         m.Locale,
		Terms:          []string(m.Terms),
		PageSize:       m.PageSize,
		Status:         domain.SeedStatus(m.Status),
		Cursor:         domain.SeedCursor{TermIndex: m.CursorTermIndex, Page: m.CursorPage},
		ProcessedCount: m.ProcessedCount,
		UpsertedCount:  m.UpsertedCount,
		ErrorCount:     m.ErrorCount,
		Logs:           logs,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

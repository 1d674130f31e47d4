package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockUpstreamClient is a mock implementation of domain.UpstreamClient
type MockUpstreamClient struct {
	mock.Mock
}

func (m *MockUpstreamClient) Search(ctx context.Context, query, locale string, page, pageSize int) (json.RawMessage, error) {
	args := m.Called(ctx, query, locale, page, pageSize)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *MockUpstreamClient) FetchByBarcode(ctx context.Context, barcode, locale string) (json.RawMessage, error) {
	args := m.Called(ctx, barcode, locale)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

var errBackendDown = errors.New("connection refused")

// brokenCache fails every call with a backend error
type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, space domain.CacheSpace, key string) (*domain.CacheEntry, error) {
	return nil, errBackendDown
}

func (brokenCache) Put(ctx context.Context, space domain.CacheSpace, key string, payload json.RawMessage, ttl time.Duration) error {
	return errBackendDown
}

// brokenProducts fails writes and reads
type brokenProducts struct{}

func (brokenProducts) Upsert(ctx context.Context, items []domain.ProductItem, source string) (int, error) {
	return 0, errBackendDown
}

func (brokenProducts) FindByBarcode(ctx context.Context, source, barcode string) (*domain.ProductRecord, error) {
	return nil, errBackendDown
}

func (brokenProducts) FindByBarcodes(ctx context.Context, source string, barcodes []string) ([]domain.ProductRecord, error) {
	return nil, errBackendDown
}

func (brokenProducts) SearchByName(ctx context.Context, source, query string, limit int) ([]domain.ProductRecord, error) {
	return nil, errBackendDown
}

const mlekoSearchPayload = `{
	"count": 2,
	"page": 1,
	"page_size": 24,
	"products": [
		{
			"code": "5900512300108",
			"product_name_pl": "Mleko 3,2%",
			"product_name_en": "Milk 3.2%",
			"brands": "Mlekovita",
			"categories_tags": ["en:dairies", "en:milks"],
			"nutriments": {"energy-kcal_100g": 60, "proteins_100g": "3,2", "fat_100g": 3.2, "salt_100g": 0.1}
		},
		{
			"code": "5900820000011",
			"product_name": "Mleko UHT 2%",
			"brands": "Łaciate",
			"nutriments": {"energy-kcal_100g": 50}
		},
		{
			"product_name": "no barcode, dropped"
		}
	]
}`

const nutellaProductPayload = `{
	"status": 1,
	"code": "3017620422003",
	"product": {
		"code": "3017620422003",
		"product_name": "Nutella",
		"brands": "Ferrero",
		"allergens_tags": "en:milk, en:nuts",
		"nutriments": {"energy-kcal_100g": 539, "sugars_100g": 56.3}
	}
}`

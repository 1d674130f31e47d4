package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/recipepanel/foodsync/internal/infrastructure/off"
	"github.com/recipepanel/foodsync/pkg/logger"
	"github.com/recipepanel/foodsync/pkg/metrics"
)

// Response sources
const (
	SourceCache    = "cache"
	SourceUpstream = "off"
	SourceLocal    = "local"
)

// Search cache-hit policies
const (
	// SearchHitLocalFirst re-reads cached barcodes from the product table, falling back
	// to the cached payload when none resolve
	SearchHitLocalFirst = "local_first"
	// SearchHitCachedPayload always serves the cached payload as stored
	SearchHitCachedPayload = "cached_payload"
)

// FoodServiceConfig holds configuration for the food service
type FoodServiceConfig struct {
	DefaultLocale      string
	SearchPageSize     int
	SearchTTL          time.Duration
	ProductTTL         time.Duration
	SearchHitPolicy    string
	LocalFallback      bool
	LocalFallbackLimit int
}

// SearchResult is the body of a search response
type SearchResult struct {
	Source  string               `json:"source"`
	Query   string               `json:"query"`
	Locale  string               `json:"lc"`
	Results []domain.ProductItem `json:"results"`
}

// ProductResult is the body of a single-barcode response
type ProductResult struct {
	Source  string                `json:"source"`
	Barcode string                `json:"barcode"`
	Locale  string                `json:"lc"`
	Product *domain.ProductItem   `json:"product"`
	Local   *domain.ProductRecord `json:"local"`
}

// FoodService answers search and barcode lookups from cache, upstream, or the local table
type FoodService struct {
	cache    domain.CacheRepository
	upstream domain.UpstreamClient
	products domain.ProductRepository
	cfg      FoodServiceConfig
}

// NewFoodService creates a new food service with dependencies
func NewFoodService(
	cache domain.CacheRepository,
	upstream domain.UpstreamClient,
	products domain.ProductRepository,
	cfg FoodServiceConfig,
) *FoodService {
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "en"
	}
	if cfg.SearchPageSize <= 0 {
		cfg.SearchPageSize = 24
	}
	if cfg.SearchTTL == 0 {
		cfg.SearchTTL = 168 * time.Hour
	}
	if cfg.ProductTTL == 0 {
		cfg.ProductTTL = 720 * time.Hour
	}
	if cfg.SearchHitPolicy == "" {
		cfg.SearchHitPolicy = SearchHitLocalFirst
	}
	if cfg.LocalFallbackLimit <= 0 {
		cfg.LocalFallbackLimit = 20
	}

	return &FoodService{
		cache:    cache,
		upstream: upstream,
		products: products,
		cfg:      cfg,
	}
}

// Search looks up products by free text.
// Flow: check cache -> search upstream -> normalize -> upsert + cache -> return
func (s *FoodService) Search(ctx context.Context, query, locale string) (*SearchResult, error) {
	normalized, err := validateQuery(query)
	if err != nil {
		return nil, err
	}
	lc, err := resolveLocale(locale, s.cfg.DefaultLocale)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Query: strings.TrimSpace(query), Locale: lc}
	key := SearchCacheKey(lc, normalized)

	if cached, ok := s.cachedSearch(ctx, key); ok {
		result.Source = SourceCache
		result.Results = s.applyHitPolicy(ctx, cached)
		return result, nil
	}

	raw, err := s.upstream.Search(ctx, normalized, lc, 1, s.cfg.SearchPageSize)
	if err != nil {
		logger.Error().Err(err).Str("query", normalized).Str("lc", lc).Msg("upstream search failed")

		if s.cfg.LocalFallback {
			if local := s.searchLocal(ctx, normalized); len(local) > 0 {
				result.Source = SourceLocal
				result.Results = local
				return result, nil
			}
		}
		return nil, fmt.Errorf("search %q: %w", normalized, err)
	}

	items := off.NormalizeSearchResults(raw, lc)
	s.upsertSoft(ctx, items)

	if payload, err := json.Marshal(items); err == nil {
		s.putSoft(ctx, domain.CacheSpaceSearch, key, payload, s.cfg.SearchTTL)
	}

	result.Source = SourceUpstream
	result.Results = items
	return result, nil
}

// LookupBarcode returns one product by barcode together with its stored row, if any
func (s *FoodService) LookupBarcode(ctx context.Context, barcode, locale string) (*ProductResult, error) {
	code, err := validateBarcode(barcode)
	if err != nil {
		return nil, err
	}
	lc, err := resolveLocale(locale, s.cfg.DefaultLocale)
	if err != nil {
		return nil, err
	}

	result := &ProductResult{Barcode: code, Locale: lc}

	if entry, ok := s.cacheGet(ctx, domain.CacheSpaceProduct, code); ok {
		var item domain.ProductItem
		if err := json.Unmarshal(entry.Payload, &item); err == nil {
			result.Source = SourceCache
			result.Product = &item
			result.Local = s.findLocal(ctx, code)
			return result, nil
		}
		logger.Warn().Str("barcode", code).Msg("discarding undecodable product cache entry")
	}

	raw, err := s.upstream.FetchByBarcode(ctx, code, lc)
	if err != nil {
		if off.StatusCode(err) == http.StatusNotFound {
			return nil, domain.ErrProductNotFound
		}
		logger.Error().Err(err).Str("barcode", code).Str("lc", lc).Msg("upstream product lookup failed")
		return nil, fmt.Errorf("product %s: %w", code, err)
	}

	item := off.NormalizeSingleProduct(raw, code, lc)
	if item == nil {
		return nil, domain.ErrProductNotFound
	}

	s.upsertSoft(ctx, []domain.ProductItem{*item})
	if payload, err := json.Marshal(item); err == nil {
		s.putSoft(ctx, domain.CacheSpaceProduct, code, payload, s.cfg.ProductTTL)
	}

	result.Source = SourceUpstream
	result.Product = item
	result.Local = s.findLocal(ctx, code)
	return result, nil
}

func (s *FoodService) cachedSearch(ctx context.Context, key string) ([]domain.ProductItem, bool) {
	entry, ok := s.cacheGet(ctx, domain.CacheSpaceSearch, key)
	if !ok {
		return nil, false
	}

	var items []domain.ProductItem
	if err := json.Unmarshal(entry.Payload, &items); err != nil {
		logger.Warn().Str("key", key).Msg("discarding undecodable search cache entry")
		return nil, false
	}
	if items == nil {
		items = []domain.ProductItem{}
	}
	return items, true
}

// applyHitPolicy decides what a search cache hit serves
func (s *FoodService) applyHitPolicy(ctx context.Context, cached []domain.ProductItem) []domain.ProductItem {
	if s.cfg.SearchHitPolicy != SearchHitLocalFirst || len(cached) == 0 {
		return cached
	}

	barcodes := make([]string, 0, len(cached))
	for _, item := range cached {
		barcodes = append(barcodes, item.Barcode)
	}

	records, err := s.products.FindByBarcodes(ctx, domain.SourceOpenFoodFacts, barcodes)
	if err != nil {
		logger.Warn().Err(err).Msg("local re-read of cached search failed, serving cached payload")
		return cached
	}
	if len(records) == 0 {
		return cached
	}

	// name_local holds whichever locale wrote the row last; keep the name cached for this locale
	cachedNames := make(map[string]string, len(cached))
	for _, item := range cached {
		cachedNames[item.Barcode] = item.Name
	}

	items := make([]domain.ProductItem, 0, len(records))
	for _, rec := range records {
		item := rec.Item()
		if name, ok := cachedNames[item.Barcode]; ok && name != "" {
			item.Name = name
		}
		items = append(items, item)
	}
	return items
}

func (s *FoodService) searchLocal(ctx context.Context, query string) []domain.ProductItem {
	records, err := s.products.SearchByName(ctx, domain.SourceOpenFoodFacts, query, s.cfg.LocalFallbackLimit)
	if err != nil {
		logger.Warn().Err(err).Str("query", query).Msg("local fallback search failed")
		return nil
	}

	ranked := rankLocal(query, records)
	items := make([]domain.ProductItem, 0, len(ranked))
	for _, rec := range ranked {
		items = append(items, rec.Item())
	}
	return items
}

func (s *FoodService) findLocal(ctx context.Context, barcode string) *domain.ProductRecord {
	rec, err := s.products.FindByBarcode(ctx, domain.SourceOpenFoodFacts, barcode)
	if err != nil {
		logger.Warn().Err(err).Str("barcode", barcode).Msg("local product read failed")
		return nil
	}
	return rec
}

// cacheGet treats every backend failure as a miss
func (s *FoodService) cacheGet(ctx context.Context, space domain.CacheSpace, key string) (*domain.CacheEntry, bool) {
	entry, err := s.cache.Get(ctx, space, key)
	switch {
	case err == nil:
		metrics.RecordCacheHit(string(space))
		return entry, true
	case errors.Is(err, domain.ErrCacheMiss):
		metrics.RecordCacheMiss(string(space))
	default:
		metrics.RecordCacheError(string(space), "get")
		logger.Warn().Err(err).Str("space", string(space)).Str("key", key).Msg("cache read failed")
	}
	return nil, false
}

func (s *FoodService) putSoft(ctx context.Context, space domain.CacheSpace, key string, payload json.RawMessage, ttl time.Duration) {
	if err := s.cache.Put(ctx, space, key, payload, ttl); err != nil {
		metrics.RecordCacheError(string(space), "put")
		logger.Warn().Err(err).Str("space", string(space)).Str("key", key).Msg("cache write failed")
	}
}

func (s *FoodService) upsertSoft(ctx context.Context, items []domain.ProductItem) {
	if len(items) == 0 {
		return
	}
	n, err := s.products.Upsert(ctx, items, domain.SourceOpenFoodFacts)
	if err != nil {
		logger.Warn().Err(err).Int("items", len(items)).Msg("product upsert during lookup failed")
		return
	}
	metrics.RecordProductsUpserted(domain.SourceOpenFoodFacts, n)
}

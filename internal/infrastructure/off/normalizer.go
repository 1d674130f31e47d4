package off

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/recipepanel/foodsync/internal/domain"
)

// NormalizeSearchResults maps a raw search payload to canonical items.
// Missing or malformed "products" yields an empty slice; items without a code are dropped.
func NormalizeSearchResults(raw json.RawMessage, locale string) []domain.ProductItem {
	items := []domain.ProductItem{}

	root, ok := decodeObject(raw)
	if !ok {
		return items
	}
	products, ok := root["products"].([]any)
	if !ok {
		return items
	}

	for _, p := range products {
		obj, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if item := normalizeProduct(obj, locale, ""); item != nil {
			items = append(items, *item)
		}
	}
	return items
}

// NormalizeSingleProduct maps a raw product payload to a canonical item, or nil when the
// upstream reports the item absent
func NormalizeSingleProduct(raw json.RawMessage, barcode, locale string) *domain.ProductItem {
	root, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	if status := parseNumber(root["status"]); status != nil && *status == 0 {
		return nil
	}
	obj, ok := root["product"].(map[string]any)
	if !ok {
		return nil
	}
	return normalizeProduct(obj, locale, barcode)
}

// TotalPages derives the page count of a search payload: ceil(count/page_size) when both are
// known, else the reported page_count, else 0
func TotalPages(raw json.RawMessage, pageSize int) int {
	root, ok := decodeObject(raw)
	if !ok {
		return 0
	}
	size := pageSize
	if n := parseNumber(root["page_size"]); n != nil && *n > 0 {
		size = int(*n)
	}
	if count := parseNumber(root["count"]); count != nil && *count >= 0 && size > 0 {
		return int(math.Ceil(*count / float64(size)))
	}
	if pc := parseNumber(root["page_count"]); pc != nil && *pc >= 0 {
		return int(*pc)
	}
	return 0
}

// normalizeProduct maps one upstream product. A non-empty requestedBarcode wins over the
// payload code, which upstream may have canonicalized (e.g. zero-padded to EAN-13).
func normalizeProduct(obj map[string]any, locale, requestedBarcode string) *domain.ProductItem {
	barcode := requestedBarcode
	if barcode == "" {
		barcode = asString(obj["code"])
	}
	if barcode == "" {
		return nil
	}

	item := &domain.ProductItem{
		Barcode:          barcode,
		Name:             resolveName(obj, locale),
		NameEn:           optional(firstString(obj, "product_name_en")),
		Brand:            optional(firstString(obj, brandKeys...)),
		Categories:       firstTags(obj, categoryKeys...),
		Allergens:        firstTags(obj, allergenKeys...),
		ImageURL:         optional(firstString(obj, imageKeys...)),
		NutritionPer100g: domain.Nutrition{},
	}

	if nutriments, ok := obj["nutriments"].(map[string]any); ok {
		item.NutritionPer100g = resolveNutrition(nutriments)
		item.RawNutriments = plain(nutriments)
	}
	return item
}

// resolveName walks nameKeys and falls back to the placeholder
func resolveName(obj map[string]any, locale string) string {
	if name := firstString(obj, nameKeys(locale)...); name != "" {
		return name
	}
	return domain.UnknownProductName
}

func resolveNutrition(n map[string]any) domain.Nutrition {
	return domain.Nutrition{
		Kcal:     resolveKcal(n),
		ProteinG: firstMacro(n, proteinKeys...),
		FatG:     firstMacro(n, fatKeys...),
		CarbsG:   firstMacro(n, carbsKeys...),
		SugarG:   firstMacro(n, sugarKeys...),
		FiberG:   firstMacro(n, fiberKeys...),
		SaltG:    resolveSalt(n),
	}
}

func resolveKcal(n map[string]any) *float64 {
	if kcal := firstMacro(n, kcalKeys...); kcal != nil {
		return kcal
	}
	return scaled(firstMacro(n, kjKeys...), 1/kjPerKcal)
}

func resolveSalt(n map[string]any) *float64 {
	if salt := firstMacro(n, saltKeys...); salt != nil {
		return salt
	}
	return scaled(firstMacro(n, sodiumKeys...), saltPerSodium)
}

func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root map[string]any
	if err := dec.Decode(&root); err != nil || root == nil {
		return nil, false
	}
	return root, true
}

// plain converts json.Number leaves back to float64 so the raw map serializes as numbers
func plain(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case json.Number:
			if f, err := t.Float64(); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
				out[k] = f
			} else {
				out[k] = t.String()
			}
		default:
			out[k] = v
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package domain

import "time"

// SourceOpenFoodFacts is the source tag stored on every upstream-derived product row
const SourceOpenFoodFacts = "openfoodfacts"

// UnknownProductName is used when the upstream item carries no usable name
const UnknownProductName = "Unknown product"

// Nutrition holds per-100g macros. A nil field means the value is unknown, not zero.
type Nutrition struct {
	Kcal     *float64 `json:"kcal"`
	ProteinG *float64 `json:"protein_g"`
	FatG     *float64 `json:"fat_g"`
	CarbsG   *float64 `json:"carbs_g"`
	SugarG   *float64 `json:"sugar_g"`
	FiberG   *float64 `json:"fiber_g"`
	SaltG    *float64 `json:"salt_g"`
}

// ProductItem is the normalized unit of exchange between the upstream catalog and callers
type ProductItem struct {
	Barcode          string         `json:"barcode"`
	Name             string         `json:"name"`
	NameEn           *string        `json:"nameEn,omitempty"`
	Brand            *string        `json:"brand"`
	Categories       []string       `json:"categories"`
	Allergens        []string       `json:"allergens"`
	ImageURL         *string        `json:"imageUrl"`
	NutritionPer100g Nutrition      `json:"nutritionPer100g"`
	RawNutriments    map[string]any `json:"rawNutriments,omitempty"`
}

// ProductRecord is the durable, source-scoped row behind a ProductItem
type ProductRecord struct {
	ID            int64          `json:"id"`
	Source        string         `json:"source"`
	SourceID      string         `json:"source_id"`
	Barcode       string         `json:"barcode"`
	NameLocal     string         `json:"name_local"`
	NameEn        *string        `json:"name_en"`
	Brand         *string        `json:"brand"`
	Categories    []string       `json:"categories"`
	Allergens     []string       `json:"allergens"`
	ImageURL      *string        `json:"image_url"`
	NutrimentsRaw map[string]any `json:"nutriments_raw"`
	Kcal100g      *float64       `json:"kcal_100g"`
	Protein100g   *float64       `json:"protein_100g"`
	Fat100g       *float64       `json:"fat_100g"`
	Carbs100g     *float64       `json:"carbs_100g"`
	Sugar100g     *float64       `json:"sugar_100g"`
	Fiber100g     *float64       `json:"fiber_100g"`
	Salt100g      *float64       `json:"salt_100g"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewProductRecord maps a normalized item to the row written by the upsert path.
// source_id is always the barcode.
func NewProductRecord(item ProductItem, source string, now time.Time) ProductRecord {
	n := item.NutritionPer100g
	return ProductRecord{
		Source:        source,
		SourceID:      item.Barcode,
		Barcode:       item.Barcode,
		NameLocal:     item.Name,
		NameEn:        item.NameEn,
		Brand:         item.Brand,
		Categories:    nonNil(item.Categories),
		Allergens:     nonNil(item.Allergens),
		ImageURL:      item.ImageURL,
		NutrimentsRaw: item.RawNutriments,
		Kcal100g:      n.Kcal,
		Protein100g:   n.ProteinG,
		Fat100g:       n.FatG,
		Carbs100g:     n.CarbsG,
		Sugar100g:     n.SugarG,
		Fiber100g:     n.FiberG,
		Salt100g:      n.SaltG,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Item converts a stored record back to the exchange shape
func (r ProductRecord) Item() ProductItem {
	return ProductItem{
		Barcode:    r.Barcode,
		Name:       r.NameLocal,
		NameEn:     r.NameEn,
		Brand:      r.Brand,
		Categories: nonNil(r.Categories),
		Allergens:  nonNil(r.Allergens),
		ImageURL:   r.ImageURL,
		NutritionPer100g: Nutrition{
			Kcal:     r.Kcal100g,
			ProteinG: r.Protein100g,
			FatG:     r.Fat100g,
			CarbsG:   r.Carbs100g,
			SugarG:   r.Sugar100g,
			FiberG:   r.Fiber100g,
			SaltG:    r.Salt100g,
		},
		RawNutriments: r.NutrimentsRaw,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// DedupeByBarcode keeps the last occurrence of each barcode, preserving first-seen order.
// A single upsert statement cannot touch the same (source, barcode) row twice.
func DedupeByBarcode(items []ProductItem) []ProductItem {
	index := make(map[string]int, len(items))
	out := make([]ProductItem, 0, len(items))
	for _, item := range items {
		if item.Barcode == "" {
			continue
		}
		if i, ok := index[item.Barcode]; ok {
			out[i] = item
			continue
		}
		index[item.Barcode] = len(out)
		out = append(out, item)
	}
	return out
}

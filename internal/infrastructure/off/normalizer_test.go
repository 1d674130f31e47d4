package off

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/recipepanel/foodsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestNormalizeSearchResults(t *testing.T) {
	raw := json.RawMessage(`{
		"count": 3,
		"products": [
			{
				"code": "5900512300108",
				"product_name_pl": "Mleko 2%",
				"product_name_en": "Milk 2%",
				"brands": "Łaciate",
				"categories_tags": ["en:dairies", " en:milks ", ""],
				"allergens": "en:milk",
				"image_front_url": "https://images.example/milk.jpg",
				"nutriments": {
					"energy-kcal_100g": 50,
					"proteins_100g": "3,2",
					"fat_100g": "2",
					"carbohydrates_100g": 4.8,
					"sugars_100g": null,
					"salt_100g": 0.1
				}
			},
			{"product_name": "no barcode"},
			{"code": 5901234123457, "generic_name": "Chleb"}
		]
	}`)

	items := NormalizeSearchResults(raw, "pl")

	require.Len(t, items, 2)

	milk := items[0]
	assert.Equal(t, "5900512300108", milk.Barcode)
	assert.Equal(t, "Mleko 2%", milk.Name)
	require.NotNil(t, milk.NameEn)
	assert.Equal(t, "Milk 2%", *milk.NameEn)
	require.NotNil(t, milk.Brand)
	assert.Equal(t, "Łaciate", *milk.Brand)
	assert.Equal(t, []string{"en:dairies", "en:milks"}, milk.Categories)
	assert.Equal(t, []string{"en:milk"}, milk.Allergens)
	require.NotNil(t, milk.ImageURL)
	assert.Equal(t, "https://images.example/milk.jpg", *milk.ImageURL)
	assert.Equal(t, ptr(50), milk.NutritionPer100g.Kcal)
	assert.Equal(t, ptr(3.2), milk.NutritionPer100g.ProteinG)
	assert.Equal(t, ptr(2), milk.NutritionPer100g.FatG)
	assert.Equal(t, ptr(4.8), milk.NutritionPer100g.CarbsG)
	assert.Nil(t, milk.NutritionPer100g.SugarG)
	assert.Nil(t, milk.NutritionPer100g.FiberG)
	assert.Equal(t, ptr(0.1), milk.NutritionPer100g.SaltG)
	assert.Equal(t, 50.0, milk.RawNutriments["energy-kcal_100g"])

	bread := items[1]
	assert.Equal(t, "5901234123457", bread.Barcode)
	assert.Equal(t, "Chleb", bread.Name)
	assert.Nil(t, bread.Brand)
	assert.Equal(t, []string{}, bread.Categories)
	assert.Nil(t, bread.RawNutriments)
}

func TestNormalizeSearchResults_MalformedNeverFails(t *testing.T) {
	inputs := []string{
		``,
		`null`,
		`{}`,
		`[]`,
		`"text"`,
		`{"products": null}`,
		`{"products": {}}`,
		`{"products": "nope"}`,
		`{"products": [null, 1, "x", []]}`,
		`{"products": [{"code": ""}, {"code": null}]}`,
		`{not json`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assert.NotPanics(t, func() {
				items := NormalizeSearchResults(json.RawMessage(in), "en")
				assert.NotNil(t, items)
				assert.Empty(t, items)
			})
		})
	}
}

func TestNormalizeSingleProduct(t *testing.T) {
	t.Run("maps product", func(t *testing.T) {
		raw := json.RawMessage(`{"status":1,"product":{"product_name_en":"Hazelnut spread","nutriments":{"energy-kj_100g":2252,"sodium_100g":0.0428}}}`)

		item := NormalizeSingleProduct(raw, "3017620422003", "fr")

		require.NotNil(t, item)
		assert.Equal(t, "3017620422003", item.Barcode)
		assert.Equal(t, "Hazelnut spread", item.Name)
		require.NotNil(t, item.NutritionPer100g.Kcal)
		assert.InDelta(t, 538.2, *item.NutritionPer100g.Kcal, 0.1)
		require.NotNil(t, item.NutritionPer100g.SaltG)
		assert.InDelta(t, 0.107, *item.NutritionPer100g.SaltG, 0.001)
	})

	t.Run("status zero is absent", func(t *testing.T) {
		raw := json.RawMessage(`{"status":0,"status_verbose":"product not found"}`)
		assert.Nil(t, NormalizeSingleProduct(raw, "123", "en"))
	})

	t.Run("missing product object is absent", func(t *testing.T) {
		assert.Nil(t, NormalizeSingleProduct(json.RawMessage(`{"status":1}`), "123", "en"))
		assert.Nil(t, NormalizeSingleProduct(json.RawMessage(`{"status":1,"product":[]}`), "123", "en"))
		assert.Nil(t, NormalizeSingleProduct(json.RawMessage(`garbage`), "123", "en"))
	})

	t.Run("requested barcode wins over canonicalized code", func(t *testing.T) {
		raw := json.RawMessage(`{"status":1,"code":"0012345678905","product":{"code":"0012345678905","product_name":"Oat drink"}}`)

		item := NormalizeSingleProduct(raw, "012345678905", "en")

		require.NotNil(t, item)
		assert.Equal(t, "012345678905", item.Barcode)
	})

	t.Run("placeholder name", func(t *testing.T) {
		item := NormalizeSingleProduct(json.RawMessage(`{"product":{"code":"42"}}`), "42", "de")
		require.NotNil(t, item)
		assert.Equal(t, domain.UnknownProductName, item.Name)
	})
}

func TestResolveName_FallbackOrder(t *testing.T) {
	full := map[string]any{
		"product_name_pl": "Mleko",
		"product_name_en": "Milk",
		"generic_name_pl": "Napój mleczny",
		"generic_name":    "Dairy drink",
		"product_name":    "Lait",
	}

	steps := []struct {
		drop string
		want string
	}{
		{"", "Mleko"},
		{"product_name_pl", "Milk"},
		{"product_name_en", "Napój mleczny"},
		{"generic_name_pl", "Dairy drink"},
		{"generic_name", "Lait"},
		{"product_name", domain.UnknownProductName},
	}

	obj := map[string]any{}
	for k, v := range full {
		obj[k] = v
	}
	for _, step := range steps {
		if step.drop != "" {
			obj[step.drop] = "   "
		}
		assert.Equal(t, step.want, resolveName(obj, "pl"), "after blanking %q", step.drop)
	}
}

func TestNameKeys_EnglishLocale(t *testing.T) {
	assert.Equal(t, []string{"product_name_en", "generic_name", "product_name"}, nameKeys("en"))
	assert.Equal(t, []string{"product_name_pl", "product_name_en", "generic_name_pl", "generic_name", "product_name"}, nameKeys("pl"))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"float", 1.5, ptr(1.5)},
		{"int", 3, ptr(3)},
		{"json number", json.Number("2.25"), ptr(2.25)},
		{"string", " 4.5 ", ptr(4.5)},
		{"comma decimal", "0,75", ptr(0.75)},
		{"empty string", "", nil},
		{"garbage string", "abc", nil},
		{"nan string", "NaN", nil},
		{"inf string", "Inf", nil},
		{"nan float", math.NaN(), nil},
		{"inf float", math.Inf(1), nil},
		{"nil", nil, nil},
		{"bool", true, nil},
		{"negative kept", -1.0, ptr(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseNumber(tt.in))
		})
	}
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseTags(" a, ,b ,"))
	assert.Equal(t, []string{"x", "y"}, parseTags([]any{"x", 1, " ", " y"}))
	assert.Equal(t, []string{}, parseTags(nil))
	assert.Equal(t, []string{}, parseTags(12.0))
}

func TestFirstTags_FallsBackToString(t *testing.T) {
	obj := map[string]any{"categories_tags": []any{}, "categories": "Dairies, Milks"}
	assert.Equal(t, []string{"Dairies", "Milks"}, firstTags(obj, categoryKeys...))
}

func TestResolveNutrition_NegativeBecomesUnknown(t *testing.T) {
	n := resolveNutrition(map[string]any{"proteins_100g": -3.0, "proteins": 5.0, "fat_100g": "-1"})
	assert.Equal(t, ptr(5), n.ProteinG)
	assert.Nil(t, n.FatG)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		pageSize int
		want     int
	}{
		{"count and page size", `{"count": 101, "page_size": 50}`, 20, 3},
		{"count with requested page size", `{"count": 40}`, 20, 2},
		{"page count only", `{"page_count": 2}`, 0, 2},
		{"string count", `{"count": "10", "page_size": "5"}`, 0, 2},
		{"zero results", `{"count": 0, "page_size": 24}`, 24, 0},
		{"nothing", `{}`, 0, 0},
		{"malformed", `[`, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalPages(json.RawMessage(tt.raw), tt.pageSize))
		})
	}
}

func TestFieldList(t *testing.T) {
	assert.Equal(t,
		"code,product_name_pl,generic_name_pl,product_name_en,generic_name,product_name,brands,brand_owner,categories_tags,categories,allergens_tags,allergens,image_url,image_front_url,image_small_url,image_front_small_url,nutriments",
		FieldList("pl"))
	assert.NotContains(t, FieldList("en"), "product_name_en,product_name_en")
}

// fuzzValue produces the kinds of values the crowd-sourced catalog sends for a numeric field
func fuzzValue(r *rand.Rand) any {
	switch r.Intn(9) {
	case 0:
		return nil
	case 1:
		return r.NormFloat64() * 100
	case 2:
		return fmt.Sprintf("%.3f", r.Float64()*50)
	case 3:
		return fmt.Sprintf("%.1f", -r.Float64()*10)
	case 4:
		return "NaN"
	case 5:
		return "Infinity"
	case 6:
		return "1e400"
	case 7:
		return []any{1, 2}
	default:
		return "n/a"
	}
}

func TestNormalize_MacrosAreFiniteOrUnknown(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	keys := []string{}
	for _, group := range [][]string{kcalKeys, kjKeys, proteinKeys, fatKeys, carbsKeys, sugarKeys, fiberKeys, saltKeys, sodiumKeys} {
		keys = append(keys, group...)
	}

	for i := 0; i < 500; i++ {
		nutriments := map[string]any{}
		for _, k := range keys {
			if r.Intn(3) == 0 {
				continue
			}
			nutriments[k] = fuzzValue(r)
		}
		product := map[string]any{"code": fmt.Sprintf("%013d", i), "nutriments": nutriments}
		if r.Intn(5) == 0 {
			delete(product, "code")
		}
		raw, err := json.Marshal(map[string]any{"products": []any{product}})
		require.NoError(t, err)

		for _, item := range NormalizeSearchResults(raw, "en") {
			n := item.NutritionPer100g
			for _, v := range []*float64{n.Kcal, n.ProteinG, n.FatG, n.CarbsG, n.SugarG, n.FiberG, n.SaltG} {
				if v == nil {
					continue
				}
				assert.False(t, math.IsNaN(*v) || math.IsInf(*v, 0), "non-finite macro in %s", raw)
				assert.GreaterOrEqual(t, *v, 0.0, "negative macro in %s", raw)
			}
		}
	}
}

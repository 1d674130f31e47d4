package off

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Ordered fallback keys per macro. The first key holding a usable number wins.
var (
	kcalKeys    = []string{"energy-kcal_100g", "energy-kcal"}
	kjKeys      = []string{"energy-kj_100g", "energy-kj", "energy_100g"}
	proteinKeys = []string{"proteins_100g", "proteins"}
	fatKeys     = []string{"fat_100g", "fat"}
	carbsKeys   = []string{"carbohydrates_100g", "carbohydrates"}
	sugarKeys   = []string{"sugars_100g", "sugars"}
	fiberKeys   = []string{"fiber_100g", "fiber"}
	saltKeys    = []string{"salt_100g", "salt"}
	sodiumKeys  = []string{"sodium_100g", "sodium"}

	imageKeys     = []string{"image_url", "image_front_url", "image_small_url", "image_front_small_url"}
	brandKeys     = []string{"brands", "brand_owner"}
	categoryKeys  = []string{"categories_tags", "categories"}
	allergenKeys  = []string{"allergens_tags", "allergens"}
	kjPerKcal     = 4.184
	saltPerSodium = 2.5
)

// FieldList is the value of the upstream "fields" parameter: exactly what the normalizer reads
func FieldList(locale string) string {
	fields := []string{"code"}
	if locale != "" && locale != "en" {
		fields = append(fields, "product_name_"+locale, "generic_name_"+locale)
	}
	fields = append(fields, "product_name_en", "generic_name", "product_name")
	fields = append(fields, brandKeys...)
	fields = append(fields, categoryKeys...)
	fields = append(fields, allergenKeys...)
	fields = append(fields, imageKeys...)
	fields = append(fields, "nutriments")
	return strings.Join(fields, ",")
}

// nameKeys is the resolution order for the display name
func nameKeys(locale string) []string {
	keys := make([]string, 0, 6)
	if locale != "" && locale != "en" {
		keys = append(keys, "product_name_"+locale)
	}
	keys = append(keys, "product_name_en")
	if locale != "" && locale != "en" {
		keys = append(keys, "generic_name_"+locale)
	}
	keys = append(keys, "generic_name", "product_name")
	return keys
}

// firstString returns the first key holding a non-blank string
func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

// firstMacro returns the first key holding a finite, non-negative number.
// Negative values are catalog typos and fall through to the next key.
func firstMacro(obj map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if n := parseNumber(obj[k]); n != nil && *n >= 0 {
			return n
		}
	}
	return nil
}

// asString accepts strings, numbers and string arrays (joined) and trims the result
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		return strings.Join(parseTags(t), ", ")
	default:
		return ""
	}
}

// parseNumber coerces numbers and numeric strings. Non-finite values become nil.
func parseNumber(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		s = strings.Replace(s, ",", ".", 1)
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func scaled(n *float64, factor float64) *float64 {
	if n == nil {
		return nil
	}
	v := *n * factor
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseTags accepts a comma-delimited string or an array and returns trimmed non-empty strings
func parseTags(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, el := range t {
			if s, ok := el.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// firstTags returns the tags of the first key yielding a non-empty list
func firstTags(obj map[string]any, keys ...string) []string {
	for _, k := range keys {
		if tags := parseTags(obj[k]); len(tags) > 0 {
			return tags
		}
	}
	return []string{}
}

package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/recipepanel/foodsync/internal/domain"
	"golang.org/x/text/unicode/norm"
)

// MinQueryLength is the shortest accepted search text, in runes
const MinQueryLength = 2

var (
	barcodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)
	localePattern  = regexp.MustCompile(`^[a-z]{2}$`)
)

// NormalizeQuery folds a search text into its cache-key form: NFC, lower case, single spaces
func NormalizeQuery(q string) string {
	q = norm.NFC.String(q)
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// SearchCacheKey builds the "<locale>:<normalized query>" key of the search keyspace
func SearchCacheKey(locale, query string) string {
	return locale + ":" + NormalizeQuery(query)
}

func validateQuery(q string) (string, error) {
	normalized := NormalizeQuery(q)
	if utf8.RuneCountInString(normalized) < MinQueryLength {
		return "", fmt.Errorf("%w: query must be at least %d characters", domain.ErrInvalidRequest, MinQueryLength)
	}
	return normalized, nil
}

func validateBarcode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !barcodePattern.MatchString(code) {
		return "", fmt.Errorf("%w: barcode must be 8-14 digits", domain.ErrInvalidRequest)
	}
	return code, nil
}

func resolveLocale(lc, fallback string) (string, error) {
	lc = strings.ToLower(strings.TrimSpace(lc))
	if lc == "" {
		lc = fallback
	}
	if !localePattern.MatchString(lc) {
		return "", fmt.Errorf("%w: locale must be a 2-letter code", domain.ErrInvalidRequest)
	}
	return lc, nil
}

// rankLocal orders locally stored records by fuzzy closeness to the query.
// Records the matcher cannot place keep their original relative order at the end.
func rankLocal(query string, records []domain.ProductRecord) []domain.ProductRecord {
	if len(records) < 2 {
		return records
	}

	targets := make([]string, len(records))
	for i, rec := range records {
		parts := []string{rec.NameLocal}
		if rec.NameEn != nil {
			parts = append(parts, *rec.NameEn)
		}
		if rec.Brand != nil {
			parts = append(parts, *rec.Brand)
		}
		targets[i] = strings.Join(parts, " ")
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	out := make([]domain.ProductRecord, 0, len(records))
	placed := make([]bool, len(records))
	for _, r := range ranks {
		if placed[r.OriginalIndex] {
			continue
		}
		placed[r.OriginalIndex] = true
		out = append(out, records[r.OriginalIndex])
	}
	for i, rec := range records {
		if !placed[i] {
			out = append(out, rec)
		}
	}
	return out
}

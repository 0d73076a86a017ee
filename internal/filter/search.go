package filter

import (
	"strings"
	"unicode/utf8"

	"github.com/jonathan/openpay/internal/cleanup"
	"github.com/jonathan/openpay/internal/types"
)

// MinQueryLength is the shortest query that triggers a search or a suggestion.
const MinQueryLength = 2

// DefaultSuggestLimit caps autosuggest results when no limit is given.
const DefaultSuggestLimit = 10

func normalizedQuery(q string) (string, bool) {
	q = cleanup.NormalizeTitle(q)
	return q, utf8.RuneCountInString(q) >= MinQueryLength
}

// SearchByTitle returns the records whose normalized title contains the normalized query.
func SearchByTitle(records []types.CleanedSalaryRecord, query string) []types.CleanedSalaryRecord {
	q, ok := normalizedQuery(query)
	if !ok {
		return nil
	}
	var out []types.CleanedSalaryRecord
	for _, rec := range records {
		if strings.Contains(cleanup.NormalizeTitle(rec.Title), q) {
			out = append(out, rec)
		}
	}
	return out
}

// Suggest returns up to limit titles matching query: prefix matches first, then
// substring matches, each group in input order.
func Suggest(titles []string, query string, limit int) []string {
	q, ok := normalizedQuery(query)
	if !ok {
		return []string{}
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	var prefix, contains []string
	for _, title := range titles {
		n := cleanup.NormalizeTitle(title)
		switch {
		case strings.HasPrefix(n, q):
			prefix = append(prefix, title)
		case strings.Contains(n, q):
			contains = append(contains, title)
		}
	}

	out := append(prefix, contains...)
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// MatchTitles returns up to limit known titles containing query, case and accent
// insensitively. It is the local stand-in for completion-service title resolution.
func MatchTitles(known []string, query string, limit int) []string {
	q := cleanup.NormalizeTitle(query)
	if q == "" {
		return []string{}
	}
	out := []string{}
	for _, title := range known {
		if strings.Contains(cleanup.NormalizeTitle(title), q) {
			out = append(out, title)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

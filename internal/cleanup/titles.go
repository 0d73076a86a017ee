package cleanup

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jonathan/openpay/internal/types"
)

// NormalizeTitle returns the comparison key of a job title: trimmed, lowercased
// and stripped of diacritics.
func NormalizeTitle(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}

func countUpper(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			n++
		}
	}
	return n
}

// UniqueTitles returns one display form per normalized title, sorted by display string.
// Among variants the one with strictly more uppercase letters wins; ties keep the first seen.
func UniqueTitles(records []types.CleanedSalaryRecord) []string {
	best := make(map[string]string)
	for _, rec := range records {
		display := strings.TrimSpace(rec.Title)
		if display == "" {
			continue
		}
		key := NormalizeTitle(display)
		current, seen := best[key]
		if !seen || countUpper(display) > countUpper(current) {
			best[key] = display
		}
	}

	titles := make([]string, 0, len(best))
	for _, display := range best {
		titles = append(titles, display)
	}
	sort.Strings(titles)
	return titles
}

// Package filter applies composable predicates to cleaned salary records and
// provides title search and autosuggest.
package filter

import (
	"strings"

	"github.com/jonathan/openpay/internal/cleanup"
	"github.com/jonathan/openpay/internal/types"
)

// Apply returns the records matching every predicate of f. The input is not modified.
func Apply(records []types.CleanedSalaryRecord, f types.SalaryFilter) []types.CleanedSalaryRecord {
	p := compile(f)
	out := make([]types.CleanedSalaryRecord, 0, len(records))
	for _, rec := range records {
		if p.match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

type predicate struct {
	f         types.SalaryFilter
	titles    map[string]struct{}
	locations []string
	levels    map[types.Level]struct{}
	remotes   map[types.RemoteVariant]struct{}
}

func compile(f types.SalaryFilter) predicate {
	p := predicate{f: f}
	if len(f.Titles) > 0 {
		p.titles = make(map[string]struct{}, len(f.Titles))
		for _, t := range f.Titles {
			p.titles[cleanup.NormalizeTitle(t)] = struct{}{}
		}
	}
	for _, loc := range f.Locations {
		if loc = strings.ToLower(strings.TrimSpace(loc)); loc != "" {
			p.locations = append(p.locations, loc)
		}
	}
	if len(f.Levels) > 0 {
		p.levels = make(map[types.Level]struct{}, len(f.Levels))
		for _, l := range f.Levels {
			p.levels[l] = struct{}{}
		}
	}
	if len(f.RemoteVariants) > 0 {
		p.remotes = make(map[types.RemoteVariant]struct{}, len(f.RemoteVariants))
		for _, v := range f.RemoteVariants {
			p.remotes[v] = struct{}{}
		}
	}
	return p
}

func (p predicate) match(rec types.CleanedSalaryRecord) bool {
	if p.titles != nil {
		if _, ok := p.titles[cleanup.NormalizeTitle(rec.Title)]; !ok {
			return false
		}
	}
	if p.f.MinCompensation != nil && rec.Compensation < *p.f.MinCompensation {
		return false
	}
	if p.f.MaxCompensation != nil && rec.Compensation > *p.f.MaxCompensation {
		return false
	}
	if p.f.MinExperience != nil && rec.TotalXP < *p.f.MinExperience {
		return false
	}
	if p.f.MaxExperience != nil && rec.TotalXP > *p.f.MaxExperience {
		return false
	}
	if len(p.locations) > 0 && !containsAny(strings.ToLower(rec.Location), p.locations) {
		return false
	}
	if p.levels != nil {
		if _, ok := p.levels[rec.Level]; !ok {
			return false
		}
	}
	if p.remotes != nil {
		if rec.Remote == nil {
			return false
		}
		if _, ok := p.remotes[rec.Remote.Variant]; !ok {
			return false
		}
	}
	if p.f.Country != "" && rec.Country != p.f.Country {
		return false
	}
	return true
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// SplitByCountry separates the records of country from all the others.
func SplitByCountry(records []types.CleanedSalaryRecord, country string) (in, out []types.CleanedSalaryRecord) {
	for _, rec := range records {
		if rec.Country == country {
			in = append(in, rec)
		} else {
			out = append(out, rec)
		}
	}
	return in, out
}

// ByTitle returns the records whose title normalizes to one of titles.
func ByTitle(records []types.CleanedSalaryRecord, titles ...string) []types.CleanedSalaryRecord {
	if len(titles) == 0 {
		return nil
	}
	return Apply(records, types.SalaryFilter{Titles: titles})
}

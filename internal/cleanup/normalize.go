// Package cleanup validates raw salary records, fills their missing fields and
// deduplicates job titles.
package cleanup

import (
	"strings"

	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/types"
)

// DropReason explains why a record was excluded.
type DropReason string

const (
	DropMissingCompany          DropReason = "missing_company"
	DropMissingLocation         DropReason = "missing_location"
	DropNonPositiveCompensation DropReason = "non_positive_compensation"
	DropCompensationOutOfRange  DropReason = "compensation_out_of_range"
)

// Report summarizes one normalization pass.
type Report struct {
	Input   int                `json:"input"`
	Kept    int                `json:"kept"`
	Dropped map[DropReason]int `json:"dropped"`
}

// DroppedTotal returns the number of excluded records.
func (r Report) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// Options holds the normalization policy.
type Options struct {
	TitlePlaceholder string
	DefaultCountry   string
	DefaultSource    types.Source
	SecondaryCountry string                  // records of this country use SecondaryBand
	SecondaryBand    config.CompensationBand // plausible range in the secondary currency
	DefaultBand      config.CompensationBand // plausible range for every other record
}

// OptionsFromConfig derives the policy from the market configuration.
func OptionsFromConfig(m config.MarketConfig) Options {
	return Options{
		TitlePlaceholder: m.TitlePlaceholder,
		DefaultCountry:   m.PrimaryCountry,
		DefaultSource:    types.Source(m.DefaultSource),
		SecondaryCountry: m.SecondaryCountry,
		SecondaryBand:    m.SecondaryBand,
		DefaultBand:      m.DefaultBand,
	}
}

// DefaultOptions returns the policy of the built-in configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Market)
}

// EstimateLevel maps total years of experience to a level.
func EstimateLevel(totalXP int) types.Level {
	switch {
	case totalXP <= 2:
		return types.LevelJunior
	case totalXP <= 5:
		return types.LevelMid
	default:
		return types.LevelSenior
	}
}

// Normalize drops invalid records and fills the missing fields of the others.
// Invalid records are never repaired; the report carries the drop counts.
func Normalize(raw []types.SalaryRecord, opts Options) ([]types.CleanedSalaryRecord, Report) {
	report := Report{Input: len(raw), Dropped: map[DropReason]int{}}
	out := make([]types.CleanedSalaryRecord, 0, len(raw))

	for _, rec := range raw {
		if reason, ok := opts.Check(rec); !ok {
			report.Dropped[reason]++
			continue
		}
		out = append(out, opts.fill(rec))
	}

	report.Kept = len(out)
	return out, report
}

// Check reports whether Normalize would keep rec, and the drop reason if not.
func (o Options) Check(rec types.SalaryRecord) (DropReason, bool) {
	if strings.TrimSpace(rec.Company) == "" {
		return DropMissingCompany, false
	}
	if strings.TrimSpace(rec.Location) == "" {
		return DropMissingLocation, false
	}
	if rec.Compensation <= 0 {
		return DropNonPositiveCompensation, false
	}
	band := o.DefaultBand
	if o.SecondaryCountry != "" && rec.Country == o.SecondaryCountry {
		band = o.SecondaryBand
	}
	if !band.Contains(rec.Compensation) {
		return DropCompensationOutOfRange, false
	}
	return "", true
}

func (o Options) fill(rec types.SalaryRecord) types.CleanedSalaryRecord {
	title := ""
	if rec.Title != nil {
		title = strings.TrimSpace(*rec.Title)
	}
	if title == "" {
		title = o.TitlePlaceholder
	}

	totalXP := 0
	switch {
	case rec.TotalXP != nil:
		totalXP = *rec.TotalXP
	case rec.CompanyXP != nil:
		totalXP = *rec.CompanyXP
	}
	if totalXP < 0 {
		totalXP = 0
	}

	level := EstimateLevel(totalXP)
	if rec.Level != nil && rec.Level.Valid() {
		level = *rec.Level
	}

	country := rec.Country
	if country == "" {
		country = o.DefaultCountry
	}
	source := rec.Source
	if source == "" {
		source = o.DefaultSource
	}

	return types.CleanedSalaryRecord{
		ID:           rec.ID,
		Company:      rec.Company,
		Title:        title,
		Location:     rec.Location,
		Compensation: rec.Compensation,
		Date:         rec.Date,
		Level:        level,
		CompanyXP:    rec.CompanyXP,
		TotalXP:      totalXP,
		Remote:       rec.Remote,
		Source:       source,
		Country:      country,
	}
}

// Renormalize runs Normalize over already cleaned records.
func Renormalize(recs []types.CleanedSalaryRecord, opts Options) ([]types.CleanedSalaryRecord, Report) {
	raw := make([]types.SalaryRecord, len(recs))
	for i, r := range recs {
		raw[i] = r.Raw()
	}
	return Normalize(raw, opts)
}

// Package stats computes descriptive statistics over cleaned salary records.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/jonathan/openpay/internal/cleanup"
	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/types"
)

// Calculator computes SalaryStatistics snapshots.
type Calculator struct {
	MinSamples         int
	Brackets           []config.Bracket
	LeastExperiencedXP int // records with TotalXP <= this form the least experienced group
	MostExperiencedXP  int // records with TotalXP >= this form the most experienced group
	Now                func() time.Time
}

// NewCalculator builds a calculator from the statistics configuration.
func NewCalculator(cfg config.StatsConfig) *Calculator {
	return &Calculator{
		MinSamples:         cfg.MinSamples,
		Brackets:           cfg.Brackets,
		LeastExperiencedXP: cfg.LeastExperienced(),
		MostExperiencedXP:  cfg.MostExperienced(),
		Now:                time.Now,
	}
}

// WithMinSamples returns a copy of c gated on n samples.
func (c *Calculator) WithMinSamples(n int) *Calculator {
	cp := *c
	cp.MinSamples = n
	return &cp
}

// Compute returns the statistics of records, or nil and false when there are fewer
// than MinSamples records.
func (c *Calculator) Compute(records []types.CleanedSalaryRecord) (*types.SalaryStatistics, bool) {
	n := len(records)
	if n == 0 || n < c.MinSamples {
		return nil, false
	}

	values := sortedCompensations(records)
	mean := Mean(values)

	s := &types.SalaryStatistics{
		Count:               n,
		Mean:                mean,
		Median:              Median(values),
		StdDev:              StdDev(values, mean),
		Min:                 values[0],
		Max:                 values[n-1],
		Quartiles:           RankQuartiles(values),
		ExperienceBreakdown: c.experienceBreakdown(records),
		RemoteBreakdown:     remoteBreakdown(records),
		LeastExperiencedAvg: groupMean(records, func(xp int) bool { return xp <= c.LeastExperiencedXP }, mean),
		MostExperiencedAvg:  groupMean(records, func(xp int) bool { return xp >= c.MostExperiencedXP }, mean),
		JuniorMax:           bestProfile(records, func(xp int) bool { return xp <= c.LeastExperiencedXP }),
		SeniorMax:           bestProfile(records, func(xp int) bool { return xp >= c.MostExperiencedXP }),
		CalculatedAt:        c.now(),
		JobTitles:           cleanup.UniqueTitles(records),
	}
	return s, true
}

func (c *Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func sortedCompensations(records []types.CleanedSalaryRecord) []float64 {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.Compensation
	}
	sort.Float64s(values)
	return values
}

// Mean returns the arithmetic mean of values, zero when empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the median of sorted values, zero when empty.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// StdDev returns the population standard deviation of values around mean.
func StdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// RankQuartiles returns Q1 = sorted[floor(n*0.25)], the median and
// Q3 = sorted[floor(n*0.75)]. sorted must be non-empty and ascending.
func RankQuartiles(sorted []float64) types.Quartiles {
	n := len(sorted)
	if n == 0 {
		return types.Quartiles{}
	}
	return types.Quartiles{
		Q1:     sorted[int(math.Floor(float64(n)*0.25))],
		Median: Median(sorted),
		Q3:     sorted[int(math.Floor(float64(n)*0.75))],
	}
}

func (c *Calculator) experienceBreakdown(records []types.CleanedSalaryRecord) []types.ExperienceBreakdown {
	out := make([]types.ExperienceBreakdown, 0, len(c.Brackets))
	for _, b := range c.Brackets {
		var values []float64
		for _, r := range records {
			if r.TotalXP >= b.MinXP && (b.MaxXP == nil || r.TotalXP <= *b.MaxXP) {
				values = append(values, r.Compensation)
			}
		}
		sort.Float64s(values)

		var maxXP *int
		if b.MaxXP != nil {
			v := *b.MaxXP
			maxXP = &v
		}
		out = append(out, types.ExperienceBreakdown{
			Label:         b.Label,
			MinXP:         b.MinXP,
			MaxXP:         maxXP,
			Count:         len(values),
			AverageSalary: Mean(values),
			MedianSalary:  Median(values),
		})
	}
	return out
}

func remoteBreakdown(records []types.CleanedSalaryRecord) []types.RemoteBreakdown {
	n := float64(len(records))
	out := make([]types.RemoteBreakdown, 0, len(types.RemoteVariants))
	for _, variant := range types.RemoteVariants {
		var values []float64
		for _, r := range records {
			if r.Remote != nil && r.Remote.Variant == variant {
				values = append(values, r.Compensation)
			}
		}
		entry := types.RemoteBreakdown{
			Variant:       variant,
			Count:         len(values),
			AverageSalary: Mean(values),
		}
		if n > 0 {
			entry.Percentage = float64(len(values)) / n
		}
		out = append(out, entry)
	}
	return out
}

func groupMean(records []types.CleanedSalaryRecord, in func(xp int) bool, fallback float64) float64 {
	var values []float64
	for _, r := range records {
		if in(r.TotalXP) {
			values = append(values, r.Compensation)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return Mean(values)
}

func bestProfile(records []types.CleanedSalaryRecord, in func(xp int) bool) *types.BestProfile {
	var best *types.CleanedSalaryRecord
	for i := range records {
		r := &records[i]
		if in(r.TotalXP) && (best == nil || r.Compensation > best.Compensation) {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	return &types.BestProfile{
		Compensation: best.Compensation,
		Company:      best.Company,
		Title:        best.Title,
		Location:     best.Location,
	}
}

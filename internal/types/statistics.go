package types

import "time"

// Quartiles holds the rank-index quartiles of a compensation set.
type Quartiles struct {
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
}

// ExperienceBreakdown aggregates the records of one experience bracket.
// AverageSalary and MedianSalary are zero when Count is zero.
type ExperienceBreakdown struct {
	Label         string  `json:"label"`
	MinXP         int     `json:"minXp"`
	MaxXP         *int    `json:"maxXp"` // nil means open-ended
	Count         int     `json:"count"`
	AverageSalary float64 `json:"averageSalary"`
	MedianSalary  float64 `json:"medianSalary"`
}

// RemoteBreakdown aggregates the records of one remote variant.
// Percentage is a fraction of the whole sample, in [0, 1].
type RemoteBreakdown struct {
	Variant       RemoteVariant `json:"variant"`
	Count         int           `json:"count"`
	Percentage    float64       `json:"percentage"`
	AverageSalary float64       `json:"averageSalary"`
}

// BestProfile is the highest-paid record of an experience group.
type BestProfile struct {
	Compensation float64 `json:"compensation"`
	Company      string  `json:"company"`
	Title        string  `json:"title"`
	Location     string  `json:"location"`
}

// SalaryStatistics is an immutable snapshot computed over a filtered record set.
type SalaryStatistics struct {
	Count               int                   `json:"count"`
	Mean                float64               `json:"mean"`
	Median              float64               `json:"median"`
	StdDev              float64               `json:"stdDev"`
	Min                 float64               `json:"min"`
	Max                 float64               `json:"max"`
	Quartiles           Quartiles             `json:"quartiles"`
	ExperienceBreakdown []ExperienceBreakdown `json:"experienceBreakdown"`
	RemoteBreakdown     []RemoteBreakdown     `json:"remoteBreakdown"`
	LeastExperiencedAvg float64               `json:"leastExperiencedAvg"`
	MostExperiencedAvg  float64               `json:"mostExperiencedAvg"`
	JuniorMax           *BestProfile          `json:"juniorMax,omitempty"`
	SeniorMax           *BestProfile          `json:"seniorMax,omitempty"`
	CalculatedAt        time.Time             `json:"calculatedAt"`
	JobTitles           []string              `json:"jobTitles"`
}

// DistributionBin is one bucket of a compensation histogram.
// Percentage is a fraction of the sample, in [0, 1].
type DistributionBin struct {
	RangeStart float64 `json:"rangeStart"`
	RangeEnd   float64 `json:"rangeEnd"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Package types provides the data model shared by the salary pipeline, the HTTP API and the CLI.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Level is the seniority tier declared on, or estimated for, a salary record.
type Level string

const (
	LevelJunior Level = "Junior"
	LevelMid    Level = "Mid"
	LevelSenior Level = "Senior"
	LevelLead   Level = "Lead"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelJunior, LevelMid, LevelSenior, LevelLead:
		return true
	}
	return false
}

// RemoteVariant describes how much of the job is done remotely.
type RemoteVariant string

const (
	RemoteNone    RemoteVariant = "none"
	RemotePartial RemoteVariant = "partial"
	RemoteFull    RemoteVariant = "full"
)

// RemoteVariants lists the variants in breakdown order.
var RemoteVariants = []RemoteVariant{RemoteNone, RemotePartial, RemoteFull}

// Source tags where a record came from.
type Source string

const (
	SourceSalairesDev Source = "salaires.dev"
	SourceCommunity   Source = "community"
)

// RemoteConfig is the optional remote-work detail of a record.
type RemoteConfig struct {
	Variant  RemoteVariant `json:"variant"`
	DayCount *int          `json:"dayCount,omitempty"`
	Base     string        `json:"base,omitempty"` // week or month
	Location string        `json:"location,omitempty"`
}

// SalaryRecord is a raw record as received from the salary API or the community store.
type SalaryRecord struct {
	ID           string        `json:"id,omitempty"`
	Company      string        `json:"company"`
	Title        *string       `json:"title,omitempty"`
	Location     string        `json:"location"`
	Compensation float64       `json:"compensation"`
	Date         string        `json:"date"`
	Level        *Level        `json:"level,omitempty"`
	CompanyXP    *int          `json:"company_xp,omitempty"`
	TotalXP      *int          `json:"total_xp,omitempty"`
	Remote       *RemoteConfig `json:"remote,omitempty"`
	Source       Source        `json:"source,omitempty"`
	Country      string        `json:"country,omitempty"`
}

// CleanedSalaryRecord is a record that survived normalization.
// Title, TotalXP, Level, Country and Source are always populated.
type CleanedSalaryRecord struct {
	ID           string        `json:"id,omitempty"`
	Company      string        `json:"company"`
	Title        string        `json:"title"`
	Location     string        `json:"location"`
	Compensation float64       `json:"compensation"`
	Date         string        `json:"date"`
	Level        Level         `json:"level"`
	CompanyXP    *int          `json:"company_xp,omitempty"`
	TotalXP      int           `json:"total_xp"`
	Remote       *RemoteConfig `json:"remote,omitempty"`
	Source       Source        `json:"source"`
	Country      string        `json:"country"`
}

// Raw converts a cleaned record back into the raw shape, e.g. to re-run normalization.
func (c CleanedSalaryRecord) Raw() SalaryRecord {
	title := c.Title
	level := c.Level
	totalXP := c.TotalXP
	return SalaryRecord{
		ID:           c.ID,
		Company:      c.Company,
		Title:        &title,
		Location:     c.Location,
		Compensation: c.Compensation,
		Date:         c.Date,
		Level:        &level,
		CompanyXP:    c.CompanyXP,
		TotalXP:      &totalXP,
		Remote:       c.Remote,
		Source:       c.Source,
		Country:      c.Country,
	}
}

// NormalizedRecord is a cleaned record whose Compensation has been converted to the
// common currency. The original figure is retained for display.
type NormalizedRecord struct {
	CleanedSalaryRecord
	OriginalCompensation float64 `json:"originalCompensation"`
	OriginalCurrency     string  `json:"originalCurrency"`
}

// SalaryFilter is a set of optional, AND-combined predicates. Nil pointers and empty
// slices mean "no constraint".
type SalaryFilter struct {
	Titles          []string        `json:"titles,omitempty"`
	MinCompensation *float64        `json:"minCompensation,omitempty"`
	MaxCompensation *float64        `json:"maxCompensation,omitempty"`
	MinExperience   *int            `json:"minExperience,omitempty"`
	MaxExperience   *int            `json:"maxExperience,omitempty"`
	Locations       []string        `json:"locations,omitempty"`
	Levels          []Level         `json:"levels,omitempty"`
	RemoteVariants  []RemoteVariant `json:"remoteVariants,omitempty"`
	Country         string          `json:"country,omitempty"`
}

package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/openpay/internal/pipeline"
	"github.com/jonathan/openpay/internal/types"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1 000"},
		{52000, "52 000"},
		{12345678.6, "12 345 679"},
		{-4500, "-4 500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAmount(tt.in))
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &pipeline.Report{
		Query:  "devops",
		Titles: []string{"DevOps Engineer"},
		Count:  5,
		Statistics: &types.SalaryStatistics{
			Count:     5,
			Mean:      50000,
			Median:    50000,
			Min:       40000,
			Max:       60000,
			Quartiles: types.Quartiles{Q1: 45000, Median: 50000, Q3: 55000},
			ExperienceBreakdown: []types.ExperienceBreakdown{
				{Label: "0-2 ans", Count: 1, MedianSalary: 40000},
				{Label: "10+ ans", Count: 0},
			},
			RemoteBreakdown: []types.RemoteBreakdown{
				{Variant: types.RemoteVariant("full"), Count: 2, Percentage: 0.4},
			},
		},
		Distribution: []types.DistributionBin{
			{RangeStart: 40000, RangeEnd: 50000, Count: 2, Percentage: 0.4},
			{RangeStart: 50000, RangeEnd: 60000, Count: 3, Percentage: 0.6},
		},
		Summary:  "Sur 5 salaires analysés, le salaire médian est de 50 000 €.",
		Roadmaps: []string{"https://roadmap.sh/devops"},
	}

	p.PrintReport(report)
	output := buf.String()

	assert.Contains(t, output, "SALARY REPORT")
	assert.Contains(t, output, "DevOps Engineer")
	assert.Contains(t, output, "Median:   50 000")
	assert.Contains(t, output, "0-2 ans")
	assert.NotContains(t, output, "10+ ans", "empty brackets are skipped")
	assert.Contains(t, output, "40.0%")
	assert.Contains(t, output, "DISTRIBUTION")
	assert.Contains(t, output, strings.Repeat("█", 12)+" ", "a 0.6 share fills 12 of 20 cells")
	assert.NotContains(t, output, strings.Repeat("█", 13))
	assert.Contains(t, output, "Sur 5 salaires analysés")
	assert.Contains(t, output, "https://roadmap.sh/devops")
	assert.NotContains(t, output, "SECONDARY MARKET")
}

func TestPrintReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintReport(nil)
	assert.Empty(t, buf.String())
}

func TestPrintMatches(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	matches := make([]types.JobMatchResult, 7)
	for i := range matches {
		matches[i] = types.JobMatchResult{JobTitle: "Title", CompatibilityScore: 80, AverageSalary: 48000}
	}
	matches[0].JobTitle = "Backend Developer"
	matches[0].MissingSkills = []string{"Kafka", "gRPC"}

	p.PrintMatches(&types.JobMatcherResponse{Matches: matches})
	output := buf.String()

	assert.Contains(t, output, "JOB MATCHES")
	assert.Contains(t, output, "#1  Backend Developer")
	assert.Contains(t, output, "Score: 80%  Average: 48 000")
	assert.Contains(t, output, "Missing: Kafka, gRPC")
	assert.Contains(t, output, "... and 2 more matches")
	assert.NotContains(t, output, "#6")
}

func TestPrintMatches_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintMatches(nil)
	p.PrintMatches(&types.JobMatcherResponse{})

	assert.Empty(t, buf.String())
}

func TestPrintSuggestions(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSuggestions([]types.JobSuggestion{
		{Title: "Data Engineer", Confidence: 85},
		{Title: "Backend Developer", Confidence: 60},
	})

	output := buf.String()
	assert.Contains(t, output, "SUGGESTED TITLES")
	assert.Contains(t, output, " 85%  Data Engineer")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 100))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)))
	}
	assert.Contains(t, buf.String(), "...")
}

func TestWrap(t *testing.T) {
	got := wrap("un deux trois quatre cinq", 10)
	assert.Equal(t, "un deux\ntrois\nquatre\ncinq", got)
	assert.Empty(t, wrap("   ", 10))
}

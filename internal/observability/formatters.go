// Package observability provides boxed, human-readable renderings of salary
// reports for the command line.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/openpay/internal/pipeline"
	"github.com/jonathan/openpay/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// barWidth is the width of a full distribution bar
	barWidth = 20
)

// Printer handles formatted text output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most width runes, ending with "..." when cut.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// formatAmount renders an amount with space-separated thousands, as in "52 000".
func formatAmount(v float64) string {
	n := int64(v + 0.5)
	if v < 0 {
		n = int64(v - 0.5)
	}
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := fmt.Sprintf("%d", n)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(d)
	}
	return sign + sb.String()
}

// PrintReport outputs the statistics, distribution, summary and roadmaps of a report.
func (p *Printer) PrintReport(report *pipeline.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Query:    %s\n", report.Query))
	sb.WriteString(fmt.Sprintf("Titles:   %s\n", strings.Join(report.Titles, ", ")))
	sb.WriteString(fmt.Sprintf("Records:  %d", report.Count))
	p.printBox("SALARY REPORT", sb.String())

	p.PrintStatistics("STATISTICS", report.Statistics)
	p.PrintStatistics("PRIMARY MARKET", report.Primary)
	p.PrintStatistics("SECONDARY MARKET", report.Secondary)
	p.PrintDistribution(report.Distribution)

	if report.Summary != "" {
		p.printBox("SUMMARY", wrap(report.Summary, boxWidth-4))
	}
	if len(report.Roadmaps) > 0 {
		var rb strings.Builder
		for i, url := range report.Roadmaps {
			if i > 0 {
				rb.WriteString("\n")
			}
			rb.WriteString("• " + url)
		}
		p.printBox("LEARNING PATHS", rb.String())
	}
}

// PrintStatistics outputs one statistics snapshot under title.
func (p *Printer) PrintStatistics(title string, stats *types.SalaryStatistics) {
	if stats == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Count:    %d\n", stats.Count))
	sb.WriteString(fmt.Sprintf("Median:   %s\n", formatAmount(stats.Median)))
	sb.WriteString(fmt.Sprintf("Mean:     %s\n", formatAmount(stats.Mean)))
	sb.WriteString(fmt.Sprintf("Range:    %s - %s\n", formatAmount(stats.Min), formatAmount(stats.Max)))
	sb.WriteString(fmt.Sprintf("Q1 / Q3:  %s / %s", formatAmount(stats.Quartiles.Q1), formatAmount(stats.Quartiles.Q3)))

	if len(stats.ExperienceBreakdown) > 0 {
		sb.WriteString("\n\nBy experience:")
		for _, b := range stats.ExperienceBreakdown {
			if b.Count == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n  %-12s %3d  median %s", b.Label, b.Count, formatAmount(b.MedianSalary)))
		}
	}
	if len(stats.RemoteBreakdown) > 0 {
		sb.WriteString("\n\nRemote:")
		for _, b := range stats.RemoteBreakdown {
			sb.WriteString(fmt.Sprintf("\n  %-12s %3d  %5.1f%%", b.Variant, b.Count, b.Percentage*100))
		}
	}

	p.printBox(title, sb.String())
}

// PrintDistribution outputs the histogram as horizontal bars.
func (p *Printer) PrintDistribution(bins []types.DistributionBin) {
	if len(bins) == 0 {
		return
	}

	var sb strings.Builder
	for i, bin := range bins {
		if i > 0 {
			sb.WriteString("\n")
		}
		bar := strings.Repeat("█", int(bin.Percentage*barWidth+0.5))
		sb.WriteString(fmt.Sprintf("%9s %-*s %3d", formatAmount(bin.RangeStart), barWidth, bar, bin.Count))
	}
	p.printBox("DISTRIBUTION", sb.String())
}

// PrintMatches outputs the top job matches with score, salary and skill gaps.
func (p *Printer) PrintMatches(resp *types.JobMatcherResponse) {
	if resp == nil || len(resp.Matches) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(resp.Matches), maxItemsToShow)
	for i := 0; i < count; i++ {
		m := resp.Matches[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, m.JobTitle))
		sb.WriteString(fmt.Sprintf("    Score: %.0f%%  Average: %s\n", m.CompatibilityScore, formatAmount(m.AverageSalary)))
		if len(m.MissingSkills) > 0 {
			sb.WriteString(fmt.Sprintf("    Missing: %s\n", strings.Join(m.MissingSkills, ", ")))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(resp.Matches) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more matches", len(resp.Matches)-maxItemsToShow))
	}

	p.printBox("JOB MATCHES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSuggestions outputs the titles suggested for a self-description.
func (p *Printer) PrintSuggestions(suggestions []types.JobSuggestion) {
	if len(suggestions) == 0 {
		return
	}

	var sb strings.Builder
	for i, s := range suggestions {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%3.0f%%  %s", s.Confidence, s.Title))
	}
	p.printBox("SUGGESTED TITLES", sb.String())
}

// wrap breaks text into lines of at most width runes on word boundaries.
func wrap(text string, width int) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && len([]rune(line.String()))+1+len([]rune(word)) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

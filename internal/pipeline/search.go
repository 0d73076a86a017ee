package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/openpay/internal/currency"
	"github.com/jonathan/openpay/internal/filter"
	"github.com/jonathan/openpay/internal/gateway"
	"github.com/jonathan/openpay/internal/stats"
	"github.com/jonathan/openpay/internal/types"
)

// Search steps reported through ProgressCallback.
const (
	StepRecords    = "load_records"
	StepResolve    = "resolve_titles"
	StepFilter     = "filter"
	StepStatistics = "statistics"
	StepSummary    = "summary"
	StepRoadmaps   = "roadmaps"
)

// ProgressEvent represents a progress update during a search
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when search progress occurs
type ProgressCallback func(event ProgressEvent)

func emit(cb ProgressCallback, step, message string, content any) {
	if cb != nil {
		cb(ProgressEvent{Step: step, Message: message, Content: content})
	}
}

// serialized wraps cb so that concurrent steps never call it at the same time.
func serialized(cb ProgressCallback) ProgressCallback {
	if cb == nil {
		return nil
	}
	var mu sync.Mutex
	return func(event ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		cb(event)
	}
}

// Report is the result of a job search.
//
// Statistics covers the records outside the secondary market, converted to the
// common currency, and is nil when they are fewer than the minimum sample size.
// Secondary is computed in the secondary currency from as little as one record.
type Report struct {
	Query        string                   `json:"query"`
	Titles       []string                 `json:"titles"`
	Count        int                      `json:"count"`
	Salaries     []types.NormalizedRecord `json:"salaries"`
	Statistics   *types.SalaryStatistics  `json:"statistics"`
	Secondary    *types.SalaryStatistics  `json:"secondary,omitempty"`
	Primary      *types.SalaryStatistics  `json:"primary,omitempty"`
	Distribution []types.DistributionBin  `json:"distribution"`
	Summary      string                   `json:"summary"`
	Roadmaps     []string                 `json:"roadmaps"`
	GeneratedAt  time.Time                `json:"generatedAt"`
}

// Search resolves query to known titles and computes the salary report for them.
func (s *Service) Search(ctx context.Context, query string) (*Report, error) {
	return s.SearchWithProgress(ctx, query, nil)
}

// SearchWithProgress is Search reporting each step to onProgress.
func (s *Service) SearchWithProgress(ctx context.Context, query string, onProgress ProgressCallback) (*Report, error) {
	onProgress = serialized(onProgress)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &InvalidInputError{Message: "job query is required"}
	}

	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	titles, err := s.Titles(ctx)
	if err != nil {
		return nil, err
	}
	emit(onProgress, StepRecords, "salary records loaded", len(records))

	resolved := s.matcher.ResolveTitles(ctx, query, titles)
	if len(resolved) == 0 {
		return nil, ErrNoJobFound
	}
	emit(onProgress, StepResolve, "job titles resolved", resolved)

	matched := filter.ByTitle(records, resolved...)
	if minimum := s.calc.MinSamples; len(matched) < minimum {
		return nil, &InsufficientDataError{Count: len(matched), Min: minimum}
	}
	emit(onProgress, StepFilter, "salaries matched", len(matched))

	secondary, others := filter.SplitByCountry(matched, s.converter.SecondaryCountry)
	normalized := s.converter.NormalizeForAggregation(matched)

	report := &Report{
		Query:        query,
		Titles:       resolved,
		Count:        len(matched),
		Salaries:     normalized,
		Distribution: stats.Distribution(currency.Cleaned(normalized), s.cfg.Stats.DistributionBins),
		Roadmaps:     []string{},
		GeneratedAt:  s.now(),
	}
	report.Statistics, _ = s.calc.Compute(currency.Cleaned(s.converter.NormalizeForAggregation(others)))
	report.Primary, _ = s.calc.Compute(others)
	report.Secondary, _ = s.calc.WithMinSamples(1).Compute(secondary)
	emit(onProgress, StepStatistics, "statistics computed", report.Statistics)

	var g errgroup.Group
	g.Go(func() error {
		if report.Statistics == nil {
			return nil
		}
		report.Summary = s.matcher.Summarize(ctx, gateway.SummaryInput{
			Global:    report.Statistics,
			Secondary: report.Secondary,
			Primary:   report.Primary,
			Titles:    resolved,
		})
		emit(onProgress, StepSummary, "summary written", report.Summary)
		return nil
	})
	g.Go(func() error {
		report.Roadmaps = s.matcher.RecommendRoadmaps(ctx, resolved)
		emit(onProgress, StepRoadmaps, "learning paths selected", report.Roadmaps)
		return nil
	})
	_ = g.Wait()

	s.logger.Info("search completed",
		"query", query,
		"titles", len(resolved),
		"salaries", report.Count,
		"secondary", len(secondary))
	return report, nil
}

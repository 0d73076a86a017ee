package pipeline

import (
	"context"
	"math"
	"sort"

	"github.com/jonathan/openpay/internal/currency"
	"github.com/jonathan/openpay/internal/filter"
	"github.com/jonathan/openpay/internal/gateway"
	"github.com/jonathan/openpay/internal/stats"
	"github.com/jonathan/openpay/internal/types"
)

// MatchJobs proposes up to three jobs for a skills profile. Each match carries the
// rounded average salary, in the common currency, of the records with that title.
func (s *Service) MatchJobs(ctx context.Context, skills types.UserSkills) (*types.JobMatcherResponse, error) {
	if err := skills.Validate(); err != nil {
		return nil, &InvalidInputError{Message: "skills profile", Cause: err}
	}

	resp := &types.JobMatcherResponse{Matches: []types.JobMatchResult{}, GeneratedAt: s.now()}
	matches := s.matcher.MatchSkills(ctx, skills)
	if len(matches) == 0 {
		s.logger.Warn("no job matched the skills profile", "technologies", len(skills.Technologies))
		return resp, nil
	}

	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].AverageSalary = s.averageSalary(records, matches[i].JobTitle)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CompatibilityScore > matches[j].CompatibilityScore
	})
	if len(matches) > gateway.MaxMatches {
		matches = matches[:gateway.MaxMatches]
	}
	resp.Matches = matches
	return resp, nil
}

// averageSalary is zero when no record carries title.
func (s *Service) averageSalary(records []types.CleanedSalaryRecord, title string) float64 {
	matched := filter.ByTitle(records, title)
	if len(matched) == 0 {
		return 0
	}
	converted := currency.Cleaned(s.converter.NormalizeForAggregation(matched))
	values := make([]float64, len(converted))
	for i, r := range converted {
		values[i] = r.Compensation
	}
	return math.Round(stats.Mean(values))
}

// ParseDescription proposes job titles for a free-text self-description.
func (s *Service) ParseDescription(ctx context.Context, description string) ([]types.JobSuggestion, error) {
	req := types.DescribeRequest{Description: description}
	if err := req.Validate(); err != nil {
		return nil, &InvalidInputError{Message: "description", Cause: err}
	}
	return s.matcher.ParseDescription(ctx, description), nil
}

package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/openpay/internal/llm"
	"github.com/jonathan/openpay/internal/prompts"
	"github.com/jonathan/openpay/internal/schemas"
	"github.com/jonathan/openpay/internal/types"
)

type suggestionResponse struct {
	Suggestions []types.JobSuggestion `json:"suggestions" validate:"dive"`
}

type matchResponse struct {
	Matches []types.JobMatchResult `json:"matches" validate:"dive"`
}

// ParseDescription proposes up to MaxSuggestions job titles for a self-description,
// highest confidence first. Failures yield an empty slice.
func (g *Gateway) ParseDescription(ctx context.Context, description string) []types.JobSuggestion {
	description = strings.TrimSpace(description)
	if description == "" || !g.available(g.features.NaturalLanguageSearchEnabled()) {
		return []types.JobSuggestion{}
	}

	prompt, err := prompts.Render(prompts.ParseDescription, map[string]string{"Description": description})
	if err != nil {
		g.fallback("parse_description", err)
		return []types.JobSuggestion{}
	}

	var resp suggestionResponse
	if err := g.generateJSON(ctx, "parse_description", schemas.Suggestions, prompt, llm.TierStandard, &resp); err != nil {
		g.fallback("parse_description", err)
		return []types.JobSuggestion{}
	}
	if err := g.validate.Struct(resp); err != nil {
		g.fallback("parse_description", &MalformedResponseError{Operation: "parse_description", Cause: err})
		return []types.JobSuggestion{}
	}

	out := resp.Suggestions
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	if out == nil {
		out = []types.JobSuggestion{}
	}
	return out
}

// MatchSkills proposes up to MaxMatches jobs for a skills profile, best score first.
// Recommended learning paths are restricted to the allow-list and AverageSalary is
// left at zero for the caller to fill. Failures yield an empty slice.
func (g *Gateway) MatchSkills(ctx context.Context, skills types.UserSkills) []types.JobMatchResult {
	if len(skills.Technologies) == 0 || !g.available(g.features.JobMatcherEnabled()) {
		return []types.JobMatchResult{}
	}

	experience := ""
	if skills.Experience != nil {
		experience = fmt.Sprintf("- Expérience : %d an(s)\n", *skills.Experience)
	}
	additional := ""
	if info := strings.TrimSpace(skills.AdditionalInfo); info != "" {
		additional = "- Informations complémentaires : " + info + "\n"
	}

	prompt, err := prompts.Render(prompts.MatchSkills, map[string]string{
		"Technologies":   strings.Join(skills.Technologies, ", "),
		"Education":      skills.Education,
		"Experience":     experience,
		"AdditionalInfo": additional,
		"Roadmaps":       g.catalog.PromptList(),
	})
	if err != nil {
		g.fallback("match_skills", err)
		return []types.JobMatchResult{}
	}

	var resp matchResponse
	if err := g.generateJSON(ctx, "match_skills", schemas.Matches, prompt, llm.TierStandard, &resp); err != nil {
		g.fallback("match_skills", err)
		return []types.JobMatchResult{}
	}
	if err := g.validate.Struct(resp); err != nil {
		g.fallback("match_skills", &MalformedResponseError{Operation: "match_skills", Cause: err})
		return []types.JobMatchResult{}
	}

	out := make([]types.JobMatchResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		m.AverageSalary = 0
		m.MatchedSkills = nonNil(m.MatchedSkills)
		m.MissingSkills = nonNil(m.MissingSkills)
		m.RecommendedRoadmaps = g.catalog.Filter(m.RecommendedRoadmaps)
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompatibilityScore > out[j].CompatibilityScore })
	if len(out) > MaxMatches {
		out = out[:MaxMatches]
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

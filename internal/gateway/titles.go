package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/openpay/internal/filter"
	"github.com/jonathan/openpay/internal/llm"
	"github.com/jonathan/openpay/internal/prompts"
	"github.com/jonathan/openpay/internal/schemas"
)

type titleResponse struct {
	Matches   []string `json:"matches"`
	Reasoning string   `json:"reasoning"`
}

// ResolveTitles maps a free-text query onto titles from known. The answer never
// contains a title outside known. With the feature disabled every substring match
// is returned; on failure the substring matches are capped at FallbackTitleLimit.
func (g *Gateway) ResolveTitles(ctx context.Context, query string, known []string) []string {
	query = strings.TrimSpace(query)
	if query == "" || len(known) == 0 {
		return []string{}
	}
	if !g.features.NaturalLanguageSearchEnabled() {
		return filter.MatchTitles(known, query, 0)
	}
	if g.client == nil {
		return filter.MatchTitles(known, query, FallbackTitleLimit)
	}

	limited := known
	if len(limited) > g.maxTitles {
		g.logger.Warn("title list truncated for resolution", "kept", g.maxTitles, "dropped", len(known)-g.maxTitles)
		limited = limited[:g.maxTitles]
	}

	prompt, err := prompts.Render(prompts.ResolveTitles, map[string]string{
		"Query":  query,
		"Titles": numbered(limited),
	})
	if err != nil {
		g.fallback("resolve_titles", err)
		return filter.MatchTitles(known, query, FallbackTitleLimit)
	}

	var resp titleResponse
	if err := g.generateJSON(ctx, "resolve_titles", schemas.Titles, prompt, llm.TierStandard, &resp); err != nil {
		g.fallback("resolve_titles", err)
		return filter.MatchTitles(known, query, FallbackTitleLimit)
	}
	return keepKnown(resp.Matches, known)
}

func numbered(titles []string) string {
	var sb strings.Builder
	for i, t := range titles {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// keepKnown returns the members of candidates that appear verbatim in known, deduplicated.
func keepKnown(candidates, known []string) []string {
	allowed := make(map[string]struct{}, len(known))
	for _, t := range known {
		allowed[t] = struct{}{}
	}
	out := []string{}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := allowed[c]; !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

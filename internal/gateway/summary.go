package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/openpay/internal/currency"
	"github.com/jonathan/openpay/internal/llm"
	"github.com/jonathan/openpay/internal/prompts"
	"github.com/jonathan/openpay/internal/schemas"
	"github.com/jonathan/openpay/internal/types"
)

var errEmptySummary = errors.New("empty summary")

// SummaryInput is the statistics a summary is written from. Global is in the common
// currency; Secondary covers the secondary market in its own currency and Primary the
// remaining markets. Either regional snapshot may be nil.
type SummaryInput struct {
	Global    *types.SalaryStatistics
	Secondary *types.SalaryStatistics
	Primary   *types.SalaryStatistics
	Titles    []string
}

// Summarize writes a short natural-language summary. Without the service, or on any
// failure, it returns FallbackSummary(in.Global).
func (g *Gateway) Summarize(ctx context.Context, in SummaryInput) string {
	if in.Global == nil {
		return ""
	}
	if !g.available(g.features.AISummaryEnabled()) {
		return FallbackSummary(in.Global)
	}

	prompt, err := g.summaryPrompt(in)
	if err != nil {
		g.fallback("summarize", err)
		return FallbackSummary(in.Global)
	}

	text, err := g.client.GenerateContent(ctx, prompt, llm.Params{Tier: llm.TierAdvanced})
	if err != nil {
		g.fallback("summarize", err)
		return FallbackSummary(in.Global)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		g.fallback("summarize", &MalformedResponseError{Operation: "summarize", Cause: errEmptySummary})
		return FallbackSummary(in.Global)
	}
	return text
}

// FallbackSummary is the deterministic summary used when the service is unavailable.
func FallbackSummary(s *types.SalaryStatistics) string {
	if s == nil {
		return ""
	}
	return prompts.Format(prompts.MustGet(prompts.Matching, prompts.SummaryFallback), map[string]string{
		"Count":  fmt.Sprint(s.Count),
		"Mean":   whole(s.Mean),
		"Median": whole(s.Median),
		"Min":    whole(s.Min),
		"Max":    whole(s.Max),
	})
}

func whole(v float64) string {
	return fmt.Sprintf("%.0f", math.Round(v))
}

func (g *Gateway) summaryPrompt(in SummaryInput) (string, error) {
	s := in.Global

	titles := ""
	if n := len(in.Titles); n > 0 {
		shown := in.Titles
		if n > 5 {
			shown = shown[:5]
		}
		titles = "\nPOSTES CONCERNÉS : " + strings.Join(shown, ", ")
		if n > 5 {
			titles += fmt.Sprintf(" et %d autres", n-5)
		}
	}

	var regions strings.Builder
	if in.Secondary != nil {
		block, err := regionBlock("Au "+g.market.SecondaryCountry, g.market.SecondaryCurrency, in.Secondary)
		if err != nil {
			return "", err
		}
		regions.WriteString(block)
	}
	if in.Primary != nil {
		block, err := regionBlock("En France et en Europe", g.market.CommonCurrency, in.Primary)
		if err != nil {
			return "", err
		}
		regions.WriteString(block)
	}

	return prompts.Render(prompts.Summarize, map[string]string{
		"Titles":     titles,
		"Count":      fmt.Sprint(s.Count),
		"Median":     currency.FormatAmount(s.Median),
		"Min":        currency.FormatAmount(s.Min),
		"Max":        currency.FormatAmount(s.Max),
		"Q1":         currency.FormatAmount(s.Quartiles.Q1),
		"Junior":     currency.FormatAmount(s.LeastExperiencedAvg),
		"Senior":     currency.FormatAmount(s.MostExperiencedAvg),
		"JuniorBest": bestLine("Meilleur junior", s.JuniorMax, "€"),
		"SeniorBest": bestLine("Meilleur senior", s.SeniorMax, "€"),
		"Regions":    regions.String(),
		"Structure":  structure(in),
		"Roadmaps":   g.catalog.PromptList(),
	})
}

func regionBlock(label, unit string, s *types.SalaryStatistics) (string, error) {
	best := bestLine("Meilleur junior", s.JuniorMax, unit) + bestLine("Meilleur senior", s.SeniorMax, unit)
	return prompts.Render(prompts.SummaryRegion, map[string]string{
		"Label":    label,
		"Count":    fmt.Sprint(s.Count),
		"Currency": unit,
		"Median":   currency.FormatAmount(s.Median),
		"Min":      currency.FormatAmount(s.Min),
		"Max":      currency.FormatAmount(s.Max),
		"Junior":   currency.FormatAmount(s.LeastExperiencedAvg),
		"Senior":   currency.FormatAmount(s.MostExperiencedAvg),
		"Best":     best,
	})
}

func bestLine(label string, p *types.BestProfile, unit string) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("\n- %s : %s %s (%s, %s, %s)", label, currency.FormatAmount(p.Compensation), unit,
		p.Title, p.Company, p.Location)
}

// structure lists the sentences the summary must contain, in order.
func structure(in SummaryInput) string {
	var lines []string
	switch {
	case len(in.Titles) > 1:
		lines = append(lines, `Une phrase citant les postes séparés par "OU".`)
	case len(in.Titles) == 1:
		lines = append(lines, fmt.Sprintf("Une phrase citant le poste %q.", in.Titles[0]))
	}
	lines = append(lines, "Une phrase sur le salaire médian global.")

	regional := in.Secondary != nil || in.Primary != nil
	if in.Secondary != nil {
		lines = append(lines, "Deux ou trois phrases dédiées au marché local (médiane, junior, senior), montants suivis de la devise locale.")
	}
	if in.Primary != nil {
		lines = append(lines, "Deux ou trois phrases dédiées à la France et à l'Europe (médiane, junior, senior), montants en €.")
	}
	if regional {
		lines = append(lines, "Une phrase sur les meilleurs profils si disponibles.")
	} else {
		lines = append(lines,
			"Une phrase sur l'évolution de junior à senior.",
			"Une phrase sur le meilleur profil junior si disponible.",
			"Une phrase sur le meilleur profil senior si disponible.")
	}
	lines = append(lines, "Un conseil concret et encourageant.")

	var sb strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, l)
	}
	return strings.TrimRight(sb.String(), "\n")
}

type roadmapResponse struct {
	Roadmaps []string `json:"roadmaps"`
}

// RecommendRoadmaps returns up to MaxRoadmaps allow-listed learning paths for titles.
// Failures and empty titles yield an empty slice.
func (g *Gateway) RecommendRoadmaps(ctx context.Context, titles []string) []string {
	if len(titles) == 0 || !g.available(g.features.NaturalLanguageSearchEnabled()) {
		return []string{}
	}

	jobTitles := titles[0]
	if len(titles) > 1 {
		shown := titles
		if len(shown) > 3 {
			shown = shown[:3]
		}
		jobTitles = strings.Join(shown, ", ")
	}

	prompt, err := prompts.Render(prompts.RecommendRoadmaps, map[string]string{
		"JobTitles": jobTitles,
		"Roadmaps":  g.catalog.PromptList(),
	})
	if err != nil {
		g.fallback("recommend_roadmaps", err)
		return []string{}
	}

	var resp roadmapResponse
	if err := g.generateJSON(ctx, "recommend_roadmaps", schemas.Roadmaps, prompt, llm.TierLite, &resp); err != nil {
		g.fallback("recommend_roadmaps", err)
		return []string{}
	}

	out := g.catalog.Filter(resp.Roadmaps)
	if len(out) > MaxRoadmaps {
		out = out[:MaxRoadmaps]
	}
	return out
}

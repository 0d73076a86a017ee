// Package gateway turns completion-service answers into typed, validated results.
//
// Each operation builds a prompt from an embedded template, calls the completion
// client, extracts the JSON object from the answer, validates it against a JSON
// Schema and the result types' range tags, and then constrains it to known data
// (the supplied title list, the learning-path allow-list). Every failure takes a
// local fallback, so callers never see a provider error.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/llm"
	"github.com/jonathan/openpay/internal/roadmaps"
	"github.com/jonathan/openpay/internal/schemas"
)

// DefaultMaxTitles caps the title list embedded in a resolution prompt.
const DefaultMaxTitles = 850

// FallbackTitleLimit caps the local substring fallback of ResolveTitles.
const FallbackTitleLimit = 10

// Result size bounds.
const (
	MaxSuggestions = 3
	MaxMatches     = 3
	MaxRoadmaps    = 5
)

// MalformedResponseError reports an answer that could not be turned into the expected shape.
type MalformedResponseError struct {
	Operation string
	Cause     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Operation, e.Cause)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// Gateway runs the text-matching operations.
type Gateway struct {
	client    llm.Client
	catalog   *roadmaps.Catalog
	features  config.Features
	market    config.MarketConfig
	maxTitles int
	validate  *validator.Validate
	logger    *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithFeatures sets the feature toggles; disabled features go straight to their fallback.
func WithFeatures(f config.Features) Option {
	return func(g *Gateway) { g.features = f }
}

// WithMarket sets the market labels used in summaries.
func WithMarket(m config.MarketConfig) Option {
	return func(g *Gateway) { g.market = m }
}

// WithMaxTitles overrides DefaultMaxTitles.
func WithMaxTitles(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxTitles = n
		}
	}
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New builds a Gateway. A nil client is allowed: every operation then falls back.
func New(client llm.Client, catalog *roadmaps.Catalog, opts ...Option) *Gateway {
	g := &Gateway{
		client:    client,
		catalog:   catalog,
		market:    config.Default().Market,
		maxTitles: DefaultMaxTitles,
		validate:  validator.New(),
		logger:    slog.Default(),
	}
	if g.catalog == nil {
		g.catalog = roadmaps.Default()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Catalog returns the learning-path allow-list.
func (g *Gateway) Catalog() *roadmaps.Catalog {
	return g.catalog
}

// available reports whether the completion service may be called.
func (g *Gateway) available(enabled bool) bool {
	return enabled && g.client != nil
}

// generateJSON calls the client and decodes the answer into out after schema validation.
func (g *Gateway) generateJSON(ctx context.Context, op, schema, prompt string, tier llm.ModelTier, out any) error {
	raw, err := g.client.GenerateJSON(ctx, prompt, llm.Params{Tier: tier})
	if err != nil {
		return err
	}
	return decode(op, schema, raw, out)
}

func decode(op, schema, raw string, out any) error {
	doc, err := llm.ExtractJSON(raw)
	if err != nil {
		return &MalformedResponseError{Operation: op, Cause: err}
	}
	if err := schemas.Validate(schema, doc); err != nil {
		return &MalformedResponseError{Operation: op, Cause: err}
	}
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return &MalformedResponseError{Operation: op, Cause: err}
	}
	return nil
}

func (g *Gateway) fallback(op string, err error) {
	g.logger.Warn("completion fallback", "operation", op, "error", err)
}

// Package pipeline assembles the salary insight operations: it loads records from
// the salary API and the community store, caches them, and runs title resolution,
// filtering, statistics and summaries on top.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/openpay/internal/cache"
	"github.com/jonathan/openpay/internal/cleanup"
	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/currency"
	"github.com/jonathan/openpay/internal/db"
	"github.com/jonathan/openpay/internal/filter"
	"github.com/jonathan/openpay/internal/gateway"
	"github.com/jonathan/openpay/internal/stats"
	"github.com/jonathan/openpay/internal/types"
)

// SalarySource is the public salary API.
type SalarySource interface {
	FetchAll(ctx context.Context) ([]types.SalaryRecord, error)
}

// CommunityStore persists community submissions.
type CommunityStore interface {
	ListSalaries(ctx context.Context) ([]types.SalaryRecord, error)
	ListSalariesByCountry(ctx context.Context, country string) ([]types.SalaryRecord, error)
	GetSalary(ctx context.Context, id string) (*types.SalaryRecord, error)
	InsertSalary(ctx context.Context, rec types.SalaryRecord) (*types.SalaryRecord, error)
	UpdateSalary(ctx context.Context, id string, patch db.SalaryPatch) (*types.SalaryRecord, error)
	DeleteSalary(ctx context.Context, id string) error
}

// TextMatcher runs the completion-service backed operations. Every method falls
// back locally, so none of them returns an error.
type TextMatcher interface {
	ResolveTitles(ctx context.Context, query string, known []string) []string
	ParseDescription(ctx context.Context, description string) []types.JobSuggestion
	MatchSkills(ctx context.Context, skills types.UserSkills) []types.JobMatchResult
	Summarize(ctx context.Context, in gateway.SummaryInput) string
	RecommendRoadmaps(ctx context.Context, titles []string) []string
}

// Deps holds the collaborators of a Service. API and Store may be nil, but not both
// if records are to be served. A nil Cache selects an in-memory store and a nil
// Matcher a gateway without completion client.
type Deps struct {
	API     SalarySource
	Store   CommunityStore
	Cache   cache.Store
	Matcher TextMatcher
	Logger  *slog.Logger
	Now     func() time.Time
}

// Service runs the salary insight operations.
type Service struct {
	cfg       *config.Config
	api       SalarySource
	store     CommunityStore
	matcher   TextMatcher
	calc      *stats.Calculator
	converter *currency.Converter
	normalize cleanup.Options
	records   *cache.Loader[[]types.CleanedSalaryRecord]
	titles    *cache.Loader[[]string]
	logger    *slog.Logger
	now       func() time.Time
}

// New builds a Service from a validated configuration.
func New(cfg *config.Config, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	store := deps.Cache
	if store == nil {
		store = cache.NewMemoryStore(cfg.Cache.Prefix, cache.WithMaxEntries(cfg.Cache.MaxEntries))
	}
	matcher := deps.Matcher
	if matcher == nil {
		matcher = gateway.New(nil, nil, gateway.WithFeatures(cfg.Features), gateway.WithMarket(cfg.Market), gateway.WithLogger(logger))
	}

	calc := stats.NewCalculator(cfg.Stats)
	calc.Now = now

	return &Service{
		cfg:       cfg,
		api:       deps.API,
		store:     deps.Store,
		matcher:   matcher,
		calc:      calc,
		converter: currency.NewConverter(cfg.Market),
		normalize: cleanup.OptionsFromConfig(cfg.Market),
		records:   cache.NewLoader[[]types.CleanedSalaryRecord](store, cache.KeyRecords, cfg.Cache.RecordsTTL(), logger).WithFetchTimeout(cfg.FetchTimeout()),
		titles:    cache.NewLoader[[]string](store, cache.KeyTitles, cfg.Cache.TitlesTTL(), logger).WithFetchTimeout(cfg.FetchTimeout()),
		logger:    logger,
		now:       now,
	}
}

// Converter returns the currency converter of the configured market.
func (s *Service) Converter() *currency.Converter {
	return s.converter
}

// -----------------------------------------------------------------------------
// Record Methods
// -----------------------------------------------------------------------------

// Records returns every cleaned record of both sources, served from the cache when fresh.
func (s *Service) Records(ctx context.Context) ([]types.CleanedSalaryRecord, error) {
	return s.records.Get(ctx, s.loadRecords)
}

// loadRecords reads both sources in parallel. One failing source degrades to the
// other; both failing is ErrSourcesUnavailable.
func (s *Service) loadRecords(ctx context.Context) ([]types.CleanedSalaryRecord, error) {
	var (
		apiRecords, communityRecords []types.SalaryRecord
		apiErr, storeErr             error
	)

	var g errgroup.Group
	if s.api != nil {
		g.Go(func() error {
			apiRecords, apiErr = s.api.FetchAll(ctx)
			return nil
		})
	} else {
		apiErr = fmt.Errorf("salary API: %w", errNotConfigured)
	}
	if s.store != nil {
		g.Go(func() error {
			communityRecords, storeErr = s.store.ListSalaries(ctx)
			return nil
		})
	} else {
		storeErr = fmt.Errorf("community store: %w", errNotConfigured)
	}
	_ = g.Wait()

	if apiErr != nil && storeErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourcesUnavailable, errors.Join(apiErr, storeErr))
	}
	if apiErr != nil && !errors.Is(apiErr, errNotConfigured) {
		s.logger.Warn("salary API unavailable, serving community records only", "error", apiErr)
	}
	if storeErr != nil && !errors.Is(storeErr, errNotConfigured) {
		s.logger.Warn("community store unavailable, serving API records only", "error", storeErr)
	}

	raw := make([]types.SalaryRecord, 0, len(apiRecords)+len(communityRecords))
	raw = append(raw, apiRecords...)
	raw = append(raw, communityRecords...)

	cleaned, report := cleanup.Normalize(raw, s.normalize)
	s.logger.Info("salary records loaded",
		"api", len(apiRecords),
		"community", len(communityRecords),
		"kept", report.Kept,
		"dropped", report.DroppedTotal())
	return cleaned, nil
}

// Titles returns the deduplicated job titles of all records.
func (s *Service) Titles(ctx context.Context) ([]string, error) {
	return s.titles.Get(ctx, func(ctx context.Context) ([]string, error) {
		records, err := s.Records(ctx)
		if err != nil {
			return nil, err
		}
		return cleanup.UniqueTitles(records), nil
	})
}

// Suggest returns up to limit titles for an autosuggest query.
func (s *Service) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	titles, err := s.Titles(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Suggest(titles, query, limit), nil
}

// Salaries returns the records matching f.
func (s *Service) Salaries(ctx context.Context, f types.SalaryFilter) ([]types.CleanedSalaryRecord, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(records, f), nil
}

// Refresh drops the cached records and titles and reloads them. It returns the
// number of records now cached.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	s.invalidate(ctx)
	records, err := s.Records(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh salary records: %w", err)
	}
	if _, err := s.Titles(ctx); err != nil {
		return 0, fmt.Errorf("failed to refresh job titles: %w", err)
	}
	return len(records), nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.records.Invalidate(ctx); err != nil {
		s.logger.Warn("cache invalidation failed", "key", cache.KeyRecords, "error", err)
	}
	if err := s.titles.Invalidate(ctx); err != nil {
		s.logger.Warn("cache invalidation failed", "key", cache.KeyTitles, "error", err)
	}
}

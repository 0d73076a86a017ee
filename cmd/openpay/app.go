package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonathan/openpay/internal/cache"
	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/db"
	"github.com/jonathan/openpay/internal/fetch"
	"github.com/jonathan/openpay/internal/gateway"
	"github.com/jonathan/openpay/internal/llm"
	"github.com/jonathan/openpay/internal/observability"
	"github.com/jonathan/openpay/internal/pipeline"
	"github.com/jonathan/openpay/internal/roadmaps"
)

// app holds the wired pipeline and everything that must be released on exit.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	service  *pipeline.Service
	catalog  *roadmaps.Catalog
	database *db.DB
	closers  []func()
}

// newLogger builds the slog logger for format ("text" or "json").
func newLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// loadConfig reads the configuration and applies the persistent flags on top.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.verbose {
		cfg.Verbose = true
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	return cfg, nil
}

// newApp wires the salary sources, the cache, the completion service and the pipeline.
// Optional backends that are not configured are left out; the pipeline degrades without them.
func newApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(logOut, cfg.LogFormat, cfg.Verbose)

	a := &app{cfg: cfg, logger: logger, catalog: roadmaps.Default()}
	deps := pipeline.Deps{
		API:    fetch.NewSalaryAPI(cfg.SalariesAPIURL, cfg.FetchTimeout()),
		Logger: logger,
	}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			a.Close()
			return nil, err
		}
		a.database = database
		a.closers = append(a.closers, database.Close)
		deps.Store = database
	} else {
		logger.Info("DATABASE_URL not set, community salaries disabled")
	}

	if cfg.Cache.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", "error", err)
		} else {
			a.closers = append(a.closers, func() { _ = rdb.Close() })
			deps.Cache = cache.NewRedisStore(rdb, cfg.Cache.Prefix)
		}
	}

	var client llm.Client
	if cfg.LLM.APIKey != "" {
		llmCfg := llm.FromAppConfig(cfg.LLM)
		rotating, err := llm.NewRotatingClient(ctx, llm.NewFactory(llmCfg), cfg.LLM.APIKey, cfg.LLM.FallbackAPIKey,
			llm.WithProvider(llmCfg.Provider),
			llm.WithCallTimeout(llmCfg.Timeout),
			llm.WithLogger(logger),
		)
		if err != nil {
			logger.Warn("completion service unavailable, using fallbacks", "error", err)
		} else {
			client = rotating
			a.closers = append(a.closers, func() { _ = rotating.Close() })
		}
	} else {
		logger.Info("no completion service key set, using fallbacks")
	}

	deps.Matcher = gateway.New(client, a.catalog,
		gateway.WithFeatures(cfg.Features),
		gateway.WithMarket(cfg.Market),
		gateway.WithMaxTitles(cfg.LLM.MaxTitles),
		gateway.WithLogger(logger),
	)

	a.service = pipeline.New(cfg, deps)
	return a, nil
}

// Close releases the backends in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// printResult writes v in the format selected by --output.
// The text format uses render; JSON is written for anything else.
func printResult(w io.Writer, opts *rootOptions, v any, render func(*observability.Printer)) error {
	switch opts.output {
	case "", "json":
		return printJSON(w, v)
	case "text":
		render(observability.NewPrinter(w))
		return nil
	default:
		return fmt.Errorf("unknown output format %q, want json or text", opts.output)
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

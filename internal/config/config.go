// Package config provides configuration loading and validation for the service and the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LLM providers understood by the completion-service transport.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"

	DefaultOpenRouterModel = "google/gemini-2.0-flash-001"
)

// CompensationBand is an inclusive range of plausible yearly compensations in one currency.
type CompensationBand struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the band.
func (b CompensationBand) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Bracket is one experience range used by the statistics breakdown.
// MaxXP nil means open-ended.
type Bracket struct {
	Label string `json:"label"`
	MinXP int    `json:"min_xp"`
	MaxXP *int   `json:"max_xp,omitempty"`
}

// MarketConfig describes the two markets the dataset covers and the record defaults.
type MarketConfig struct {
	PrimaryCountry    string  `json:"primary_country,omitempty"`    // default country for API records
	SecondaryCountry  string  `json:"secondary_country,omitempty"`  // country whose records are in SecondaryCurrency
	CommunityCountry  string  `json:"community_country,omitempty"`  // default country for community submissions
	SecondaryCurrency string  `json:"secondary_currency,omitempty"` // e.g. FCFA
	CommonCurrency    string  `json:"common_currency,omitempty"`    // e.g. EUR
	ExchangeRate      float64 `json:"exchange_rate,omitempty"`      // SecondaryCurrency units per CommonCurrency unit
	TitlePlaceholder  string  `json:"title_placeholder,omitempty"`
	DefaultSource     string  `json:"default_source,omitempty"`

	SecondaryBand CompensationBand `json:"secondary_band"`
	DefaultBand   CompensationBand `json:"default_band"`
}

// StatsConfig configures the statistics engine.
type StatsConfig struct {
	MinSamples         int       `json:"min_samples,omitempty"`
	Brackets           []Bracket `json:"brackets,omitempty"`
	LeastExperiencedXP *int      `json:"least_experienced_xp,omitempty"` // upper bound of the least experienced group; 0 is valid
	MostExperiencedXP  *int      `json:"most_experienced_xp,omitempty"`  // lower bound of the most experienced group
	DistributionBins   int       `json:"distribution_bins,omitempty"`
}

// Experience group bounds used when the configuration leaves them unset.
const (
	DefaultLeastExperiencedXP = 2
	DefaultMostExperiencedXP  = 10
)

// LeastExperienced returns the upper bound of the least experienced group.
func (s StatsConfig) LeastExperienced() int {
	if s.LeastExperiencedXP == nil {
		return DefaultLeastExperiencedXP
	}
	return *s.LeastExperiencedXP
}

// MostExperienced returns the lower bound of the most experienced group.
func (s StatsConfig) MostExperienced() int {
	if s.MostExperiencedXP == nil {
		return DefaultMostExperiencedXP
	}
	return *s.MostExperiencedXP
}

// CacheConfig configures the TTL cache.
type CacheConfig struct {
	Prefix            string `json:"prefix,omitempty"`
	RecordsTTLMinutes int    `json:"records_ttl_minutes,omitempty"`
	TitlesTTLMinutes  int    `json:"titles_ttl_minutes,omitempty"`
	MaxEntries        int    `json:"max_entries,omitempty"`
	RedisURL          string `json:"redis_url,omitempty"` // empty selects the in-memory store
}

// RecordsTTL returns the lifetime of the cached record collection.
func (c CacheConfig) RecordsTTL() time.Duration {
	return time.Duration(c.RecordsTTLMinutes) * time.Minute
}

// TitlesTTL returns the lifetime of the cached title list.
func (c CacheConfig) TitlesTTL() time.Duration {
	return time.Duration(c.TitlesTTLMinutes) * time.Minute
}

// LLMConfig configures the completion service.
type LLMConfig struct {
	Provider        string  `json:"provider,omitempty"`
	Model           string  `json:"model,omitempty"`
	APIKey          string  `json:"api_key,omitempty"`
	FallbackAPIKey  string  `json:"fallback_api_key,omitempty"`
	BaseURL         string  `json:"base_url,omitempty"` // OpenRouter endpoint override
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int32   `json:"max_output_tokens,omitempty"`
	TimeoutSeconds  int     `json:"timeout_seconds,omitempty"`
	MaxTitles       int     `json:"max_titles,omitempty"` // cap on the title list sent for resolution
}

// Timeout returns the per-call deadline.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Features toggles the completion-service backed features. Nil means enabled.
type Features struct {
	NaturalLanguageSearch *bool `json:"natural_language_search,omitempty"`
	JobMatcher            *bool `json:"job_matcher,omitempty"`
	AISummary             *bool `json:"ai_summary,omitempty"`
}

func enabled(b *bool) bool { return b == nil || *b }

// NaturalLanguageSearchEnabled reports whether title resolution may call the completion service.
func (f Features) NaturalLanguageSearchEnabled() bool { return enabled(f.NaturalLanguageSearch) }

// JobMatcherEnabled reports whether skill matching and description parsing are enabled.
func (f Features) JobMatcherEnabled() bool { return enabled(f.JobMatcher) }

// AISummaryEnabled reports whether summaries may be generated by the completion service.
func (f Features) AISummaryEnabled() bool { return enabled(f.AISummary) }

// Config represents the service configuration that can be loaded from a JSON file.
// All fields are optional; missing values are filled by MergeWithDefaults.
type Config struct {
	SalariesAPIURL        string `json:"salaries_api_url,omitempty"`
	FetchTimeoutSeconds   int    `json:"fetch_timeout_seconds,omitempty"`
	DatabaseURL           string `json:"database_url,omitempty"`
	RoadmapsIndexURL      string `json:"roadmaps_index_url,omitempty"`
	RefreshIntervalMinute int    `json:"refresh_interval_minutes,omitempty"` // 0 disables scheduled refresh

	Port           int      `json:"port,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	Market   MarketConfig `json:"market"`
	Stats    StatsConfig  `json:"stats"`
	Cache    CacheConfig  `json:"cache"`
	LLM      LLMConfig    `json:"llm"`
	Features Features     `json:"features"`

	ModeratorPasswordHash string `json:"moderator_password_hash,omitempty"`

	Verbose   bool   `json:"verbose,omitempty"`
	LogFormat string `json:"log_format,omitempty"` // text or json
}

// FetchTimeout returns the deadline for one salary API request.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// RefreshInterval returns the scheduled cache refresh period, zero when disabled.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinute) * time.Minute
}

func intPtr(v int) *int { return &v }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SalariesAPIURL:      "https://salaires.dev/api/salaries",
		FetchTimeoutSeconds: 20,
		RoadmapsIndexURL:    "https://roadmap.sh/roadmaps",
		Port:                8080,
		AllowedOrigins:      []string{"*"},
		Market: MarketConfig{
			PrimaryCountry:    "France",
			SecondaryCountry:  "Cameroun",
			CommunityCountry:  "Cameroun",
			SecondaryCurrency: "FCFA",
			CommonCurrency:    "EUR",
			ExchangeRate:      656,
			TitlePlaceholder:  "Poste non spécifié",
			DefaultSource:     "salaires.dev",
			SecondaryBand:     CompensationBand{Min: 100_000, Max: 1_000_000_000},
			DefaultBand:       CompensationBand{Min: 1_500, Max: 50_000_000},
		},
		Stats: StatsConfig{
			MinSamples: 5,
			Brackets: []Bracket{
				{Label: "0-2 ans", MinXP: 0, MaxXP: intPtr(2)},
				{Label: "3-5 ans", MinXP: 3, MaxXP: intPtr(5)},
				{Label: "6-10 ans", MinXP: 6, MaxXP: intPtr(10)},
				{Label: "10+ ans", MinXP: 11},
			},
			LeastExperiencedXP: intPtr(DefaultLeastExperiencedXP),
			MostExperiencedXP:  intPtr(DefaultMostExperiencedXP),
			DistributionBins:   10,
		},
		Cache: CacheConfig{
			Prefix:            "openpay_",
			RecordsTTLMinutes: 30,
			TitlesTTLMinutes:  60,
			MaxEntries:        1000,
		},
		LLM: LLMConfig{
			Provider:        ProviderGemini,
			Model:           "gemini-2.0-flash",
			BaseURL:         "https://openrouter.ai/api/v1/chat/completions",
			Temperature:     0.3,
			MaxOutputTokens: 2048,
			TimeoutSeconds:  20,
			MaxTitles:       850,
		},
		LogFormat: "text",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load reads the optional file at path, overlays the environment, fills defaults and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	merged := cfg.MergeWithDefaults(Default())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ApplyEnv overrides fields from environment variables when they are set.
func (c *Config) ApplyEnv() error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&c.SalariesAPIURL, "SALARIES_API_URL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.Cache.RedisURL, "REDIS_URL")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.ModeratorPasswordHash, "MODERATOR_PASSWORD_HASH")
	setString(&c.LogFormat, "LOG_FORMAT")

	switch strings.ToLower(c.LLM.Provider) {
	case ProviderOpenRouter:
		setString(&c.LLM.APIKey, "OPENROUTER_API_KEY")
		setString(&c.LLM.FallbackAPIKey, "OPENROUTER_API_KEY_2")
	default:
		setString(&c.LLM.APIKey, "GEMINI_API_KEY")
		setString(&c.LLM.FallbackAPIKey, "GEMINI_API_KEY_2")
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &c.Port},
		{"REFRESH_INTERVAL_MINUTES", &c.RefreshIntervalMinute},
		{"MIN_SAMPLES", &c.Stats.MinSamples},
		{"CACHE_MAX_ENTRIES", &c.Cache.MaxEntries},
	}
	for _, e := range ints {
		raw := strings.TrimSpace(os.Getenv(e.key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", e.key, err)
		}
		*e.dst = v
	}

	if raw := strings.TrimSpace(os.Getenv("EXCHANGE_RATE")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid EXCHANGE_RATE: %v", err)
		}
		c.Market.ExchangeRate = v
	}

	bools := []struct {
		key string
		dst **bool
	}{
		{"FEATURE_NATURAL_LANGUAGE_SEARCH", &c.Features.NaturalLanguageSearch},
		{"FEATURE_JOB_MATCHER", &c.Features.JobMatcher},
		{"FEATURE_AI_SUMMARY", &c.Features.AISummary},
	}
	for _, e := range bools {
		raw := strings.TrimSpace(os.Getenv(e.key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", e.key, err)
		}
		*e.dst = &v
	}

	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	if c.RefreshIntervalMinute < 0 {
		return fmt.Errorf("config error: 'refresh_interval_minutes' must be non-negative")
	}

	if err := validateBand("secondary_band", c.Market.SecondaryBand); err != nil {
		return err
	}
	if err := validateBand("default_band", c.Market.DefaultBand); err != nil {
		return err
	}
	if c.Market.ExchangeRate <= 0 {
		return fmt.Errorf("config error: 'exchange_rate' must be positive")
	}

	if c.Stats.MinSamples < 1 {
		return fmt.Errorf("config error: 'min_samples' must be at least 1")
	}
	if c.Stats.LeastExperienced() < 0 {
		return fmt.Errorf("config error: 'least_experienced_xp' must not be negative")
	}
	if c.Stats.MostExperienced() <= c.Stats.LeastExperienced() {
		return fmt.Errorf("config error: 'most_experienced_xp' must be above 'least_experienced_xp'")
	}
	if c.Stats.DistributionBins < 1 {
		return fmt.Errorf("config error: 'distribution_bins' must be at least 1")
	}
	if err := validateBrackets(c.Stats.Brackets); err != nil {
		return err
	}

	if c.Cache.RecordsTTLMinutes < 1 || c.Cache.TitlesTTLMinutes < 1 {
		return fmt.Errorf("config error: cache TTLs must be at least 1 minute")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("config error: 'max_entries' must be non-negative")
	}

	switch strings.ToLower(c.LLM.Provider) {
	case ProviderGemini, ProviderOpenRouter:
	default:
		return fmt.Errorf("config error: unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config error: 'temperature' must be between 0 and 2")
	}
	if c.LLM.MaxOutputTokens < 1 {
		return fmt.Errorf("config error: 'max_output_tokens' must be positive")
	}
	if c.LLM.MaxTitles < 1 {
		return fmt.Errorf("config error: 'max_titles' must be positive")
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("config error: 'log_format' must be text or json")
	}

	return nil
}

func validateBand(name string, b CompensationBand) error {
	if b.Min <= 0 {
		return fmt.Errorf("config error: '%s' minimum must be positive", name)
	}
	if b.Max < b.Min {
		return fmt.Errorf("config error: '%s' maximum is below its minimum", name)
	}
	return nil
}

func validateBrackets(brackets []Bracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("config error: at least one experience bracket is required")
	}
	prevMax := -1
	for i, b := range brackets {
		if b.MinXP <= prevMax {
			return fmt.Errorf("config error: bracket %q overlaps the previous one", b.Label)
		}
		if b.MaxXP == nil {
			if i != len(brackets)-1 {
				return fmt.Errorf("config error: only the last bracket may be open-ended")
			}
			break
		}
		if *b.MaxXP < b.MinXP {
			return fmt.Errorf("config error: bracket %q has max below min", b.Label)
		}
		prevMax = *b.MaxXP
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	mergeString(&result.SalariesAPIURL, defaults.SalariesAPIURL)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.RoadmapsIndexURL, defaults.RoadmapsIndexURL)
	mergeString(&result.ModeratorPasswordHash, defaults.ModeratorPasswordHash)
	mergeString(&result.LogFormat, defaults.LogFormat)
	mergeInt(&result.FetchTimeoutSeconds, defaults.FetchTimeoutSeconds)
	mergeInt(&result.RefreshIntervalMinute, defaults.RefreshIntervalMinute)
	mergeInt(&result.Port, defaults.Port)
	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = defaults.AllowedOrigins
	}

	m, dm := &result.Market, defaults.Market
	mergeString(&m.PrimaryCountry, dm.PrimaryCountry)
	mergeString(&m.SecondaryCountry, dm.SecondaryCountry)
	mergeString(&m.CommunityCountry, dm.CommunityCountry)
	mergeString(&m.SecondaryCurrency, dm.SecondaryCurrency)
	mergeString(&m.CommonCurrency, dm.CommonCurrency)
	mergeString(&m.TitlePlaceholder, dm.TitlePlaceholder)
	mergeString(&m.DefaultSource, dm.DefaultSource)
	if m.ExchangeRate == 0 {
		m.ExchangeRate = dm.ExchangeRate
	}
	if m.SecondaryBand == (CompensationBand{}) {
		m.SecondaryBand = dm.SecondaryBand
	}
	if m.DefaultBand == (CompensationBand{}) {
		m.DefaultBand = dm.DefaultBand
	}

	s, ds := &result.Stats, defaults.Stats
	mergeInt(&s.MinSamples, ds.MinSamples)
	if s.LeastExperiencedXP == nil {
		s.LeastExperiencedXP = intPtr(ds.LeastExperienced())
	}
	if s.MostExperiencedXP == nil {
		s.MostExperiencedXP = intPtr(ds.MostExperienced())
	}
	mergeInt(&s.DistributionBins, ds.DistributionBins)
	if len(s.Brackets) == 0 {
		s.Brackets = ds.Brackets
	}

	ca, dca := &result.Cache, defaults.Cache
	mergeString(&ca.Prefix, dca.Prefix)
	mergeString(&ca.RedisURL, dca.RedisURL)
	mergeInt(&ca.RecordsTTLMinutes, dca.RecordsTTLMinutes)
	if ca.TitlesTTLMinutes == 0 {
		// titles outlive records by a factor of two
		ca.TitlesTTLMinutes = 2 * ca.RecordsTTLMinutes
	}
	mergeInt(&ca.MaxEntries, dca.MaxEntries)

	l, dl := &result.LLM, defaults.LLM
	mergeString(&l.Provider, dl.Provider)
	l.Provider = strings.ToLower(l.Provider)
	if l.Provider == ProviderOpenRouter && l.Model == "" {
		l.Model = DefaultOpenRouterModel
	}
	mergeString(&l.Model, dl.Model)
	mergeString(&l.APIKey, dl.APIKey)
	mergeString(&l.FallbackAPIKey, dl.FallbackAPIKey)
	mergeString(&l.BaseURL, dl.BaseURL)
	if l.Temperature == 0 {
		l.Temperature = dl.Temperature
	}
	if l.MaxOutputTokens == 0 {
		l.MaxOutputTokens = dl.MaxOutputTokens
	}
	mergeInt(&l.TimeoutSeconds, dl.TimeoutSeconds)
	mergeInt(&l.MaxTitles, dl.MaxTitles)

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

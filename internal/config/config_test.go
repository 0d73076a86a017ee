package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"salaries_api_url": "https://example.com/salaries",
		"port": 9090,
		"market": {"exchange_rate": 655.957, "secondary_band": {"min": 50000, "max": 2000000000}},
		"stats": {"min_samples": 3},
		"cache": {"records_ttl_minutes": 10},
		"llm": {"provider": "openrouter"},
		"features": {"ai_summary": false},
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://example.com/salaries", cfg.SalariesAPIURL)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 655.957, cfg.Market.ExchangeRate)
	assert.Equal(t, CompensationBand{Min: 50000, Max: 2000000000}, cfg.Market.SecondaryBand)
	assert.Equal(t, 3, cfg.Stats.MinSamples)
	assert.Equal(t, 10, cfg.Cache.RecordsTTLMinutes)
	assert.False(t, cfg.Features.AISummaryEnabled())
	assert.True(t, cfg.Features.JobMatcherEnabled())
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Stats.MinSamples)
	assert.Equal(t, 656.0, cfg.Market.ExchangeRate)
	assert.Equal(t, "Poste non spécifié", cfg.Market.TitlePlaceholder)
	assert.Equal(t, 30*time.Minute, cfg.Cache.RecordsTTL())
	assert.Equal(t, 60*time.Minute, cfg.Cache.TitlesTTL())
	assert.Equal(t, 20*time.Second, cfg.LLM.Timeout())
	assert.Equal(t, float32(0.3), cfg.LLM.Temperature)
	assert.Equal(t, int32(2048), cfg.LLM.MaxOutputTokens)
	assert.Zero(t, cfg.RefreshInterval())

	require.Len(t, cfg.Stats.Brackets, 4)
	assert.Nil(t, cfg.Stats.Brackets[3].MaxXP)
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{
		Port:  3000,
		Cache: CacheConfig{RecordsTTLMinutes: 15},
		LLM:   LLMConfig{Provider: "OpenRouter"},
	}

	merged := cfg.MergeWithDefaults(Default())

	assert.Equal(t, 3000, merged.Port)
	assert.Equal(t, "https://salaires.dev/api/salaries", merged.SalariesAPIURL)
	assert.Equal(t, 15, merged.Cache.RecordsTTLMinutes)
	assert.Equal(t, 30, merged.Cache.TitlesTTLMinutes, "titles TTL should default to twice the records TTL")
	assert.Equal(t, ProviderOpenRouter, merged.LLM.Provider)
	assert.Equal(t, DefaultOpenRouterModel, merged.LLM.Model)
	assert.Equal(t, "openpay_", merged.Cache.Prefix)
	assert.Equal(t, Default().Market.SecondaryBand, merged.Market.SecondaryBand)

	// the receiver is not modified
	assert.Empty(t, cfg.SalariesAPIURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "inverted band",
			mutate:  func(c *Config) { c.Market.DefaultBand = CompensationBand{Min: 10, Max: 5} },
			wantErr: "default_band",
		},
		{
			name:    "non-positive band minimum",
			mutate:  func(c *Config) { c.Market.SecondaryBand.Min = 0 },
			wantErr: "secondary_band",
		},
		{
			name:    "zero exchange rate",
			mutate:  func(c *Config) { c.Market.ExchangeRate = 0 },
			wantErr: "exchange_rate",
		},
		{
			name:    "min samples below one",
			mutate:  func(c *Config) { c.Stats.MinSamples = 0 },
			wantErr: "min_samples",
		},
		{
			name: "overlapping brackets",
			mutate: func(c *Config) {
				c.Stats.Brackets = []Bracket{
					{Label: "a", MinXP: 0, MaxXP: intPtr(5)},
					{Label: "b", MinXP: 3},
				}
			},
			wantErr: "overlaps",
		},
		{
			name: "open bracket not last",
			mutate: func(c *Config) {
				c.Stats.Brackets = []Bracket{
					{Label: "a", MinXP: 0},
					{Label: "b", MinXP: 3, MaxXP: intPtr(5)},
				}
			},
			wantErr: "open-ended",
		},
		{
			name:    "negative least experienced bound",
			mutate:  func(c *Config) { c.Stats.LeastExperiencedXP = intPtr(-1) },
			wantErr: "least_experienced_xp",
		},
		{
			name:    "experience groups overlap",
			mutate:  func(c *Config) { c.Stats.MostExperiencedXP = intPtr(2) },
			wantErr: "most_experienced_xp",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.LLM.Provider = "mystery" },
			wantErr: "unknown llm provider",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "log_format",
		},
		{
			name:    "negative refresh interval",
			mutate:  func(c *Config) { c.RefreshIntervalMinute = -1 },
			wantErr: "refresh_interval_minutes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SALARIES_API_URL", "https://api.test/salaries")
	t.Setenv("GEMINI_API_KEY", "primary-key")
	t.Setenv("GEMINI_API_KEY_2", "fallback-key")
	t.Setenv("PORT", "7000")
	t.Setenv("EXCHANGE_RATE", "655.957")
	t.Setenv("FEATURE_JOB_MATCHER", "false")

	cfg := &Config{}
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "https://api.test/salaries", cfg.SalariesAPIURL)
	assert.Equal(t, "primary-key", cfg.LLM.APIKey)
	assert.Equal(t, "fallback-key", cfg.LLM.FallbackAPIKey)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 655.957, cfg.Market.ExchangeRate)
	assert.False(t, cfg.Features.JobMatcherEnabled())
	assert.True(t, cfg.Features.AISummaryEnabled())
}

func TestApplyEnv_OpenRouterKeys(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openrouter")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg := &Config{}
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "or-key", cfg.LLM.APIKey)
}

func TestApplyEnv_InvalidNumber(t *testing.T) {
	t.Setenv("PORT", "eighty")

	cfg := &Config{}
	err := cfg.ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PORT")
}

func TestLoad_FileEnvAndDefaults(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"port": 9000, "stats": {"min_samples": 8}}`), 0644))
	t.Setenv("PORT", "9100")

	cfg, err := Load(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port, "environment overrides the file")
	assert.Equal(t, 8, cfg.Stats.MinSamples)
	assert.Equal(t, "France", cfg.Market.PrimaryCountry)
}

func TestCompensationBand_Contains(t *testing.T) {
	band := CompensationBand{Min: 1500, Max: 50_000_000}
	assert.True(t, band.Contains(1500))
	assert.True(t, band.Contains(50_000_000))
	assert.False(t, band.Contains(1499.99))
	assert.False(t, band.Contains(50_000_001))
}

func TestMergeWithDefaults_ZeroExperienceBound(t *testing.T) {
	content := `{"stats": {"least_experienced_xp": 0}}`
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	merged := cfg.MergeWithDefaults(Default())

	assert.Equal(t, 0, merged.Stats.LeastExperienced(), "an explicit zero is kept")
	assert.Equal(t, DefaultMostExperiencedXP, merged.Stats.MostExperienced())
	require.NoError(t, merged.Validate())

	unset := (&Config{}).MergeWithDefaults(Default())
	assert.Equal(t, DefaultLeastExperiencedXP, unset.Stats.LeastExperienced())
	assert.Equal(t, DefaultLeastExperiencedXP, StatsConfig{}.LeastExperienced())
}

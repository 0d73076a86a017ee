// Package llm provides the completion-service transport used by the text-matching gateway.
// It wraps the Gemini and OpenRouter providers behind one Client interface, classifies
// provider failures, and rotates between a primary and a fallback credential.
package llm

import (
	"strings"
	"time"

	"github.com/jonathan/openpay/internal/config"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short lookups such as title resolution
	TierLite ModelTier = "lite"
	// TierStandard is for structured extraction and matching
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long free-text generation
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = config.ProviderGemini
	// ProviderOpenRouter is the OpenAI-compatible OpenRouter gateway
	ProviderOpenRouter Provider = config.ProviderOpenRouter
)

// Defaults applied when neither the config nor the call parameters set a value.
const (
	DefaultTemperature     float32 = 0.3
	DefaultMaxOutputTokens int32   = 2048
	DefaultTimeout                 = 20 * time.Second
	DefaultOpenRouterURL           = "https://openrouter.ai/api/v1/chat/completions"
)

// Config holds the model configuration for the application
type Config struct {
	Provider        Provider
	Models          map[ModelTier]string
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
	// BaseURL is the chat completions endpoint (OpenRouter only).
	BaseURL string
	// Referer and Title are sent as OpenRouter attribution headers.
	Referer string
	Title   string
}

// Params tunes a single call. Zero fields take the client's configured value.
type Params struct {
	Tier            ModelTier
	Temperature     float32
	MaxOutputTokens int32
}

// DefaultConfig returns the default configuration (Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.0-flash-lite",
			TierStandard: "gemini-2.0-flash",
			TierAdvanced: "gemini-2.0-flash",
		},
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
		Timeout:         DefaultTimeout,
	}
}

// DefaultOpenRouterConfig returns the default OpenRouter configuration
func DefaultOpenRouterConfig() *Config {
	return &Config{
		Provider: ProviderOpenRouter,
		Models: map[ModelTier]string{
			TierStandard: config.DefaultOpenRouterModel,
		},
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
		Timeout:         DefaultTimeout,
		BaseURL:         DefaultOpenRouterURL,
		Referer:         "https://openpay.local",
		Title:           "OpenPay",
	}
}

// FromAppConfig builds the transport configuration from the application config.
// A configured model name applies to every tier.
func FromAppConfig(c config.LLMConfig) *Config {
	var cfg *Config
	if Provider(strings.ToLower(c.Provider)) == ProviderOpenRouter {
		cfg = DefaultOpenRouterConfig()
		if c.BaseURL != "" {
			cfg.BaseURL = c.BaseURL
		}
	} else {
		cfg = DefaultGeminiConfig()
	}

	if c.Model != "" {
		for _, tier := range []ModelTier{TierLite, TierStandard, TierAdvanced} {
			cfg.Models[tier] = c.Model
		}
	}
	if c.Temperature > 0 {
		cfg.Temperature = c.Temperature
	}
	if c.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = c.MaxOutputTokens
	}
	if t := c.Timeout(); t > 0 {
		cfg.Timeout = t
	}
	return cfg
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}

// resolve fills the zero fields of p from the config.
func (c *Config) resolve(p Params) Params {
	if p.Tier == "" {
		p.Tier = TierStandard
	}
	if p.Temperature == 0 {
		p.Temperature = c.Temperature
	}
	if p.MaxOutputTokens == 0 {
		p.MaxOutputTokens = c.MaxOutputTokens
	}
	if p.MaxOutputTokens == 0 {
		p.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return p
}

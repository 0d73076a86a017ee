package ratelimit

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends with "/"
	Method string        // HTTP method
	Limit  int           // requests per window, 0 for unlimited
	Window time.Duration // refill window
	Burst  int           // bucket capacity, defaults to Limit
}

func (c *EndpointConfig) capacity() int {
	if c.Burst > 0 {
		return c.Burst
	}
	return c.Limit
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 300),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTimeout:     time.Hour,
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-endpoint limits. Endpoints that may call
// the completion service are the strictest.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// completion service
		{Path: "/statistics", Method: http.MethodGet, Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/statistics/stream", Method: http.MethodGet, Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/jobs/", Method: http.MethodPost, Limit: 20, Window: time.Minute, Burst: 5},

		// writes
		{Path: "/salaries", Method: http.MethodPost, Limit: 10, Window: time.Hour, Burst: 3},
		{Path: "/salaries/", Method: http.MethodPut, Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/salaries/", Method: http.MethodDelete, Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/cache/refresh", Method: http.MethodPost, Limit: 6, Window: time.Hour, Burst: 2},
		{Path: "/auth/token", Method: http.MethodPost, Limit: 10, Window: time.Minute, Burst: 5},
	}
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}

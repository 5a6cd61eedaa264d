package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// Tier groups endpoints that share a limit
type Tier string

const (
	// TierEstimator covers routes that call the external estimator
	TierEstimator Tier = "estimator"
	// TierWrite covers plan mutations that do not estimate
	TierWrite Tier = "write"
)

// EndpointConfig is the limit applied to one route pattern and method.
// Patterns use chi syntax: "/plans/{id}/reconcile".
type EndpointConfig struct {
	Pattern string
	Method  string
	Tier    Tier
	Limit   int           // Maximum requests per window
	Window  time.Duration // Time window
	Burst   int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns the built-in limits with no client lists
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(30, time.Hour, 5),
	}
}

// LoadConfig builds the configuration from environment variables read through getenv.
func LoadConfig(getenv func(string) string) *Config {
	env := envReader(getenv)
	if !env.bool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	cfg := DefaultConfig()
	cfg.DefaultLimit = env.int("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = env.duration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = env.duration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.Whitelist = parseIPList(getenv("RATE_LIMIT_WHITELIST"))
	cfg.Blacklist = parseIPList(getenv("RATE_LIMIT_BLACKLIST"))
	cfg.EndpointConfigs = DefaultEndpointConfigs(
		env.int("RATE_LIMIT_ESTIMATOR_LIMIT", 30),
		env.duration("RATE_LIMIT_ESTIMATOR_WINDOW", time.Hour),
		env.int("RATE_LIMIT_ESTIMATOR_BURST", 5),
	)
	return cfg
}

// DefaultEndpointConfigs returns the per-route limits. Estimator-backed routes
// get the given limit; writes get 100 per minute; everything else falls back
// to the default limit.
func DefaultEndpointConfigs(estimatorLimit int, estimatorWindow time.Duration, estimatorBurst int) []EndpointConfig {
	est := func(pattern string) EndpointConfig {
		return EndpointConfig{Pattern: pattern, Method: "POST", Tier: TierEstimator, Limit: estimatorLimit, Window: estimatorWindow, Burst: estimatorBurst}
	}
	write := func(method, pattern string) EndpointConfig {
		return EndpointConfig{Pattern: pattern, Method: method, Tier: TierWrite, Limit: 100, Window: time.Minute, Burst: 10}
	}

	return []EndpointConfig{
		est("/plans/reconcile"),
		est("/plans/reconcile/stream"),
		est("/plans/{id}/reconcile"),

		write("POST", "/plans"),
		write("PUT", "/plans/{id}"),
		write("DELETE", "/plans/{id}"),
		write("POST", "/plans/{id}/reset"),
	}
}

type envReader func(string) string

func (e envReader) int(key string, def int) int {
	if v := e(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if v := e(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if v := e(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
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

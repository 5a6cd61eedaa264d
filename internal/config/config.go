// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/nutricalc/internal/estimator"
	"github.com/jonathan/nutricalc/internal/llm"
)

// DefaultPort is used by `serve` when neither flag, env nor file sets one
const DefaultPort = 8080

// Duration accepts "30s"-style strings or a number of seconds in both JSON and YAML
type Duration struct {
	time.Duration
}

// MarshalJSON writes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads a duration string or seconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return d.set(v)
}

// MarshalYAML writes the duration as a string
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML reads a duration string or seconds
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var v any
	if err := value.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		d.Duration = parsed
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
	case int:
		d.Duration = time.Duration(val) * time.Second
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// EstimatorConfig configures the backend chain
type EstimatorConfig struct {
	Backends       []estimator.BackendSpec `json:"backends,omitempty" yaml:"backends,omitempty"`
	AttemptTimeout Duration                `json:"attempt_timeout,omitempty" yaml:"attempt_timeout,omitempty"`
	Fields         estimator.FieldNames    `json:"fields,omitempty" yaml:"fields,omitempty"`
	// Temperature is a pointer so an explicit 0 survives MergeWithDefaults
	Temperature *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// EffectiveTemperature returns the configured temperature or llm.DefaultTemperature
func (e EstimatorConfig) EffectiveTemperature() float32 {
	if e.Temperature == nil {
		return llm.DefaultTemperature
	}
	return *e.Temperature
}

// ProfileConfig holds default biometric inputs for the CLI.
// Flags override every field.
type ProfileConfig struct {
	Sex      string  `json:"sex,omitempty" yaml:"sex,omitempty"`
	WeightKg float64 `json:"weight_kg,omitempty" yaml:"weight_kg,omitempty"`
	HeightCm float64 `json:"height_cm,omitempty" yaml:"height_cm,omitempty"`
	AgeYears int     `json:"age_years,omitempty" yaml:"age_years,omitempty"`
	Activity string  `json:"activity,omitempty" yaml:"activity,omitempty"`
	Goal     string  `json:"goal,omitempty" yaml:"goal,omitempty"`
	GoalKcal float64 `json:"goal_kcal,omitempty" yaml:"goal_kcal,omitempty"`
}

// Config represents the configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults, env vars or CLI flags.
type Config struct {
	// Credentials
	GeminiAPIKey string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	OpenAIAPIKey string `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty"`

	// Storage
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`   // Local store used by the CLI

	// Server
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Engine
	Estimator   EstimatorConfig `json:"estimator,omitempty" yaml:"estimator,omitempty"`
	Concurrency int             `json:"concurrency,omitempty" yaml:"concurrency,omitempty"` // Slots reconciled in parallel
	Profile     ProfileConfig   `json:"profile,omitempty" yaml:"profile,omitempty"`

	// Behavior
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print detailed debug information
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port: DefaultPort,
		Estimator: EstimatorConfig{
			Backends:       estimator.DefaultBackendSpecs(),
			AttemptTimeout: Duration{estimator.DefaultAttemptTimeout},
			Fields:         estimator.DefaultFieldNames(),
			Temperature:    temperature(llm.DefaultTemperature),
		},
		Concurrency: 1,
	}
}

func temperature(v float32) *float32 {
	return &v
}

// LoadConfig loads configuration from a file. The extension picks the codec:
// .yaml and .yml are YAML, anything else is JSON.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
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
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv("NUTRICALC_SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := getenv("NUTRICALC_ESTIMATOR_URL"); v != "" {
		// An explicit chain is kept; the URL is tried last
		if len(c.Estimator.Backends) == 0 {
			c.Estimator.Backends = estimator.DefaultBackendSpecs()
		}
		c.Estimator.Backends = append(c.Estimator.Backends, estimator.BackendSpec{
			Name:     "env-http",
			Provider: estimator.ProviderHTTP,
			URL:      v,
		})
	}
	return nil
}

// Validate checks that the configuration has valid values.
// Required inputs are checked by the commands after merging.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}
	if c.Estimator.AttemptTimeout.Duration < 0 {
		return fmt.Errorf("config error: 'estimator.attempt_timeout' must be non-negative")
	}
	if t := c.Estimator.EffectiveTemperature(); t < 0 || t > 2 {
		return fmt.Errorf("config error: 'estimator.temperature' must be between 0 and 2")
	}
	if !c.Estimator.Fields.IsZero() {
		if err := c.Estimator.Fields.Validate(); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}

	seen := make(map[string]bool, len(c.Estimator.Backends))
	for _, b := range c.Estimator.Backends {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if seen[b.ID()] {
			return fmt.Errorf("config error: duplicate estimator backend %s", b.ID())
		}
		seen[b.ID()] = true
	}

	if c.SQLitePath != "" {
		if info, err := os.Stat(c.SQLitePath); err == nil && info.IsDir() {
			return fmt.Errorf("config error: sqlite_path is a directory: %s", c.SQLitePath)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.OpenAIAPIKey == "" {
		result.OpenAIAPIKey = defaults.OpenAIAPIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}

	// Estimator
	if len(result.Estimator.Backends) == 0 {
		result.Estimator.Backends = append([]estimator.BackendSpec(nil), defaults.Estimator.Backends...)
	}
	if result.Estimator.AttemptTimeout.Duration == 0 {
		result.Estimator.AttemptTimeout = defaults.Estimator.AttemptTimeout
	}
	if result.Estimator.Fields.IsZero() {
		result.Estimator.Fields = defaults.Estimator.Fields
	}
	if result.Estimator.Temperature == nil && defaults.Estimator.Temperature != nil {
		result.Estimator.Temperature = temperature(*defaults.Estimator.Temperature)
	}

	// Profile
	p, d := &result.Profile, defaults.Profile
	if p.Sex == "" {
		p.Sex = d.Sex
	}
	if p.WeightKg == 0 {
		p.WeightKg = d.WeightKg
	}
	if p.HeightCm == 0 {
		p.HeightCm = d.HeightCm
	}
	if p.AgeYears == 0 {
		p.AgeYears = d.AgeYears
	}
	if p.Activity == "" {
		p.Activity = d.Activity
	}
	if p.Goal == "" {
		p.Goal = d.Goal
	}
	if p.GoalKcal == 0 {
		p.GoalKcal = d.GoalKcal
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Credentials returns the API keys in the form the estimator builder takes
func (c *Config) Credentials() estimator.Credentials {
	return estimator.Credentials{GeminiAPIKey: c.GeminiAPIKey, OpenAIAPIKey: c.OpenAIAPIKey}
}

// Load reads path (if non-empty), applies env overrides, merges defaults and validates
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return Config{}, err
	}
	merged := cfg.MergeWithDefaults(Default())
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}
	return merged, nil
}

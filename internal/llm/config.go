// Package llm provides centralized LLM configuration and client abstractions.
// It lets the estimator walk an ordered chain of provider/model backends.
package llm

import "fmt"

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is the OpenAI provider
	ProviderOpenAI Provider = "openai"
)

// DefaultTemperature keeps numeric answers stable across calls
const DefaultTemperature = 0.1

// Backend names one provider/model pair in the fallback chain
type Backend struct {
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Provider Provider `json:"provider" yaml:"provider"`
	Model    string   `json:"model" yaml:"model"`
}

// ID returns the backend name, or provider/model when unnamed
func (b Backend) ID() string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("%s/%s", b.Provider, b.Model)
}

// Config holds the ordered backend chain, most preferred first
type Config struct {
	Backends    []Backend `json:"backends" yaml:"backends"`
	Temperature float32   `json:"temperature" yaml:"temperature"`
}

// DefaultConfig returns the default chain: three Gemini models, then OpenAI
func DefaultConfig() *Config {
	return &Config{
		Backends: []Backend{
			{Provider: ProviderGemini, Model: "gemini-2.5-flash"},
			{Provider: ProviderGemini, Model: "gemini-2.5-flash-lite"},
			{Provider: ProviderGemini, Model: "gemini-2.0-flash"},
			{Provider: ProviderOpenAI, Model: "gpt-4o-mini"},
		},
		Temperature: DefaultTemperature,
	}
}

// Validate checks the provider is known and a model is named
func (b Backend) Validate() error {
	switch b.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q", b.Provider)
	}
	if b.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// Validate checks every backend and that IDs are unique
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("backend %d (%s): %w", i, b.ID(), err)
		}
		if seen[b.ID()] {
			return fmt.Errorf("backend %d: duplicate backend %s", i, b.ID())
		}
		seen[b.ID()] = true
	}
	return nil
}

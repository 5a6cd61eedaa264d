package estimator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jonathan/nutricalc/internal/llm"
)

// ProviderHTTP marks a backend reached by a plain JSON POST
const ProviderHTTP = "http"

// BackendSpec is one configured entry in the fallback chain
type BackendSpec struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
}

// ID returns the spec name, or provider/model (provider/url for HTTP)
func (s BackendSpec) ID() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Provider == ProviderHTTP {
		return fmt.Sprintf("%s/%s", s.Provider, s.URL)
	}
	return fmt.Sprintf("%s/%s", s.Provider, s.Model)
}

// Validate checks the spec has what its provider needs
func (s BackendSpec) Validate() error {
	switch s.Provider {
	case ProviderHTTP:
		if s.URL == "" {
			return fmt.Errorf("backend %s: url is required for http provider", s.ID())
		}
	default:
		if err := s.llmBackend().Validate(); err != nil {
			return fmt.Errorf("backend %s: %w", s.ID(), err)
		}
	}
	return nil
}

func (s BackendSpec) llmBackend() llm.Backend {
	return llm.Backend{Name: s.Name, Provider: llm.Provider(s.Provider), Model: s.Model}
}

// LLMChain returns the LLM entries of specs, in order, as an llm.Config
func LLMChain(specs []BackendSpec, temperature float32) *llm.Config {
	chain := &llm.Config{Temperature: temperature}
	for _, spec := range specs {
		if spec.Provider != ProviderHTTP {
			chain.Backends = append(chain.Backends, spec.llmBackend())
		}
	}
	return chain
}

// DefaultBackendSpecs mirrors the default LLM chain
func DefaultBackendSpecs() []BackendSpec {
	defaults := llm.DefaultConfig()
	specs := make([]BackendSpec, len(defaults.Backends))
	for i, b := range defaults.Backends {
		specs[i] = BackendSpec{Name: b.Name, Provider: string(b.Provider), Model: b.Model}
	}
	return specs
}

// Credentials holds the API keys for LLM providers
type Credentials struct {
	GeminiAPIKey string
	OpenAIAPIKey string
}

func (c Credentials) keyFor(p llm.Provider) string {
	switch p {
	case llm.ProviderGemini:
		return c.GeminiAPIKey
	case llm.ProviderOpenAI:
		return c.OpenAIAPIKey
	}
	return ""
}

// BuildOptions configures BuildBackends
type BuildOptions struct {
	Credentials Credentials
	Temperature float32
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// newLLMClient is swapped in tests
var newLLMClient = llm.NewClient

// BuildBackends turns specs into backends, sharing one client per provider.
// LLM specs whose provider has no API key are skipped with a warning.
// The returned closer releases the clients.
func BuildBackends(ctx context.Context, specs []BackendSpec, opts BuildOptions) ([]Backend, func() error, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chain := LLMChain(specs, opts.Temperature)
	if err := chain.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid estimator chain: %w", err)
	}

	clients := make(map[llm.Provider]llm.Client)
	closeAll := func() error {
		var errs []error
		for _, c := range clients {
			errs = append(errs, c.Close())
		}
		return errors.Join(errs...)
	}

	var backends []Backend
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			_ = closeAll()
			return nil, nil, err
		}

		if spec.Provider == ProviderHTTP {
			backends = append(backends, NewHTTPBackend(spec.ID(), spec.URL, opts.HTTPClient))
			continue
		}

		provider := llm.Provider(spec.Provider)
		client, ok := clients[provider]
		if !ok {
			key := opts.Credentials.keyFor(provider)
			if key == "" {
				logger.Warn("estimator: skipping backend without API key", "backend", spec.ID(), "provider", provider)
				continue
			}
			var err error
			client, err = newLLMClient(ctx, provider, key, chain.Temperature)
			if err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("failed to create %s client: %w", provider, err)
			}
			clients[provider] = client
		}
		backends = append(backends, NewLLMBackend(spec.ID(), client, spec.Model))
	}

	return backends, closeAll, nil
}

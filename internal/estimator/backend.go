package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/nutricalc/internal/llm"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics
const maxErrorBody = 512

// Request is what a backend receives for one batch
type Request struct {
	Prompt       string   `json:"prompt"`
	Descriptions []string `json:"descriptions"`
}

// Backend answers a batch request with raw text that should contain a JSON array
type Backend interface {
	Name() string
	Estimate(ctx context.Context, req Request) (string, error)
}

// LLMBackend sends the prompt to one model through an llm.Client
type LLMBackend struct {
	name   string
	client llm.Client
	model  string
}

// NewLLMBackend creates a backend for model served by client
func NewLLMBackend(name string, client llm.Client, model string) *LLMBackend {
	if name == "" {
		name = fmt.Sprintf("%s/%s", client.Provider(), model)
	}
	return &LLMBackend{name: name, client: client, model: model}
}

// Name returns the backend identifier used in logs and failure reasons
func (b *LLMBackend) Name() string {
	return b.name
}

// Estimate calls the model with the batch prompt
func (b *LLMBackend) Estimate(ctx context.Context, req Request) (string, error) {
	return b.client.GenerateContent(ctx, b.model, req.Prompt)
}

// HTTPBackend POSTs the request as JSON and treats the response body as the answer
type HTTPBackend struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPBackend creates a backend for url. A nil client uses http.DefaultClient.
func NewHTTPBackend(name, url string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = http.DefaultClient
	}
	if name == "" {
		name = url
	}
	return &HTTPBackend{name: name, url: url, client: client}
}

// Name returns the backend identifier used in logs and failure reasons
func (b *HTTPBackend) Name() string {
	return b.name
}

// Estimate posts {"prompt", "descriptions"} and returns the body text
func (b *HTTPBackend) Estimate(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}
	return string(body), nil
}

// Compile-time interface checks
var (
	_ Backend = (*LLMBackend)(nil)
	_ Backend = (*HTTPBackend)(nil)
)

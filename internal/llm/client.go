package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent generates text content with the named model
	GenerateContent(ctx context.Context, model, prompt string) (string, error)
	// Provider reports which provider serves this client
	Provider() Provider
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a client for the provider
func NewClient(ctx context.Context, provider Provider, apiKey string, temperature float32) (Client, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey, temperature)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, temperature)
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client      *genai.Client
	temperature float32
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, apiKey string, temperature float32) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		temperature: temperature,
	}, nil
}

// GenerateContent generates text content using the named model
func (c *GeminiClient) GenerateContent(ctx context.Context, modelName, prompt string) (string, error) {
	if modelName == "" {
		return "", fmt.Errorf("model name is required")
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(c.temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// Provider returns ProviderGemini
func (c *GeminiClient) Provider() Provider {
	return ProviderGemini
}

// ListModels returns the names of models that support generateContent
func (c *GeminiClient) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	it := c.client.ListModels(ctx)
	for {
		info, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		for _, method := range info.SupportedGenerationMethods {
			if method == "generateContent" {
				names = append(names, strings.TrimPrefix(info.Name, "models/"))
				break
			}
		}
	}
	return names, nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// Compile-time interface checks
var (
	_ Client = (*GeminiClient)(nil)
	_ Client = (*OpenAIClient)(nil)
)

// ChatCompletionsService is the slice of the OpenAI SDK the client uses.
// Tests substitute a fake.
type ChatCompletionsService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...openaioption.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIClient implements Client for OpenAI chat completions
type OpenAIClient struct {
	completions ChatCompletionsService
	temperature float32
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey string, temperature float32) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client := openai.NewClient(openaioption.WithAPIKey(apiKey))
	return NewOpenAIClientWithService(client.Chat.Completions, temperature), nil
}

// NewOpenAIClientWithService wraps an existing completions service
func NewOpenAIClientWithService(svc ChatCompletionsService, temperature float32) *OpenAIClient {
	return &OpenAIClient{completions: svc, temperature: temperature}
}

// GenerateContent sends the prompt as a single user message
func (c *OpenAIClient) GenerateContent(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		return "", fmt.Errorf("model name is required")
	}

	resp, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model:       openai.F(openai.ChatModel(model)),
		Temperature: openai.F(float64(c.temperature)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty content in response")
	}
	return content, nil
}

// Provider returns ProviderOpenAI
func (c *OpenAIClient) Provider() Provider {
	return ProviderOpenAI
}

// Close is a no-op; the OpenAI SDK holds no long-lived resources
func (c *OpenAIClient) Close() error {
	return nil
}

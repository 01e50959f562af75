package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"aistudio/config"
)

// Request is a single-turn text generation request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Provider generates text from a prompt. Implementations wrap a remote or
// local model API.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// APIError is returned when a provider answers with a non-2xx status.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// NewProvider builds the provider selected in cfg. It returns (nil, nil) when
// no provider is configured.
func NewProvider(cfg *config.Config) (Provider, error) {
	client := &http.Client{Timeout: cfg.AIRequestTimeout()}
	switch cfg.AI.Provider {
	case config.ProviderNone, "":
		return nil, nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider(OpenAIConfig{
			APIBaseURL: cfg.AI.OpenAIBaseURL,
			APIKey:     cfg.AI.OpenAIAPIKey,
			Model:      cfg.AI.OpenAIModel,
		}, client), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(AnthropicConfig{
			APIBaseURL: cfg.AI.AnthropicBaseURL,
			APIKey:     cfg.AI.AnthropicAPIKey,
			Model:      cfg.AI.AnthropicModel,
		}, client), nil
	case config.ProviderTransformers:
		return NewTransformersProvider(cfg.AI.TransformersURL, client), nil
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
}

func defaultClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// checkStatus turns a non-2xx response into an APIError.
func checkStatus(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
}

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TransformersProvider calls a local text-generation pipeline server that
// speaks the Hugging Face inference format.
type TransformersProvider struct {
	baseURL    string
	httpClient *http.Client
}

type transformersRequest struct {
	Inputs     string                 `json:"inputs"`
	Parameters transformersParameters `json:"parameters"`
}

type transformersParameters struct {
	MaxNewTokens   int  `json:"max_new_tokens,omitempty"`
	ReturnFullText bool `json:"return_full_text"`
}

type transformersResult struct {
	GeneratedText string `json:"generated_text"`
}

func NewTransformersProvider(baseURL string, client *http.Client) *TransformersProvider {
	return &TransformersProvider{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: defaultClient(client)}
}

func (p *TransformersProvider) Name() string { return "transformers" }

// Complete prepends the system text to the prompt, since the pipeline has no
// separate system role.
func (p *TransformersProvider) Complete(ctx context.Context, req Request) (string, error) {
	inputs := req.Prompt
	if req.System != "" {
		inputs = req.System + "\n\n" + req.Prompt
	}
	jsonBody, err := json.Marshal(transformersRequest{
		Inputs:     inputs,
		Parameters: transformersParameters{MaxNewTokens: req.MaxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(p.Name(), resp); err != nil {
		return "", err
	}

	var results []transformersResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(results) == 0 || strings.TrimSpace(results[0].GeneratedText) == "" {
		return "", fmt.Errorf("no generated text returned")
	}
	return strings.TrimSpace(results[0].GeneratedText), nil
}

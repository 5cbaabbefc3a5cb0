// Package anthropic implements llm.Provider on the Anthropic Messages API.
//
// The Messages API takes the system prompt as a top-level field rather than
// a message, so the system prompt option maps to that field.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/memorybank/memorybank-go/pkg/llm"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-3-5-sonnet-20240620"
	apiVersion     = "2023-06-01"
)

// Config configures the Anthropic generation client.
type Config struct {
	// APIKey is the Anthropic API key. Required.
	APIKey string

	// Model is the default model name. Defaults to
	// claude-3-5-sonnet-20240620.
	Model string

	// BaseURL overrides the official API endpoint.
	BaseURL string

	// HTTPClient overrides the default client (120 second timeout).
	HTTPClient *http.Client
}

// Client calls the Anthropic Messages API.
type Client struct {
	client  *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewClient creates an Anthropic generation client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("anthropic llm: API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	return &Client{
		client:  client,
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Generate produces a completion for the prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	reqBody := map[string]interface{}{
		"model":       model,
		"max_tokens":  options.MaxTokens,
		"temperature": options.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	if options.SystemPrompt != "" {
		reqBody["system"] = options.SystemPrompt
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(response.Content) == 0 {
		return "", errors.New("anthropic llm: no content returned")
	}

	return response.Content[0].Text, nil
}

// ModelInfo identifies the backend and default model.
func (c *Client) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{Provider: "anthropic", Model: c.model}
}

// Close releases resources. The HTTP client holds none, so this is a no-op.
func (c *Client) Close() error {
	return nil
}

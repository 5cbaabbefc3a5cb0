// Package openai implements llm.Provider on the OpenAI Chat Completions API.
package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/memorybank/memorybank-go/pkg/llm"
)

const defaultModel = "gpt-4"

// Config configures the OpenAI generation client.
type Config struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// Model is the default model name. Defaults to gpt-4.
	Model string

	// BaseURL overrides the official API endpoint, for proxies and
	// OpenAI-compatible servers.
	BaseURL string
}

// Client calls the OpenAI Chat Completions API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates an OpenAI generation client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai llm: API key is required")
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client: openai.NewClientWithConfig(apiConfig),
		model:  model,
	}, nil
}

// Generate produces a completion for the prompt. A system prompt option
// becomes a leading system message.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	var messages []openai.ChatCompletionMessage
	if options.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai llm: no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// ModelInfo identifies the backend and default model.
func (c *Client) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{Provider: "openai", Model: c.model}
}

// Close releases resources. The SDK client holds none, so this is a no-op.
func (c *Client) Close() error {
	return nil
}

// Package llm defines the text-generation provider interface used for
// memory-augmented generation.
package llm

import "context"

// Provider generates text from a prompt.
type Provider interface {
	// Generate produces a completion for the prompt. Options control the
	// system prompt, model override and sampling parameters.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// ModelInfo identifies the provider and default model in use.
	ModelInfo() ModelInfo

	// Close releases any resources held by the provider.
	Close() error
}

// ModelInfo identifies a generation backend.
type ModelInfo struct {
	// Provider is the backend name, e.g. "openai" or "anthropic".
	Provider string `json:"provider"`

	// Model is the model name, e.g. "gpt-4".
	Model string `json:"model"`
}

// GenerateOptions are the resolved options for one generation call.
type GenerateOptions struct {
	// SystemPrompt is prepended as the system message when non-empty.
	SystemPrompt string

	// Model overrides the provider's default model when non-empty.
	Model string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the completion length.
	MaxTokens int
}

// GenerateOption configures a generation call.
type GenerateOption func(*GenerateOptions)

// WithSystemPrompt sets the system message for the call.
func WithSystemPrompt(prompt string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompt = prompt
	}
}

// WithModel overrides the provider's default model for the call.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temperature
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(maxTokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = maxTokens
	}
}

// ApplyGenerateOptions resolves opts over the defaults
// (temperature 0.7, 1000 max tokens).
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   1000,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

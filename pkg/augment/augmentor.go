// Package augment combines a memory store with a text-generation provider:
// it retrieves relevant memories for a query, folds them into the system
// prompt, and optionally stores the resulting exchange as new memories.
package augment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/memorybank/memorybank-go/pkg/core"
	"github.com/memorybank/memorybank-go/pkg/llm"
	llmanthropic "github.com/memorybank/memorybank-go/pkg/llm/anthropic"
	llmopenai "github.com/memorybank/memorybank-go/pkg/llm/openai"
)

// MemoryStore is the store surface the augmentor needs.
type MemoryStore interface {
	Retrieve(ctx context.Context, query string, opts ...core.RetrieveOption) ([]*core.RetrievedRecord, error)
	Store(ctx context.Context, content string, opts ...core.StoreOption) (*core.Record, error)
}

// Result is the outcome of one augmented generation.
type Result struct {
	// Response is the generated text.
	Response string `json:"response"`

	// MemoriesUsed are the retrieved memories folded into the prompt,
	// best match first. Empty when nothing relevant was found.
	MemoriesUsed []*core.RetrievedRecord `json:"memories_used"`

	// ModelInfo identifies the generation backend used.
	ModelInfo llm.ModelInfo `json:"model_info"`
}

// Options configure one augmented generation.
type Options struct {
	// SystemPrompt is the caller's system prompt. The memory block is
	// appended to it.
	SystemPrompt string

	// TopK caps how many memories are retrieved. -1 means the store
	// default; 0 disables retrieval.
	TopK int

	// UserID restricts retrieval to one user's memories and tags
	// captured exchanges with that user.
	UserID string

	// SessionID restricts retrieval to one session and tags captured
	// exchanges with that session.
	SessionID string

	// Model overrides the generation model.
	Model string

	// Temperature and MaxTokens control sampling when non-zero.
	Temperature float64
	MaxTokens   int

	// CaptureExchange stores the query and response as new memories
	// after a successful generation.
	CaptureExchange bool
}

// Option configures an augmented generation.
type Option func(*Options)

// WithSystemPrompt sets the caller's system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Options) { o.SystemPrompt = prompt }
}

// WithTopK caps how many memories are retrieved. Zero disables retrieval.
func WithTopK(topK int) Option {
	return func(o *Options) { o.TopK = topK }
}

// WithUser restricts retrieval to the given user's memories.
func WithUser(userID string) Option {
	return func(o *Options) { o.UserID = userID }
}

// WithSession restricts retrieval to the given session's memories.
func WithSession(sessionID string) Option {
	return func(o *Options) { o.SessionID = sessionID }
}

// WithModel overrides the generation model.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(o *Options) { o.Temperature = temperature }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) { o.MaxTokens = maxTokens }
}

// WithCaptureExchange stores the query and response as new memories after a
// successful generation.
func WithCaptureExchange() Option {
	return func(o *Options) { o.CaptureExchange = true }
}

// Augmentor generates responses grounded in stored memories.
type Augmentor struct {
	store     MemoryStore
	generator llm.Provider
}

// New creates an augmentor over a store and a generation provider.
func New(store MemoryStore, generator llm.Provider) *Augmentor {
	return &Augmentor{
		store:     store,
		generator: generator,
	}
}

// NewGenerator constructs the generation provider named by config.
//
// Supported providers: openai, anthropic.
func NewGenerator(config *core.Config) (llm.Provider, error) {
	switch config.LLM.Provider {
	case "openai":
		return llmopenai.NewClient(&llmopenai.Config{
			APIKey:  config.LLM.APIKey,
			Model:   config.LLM.Model,
			BaseURL: config.LLM.BaseURL,
		})
	case "anthropic":
		return llmanthropic.NewClient(&llmanthropic.Config{
			APIKey:  config.LLM.APIKey,
			Model:   config.LLM.Model,
			BaseURL: config.LLM.BaseURL,
		})
	default:
		return nil, core.NewMemoryError("NewGenerator",
			fmt.Errorf("%w: unsupported llm provider: %s", core.ErrInvalidConfig, config.LLM.Provider))
	}
}

// GenerateWithMemory retrieves memories relevant to the query, folds them
// into the system prompt, and generates a response.
//
// With zero relevant memories the generation proceeds with the caller's
// system prompt alone. Retrieval and generation errors propagate unchanged.
func (a *Augmentor) GenerateWithMemory(ctx context.Context, query string, opts ...Option) (*Result, error) {
	options := &Options{TopK: -1}
	for _, opt := range opts {
		opt(options)
	}

	memories, err := a.retrieve(ctx, query, options)
	if err != nil {
		return nil, err
	}

	systemPrompt := options.SystemPrompt
	if block := memoryBlock(memories); block != "" {
		if systemPrompt != "" {
			systemPrompt = systemPrompt + "\n\n" + block
		} else {
			systemPrompt = block
		}
	}

	var genOpts []llm.GenerateOption
	if systemPrompt != "" {
		genOpts = append(genOpts, llm.WithSystemPrompt(systemPrompt))
	}
	if options.Model != "" {
		genOpts = append(genOpts, llm.WithModel(options.Model))
	}
	if options.Temperature != 0 {
		genOpts = append(genOpts, llm.WithTemperature(options.Temperature))
	}
	if options.MaxTokens != 0 {
		genOpts = append(genOpts, llm.WithMaxTokens(options.MaxTokens))
	}

	response, err := a.generator.Generate(ctx, query, genOpts...)
	if err != nil {
		return nil, err
	}

	if options.CaptureExchange {
		a.captureExchange(ctx, query, response, options)
	}

	return &Result{
		Response:     response,
		MemoriesUsed: memories,
		ModelInfo:    a.generator.ModelInfo(),
	}, nil
}

func (a *Augmentor) retrieve(ctx context.Context, query string, options *Options) ([]*core.RetrievedRecord, error) {
	if options.TopK == 0 {
		return nil, nil
	}

	var retrieveOpts []core.RetrieveOption
	if options.TopK > 0 {
		retrieveOpts = append(retrieveOpts, core.WithTopK(options.TopK))
	}
	if options.UserID != "" {
		retrieveOpts = append(retrieveOpts, core.WithUserFilter(options.UserID))
	}
	if options.SessionID != "" {
		retrieveOpts = append(retrieveOpts, core.WithSessionFilter(options.SessionID))
	}

	return a.store.Retrieve(ctx, query, retrieveOpts...)
}

// memoryBlock formats retrieved memories as a numbered system prompt block.
// Returns "" for zero memories.
func memoryBlock(memories []*core.RetrievedRecord) string {
	if len(memories) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Relevant memories from previous conversations:\n")
	for i, m := range memories {
		fmt.Fprintf(&b, "%d. %s (from %s)\n", i+1, m.Record.Content, m.Record.CreatedAt.Format(time.RFC3339))
	}
	return b.String()
}

// captureExchange stores both sides of the exchange. Best effort: a store
// failure does not fail the generation that already succeeded.
func (a *Augmentor) captureExchange(ctx context.Context, query, response string, options *Options) {
	var storeOpts []core.StoreOption
	if options.UserID != "" {
		storeOpts = append(storeOpts, core.WithUserID(options.UserID))
	}
	if options.SessionID != "" {
		storeOpts = append(storeOpts, core.WithSessionID(options.SessionID))
	}

	_, _ = a.store.Store(ctx, "User asked: "+query, storeOpts...)
	_, _ = a.store.Store(ctx, "Assistant responded: "+response, storeOpts...)
}

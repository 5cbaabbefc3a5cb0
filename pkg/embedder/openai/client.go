// Package openai implements embedder.Provider on the OpenAI Embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// defaultDimensions matches text-embedding-ada-002.
const defaultDimensions = 1536

// Config configures the OpenAI embedding client.
type Config struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// Model is reserved for future use. The pinned go-openai release
	// types EmbeddingModel as an int enum, so the client always uses
	// text-embedding-ada-002.
	Model string

	// BaseURL overrides the official API endpoint, for proxies and
	// OpenAI-compatible servers.
	BaseURL string

	// Dimensions is the vector dimension produced by Model. Defaults
	// to 1536.
	Dimensions int
}

// Client calls the OpenAI Embeddings API.
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewClient creates an OpenAI embedding client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("openai embedder: config is required")
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = defaultDimensions
	}

	return &Client{
		client:     openai.NewClientWithConfig(apiConfig),
		model:      openai.AdaEmbeddingV2,
		dimensions: dimensions,
	}, nil
}

// Embed converts a single text to its embedding vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("openai embedder: no data returned")
	}

	return toFloat64(resp.Data[0].Embedding), nil
}

// EmbedBatch converts multiple texts in one API call. The returned vectors
// are in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: got %d results for %d inputs", len(resp.Data), len(texts))
	}

	embeddings := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = toFloat64(data.Embedding)
	}

	return embeddings, nil
}

// Dimensions returns the configured vector dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close releases resources. The SDK client holds none, so this is a no-op.
func (c *Client) Close() error {
	return nil
}

// toFloat64 widens the API's float32 vectors.
func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Package embedder defines the text embedding provider interface used by the
// memory store to turn content and queries into vectors.
package embedder

import "context"

// Provider converts text into embedding vectors for similarity search.
type Provider interface {
	// Embed converts one text into its embedding vector.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple texts in a single call, returning
	// vectors in input order. Prefer this over repeated Embed calls when
	// embedding many texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions reports the vector dimension this provider produces.
	Dimensions() int

	// Close releases any resources held by the provider.
	Close() error
}

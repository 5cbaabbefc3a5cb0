package openai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorybank/memorybank-go/pkg/embedder/openai"
)

func TestNewClientDefaults(t *testing.T) {
	client, err := openai.NewClient(&openai.Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, 1536, client.Dimensions())
	assert.NoError(t, client.Close())
}

func TestNewClientCustomDimensions(t *testing.T) {
	client, err := openai.NewClient(&openai.Config{APIKey: "sk-test", Dimensions: 768})
	require.NoError(t, err)
	assert.Equal(t, 768, client.Dimensions())
}

func TestNewClientNilConfig(t *testing.T) {
	_, err := openai.NewClient(nil)
	assert.Error(t, err)
}

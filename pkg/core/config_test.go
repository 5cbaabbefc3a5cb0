package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorybank/memorybank-go/pkg/core"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("TOP_K", "")
	t.Setenv("FORGETTING_THRESHOLD", "")
	t.Setenv("FORGETTING_INTERVAL_HOURS", "")
	t.Setenv("MAINTENANCE_INTERVAL_HOURS", "")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.VectorIndex.Provider)
	assert.Equal(t, "openai", config.Embedder.Provider)
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4", config.LLM.Model)
	assert.Equal(t, 3, config.Memory.TopK)
	assert.Equal(t, 0.1, config.Memory.DecayThreshold)
	assert.Equal(t, 24, config.Memory.ForgettingIntervalHours)
	assert.Equal(t, 168, config.Memory.MaintenanceIntervalHours)
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("TOP_K", "5")
	t.Setenv("FORGETTING_THRESHOLD", "0.25")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", config.VectorIndex.Provider)
	assert.Equal(t, "db.internal", config.VectorIndex.Config["host"])
	assert.Equal(t, 5433, config.VectorIndex.Config["port"])
	assert.Equal(t, "secret", config.VectorIndex.Config["password"])
	assert.Equal(t, "anthropic", config.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-20240620", config.LLM.Model)
	assert.Equal(t, 5, config.Memory.TopK)
	assert.Equal(t, 0.25, config.Memory.DecayThreshold)
}

func TestLoadConfigFromEnvBadThreshold(t *testing.T) {
	t.Setenv("FORGETTING_THRESHOLD", "not-a-number")

	_, err := core.LoadConfigFromEnv()
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"embedder": {"provider": "openai", "api_key": "sk-test", "model": "text-embedding-3-small"},
		"vector_index": {"provider": "sqlite", "config": {"db_path": "/tmp/mem.db", "embedding_model_dims": 1536}},
		"memory": {"top_k": 7, "decay_threshold": 0.2}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := core.LoadConfigFromJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", config.Embedder.Provider)
	assert.Equal(t, "sqlite", config.VectorIndex.Provider)
	assert.Equal(t, "/tmp/mem.db", config.VectorIndex.Config["db_path"])
	assert.Equal(t, 7, config.Memory.TopK)
	assert.Equal(t, 0.2, config.Memory.DecayThreshold)
}

func TestLoadConfigFromJSONMissingFile(t *testing.T) {
	_, err := core.LoadConfigFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *core.Config {
		return &core.Config{
			Embedder:    core.EmbedderConfig{Provider: "openai"},
			VectorIndex: core.VectorIndexConfig{Provider: "sqlite"},
			Memory: core.MemoryConfig{
				TopK:                     3,
				DecayThreshold:           0.1,
				ForgettingIntervalHours:  24,
				MaintenanceIntervalHours: 168,
			},
		}
	}

	assert.NoError(t, valid().Validate())

	c := valid()
	c.Embedder.Provider = ""
	assert.ErrorIs(t, c.Validate(), core.ErrInvalidConfig)

	c = valid()
	c.VectorIndex.Provider = ""
	assert.ErrorIs(t, c.Validate(), core.ErrInvalidConfig)

	c = valid()
	c.Memory.TopK = 0
	assert.ErrorIs(t, c.Validate(), core.ErrInvalidConfig)

	c = valid()
	c.Memory.DecayThreshold = 2.5
	assert.ErrorIs(t, c.Validate(), core.ErrInvalidConfig)

	c = valid()
	c.Memory.ForgettingIntervalHours = -1
	assert.ErrorIs(t, c.Validate(), core.ErrInvalidConfig)
}

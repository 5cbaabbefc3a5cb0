package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/memorybank/memorybank-go/pkg/retention"
)

// Default tuning values for the memory lifecycle.
const (
	// DefaultTopK is the default number of neighbors returned by Retrieve.
	DefaultTopK = 3

	// DefaultDecayThreshold is the importance below which a decay sweep
	// deletes a record.
	DefaultDecayThreshold = 0.1

	// DefaultForgettingIntervalHours is how often decay sweeps run.
	DefaultForgettingIntervalHours = 24

	// DefaultMaintenanceIntervalHours is how often the maintenance job
	// (stats + sweep + stats) runs.
	DefaultMaintenanceIntervalHours = 168
)

// Config contains the complete configuration for a memory store and its
// collaborators.
type Config struct {
	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// LLM contains text-generation provider configuration. Only needed
	// when memory-augmented generation is used.
	LLM LLMConfig `json:"llm"`

	// VectorIndex contains vector index backend configuration.
	VectorIndex VectorIndexConfig `json:"vector_index"`

	// Memory contains lifecycle tuning (topK, decay threshold, sweep
	// intervals). Zero values are replaced with defaults.
	Memory MemoryConfig `json:"memory"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai.
type EmbedderConfig struct {
	// Provider is the embedding provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key"`

	// Model is the embedding model name (e.g. "text-embedding-3-small").
	Model string `json:"model"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the embedding vector dimension (e.g. 1536).
	Dimensions int `json:"dimensions,omitempty"`
}

// LLMConfig contains configuration for the text-generation provider.
//
// Supported providers: openai, anthropic.
type LLMConfig struct {
	// Provider is the LLM provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key"`

	// Model is the model name (e.g. "gpt-4", "claude-3-5-sonnet-20240620").
	Model string `json:"model"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `json:"base_url,omitempty"`
}

// VectorIndexConfig contains configuration for the vector index backend.
//
// Supported providers: sqlite, postgres, mysql.
type VectorIndexConfig struct {
	// Provider is the index backend name.
	Provider string `json:"provider"`

	// Config contains provider-specific settings.
	// For SQLite: db_path, collection_name, embedding_model_dims.
	// For PostgreSQL/MySQL: host, port, user, password, db_name,
	// collection_name, embedding_model_dims (and ssl_mode for PostgreSQL).
	Config map[string]interface{} `json:"config"`
}

// MemoryConfig contains lifecycle tuning for the store and scheduler.
type MemoryConfig struct {
	// TopK is the default number of neighbors returned by Retrieve.
	// Minimum 1.
	TopK int `json:"top_k,omitempty"`

	// DecayThreshold is the importance below which decay sweeps delete
	// records. Must lie in [0, 2].
	DecayThreshold float64 `json:"decay_threshold,omitempty"`

	// ForgettingIntervalHours is the decay sweep interval.
	ForgettingIntervalHours int `json:"forgetting_interval_hours,omitempty"`

	// MaintenanceIntervalHours is the maintenance job interval.
	MaintenanceIntervalHours int `json:"maintenance_interval_hours,omitempty"`
}

// applyDefaults fills zero-valued lifecycle settings with defaults.
func (c *Config) applyDefaults() {
	if c.Memory.TopK == 0 {
		c.Memory.TopK = DefaultTopK
	}
	if c.Memory.DecayThreshold == 0 {
		c.Memory.DecayThreshold = DefaultDecayThreshold
	}
	if c.Memory.ForgettingIntervalHours == 0 {
		c.Memory.ForgettingIntervalHours = DefaultForgettingIntervalHours
	}
	if c.Memory.MaintenanceIntervalHours == 0 {
		c.Memory.MaintenanceIntervalHours = DefaultMaintenanceIntervalHours
	}
}

// Validate checks the configuration for a store built from providers.
//
// The embedder and vector index providers must be set, the decay threshold
// must lie in [0, MaxImportance], intervals must be positive and TopK at
// least 1. Returns an ErrInvalidConfig wrap describing the first problem.
func (c *Config) Validate() error {
	if c.Embedder.Provider == "" {
		return NewMemoryError("Validate", fmt.Errorf("%w: embedder provider is required", ErrInvalidConfig))
	}
	if c.VectorIndex.Provider == "" {
		return NewMemoryError("Validate", fmt.Errorf("%w: vector index provider is required", ErrInvalidConfig))
	}
	return c.validateMemory()
}

func (c *Config) validateMemory() error {
	if c.Memory.TopK < 1 {
		return NewMemoryError("Validate", fmt.Errorf("%w: top_k must be at least 1", ErrInvalidConfig))
	}
	if c.Memory.DecayThreshold < 0 || c.Memory.DecayThreshold > retention.MaxImportance {
		return NewMemoryError("Validate", fmt.Errorf("%w: decay_threshold must lie in [0, %v]", ErrInvalidConfig, retention.MaxImportance))
	}
	if c.Memory.ForgettingIntervalHours <= 0 || c.Memory.MaintenanceIntervalHours <= 0 {
		return NewMemoryError("Validate", fmt.Errorf("%w: sweep intervals must be positive", ErrInvalidConfig))
	}
	return nil
}

// LoadConfigFromEnv loads configuration from environment variables,
// first loading a .env file if one is found (searching up to 5 directory
// levels, falling back to .env.example).
//
// Recognized variables:
//   - DATABASE_PROVIDER (sqlite, postgres, mysql) plus SQLITE_*,
//     POSTGRES_*, MYSQL_* backend settings
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL,
//     EMBEDDING_BASE_URL
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - TOP_K, FORGETTING_THRESHOLD, FORGETTING_INTERVAL_HOURS,
//     MAINTENANCE_INTERVAL_HOURS
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")

	indexConfig := make(map[string]interface{})
	switch provider {
	case "sqlite":
		dims, _ := strconv.Atoi(getEnvOrDefault("SQLITE_EMBEDDING_MODEL_DIMS", "1536"))
		indexConfig = map[string]interface{}{
			"db_path":              getEnvOrDefault("SQLITE_PATH", "./memorybank.db"),
			"collection_name":      getEnvOrDefault("SQLITE_COLLECTION", "memories"),
			"embedding_model_dims": dims,
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		dims, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_EMBEDDING_MODEL_DIMS", "1536"))
		indexConfig = map[string]interface{}{
			"host":                 getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":                 port,
			"user":                 getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":             os.Getenv("POSTGRES_PASSWORD"),
			"db_name":              getEnvOrDefault("POSTGRES_DATABASE", "memorybank"),
			"collection_name":      getEnvOrDefault("POSTGRES_COLLECTION", "memories"),
			"embedding_model_dims": dims,
			"ssl_mode":             getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		dims, _ := strconv.Atoi(getEnvOrDefault("MYSQL_EMBEDDING_MODEL_DIMS", "1536"))
		indexConfig = map[string]interface{}{
			"host":                 getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":                 port,
			"user":                 getEnvOrDefault("MYSQL_USER", "root"),
			"password":             os.Getenv("MYSQL_PASSWORD"),
			"db_name":              getEnvOrDefault("MYSQL_DATABASE", "memorybank"),
			"collection_name":      getEnvOrDefault("MYSQL_COLLECTION", "memories"),
			"embedding_model_dims": dims,
		}
	}

	llmProvider := getEnvOrDefault("LLM_PROVIDER", "openai")
	var defaultModel string
	switch llmProvider {
	case "anthropic":
		defaultModel = "claude-3-5-sonnet-20240620"
	default:
		defaultModel = "gpt-4"
	}

	topK, _ := strconv.Atoi(getEnvOrDefault("TOP_K", strconv.Itoa(DefaultTopK)))
	threshold, err := strconv.ParseFloat(getEnvOrDefault("FORGETTING_THRESHOLD", "0.1"), 64)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromEnv", fmt.Errorf("%w: FORGETTING_THRESHOLD: %v", ErrInvalidConfig, err))
	}
	forgettingHours, _ := strconv.Atoi(getEnvOrDefault("FORGETTING_INTERVAL_HOURS", strconv.Itoa(DefaultForgettingIntervalHours)))
	maintenanceHours, _ := strconv.Atoi(getEnvOrDefault("MAINTENANCE_INTERVAL_HOURS", strconv.Itoa(DefaultMaintenanceIntervalHours)))

	dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMENSIONS", "1536"))

	config := &Config{
		Embedder: EmbedderConfig{
			Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", "openai"),
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Model:      getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-ada-002"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: dims,
		},
		LLM: LLMConfig{
			Provider: llmProvider,
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    getEnvOrDefault("LLM_MODEL", defaultModel),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		VectorIndex: VectorIndexConfig{
			Provider: provider,
			Config:   indexConfig,
		},
		Memory: MemoryConfig{
			TopK:                     topK,
			DecayThreshold:           threshold,
			ForgettingIntervalHours:  forgettingHours,
			MaintenanceIntervalHours: maintenanceHours,
		},
	}

	return config, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile looks for .env (or .env.example) in the working directory and
// up to 5 parent directories.
func FindEnvFile() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}

	for i := 0; i < 5; i++ {
		for _, name := range []string{".env", ".env.example"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}

package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/memorybank/memorybank-go/pkg/embedder"
	embedderopenai "github.com/memorybank/memorybank-go/pkg/embedder/openai"
	"github.com/memorybank/memorybank-go/pkg/index"
	"github.com/memorybank/memorybank-go/pkg/index/mysql"
	"github.com/memorybank/memorybank-go/pkg/index/postgres"
	"github.com/memorybank/memorybank-go/pkg/index/sqlite"
	"github.com/memorybank/memorybank-go/pkg/retention"
)

const (
	// accessBoostPerHit is the importance boost granted per retrieval hit.
	accessBoostPerHit = 0.1

	// maxAccessBoost caps the boost from any single retrieval.
	maxAccessBoost = 0.5
)

// Store is the long-term memory store. It embeds content on write, persists
// records with bookkeeping in a vector index, retrieves by similarity with
// an access bump on every hit, and decays records through the retention
// model.
//
// A Store is safe for concurrent use. Bookkeeping writes are last-writer-wins:
// concurrent retrievals hitting the same record may lose an access bump, which
// the retention model tolerates.
type Store struct {
	config   *Config
	embedder embedder.Provider
	index    index.VectorIndex
	model    *retention.Model
	node     *snowflake.Node
	logger   *slog.Logger
}

// NewStore creates a memory store from configuration, constructing the
// embedding provider and vector index backend it names.
func NewStore(config *Config) (*Store, error) {
	if config == nil {
		return nil, NewMemoryError("NewStore", fmt.Errorf("%w: config is required", ErrInvalidConfig))
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	emb, err := initEmbedder(config)
	if err != nil {
		return nil, NewMemoryError("NewStore", err)
	}

	idx, err := initIndex(config)
	if err != nil {
		emb.Close()
		return nil, NewMemoryError("NewStore", err)
	}

	return newStore(config, emb, idx)
}

// NewStoreWith creates a memory store with an injected embedding provider
// and vector index. Only the lifecycle settings of config are used; zero
// values are replaced with defaults.
func NewStoreWith(config *Config, emb embedder.Provider, idx index.VectorIndex) (*Store, error) {
	if config == nil {
		config = &Config{}
	}
	config.applyDefaults()
	if err := config.validateMemory(); err != nil {
		return nil, err
	}
	if emb == nil || idx == nil {
		return nil, NewMemoryError("NewStoreWith", fmt.Errorf("%w: embedder and index are required", ErrInvalidConfig))
	}
	return newStore(config, emb, idx)
}

func newStore(config *Config, emb embedder.Provider, idx index.VectorIndex) (*Store, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewStore", err)
	}

	return &Store{
		config:   config,
		embedder: emb,
		index:    idx,
		model:    retention.NewModel(),
		node:     node,
		logger:   slog.Default().With("component", "memory_store"),
	}, nil
}

func initEmbedder(config *Config) (embedder.Provider, error) {
	switch config.Embedder.Provider {
	case "openai":
		return embedderopenai.NewClient(&embedderopenai.Config{
			APIKey:     config.Embedder.APIKey,
			Model:      config.Embedder.Model,
			BaseURL:    config.Embedder.BaseURL,
			Dimensions: config.Embedder.Dimensions,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported embedder provider: %s", ErrInvalidConfig, config.Embedder.Provider)
	}
}

func initIndex(config *Config) (index.VectorIndex, error) {
	cfg := config.VectorIndex.Config
	switch config.VectorIndex.Provider {
	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{
			DBPath:             cfgString(cfg, "db_path", "./memorybank.db"),
			CollectionName:     cfgString(cfg, "collection_name", "memories"),
			EmbeddingModelDims: cfgInt(cfg, "embedding_model_dims", 1536),
		})
	case "postgres":
		return postgres.NewClient(&postgres.Config{
			Host:               cfgString(cfg, "host", "localhost"),
			Port:               cfgInt(cfg, "port", 5432),
			User:               cfgString(cfg, "user", "postgres"),
			Password:           cfgString(cfg, "password", ""),
			DBName:             cfgString(cfg, "db_name", "memorybank"),
			CollectionName:     cfgString(cfg, "collection_name", "memories"),
			EmbeddingModelDims: cfgInt(cfg, "embedding_model_dims", 1536),
			SSLMode:            cfgString(cfg, "ssl_mode", "disable"),
		})
	case "mysql":
		return mysql.NewClient(&mysql.Config{
			Host:               cfgString(cfg, "host", "127.0.0.1"),
			Port:               cfgInt(cfg, "port", 3306),
			User:               cfgString(cfg, "user", "root"),
			Password:           cfgString(cfg, "password", ""),
			DBName:             cfgString(cfg, "db_name", "memorybank"),
			CollectionName:     cfgString(cfg, "collection_name", "memories"),
			EmbeddingModelDims: cfgInt(cfg, "embedding_model_dims", 1536),
		})
	default:
		return nil, fmt.Errorf("%w: unsupported vector index provider: %s", ErrInvalidConfig, config.VectorIndex.Provider)
	}
}

// cfgString reads a string value from a provider config map.
func cfgString(cfg map[string]interface{}, key, fallback string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// cfgInt reads an integer value from a provider config map. JSON decoding
// yields float64 for numbers, so both are accepted.
func cfgInt(cfg map[string]interface{}, key string, fallback int) int {
	switch v := cfg[key].(type) {
	case int:
		if v != 0 {
			return v
		}
	case float64:
		if v != 0 {
			return int(v)
		}
	}
	return fallback
}

// Store embeds content and persists it as a new memory record.
//
// The record starts with importance 1.0, an access count of 0, and
// CreatedAt == LastAccessedAt == now.
func (s *Store) Store(ctx context.Context, content string, opts ...StoreOption) (*Record, error) {
	if strings.TrimSpace(content) == "" {
		return nil, NewMemoryError("Store", fmt.Errorf("%w: content is empty", ErrInvalidInput))
	}

	options := &StoreOptions{}
	for _, opt := range opts {
		opt(options)
	}

	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, NewMemoryError("Store", fmt.Errorf("%w: %v", ErrEmbeddingFailed, err))
	}

	now := time.Now().UTC()
	record := &Record{
		ID:             s.node.Generate().Int64(),
		Content:        content,
		Embedding:      embedding,
		Metadata:       options.metadata(),
		CreatedAt:      now,
		LastAccessedAt: now,
		Importance:     1.0,
		AccessCount:    0,
	}

	if err := s.index.Add(ctx, toIndexRecord(record)); err != nil {
		return nil, NewMemoryError("Store", fmt.Errorf("%w: %v", ErrStorageOperation, err))
	}

	s.logger.Debug("stored memory", "id", record.ID, "content_len", len(content))
	return record, nil
}

// Retrieve embeds the query and returns the most similar records, scored by
// 1 - cosine distance, best first.
//
// Every returned record gets an access bump as a side effect: its access
// count increments, its importance gains min(0.1 * newCount, 0.5) capped at
// 2.0, and its last-accessed time moves to now. The returned records show
// the bookkeeping as it was at query time, before the bump. Bump failures
// are logged and do not fail the retrieval.
//
// An explicit WithTopK(0) returns an empty list. Without WithTopK, the
// store's configured default applies. An empty query is embedded as-is
// and yields distance-ranked (likely low-relevance) results.
func (s *Store) Retrieve(ctx context.Context, query string, opts ...RetrieveOption) ([]*RetrievedRecord, error) {
	options := defaultRetrieveOptions()
	for _, opt := range opts {
		opt(options)
	}

	topK := options.TopK
	if topK < 0 {
		topK = s.config.Memory.TopK
	}
	if topK == 0 {
		return []*RetrievedRecord{}, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, NewMemoryError("Retrieve", fmt.Errorf("%w: %v", ErrEmbeddingFailed, err))
	}

	neighbors, err := s.index.Query(ctx, embedding, topK, options.filter())
	if err != nil {
		return nil, NewMemoryError("Retrieve", fmt.Errorf("%w: %v", ErrStorageOperation, err))
	}

	now := time.Now().UTC()
	results := make([]*RetrievedRecord, 0, len(neighbors))
	for _, n := range neighbors {
		rec := fromIndexRecord(&n.Record)
		results = append(results, &RetrievedRecord{
			Record: rec,
			Score:  1 - n.Distance,
		})
		s.bumpAccess(ctx, rec, now)
	}

	return results, nil
}

// bumpAccess applies the access-bump side effect for a retrieval hit.
// Best effort: failures are logged, never returned.
func (s *Store) bumpAccess(ctx context.Context, rec *Record, now time.Time) {
	newCount := rec.AccessCount + 1
	boost := math.Min(accessBoostPerHit*float64(newCount), maxAccessBoost)
	newImportance := math.Min(rec.Importance+boost, retention.MaxImportance)

	found, err := s.index.UpdateAccess(ctx, rec.ID, newImportance, now, newCount)
	if err != nil {
		s.logger.Warn("access bump failed", "id", rec.ID, "error", err)
		return
	}
	if !found {
		s.logger.Debug("access bump skipped, record gone", "id", rec.ID)
	}
}

// Forget permanently deletes a memory. Returns false when no record with
// the given ID exists; deleting an already-forgotten record is not an error.
func (s *Store) Forget(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.index.Delete(ctx, id)
	if err != nil {
		return false, NewMemoryError("Forget", fmt.Errorf("%w: %v", ErrStorageOperation, err))
	}
	if deleted {
		s.logger.Debug("forgot memory", "id", id)
	}
	return deleted, nil
}

// UpdateImportance sets a record's importance directly, clamped to
// [0, 2.0]. Returns false when no record with the given ID exists.
func (s *Store) UpdateImportance(ctx context.Context, id int64, importance float64) (bool, error) {
	clamped := math.Max(0, math.Min(importance, retention.MaxImportance))

	found, err := s.index.UpdateImportance(ctx, id, clamped)
	if err != nil {
		return false, NewMemoryError("UpdateImportance", fmt.Errorf("%w: %v", ErrStorageOperation, err))
	}
	return found, nil
}

// PruneBelow deletes every record whose stored importance is strictly below
// threshold, returning the number deleted. Records exactly at the threshold
// survive.
func (s *Store) PruneBelow(ctx context.Context, threshold float64) (int, error) {
	records, err := s.index.GetAll(ctx)
	if err != nil {
		return 0, NewMemoryError("PruneBelow", fmt.Errorf("%w: %v", ErrStorageOperation, err))
	}

	pruned := 0
	for _, rec := range records {
		if rec.Importance >= threshold {
			continue
		}
		deleted, err := s.index.Delete(ctx, rec.ID)
		if err != nil {
			return pruned, NewMemoryError("PruneBelow", fmt.Errorf("%w: %v", ErrStorageOperation, err))
		}
		if deleted {
			pruned++
		}
	}

	if pruned > 0 {
		s.logger.Info("pruned low-importance memories", "pruned", pruned, "threshold", threshold)
	}
	return pruned, nil
}

// ApplyDecay runs one decay sweep: every record is rescored through the
// forgetting curve using its stored importance as the base, records that
// fall strictly below threshold are deleted, and the rest have their
// importance rewritten to the new score.
//
// On a mid-sweep failure the partial progress stays persisted, but the
// returned result is zero and the error reports the failure.
func (s *Store) ApplyDecay(ctx context.Context, threshold float64) (SweepResult, error) {
	records, err := s.index.GetAll(ctx)
	if err != nil {
		return SweepResult{}, NewMemoryError("ApplyDecay", fmt.Errorf("%w: %v", ErrStorageOperation, err))
	}

	now := time.Now().UTC()
	var result SweepResult
	for _, rec := range records {
		score := s.model.Score(rec.CreatedAt, rec.LastAccessedAt, rec.AccessCount, rec.Importance, now)

		if score < threshold {
			if _, err := s.index.Delete(ctx, rec.ID); err != nil {
				return SweepResult{}, NewMemoryError("ApplyDecay", fmt.Errorf("%w: %v", ErrStorageOperation, err))
			}
			s.logger.Debug("forgot decayed memory", "id", rec.ID, "score", score)
			result.Forgotten++
			continue
		}

		if _, err := s.index.UpdateImportance(ctx, rec.ID, score); err != nil {
			return SweepResult{}, NewMemoryError("ApplyDecay", fmt.Errorf("%w: %v", ErrStorageOperation, err))
		}
		result.Updated++
	}

	result.TotalProcessed = result.Updated + result.Forgotten
	return result, nil
}

// ForgettingSchedule projects every record's importance at the given
// horizons (in days), ordered soonest-to-be-forgotten first. With no
// horizons, 1, 7 and 30 days are used.
func (s *Store) ForgettingSchedule(ctx context.Context, horizons ...int) ([]retention.Projection, error) {
	records, err := s.index.GetAll(ctx)
	if err != nil {
		return nil, NewMemoryError("ForgettingSchedule", fmt.Errorf("%w: %v", ErrStorageOperation, err))
	}

	states := make([]retention.RecordState, 0, len(records))
	for _, rec := range records {
		states = append(states, retention.RecordState{
			ID:             rec.ID,
			Content:        rec.Content,
			CreatedAt:      rec.CreatedAt,
			LastAccessedAt: rec.LastAccessedAt,
			AccessCount:    rec.AccessCount,
			Importance:     rec.Importance,
		})
	}

	return s.model.ProjectSchedule(states, horizons, time.Now().UTC()), nil
}

// Stats returns an aggregate snapshot over all records. An empty store
// yields zero aggregates, not an error.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	records, err := s.index.GetAll(ctx)
	if err != nil {
		return Stats{}, NewMemoryError("Stats", fmt.Errorf("%w: %v", ErrStorageOperation, err))
	}

	stats := Stats{
		Total:             len(records),
		EmbeddingProvider: s.config.Embedder.Provider,
	}
	if len(records) == 0 {
		return stats, nil
	}

	var sum float64
	oldest := records[0].CreatedAt
	newest := records[0].CreatedAt
	for _, rec := range records {
		sum += rec.Importance
		if rec.CreatedAt.Before(oldest) {
			oldest = rec.CreatedAt
		}
		if rec.CreatedAt.After(newest) {
			newest = rec.CreatedAt
		}
	}

	stats.AvgImportance = sum / float64(len(records))
	stats.OldestCreatedAt = &oldest
	stats.NewestCreatedAt = &newest
	return stats, nil
}

// DecayThreshold returns the configured decay threshold.
func (s *Store) DecayThreshold() float64 {
	return s.config.Memory.DecayThreshold
}

// Close releases the embedding provider and vector index.
func (s *Store) Close() error {
	var firstErr error
	if err := s.embedder.Close(); err != nil {
		firstErr = err
	}
	if err := s.index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return NewMemoryError("Close", firstErr)
}

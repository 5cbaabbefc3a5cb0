// Package index defines the nearest-neighbor store that persists memory
// records and their embeddings.
//
// It declares the VectorIndex interface that all backends (SQLite, PostgreSQL,
// MySQL) must satisfy. The index owns the persisted layout; callers treat it
// as an opaque similarity-search engine keyed by record ID.
package index

import (
	"context"
	"time"
)

// Record is a memory record as persisted by a vector index.
//
// This type is defined in the index package to avoid circular dependencies
// with the core package. Content and Embedding are immutable after Add;
// Importance, LastAccessedAt and AccessCount are the only fields mutated
// over a record's lifetime.
type Record struct {
	// ID is the unique identifier of the record.
	ID int64

	// Content is the original text of the memory.
	Content string

	// Embedding is the vector embedding used for similarity search.
	Embedding []float64

	// Metadata contains flattened metadata fields (user_id, session_id,
	// category, tags, plus custom keys).
	Metadata map[string]interface{}

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// LastAccessedAt is when the record was last returned by a query.
	LastAccessedAt time.Time

	// Importance is the current retention importance in [0.0, 2.0].
	Importance float64

	// AccessCount is the number of times the record has been retrieved.
	AccessCount int
}

// Neighbor is a query result: a record plus its distance from the query
// embedding. Distance is cosine distance (1 - cosine similarity), so 0 means
// identical direction and 2 means opposite.
type Neighbor struct {
	Record

	// Distance is the cosine distance between the query and this record.
	Distance float64
}

// VectorIndex is the interface all vector index backends implement.
//
// Query is side-effect free: access bookkeeping (bump counters, boost
// importance) is the caller's responsibility via UpdateAccess. Updates are
// plain overwrites with no compare-and-swap; when a retrieval bump and a
// decay sweep touch the same record concurrently the last writer wins.
type VectorIndex interface {
	// Add inserts a record. The caller supplies the ID.
	Add(ctx context.Context, rec *Record) error

	// Query returns up to topK neighbors nearest to the embedding, closest
	// first, restricted to records whose metadata matches every key/value in
	// filter (exact-match AND semantics). A nil or empty filter matches all.
	Query(ctx context.Context, embedding []float64, topK int, filter map[string]interface{}) ([]*Neighbor, error)

	// UpdateAccess overwrites a record's access bookkeeping after a
	// retrieval hit. Returns false if the record does not exist.
	UpdateAccess(ctx context.Context, id int64, importance float64, lastAccessedAt time.Time, accessCount int) (bool, error)

	// UpdateImportance overwrites a record's importance. Returns false if
	// the record does not exist.
	UpdateImportance(ctx context.Context, id int64, importance float64) (bool, error)

	// Delete removes a record. Returns false (not an error) if the record
	// does not exist, keeping deletes idempotent.
	Delete(ctx context.Context, id int64) (bool, error)

	// GetAll returns every record in the index. Used by decay sweeps,
	// pruning and stats.
	GetAll(ctx context.Context) ([]*Record, error)

	// Close releases backend resources.
	Close() error
}

package core

import "time"

// Record is a single memory held by the store.
//
// Content and Embedding are immutable after creation; re-embedding is not
// supported. Importance, LastAccessedAt and AccessCount are the only fields
// that change over a record's lifetime: the read path bumps them on every
// retrieval hit, and decay sweeps shrink or delete the record.
type Record struct {
	// ID is the unique identifier, generated at creation.
	ID int64 `json:"id"`

	// Content is the original text of the memory.
	Content string `json:"content"`

	// Embedding is the vector embedding for similarity search.
	// Omitted from JSON to reduce payload size.
	Embedding []float64 `json:"embedding,omitempty"`

	// Metadata carries the record's typed and custom metadata fields.
	Metadata Metadata `json:"metadata"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// LastAccessedAt is when the record was last returned by a retrieval.
	// Never earlier than CreatedAt.
	LastAccessedAt time.Time `json:"last_accessed_at"`

	// Importance is the retention importance in [0.0, 2.0]. New records
	// start at 1.0; retrieval hits boost it, decay sweeps shrink it.
	Importance float64 `json:"importance"`

	// AccessCount is the number of retrieval hits for this record.
	AccessCount int `json:"access_count"`
}

// Metadata holds a record's descriptive fields: the hot, well-known fields
// as typed members and everything else in an open Custom map.
type Metadata struct {
	// UserID identifies the user the memory belongs to.
	UserID string `json:"user_id,omitempty"`

	// SessionID identifies the conversation session.
	SessionID string `json:"session_id,omitempty"`

	// Category is a free-form classification label.
	Category string `json:"category,omitempty"`

	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty"`

	// Custom carries any additional metadata fields.
	Custom map[string]interface{} `json:"custom,omitempty"`
}

// Reserved metadata keys used by the flattened index representation.
const (
	metaKeyUserID    = "user_id"
	metaKeySessionID = "session_id"
	metaKeyCategory  = "category"
	metaKeyTags      = "tags"
)

// flatten converts Metadata to the flat map persisted by vector indexes.
// Typed fields win over identically named custom keys.
func (m Metadata) flatten() map[string]interface{} {
	flat := make(map[string]interface{}, len(m.Custom)+4)
	for k, v := range m.Custom {
		flat[k] = v
	}
	if m.UserID != "" {
		flat[metaKeyUserID] = m.UserID
	}
	if m.SessionID != "" {
		flat[metaKeySessionID] = m.SessionID
	}
	if m.Category != "" {
		flat[metaKeyCategory] = m.Category
	}
	if len(m.Tags) > 0 {
		flat[metaKeyTags] = m.Tags
	}
	return flat
}

// metadataFromMap rebuilds Metadata from the flat index representation.
func metadataFromMap(flat map[string]interface{}) Metadata {
	var m Metadata
	if len(flat) == 0 {
		return m
	}

	for key, value := range flat {
		switch key {
		case metaKeyUserID:
			m.UserID, _ = value.(string)
		case metaKeySessionID:
			m.SessionID, _ = value.(string)
		case metaKeyCategory:
			m.Category, _ = value.(string)
		case metaKeyTags:
			m.Tags = toStringSlice(value)
		default:
			if m.Custom == nil {
				m.Custom = make(map[string]interface{})
			}
			m.Custom[key] = value
		}
	}
	return m
}

func toStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// RetrievedRecord is a retrieval hit: the record plus its similarity score.
// Score is 1 - cosine distance, so it lies in [-1, 1] with 1 meaning an
// identical embedding direction.
type RetrievedRecord struct {
	Record *Record `json:"record"`
	Score  float64 `json:"score"`
}

// Stats is an aggregate snapshot over all records in a store. An empty
// store yields the zero aggregates, not an error.
type Stats struct {
	// Total is the number of records in the store.
	Total int `json:"total"`

	// AvgImportance is the mean importance across all records.
	AvgImportance float64 `json:"avg_importance"`

	// OldestCreatedAt and NewestCreatedAt bound the creation timestamps.
	// Nil when the store is empty.
	OldestCreatedAt *time.Time `json:"oldest_created_at,omitempty"`
	NewestCreatedAt *time.Time `json:"newest_created_at,omitempty"`

	// EmbeddingProvider names the embedding backend in use.
	EmbeddingProvider string `json:"embedding_provider,omitempty"`
}

// SweepResult reports what a decay sweep did.
type SweepResult struct {
	// Updated is the number of records whose importance was rewritten.
	Updated int `json:"updated"`

	// Forgotten is the number of records deleted for falling below the
	// decay threshold.
	Forgotten int `json:"forgotten"`

	// TotalProcessed is Updated + Forgotten.
	TotalProcessed int `json:"total_processed"`
}

package core

import "github.com/memorybank/memorybank-go/pkg/index"

// toIndexRecord converts a core Record to its flat index representation.
func toIndexRecord(rec *Record) *index.Record {
	return &index.Record{
		ID:             rec.ID,
		Content:        rec.Content,
		Embedding:      rec.Embedding,
		Metadata:       rec.Metadata.flatten(),
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
		Importance:     rec.Importance,
		AccessCount:    rec.AccessCount,
	}
}

// fromIndexRecord rebuilds a core Record from the index representation.
func fromIndexRecord(rec *index.Record) *Record {
	return &Record{
		ID:             rec.ID,
		Content:        rec.Content,
		Embedding:      rec.Embedding,
		Metadata:       metadataFromMap(rec.Metadata),
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
		Importance:     rec.Importance,
		AccessCount:    rec.AccessCount,
	}
}

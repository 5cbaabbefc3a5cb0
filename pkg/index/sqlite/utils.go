package sqlite

import (
	"encoding/json"
	"math"
)

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or zero vectors yield 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// matchesFilter reports whether metadata satisfies every key/value pair in
// filter (exact-match AND semantics). Values are compared by their JSON
// encoding so that typed filter values ([]string, int) match metadata that
// has round-tripped through the JSON metadata column.
func matchesFilter(metadata, filter map[string]interface{}) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if !equalValue(got, want) {
			return false
		}
	}
	return true
}

func equalValue(a, b interface{}) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aj) == string(bj)
}

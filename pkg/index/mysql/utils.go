package mysql

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// filterKeyPattern bounds metadata filter keys. Keys are spliced into the
// JSON-path expression, so anything beyond identifier characters is refused
// before it reaches the SQL text.
var filterKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

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

// buildWhereClause builds a WHERE clause over the JSON metadata column with
// exact-match AND semantics. Scalar values compare against the unquoted ->>
// extraction; arrays and maps compare as JSON documents.
func buildWhereClause(filter map[string]interface{}) (string, []interface{}, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	var conditions []string
	var args []interface{}

	for key, value := range filter {
		if !filterKeyPattern.MatchString(key) {
			return "", nil, fmt.Errorf("invalid filter key: %q", key)
		}
		switch value.(type) {
		case string, bool, int, int32, int64, float32, float64:
			conditions = append(conditions, fmt.Sprintf("metadata->>'$.%s' = ?", key))
			args = append(args, fmt.Sprint(value))
		default:
			valueJSON, err := json.Marshal(value)
			if err != nil {
				return "", nil, err
			}
			conditions = append(conditions, fmt.Sprintf("JSON_EXTRACT(metadata, '$.%s') = CAST(? AS JSON)", key))
			args = append(args, string(valueJSON))
		}
	}

	return "WHERE " + strings.Join(conditions, " AND "), args, nil
}

package postgres

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// filterKeyPattern bounds metadata filter keys. Keys are spliced into the
// JSON-path expression, so anything beyond identifier characters is refused
// before it reaches the SQL text.
var filterKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// vectorToString converts a float64 slice to pgvector's text format.
// Example: [0.1, 0.2, 0.3] -> "[0.1,0.2,0.3]"
func vectorToString(vector []float64) string {
	if len(vector) == 0 {
		return "[]"
	}

	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	return "[" + strings.Join(parts, ",") + "]"
}

// stringToVector parses pgvector's text format into a float64 slice.
func stringToVector(s string) ([]float64, error) {
	s = strings.Trim(s, "[]")
	if s == "" {
		return []float64{}, nil
	}

	parts := strings.Split(s, ",")
	result := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}

	return result, nil
}

// buildWhereClause builds a WHERE clause over the JSONB metadata column with
// exact-match AND semantics. Scalar values compare against the ->> text form;
// arrays and maps compare as JSONB so element order and typing are respected.
// Placeholders are numbered starting at firstArg.
func buildWhereClause(filter map[string]interface{}, firstArg int) (string, []interface{}, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	var conditions []string
	var args []interface{}
	n := firstArg

	for key, value := range filter {
		if !filterKeyPattern.MatchString(key) {
			return "", nil, fmt.Errorf("invalid filter key: %q", key)
		}
		switch value.(type) {
		case string, bool, int, int32, int64, float32, float64:
			conditions = append(conditions, fmt.Sprintf("metadata->>'%s' = $%d", key, n))
			args = append(args, fmt.Sprint(value))
		default:
			valueJSON, err := json.Marshal(value)
			if err != nil {
				return "", nil, err
			}
			conditions = append(conditions, fmt.Sprintf("metadata->'%s' = $%d::jsonb", key, n))
			args = append(args, string(valueJSON))
		}
		n++
	}

	return "WHERE " + strings.Join(conditions, " AND "), args, nil
}

package output

import (
	"bytes"
	"encoding/json"
	"strings"

	"stagewise/internal/staging"
)

// SnapshotExcludeFields lists fields to exclude when comparing documents
var SnapshotExcludeFields = []string{
	staging.TimestampField,
}

// NormalizeForSnapshot removes time-varying fields for comparison
func NormalizeForSnapshot(data []byte) ([]byte, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	for _, field := range SnapshotExcludeFields {
		removeNestedField(parsed, field)
	}
	return DeterministicEncode(parsed)
}

// CompareSnapshots reports whether two encoded documents are identical,
// ignoring time-varying fields
func CompareSnapshots(a, b []byte) (bool, string) {
	normalizedA, err := NormalizeForSnapshot(a)
	if err != nil {
		return false, "failed to normalize snapshot A: " + err.Error()
	}
	normalizedB, err := NormalizeForSnapshot(b)
	if err != nil {
		return false, "failed to normalize snapshot B: " + err.Error()
	}
	if !bytes.Equal(normalizedA, normalizedB) {
		return false, "snapshots differ"
	}
	return true, ""
}

// SnapshotEqual compares two values, ignoring time-varying fields
func SnapshotEqual(a, b interface{}) bool {
	aJSON, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bJSON, err := json.Marshal(b)
	if err != nil {
		return false
	}
	equal, _ := CompareSnapshots(aJSON, bJSON)
	return equal
}

// removeNestedField deletes a dot-separated path such as "analysis.timestamp"
func removeNestedField(data map[string]interface{}, path string) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return
	}
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

package mysql

import (
	"encoding/json"
	"strings"

	domain "github.com/bryanwahyu/policyscope/internal/domain/crawl"
)

// joinTypes flattens the requested document types for storage.
func joinTypes(types []domain.DocumentType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func splitTypes(s string) []domain.DocumentType {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]domain.DocumentType, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, domain.DocumentType(p))
		}
	}
	return out
}

// marshalJSON stores maps/structs in JSON columns; nil becomes "{}" so the
// column stays valid JSON.
func marshalJSON(v interface{}) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// escapeLikePattern escapes special characters in LIKE patterns to prevent SQL injection
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

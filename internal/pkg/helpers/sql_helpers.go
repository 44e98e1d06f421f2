package helpers

import "strings"

// NullIfBlank trims s and returns nil for nil or whitespace-only input,
// so optional text columns are stored as NULL instead of "".
func NullIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// DerefString returns the pointed-to value or "".
func DerefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

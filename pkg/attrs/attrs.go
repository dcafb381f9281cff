// Package attrs reads values back out of slog-style key-value attribute
// slices, so audit emission can reuse the attributes a log call already built.
package attrs

// ExtractString returns the string value following key in an alternating
// [key, value, key, value, ...] slice. Missing keys and non-string values
// yield the empty string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

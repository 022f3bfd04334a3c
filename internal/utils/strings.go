package utils

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// DefaultMaxStringLength is the truncation length used when none is given.
const DefaultMaxStringLength = 500

// JSONToString renders object as JSON, pretty-printed when indent is true.
// Marshal failures are rendered as a JSON error object.
func JSONToString(object any, indent ...bool) string {
	var encoded []byte
	var err error
	if len(indent) > 0 && indent[0] {
		encoded, err = json.MarshalIndent(object, "", "  ")
	} else {
		encoded, err = json.Marshal(object)
	}
	if err != nil {
		return "{\"error\": \"failed to marshal to JSON: " + err.Error() + "\"}"
	}
	return string(encoded)
}

// TruncateString keeps at most maxLen runes of s and appends the original
// rune count. maxLen <= 0 means DefaultMaxStringLength. Counting runes keeps
// multi-byte text such as Chinese player descriptions valid UTF-8.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	total := utf8.RuneCountInString(s)
	if total <= maxLen {
		return s
	}
	runes := []rune(s)
	return fmt.Sprintf("%s... (truncated, total: %d chars)", string(runes[:maxLen]), total)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

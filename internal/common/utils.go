package common

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ContentHash computes the SHA-256 hash of content and returns it as a hex
// string. This is the single source of truth for change detection.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// CollapseWhitespace replaces runs of whitespace with single spaces and trims
// the result.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate bounds a string to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

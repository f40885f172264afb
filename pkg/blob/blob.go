// Package blob stores rendered and raw page content under stable,
// slug-derived keys. Two backends exist: a local filesystem store and an
// S3 store.
package blob

import (
	"context"
	"regexp"
	"strings"
)

// Kind selects which of a page's two payloads a key addresses.
type Kind string

const (
	KindHTML Kind = "html"
	KindRaw  Kind = "raw"
)

// Store is the blob-store contract the upsert engine writes through.
// Put is idempotent: writing the same key twice overwrites in place.
type Store interface {
	Put(ctx context.Context, source, slug string, kind Kind, data []byte) (key string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)

// SanitizeSlug lowercases a slug and collapses everything outside
// [a-z0-9_-] to single dashes.
func SanitizeSlug(slug string) string {
	s := strings.ToLower(slug)
	s = slugInvalid.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Key derives the canonical blob key: {source}/{sanitized_slug}/rendered.html
// or {source}/{sanitized_slug}/raw.txt.
func Key(source, slug string, kind Kind) string {
	name := "rendered.html"
	if kind == KindRaw {
		name = "raw.txt"
	}
	return source + "/" + SanitizeSlug(slug) + "/" + name
}

package models

import "time"

// StatusSynced is the only status the pipeline itself writes.
const StatusSynced = "synced"

// Article is the persistent, normalized form of one content item. Identity
// is (Source, Slug). UpstreamHash always reflects the SHA-256 of the HTML
// stored at RenderedHTMLKey.
type Article struct {
	ID              int64
	Source          string
	Slug            string
	Title           string
	ExtractedText   string
	RenderedHTMLKey string
	RawContentKey   string
	UpstreamURL     string
	UpstreamHash    string
	Status          string
	License         string
	Metadata        map[string]string
	SyncedAt        time.Time
}

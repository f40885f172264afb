package models

import "time"

// Page is the transient representation of one fetched slug, produced by a
// source client and consumed once by the transformer/upsert pipeline.
type Page struct {
	Slug            string
	Title           string
	RawContent      string
	PreRenderedHTML string // set when the source already supplies HTML
	UpstreamURL     string
	LastModified    *time.Time
	Math            bool // content contains TeX math spans
	Mirrored        bool // came from a full-site mirror, needs boilerplate strip
	Metadata        map[string]string
}

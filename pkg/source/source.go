// Package source implements the upstream content clients. Each client owns
// one transport (MediaWiki action API, git pull + file walk, REST
// summary+HTML pair, recursive site mirror) and normalizes fetched content
// into a models.Page. Capabilities beyond FetchPage are expressed as
// optional interfaces; the orchestrator type-asserts for the ones a
// strategy needs.
package source

import (
	"context"
	"time"

	"wikisync/models"
)

// Client is the minimal capability every source implements.
type Client interface {
	Source() string
	FetchPage(ctx context.Context, slug string) (*models.Page, error)
}

// Lister enumerates every slug the source exposes.
type Lister interface {
	ListAllSlugs(ctx context.Context) ([]string, error)
}

// CategoryLister enumerates the members of a named partition.
type CategoryLister interface {
	ListCategory(ctx context.Context, category string) ([]string, error)
}

// ChangeLister enumerates slugs changed upstream since a watermark.
type ChangeLister interface {
	ListChangedSince(ctx context.Context, since time.Time) ([]string, error)
}

// Searcher runs a free-text query against the source.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Mirrorer refreshes a local copy of the whole source and returns a version
// marker (a directory path or revision hash).
type Mirrorer interface {
	SyncMirror(ctx context.Context) (string, error)
}

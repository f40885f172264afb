// Package ingest is the change-detection upsert engine. It turns a fetched
// page into blob writes plus one relational upsert, and reports whether the
// article was created, updated or left untouched.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wikisync/internal/common"
	"wikisync/models"
	"wikisync/pkg/blob"
	"wikisync/pkg/infobox"
	"wikisync/pkg/source"
	"wikisync/pkg/transform"
)

// ArticleStore is the relational surface the engine needs.
type ArticleStore interface {
	GetArticle(ctx context.Context, source, slug string) (*models.Article, error)
	UpsertArticle(ctx context.Context, a *models.Article) error
}

// Invalidator drops downstream cache entries after a write. May be nil.
type Invalidator interface {
	Invalidate(ctx context.Context, source, slug string)
}

// RecordExtractor pulls structured records (items, monsters) out of a page's
// raw content. A WrongKindError means the page carries no record of the
// expected shape and is not a failure.
type RecordExtractor func(ctx context.Context, page *models.Page) error

// StorageError marks a blob-write failure. No relational write happens after
// one, so the previous article row (if any) still points at consistent blobs.
type StorageError struct {
	Phase string // "raw" or "html"
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("blob write (%s) failed: %v", e.Phase, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Engine executes the fetch-transform-upsert sequence for single pages.
type Engine struct {
	blobs       blob.Store
	articles    ArticleStore
	transformer *transform.Transformer
	cache       Invalidator
	extractors  map[string]RecordExtractor
	log         *slog.Logger
}

// NewEngine wires the upsert engine. extractors maps source name to the
// structured-record hook for that source; sources without one get none.
func NewEngine(blobs blob.Store, articles ArticleStore, t *transform.Transformer,
	cache Invalidator, extractors map[string]RecordExtractor, logger *slog.Logger) *Engine {
	if extractors == nil {
		extractors = map[string]RecordExtractor{}
	}
	return &Engine{
		blobs:       blobs,
		articles:    articles,
		transformer: t,
		cache:       cache,
		extractors:  extractors,
		log:         logger,
	}
}

// ProcessPage fetches one slug, canonicalizes it and upserts the result.
// All failures come back in the Result; the error is never lost, only
// classified.
func (e *Engine) ProcessPage(ctx context.Context, client source.Client, slug string) Result {
	src := client.Source()

	page, err := client.FetchPage(ctx, slug)
	if err != nil {
		return Result{Slug: slug, Outcome: OutcomeError, Err: fmt.Errorf("fetching %s/%s: %w", src, slug, err)}
	}

	canonical, err := e.transformer.Canonicalize(src, page)
	if err != nil {
		return Result{Slug: slug, Outcome: OutcomeError, Err: err}
	}

	if extract, ok := e.extractors[src]; ok {
		if err := extract(ctx, page); err != nil && !infobox.IsWrongKind(err) {
			// Structured extraction is best-effort: the article itself
			// still syncs.
			e.log.Warn("record extraction failed", "source", src, "slug", slug, "error", err)
		}
	}

	return e.Upsert(ctx, src, page, canonical)
}

// ProcessPages runs ProcessPage for each slug and returns the results keyed
// by slug.
func (e *Engine) ProcessPages(ctx context.Context, client source.Client, slugs []string) map[string]Result {
	results := make(map[string]Result, len(slugs))
	for _, slug := range slugs {
		results[slug] = e.ProcessPage(ctx, client, slug)
	}
	return results
}

// Upsert applies change detection and persists one canonicalized page.
//
// The hash of the canonical HTML decides everything: when it matches the
// stored article's hash the call performs zero writes. Otherwise blobs are
// written first (raw, then HTML), and only after both succeed does the
// article row change, so a crash mid-write can never leave a row pointing
// at missing blobs.
func (e *Engine) Upsert(ctx context.Context, src string, page *models.Page, canonical *transform.Result) Result {
	hash := common.ContentHash([]byte(canonical.HTML))

	existing, err := e.articles.GetArticle(ctx, src, page.Slug)
	if err != nil {
		return Result{Slug: page.Slug, Outcome: OutcomeError, Err: err}
	}

	if existing != nil && existing.UpstreamHash == hash {
		return Result{Slug: page.Slug, Outcome: OutcomeUnchanged, Article: existing}
	}

	rawKey, err := e.blobs.Put(ctx, src, page.Slug, blob.KindRaw, []byte(page.RawContent))
	if err != nil {
		return Result{Slug: page.Slug, Outcome: OutcomeError, Err: &StorageError{Phase: "raw", Err: err}}
	}
	htmlKey, err := e.blobs.Put(ctx, src, page.Slug, blob.KindHTML, []byte(canonical.HTML))
	if err != nil {
		return Result{Slug: page.Slug, Outcome: OutcomeError, Err: &StorageError{Phase: "html", Err: err}}
	}

	article := &models.Article{
		Source:          src,
		Slug:            page.Slug,
		Title:           page.Title,
		ExtractedText:   canonical.Text,
		RenderedHTMLKey: htmlKey,
		RawContentKey:   rawKey,
		UpstreamURL:     page.UpstreamURL,
		UpstreamHash:    hash,
		Status:          models.StatusSynced,
		Metadata:        articleMetadata(page, canonical),
	}
	if existing != nil {
		article.ID = existing.ID
		article.License = existing.License
	}
	if lic, ok := page.Metadata["license"]; ok {
		article.License = lic
	}

	if err := e.articles.UpsertArticle(ctx, article); err != nil {
		return Result{Slug: page.Slug, Outcome: OutcomeError, Err: err}
	}

	outcome := OutcomeUpdated
	if existing == nil {
		outcome = OutcomeCreated
	}
	if e.cache != nil {
		e.cache.Invalidate(ctx, src, page.Slug)
	}
	return Result{Slug: page.Slug, Outcome: outcome, Article: article}
}

// articleMetadata merges the page's source metadata with derived fields.
// "license" lives on the article row and is dropped here.
func articleMetadata(page *models.Page, canonical *transform.Result) map[string]string {
	md := map[string]string{}
	for k, v := range page.Metadata {
		if k == "license" {
			continue
		}
		md[k] = v
	}
	if canonical.Language != "" {
		md["language"] = canonical.Language
	}
	if page.LastModified != nil {
		md["last_modified"] = page.LastModified.UTC().Format("2006-01-02T15:04:05Z")
	}
	if len(md) == 0 {
		return nil
	}
	return md
}

// IsStorageError reports whether err came from a blob write.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

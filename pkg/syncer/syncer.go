// Package syncer orchestrates sync runs: it picks candidate slugs for a
// strategy, fans them out over a worker pool, and records the run in the
// ledger. Exactly one run per source may be active at a time; a duplicate
// request is suppressed, never queued.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wikisync/models"
	"wikisync/pkg/ingest"
	"wikisync/pkg/source"
)

// ErrRunActive is returned when a run for the source is already in flight.
var ErrRunActive = errors.New("sync run already active for source")

// RunLedger is the run-bookkeeping surface of the store.
type RunLedger interface {
	StartRun(ctx context.Context, source, strategy string) (*models.SyncRun, error)
	CompleteRun(ctx context.Context, runID int64, stats models.SyncStats) error
	FailRun(ctx context.Context, runID int64, msg string) error
	LastCompletedAt(ctx context.Context, source string) (*time.Time, error)
}

// SlugLister enumerates already-synced slugs, for refresh runs.
type SlugLister interface {
	ListSlugs(ctx context.Context, source string) ([]string, error)
}

// PageProcessor handles one candidate end to end.
type PageProcessor interface {
	ProcessPage(ctx context.Context, client source.Client, slug string) ingest.Result
}

// Options tune a single run.
type Options struct {
	Limit int        // cap on candidates; 0 means all
	Since *time.Time // incremental override for the watermark
}

// Orchestrator runs sync strategies against registered source clients.
type Orchestrator struct {
	clients     map[string]source.Client
	engine      PageProcessor
	runs        RunLedger
	existing    SlugLister
	lock        Locker
	workers     int
	pageTimeout time.Duration
	lookbacks   map[string]time.Duration
	log         *slog.Logger
}

// NewOrchestrator wires the run coordinator. lookbacks maps source name to
// its incremental default window; missing sources fall back to 7 days.
func NewOrchestrator(clients map[string]source.Client, engine PageProcessor,
	runs RunLedger, existing SlugLister, lock Locker, workers int,
	pageTimeout time.Duration, lookbacks map[string]time.Duration,
	logger *slog.Logger) *Orchestrator {
	if workers <= 0 {
		workers = 2
	}
	if pageTimeout <= 0 {
		pageTimeout = 60 * time.Second
	}
	if lock == nil {
		lock = NewMemoryLocker()
	}
	return &Orchestrator{
		clients:     clients,
		engine:      engine,
		runs:        runs,
		existing:    existing,
		lock:        lock,
		workers:     workers,
		pageTimeout: pageTimeout,
		lookbacks:   lookbacks,
		log:         logger,
	}
}

// SyncFull syncs every page the source exposes. Mirror-backed sources
// refresh their local copy first.
func (o *Orchestrator) SyncFull(ctx context.Context, src string, opts Options) (*models.SyncRun, error) {
	client, err := o.client(src)
	if err != nil {
		return nil, err
	}
	lister, ok := client.(source.Lister)
	if !ok {
		return nil, fmt.Errorf("source %s does not support full sync", src)
	}
	return o.run(ctx, client, "full_sync", opts, func(ctx context.Context) ([]string, error) {
		if m, ok := client.(source.Mirrorer); ok {
			version, err := m.SyncMirror(ctx)
			if err != nil {
				return nil, fmt.Errorf("refreshing mirror for %s: %w", src, err)
			}
			o.log.Info("mirror refreshed", "source", src, "version", version)
		}
		return lister.ListAllSlugs(ctx)
	})
}

// SyncCategory syncs the members of one named category.
func (o *Orchestrator) SyncCategory(ctx context.Context, src, category string, opts Options) (*models.SyncRun, error) {
	client, err := o.client(src)
	if err != nil {
		return nil, err
	}
	cl, ok := client.(source.CategoryLister)
	if !ok {
		return nil, fmt.Errorf("source %s does not support category sync", src)
	}
	return o.run(ctx, client, "category:"+category, opts, func(ctx context.Context) ([]string, error) {
		return cl.ListCategory(ctx, category)
	})
}

// SyncIncremental syncs pages changed upstream since the watermark: the last
// completed run for the source, or now minus the source's lookback window
// when no run exists. An empty change set completes immediately with zero
// statistics and no fetches.
func (o *Orchestrator) SyncIncremental(ctx context.Context, src string, opts Options) (*models.SyncRun, error) {
	client, err := o.client(src)
	if err != nil {
		return nil, err
	}
	cl, ok := client.(source.ChangeLister)
	if !ok {
		return nil, fmt.Errorf("source %s does not support incremental sync", src)
	}

	since := opts.Since
	if since == nil {
		since, err = o.runs.LastCompletedAt(ctx, src)
		if err != nil {
			return nil, err
		}
	}
	if since == nil {
		lookback, ok := o.lookbacks[src]
		if !ok {
			lookback = 7 * 24 * time.Hour
		}
		t := time.Now().UTC().Add(-lookback)
		since = &t
	}

	return o.run(ctx, client, "recent_changes", opts, func(ctx context.Context) ([]string, error) {
		return cl.ListChangedSince(ctx, *since)
	})
}

// SyncSearch syncs the pages matching a free-text query.
func (o *Orchestrator) SyncSearch(ctx context.Context, src, query string, opts Options) (*models.SyncRun, error) {
	client, err := o.client(src)
	if err != nil {
		return nil, err
	}
	s, ok := client.(source.Searcher)
	if !ok {
		return nil, fmt.Errorf("source %s does not support search sync", src)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	return o.run(ctx, client, "search:"+query, opts, func(ctx context.Context) ([]string, error) {
		return s.Search(ctx, query, limit)
	})
}

// SyncRefresh re-fetches every article already stored for the source.
func (o *Orchestrator) SyncRefresh(ctx context.Context, src string, opts Options) (*models.SyncRun, error) {
	client, err := o.client(src)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, client, "refresh_existing", opts, func(ctx context.Context) ([]string, error) {
		return o.existing.ListSlugs(ctx, src)
	})
}

func (o *Orchestrator) client(src string) (source.Client, error) {
	client, ok := o.clients[src]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", src)
	}
	return client, nil
}

// run executes the shared lifecycle: lock, start ledger record, list
// candidates, fan out, complete. Candidate listing failures fail the run;
// per-candidate failures only count against its statistics.
func (o *Orchestrator) run(ctx context.Context, client source.Client, strategy string,
	opts Options, list func(ctx context.Context) ([]string, error)) (*models.SyncRun, error) {
	src := client.Source()

	ok, err := o.lock.Acquire(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("acquiring run lock for %s: %w", src, err)
	}
	if !ok {
		o.log.Info("sync suppressed, run already active", "source", src, "strategy", strategy)
		return nil, ErrRunActive
	}
	defer o.lock.Release(ctx, src)

	run, err := o.runs.StartRun(ctx, src, strategy)
	if err != nil {
		return nil, err
	}
	o.log.Info("sync started", "source", src, "strategy", strategy, "run_id", run.ID)

	candidates, err := list(ctx)
	if err != nil {
		msg := fmt.Sprintf("listing candidates: %v", err)
		if ferr := o.runs.FailRun(ctx, run.ID, msg); ferr != nil {
			o.log.Error("failed to record run failure", "run_id", run.ID, "error", ferr)
		}
		run.Status = models.RunFailed
		run.ErrorMessage = msg
		return run, fmt.Errorf("listing candidates for %s: %w", src, err)
	}
	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	stats := o.fanOut(ctx, client, candidates)

	if err := o.runs.CompleteRun(ctx, run.ID, stats); err != nil {
		return nil, fmt.Errorf("completing run %d: %w", run.ID, err)
	}
	run.Stats = stats
	run.Status = models.RunCompleted
	now := time.Now().UTC()
	run.CompletedAt = &now

	o.log.Info("sync completed", "source", src, "strategy", strategy, "run_id", run.ID,
		"processed", stats.Processed, "created", stats.Created, "updated", stats.Updated,
		"unchanged", stats.Unchanged, "errors", stats.ErrorCount())
	return run, nil
}

// fanOut processes candidates over the worker pool. Every candidate lands in
// exactly one stats bucket, so created+updated+unchanged+errors always sums
// to processed.
func (o *Orchestrator) fanOut(ctx context.Context, client source.Client, candidates []string) models.SyncStats {
	stats := models.SyncStats{Processed: len(candidates)}
	if len(candidates) == 0 {
		return stats
	}

	jobs := make(chan string, len(candidates))
	results := make(chan ingest.Result, len(candidates))

	workers := o.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	for i := 0; i < workers; i++ {
		go func() {
			for slug := range jobs {
				cctx, cancel := context.WithTimeout(ctx, o.pageTimeout)
				results <- o.engine.ProcessPage(cctx, client, slug)
				cancel()
			}
		}()
	}

	for _, slug := range candidates {
		jobs <- slug
	}
	close(jobs)

	for range candidates {
		res := <-results
		switch res.Outcome {
		case ingest.OutcomeCreated:
			stats.Created++
		case ingest.OutcomeUpdated:
			stats.Updated++
		case ingest.OutcomeUnchanged:
			stats.Unchanged++
		default:
			o.log.Warn("page sync failed", "source", client.Source(), "slug", res.Slug, "error", res.Err)
			stats.Errors = append(stats.Errors, models.SyncError{
				Slug:    res.Slug,
				Kind:    string(source.KindOf(res.Err)),
				Message: res.Err.Error(),
			})
		}
	}
	return stats
}

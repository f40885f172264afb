// Package synccmd implements the CLI actions: sync runs, single-page
// inspection and the run ledger listing. It owns the wiring from config file
// to pipeline objects.
package synccmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"wikisync/models"
	"wikisync/pkg/blob"
	"wikisync/pkg/cache"
	"wikisync/pkg/infobox"
	"wikisync/pkg/ingest"
	"wikisync/pkg/source"
	"wikisync/pkg/store"
	"wikisync/pkg/syncer"
	"wikisync/pkg/transform"
)

// NewLogger builds the stderr JSON logger all commands share.
func NewLogger(quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// pipeline holds everything a command needs, with one Close for all of it.
type pipeline struct {
	cfg          *models.Config
	db           *store.DB
	cache        *cache.Cache
	engine       *ingest.Engine
	orchestrator *syncer.Orchestrator
	clients      map[string]source.Client
	log          *slog.Logger
}

func (p *pipeline) Close() {
	if p.cache != nil {
		_ = p.cache.Close()
	}
	if p.db != nil {
		_ = p.db.Close()
	}
}

func buildPipeline(c *cli.Context, logger *slog.Logger) (*pipeline, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	var blobs blob.Store
	switch cfg.Blob.Backend {
	case "s3":
		blobs, err = blob.NewS3Store(c.Context, cfg.Blob.Bucket, cfg.Blob.Region)
	default:
		blobs, err = blob.NewFSStore(cfg.Blob.Dir)
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var (
		redisCache  *cache.Cache
		invalidator ingest.Invalidator
		locker      syncer.Locker = syncer.NewMemoryLocker()
	)
	if cfg.Redis.Addr != "" {
		redisCache, err = cache.New(cfg.Redis.Addr, os.Getenv("REDIS_PASSWORD"), cfg.Redis.DB, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		invalidator = redisCache
		locker = redisCache.RunLock(0)
	}

	transformer := transform.NewTransformer(transform.Markdown{},
		transform.WithLanguageDetector(transform.NewLanguageDetector()))

	clients := map[string]source.Client{}
	lookbacks := map[string]time.Duration{}
	extractors := map[string]ingest.RecordExtractor{}
	for name, sc := range cfg.Sources {
		switch sc.Type {
		case "mediawiki":
			clients[name] = source.NewMediaWiki(name, sc)
		case "gitwiki":
			clients[name] = source.NewGitWiki(name, sc)
		case "rest":
			clients[name] = source.NewREST(name, sc)
		case "mirror":
			clients[name] = source.NewMirror(name, sc)
		}
		lookbacks[name] = sc.Lookback()
		if sc.Records == "osrs" {
			extractors[name] = osrsExtractor(db)
		}
	}

	engine := ingest.NewEngine(blobs, db, transformer, invalidator, extractors, logger)
	orch := syncer.NewOrchestrator(clients, engine, db, db, locker,
		cfg.Workers, cfg.PageTimeout(), lookbacks, logger)

	return &pipeline{
		cfg:          cfg,
		db:           db,
		cache:        redisCache,
		engine:       engine,
		orchestrator: orch,
		clients:      clients,
		log:          logger,
	}, nil
}

// osrsExtractor tries the item infobox first, then the monster one. Pages
// carrying neither report WrongKind, which the engine ignores.
func osrsExtractor(db *store.DB) ingest.RecordExtractor {
	return func(ctx context.Context, page *models.Page) error {
		item, err := infobox.ExtractItem(page.RawContent)
		if err == nil {
			return db.UpsertItem(ctx, item)
		}
		if !infobox.IsWrongKind(err) {
			return err
		}
		monster, err := infobox.ExtractMonster(page.RawContent)
		if err == nil {
			return db.UpsertMonster(ctx, monster)
		}
		return err
	}
}

// SyncAction runs one sync strategy against one source.
func SyncAction(c *cli.Context) error {
	logger := NewLogger(c.Bool("quiet"))

	p, err := buildPipeline(c, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(2)
	}
	defer p.Close()

	opts := syncer.Options{Limit: c.Int("limit")}
	if c.IsSet("since") {
		since, err := parseSince(c.String("since"))
		if err != nil {
			return err
		}
		opts.Since = &since
	}

	src := c.String("source")
	var run *models.SyncRun
	switch strategy := c.String("strategy"); strategy {
	case "full":
		run, err = p.orchestrator.SyncFull(c.Context, src, opts)
	case "category":
		if c.String("category") == "" {
			return fmt.Errorf("strategy category requires --category")
		}
		run, err = p.orchestrator.SyncCategory(c.Context, src, c.String("category"), opts)
	case "incremental":
		run, err = p.orchestrator.SyncIncremental(c.Context, src, opts)
	case "search":
		if c.String("query") == "" {
			return fmt.Errorf("strategy search requires --query")
		}
		run, err = p.orchestrator.SyncSearch(c.Context, src, c.String("query"), opts)
	case "refresh":
		run, err = p.orchestrator.SyncRefresh(c.Context, src, opts)
	default:
		return fmt.Errorf("unknown strategy %q (full|category|incremental|search|refresh)", strategy)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Run %d (%s, %s): %d processed, %d created, %d updated, %d unchanged, %d errors\n",
		run.ID, run.Source, run.Strategy, run.Stats.Processed, run.Stats.Created,
		run.Stats.Updated, run.Stats.Unchanged, run.Stats.ErrorCount())
	for _, se := range run.Stats.Errors {
		fmt.Printf("  %s: %s (%s)\n", se.Slug, se.Message, se.Kind)
	}
	return nil
}

// PageAction syncs a single slug and prints the resulting article as JSON.
func PageAction(c *cli.Context) error {
	logger := NewLogger(c.Bool("quiet"))

	if c.NArg() != 2 {
		return fmt.Errorf("usage: page <source> <slug>")
	}
	src, slug := c.Args().Get(0), c.Args().Get(1)

	p, err := buildPipeline(c, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(2)
	}
	defer p.Close()

	client, ok := p.clients[src]
	if !ok {
		return fmt.Errorf("unknown source %q", src)
	}

	ctx, cancel := context.WithTimeout(c.Context, p.cfg.PageTimeout())
	defer cancel()

	res := p.engine.ProcessPage(ctx, client, slug)
	if res.Err != nil {
		return res.Err
	}

	out, err := json.MarshalIndent(struct {
		Outcome string
		Article *models.Article
	}{res.Outcome.String(), res.Article}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// RunsAction prints the recent run ledger for a source.
func RunsAction(c *cli.Context) error {
	logger := NewLogger(c.Bool("quiet"))

	p, err := buildPipeline(c, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(2)
	}
	defer p.Close()

	runs, err := p.db.ListRuns(c.Context, c.String("source"), c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-6s %-20s %-25s %-10s %-6s %-6s %-6s %-6s %-6s\n",
		"ID", "Started", "Strategy", "Status", "Proc", "New", "Upd", "Same", "Err")
	fmt.Println(strings.Repeat("-", 100))
	for _, run := range runs {
		fmt.Printf("%-6d %-20s %-25s %-10s %-6d %-6d %-6d %-6d %-6d\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			truncateCol(run.Strategy, 25),
			run.Status,
			run.Stats.Processed,
			run.Stats.Created,
			run.Stats.Updated,
			run.Stats.Unchanged,
			run.Stats.ErrorCount(),
		)
	}
	fmt.Printf("\nTotal: %d runs\n", len(runs))
	return nil
}

func truncateCol(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// parseSince accepts RFC 3339 or a bare date.
func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: use RFC 3339 or YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

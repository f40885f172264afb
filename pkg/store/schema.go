package store

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;

-- Articles: the normalized content items. Identity is (source, slug).
CREATE TABLE IF NOT EXISTS articles (
    article_id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    slug TEXT NOT NULL,
    title TEXT,
    extracted_text TEXT,
    rendered_html_key TEXT NOT NULL,
    raw_content_key TEXT NOT NULL,
    upstream_url TEXT,
    upstream_hash TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'synced',
    license TEXT,
    metadata TEXT,             -- JSON object
    synced_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(source, slug)
);

CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);
CREATE INDEX IF NOT EXISTS idx_articles_hash ON articles(upstream_hash);

-- Sync runs: one row per orchestrator execution.
CREATE TABLE IF NOT EXISTS sync_runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    strategy TEXT NOT NULL,
    pages_processed INTEGER DEFAULT 0,
    pages_created INTEGER DEFAULT 0,
    pages_updated INTEGER DEFAULT 0,
    pages_unchanged INTEGER DEFAULT 0,
    error_count INTEGER DEFAULT 0,
    errors TEXT,               -- JSON array of per-candidate errors
    status TEXT NOT NULL DEFAULT 'running',
    error_message TEXT,
    started_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_source ON sync_runs(source, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_sync_runs_status ON sync_runs(status);

-- Items: structured sub-records keyed by their natural upstream id.
CREATE TABLE IF NOT EXISTS items (
    item_id INTEGER PRIMARY KEY,
    name TEXT,
    examine TEXT,
    members BOOLEAN DEFAULT 0,
    tradeable BOOLEAN DEFAULT 0,
    equipable BOOLEAN DEFAULT 0,
    stackable BOOLEAN DEFAULT 0,
    value INTEGER DEFAULT 0,
    weight REAL DEFAULT 0,
    release_date TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Monsters: structured sub-records keyed by their natural upstream id.
CREATE TABLE IF NOT EXISTS monsters (
    monster_id INTEGER PRIMARY KEY,
    name TEXT,
    combat_level INTEGER DEFAULT 0,
    hitpoints INTEGER DEFAULT 0,
    max_hit INTEGER DEFAULT 0,
    attack_styles TEXT,        -- JSON array
    aggressive BOOLEAN DEFAULT 0,
    examine TEXT,
    slayer_level INTEGER DEFAULT 0,
    release_date TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

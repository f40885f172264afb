// Package models defines the shared data structures of the sync pipeline:
// configuration, transient pages, persistent articles, structured records
// and sync run bookkeeping.
package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration. Secrets (Redis password, AWS
// credentials) are not part of the file; they come from the environment.
type Config struct {
	DBPath             string                  `yaml:"db_path"`
	Workers            int                     `yaml:"workers"`
	PageTimeoutSeconds int                     `yaml:"page_timeout_seconds"`
	Blob               BlobConfig              `yaml:"blob"`
	Redis              RedisConfig             `yaml:"redis"`
	Sources            map[string]SourceConfig `yaml:"sources"`
}

// BlobConfig selects and configures the blob store backend.
type BlobConfig struct {
	Backend string `yaml:"backend"` // "fs" or "s3"
	Dir     string `yaml:"dir"`     // fs backend base directory
	Bucket  string `yaml:"bucket"`  // s3 backend bucket
	Region  string `yaml:"region"`  // s3 backend region
}

// RedisConfig configures the cache/lock connection. An empty Addr disables
// Redis; invalidation becomes a no-op and run locking falls back to an
// in-process lock.
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// SourceConfig describes one upstream content source. Which fields apply
// depends on Type.
type SourceConfig struct {
	Type          string `yaml:"type"` // mediawiki | gitwiki | rest | mirror
	BaseURL       string `yaml:"base_url"`
	APIURL        string `yaml:"api_url"`
	FeedURL       string `yaml:"feed_url"` // recent-changes Atom feed (mediawiki)
	RepoURL       string `yaml:"repo_url"` // gitwiki
	CloneDir      string `yaml:"clone_dir"`
	StartURL      string `yaml:"start_url"` // mirror
	AllowedDomain string `yaml:"allowed_domain"`
	MirrorDir     string `yaml:"mirror_dir"`
	UserAgent     string `yaml:"user_agent"`
	DelayMS       int    `yaml:"delay_ms"`
	LookbackDays  int    `yaml:"lookback_days"`
	License       string `yaml:"license"`
	Math          bool   `yaml:"math"`    // content carries TeX math notation
	Records       string `yaml:"records"` // structured record set, e.g. "osrs"
}

// PageTimeout returns the per-candidate processing timeout.
func (c *Config) PageTimeout() time.Duration {
	if c.PageTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.PageTimeoutSeconds) * time.Second
}

// Lookback returns the incremental default lookback window for a source,
// clamped to 1-30 days with a 7 day default.
func (s SourceConfig) Lookback() time.Duration {
	days := s.LookbackDays
	if days <= 0 {
		days = 7
	}
	if days > 30 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// Delay returns the minimum inter-request delay for a source.
func (s SourceConfig) Delay() time.Duration {
	if s.DelayMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(s.DelayMS) * time.Millisecond
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "wikisync.db"
	}
	if cfg.Blob.Backend == "" {
		cfg.Blob.Backend = "fs"
	}
	if cfg.Blob.Backend == "fs" && cfg.Blob.Dir == "" {
		cfg.Blob.Dir = "wikisync-blobs"
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("config defines no sources")
	}
	for name, src := range cfg.Sources {
		switch src.Type {
		case "mediawiki", "gitwiki", "rest", "mirror":
		default:
			return nil, fmt.Errorf("source %s has unknown type %q", name, src.Type)
		}
	}

	return cfg, nil
}

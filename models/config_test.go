package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
db_path: test.db
workers: 8
page_timeout_seconds: 30
blob:
  backend: fs
  dir: blobs
redis:
  addr: localhost:6379
sources:
  osrs:
    type: mediawiki
    api_url: https://example.org/api.php
    delay_ms: 1000
    lookback_days: 3
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.PageTimeout() != 30*time.Second {
		t.Errorf("PageTimeout() = %v, want 30s", cfg.PageTimeout())
	}

	src := cfg.Sources["osrs"]
	if src.Delay() != time.Second {
		t.Errorf("Delay() = %v, want 1s", src.Delay())
	}
	if src.Lookback() != 3*24*time.Hour {
		t.Errorf("Lookback() = %v, want 72h", src.Lookback())
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
sources:
  wiki:
    type: rest
    api_url: https://example.org/api
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers default = %d, want 2", cfg.Workers)
	}
	if cfg.DBPath != "wikisync.db" {
		t.Errorf("DBPath default = %q", cfg.DBPath)
	}
	if cfg.Blob.Backend != "fs" || cfg.Blob.Dir == "" {
		t.Errorf("Blob defaults = %+v", cfg.Blob)
	}
	if cfg.PageTimeout() != 60*time.Second {
		t.Errorf("PageTimeout() default = %v, want 60s", cfg.PageTimeout())
	}

	src := cfg.Sources["wiki"]
	if src.Delay() != 500*time.Millisecond {
		t.Errorf("Delay() default = %v, want 500ms", src.Delay())
	}
	if src.Lookback() != 7*24*time.Hour {
		t.Errorf("Lookback() default = %v, want 7 days", src.Lookback())
	}
}

func TestLoadConfig_LookbackClamped(t *testing.T) {
	path := writeConfig(t, `
sources:
  wiki:
    type: rest
    lookback_days: 90
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if got := cfg.Sources["wiki"].Lookback(); got != 30*24*time.Hour {
		t.Errorf("Lookback() = %v, want clamped to 30 days", got)
	}
}

func TestLoadConfig_UnknownSourceType(t *testing.T) {
	path := writeConfig(t, `
sources:
  bad:
    type: gopher
`)

	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() error = nil, want unknown type error")
	}
}

func TestLoadConfig_NoSources(t *testing.T) {
	path := writeConfig(t, "db_path: test.db\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() error = nil, want no-sources error")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() error = nil, want read error")
	}
}

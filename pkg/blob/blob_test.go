package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dragon_scimitar", "dragon_scimitar"},
		{"Dragon scimitar", "dragon-scimitar"},
		{"C++ (language)", "c-language"},
		{"café", "caf"},
		{"--already--", "already"},
		{"UPPER", "upper"},
	}
	for _, tt := range tests {
		if got := SanitizeSlug(tt.in); got != tt.want {
			t.Errorf("SanitizeSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKey(t *testing.T) {
	if got := Key("osrs", "Dragon_scimitar", KindHTML); got != "osrs/dragon_scimitar/rendered.html" {
		t.Errorf("Key(html) = %q", got)
	}
	if got := Key("osrs", "Dragon_scimitar", KindRaw); got != "osrs/dragon_scimitar/raw.txt" {
		t.Errorf("Key(raw) = %q", got)
	}
}

func TestFSStore_PutGet(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() failed: %v", err)
	}
	ctx := context.Background()

	key, err := store.Put(ctx, "osrs", "Dragon_scimitar", KindHTML, []byte("<p>hi</p>"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if key != "osrs/dragon_scimitar/rendered.html" {
		t.Errorf("key = %q", key)
	}

	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(data) != "<p>hi</p>" {
		t.Errorf("Get() = %q, want %q", data, "<p>hi</p>")
	}
}

func TestFSStore_PutOverwrites(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() failed: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, "osrs", "Page", KindRaw, []byte("v1")); err != nil {
		t.Fatalf("first Put() failed: %v", err)
	}
	key, err := store.Put(ctx, "osrs", "Page", KindRaw, []byte("v2"))
	if err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}

	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("Get() = %q, want %q", data, "v2")
	}
}

func TestFSStore_LayoutOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore() failed: %v", err)
	}

	if _, err := store.Put(context.Background(), "osrs", "Dragon scimitar", KindHTML, []byte("x")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	path := filepath.Join(dir, "osrs", "dragon-scimitar", "rendered.html")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected blob file at %s: %v", path, err)
	}
}

func TestFSStore_GetMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() failed: %v", err)
	}
	if _, err := store.Get(context.Background(), "osrs/nope/raw.txt"); err == nil {
		t.Error("Get() on missing key returned nil error")
	}
}

package store

import (
	"context"
	"testing"
	"time"

	"wikisync/models"
)

func TestUpsertItem_InsertAndOverwrite(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	released := time.Date(2001, 8, 27, 0, 0, 0, 0, time.UTC)
	item := &models.Item{
		ID:          4587,
		Name:        "Dragon scimitar",
		Examine:     "A vicious, curved sword.",
		Members:     true,
		Tradeable:   true,
		Value:       60000,
		Weight:      1.814,
		ReleaseDate: &released,
	}
	if err := db.UpsertItem(ctx, item); err != nil {
		t.Fatalf("UpsertItem() failed: %v", err)
	}

	// Last write wins on the natural key.
	item.Value = 100000
	if err := db.UpsertItem(ctx, item); err != nil {
		t.Fatalf("second UpsertItem() failed: %v", err)
	}

	got, err := db.GetItem(ctx, 4587)
	if err != nil {
		t.Fatalf("GetItem() failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetItem() = nil, want item")
	}
	if got.Name != "Dragon scimitar" {
		t.Errorf("Name = %q, want %q", got.Name, "Dragon scimitar")
	}
	if got.Value != 100000 {
		t.Errorf("Value = %d, want 100000", got.Value)
	}
	if !got.Members {
		t.Error("Members = false, want true")
	}
	if got.ReleaseDate == nil || !got.ReleaseDate.Equal(released) {
		t.Errorf("ReleaseDate = %v, want %v", got.ReleaseDate, released)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM items WHERE item_id = ?", 4587).Scan(&count)
	if count != 1 {
		t.Errorf("item row count = %d, want 1", count)
	}
}

func TestGetItem_Missing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	got, err := db.GetItem(context.Background(), 99999)
	if err != nil {
		t.Fatalf("GetItem() failed: %v", err)
	}
	if got != nil {
		t.Errorf("GetItem() = %+v, want nil", got)
	}
}

func TestUpsertMonster(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	m := &models.Monster{
		ID:           415,
		Name:         "Abyssal demon",
		CombatLevel:  124,
		Hitpoints:    150,
		MaxHit:       8,
		AttackStyles: []string{"stab", "slash"},
		Aggressive:   false,
		Examine:      "A denizen of the Abyss!",
		SlayerLevel:  85,
	}
	if err := db.UpsertMonster(ctx, m); err != nil {
		t.Fatalf("UpsertMonster() failed: %v", err)
	}

	m.MaxHit = 10
	if err := db.UpsertMonster(ctx, m); err != nil {
		t.Fatalf("second UpsertMonster() failed: %v", err)
	}

	var (
		maxHit int
		styles string
		count  int
	)
	db.QueryRow("SELECT max_hit, attack_styles FROM monsters WHERE monster_id = ?", 415).
		Scan(&maxHit, &styles)
	if maxHit != 10 {
		t.Errorf("max_hit = %d, want 10", maxHit)
	}
	if styles != `["stab","slash"]` {
		t.Errorf("attack_styles = %q, want JSON array", styles)
	}

	db.QueryRow("SELECT COUNT(*) FROM monsters WHERE monster_id = ?", 415).Scan(&count)
	if count != 1 {
		t.Errorf("monster row count = %d, want 1", count)
	}
}

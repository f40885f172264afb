package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wikisync/models"
)

// UpsertItem writes an item record, overwriting all non-key fields on
// conflict (last-write-wins).
func (db *DB) UpsertItem(ctx context.Context, item *models.Item) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO items (item_id, name, examine, members, tradeable,
			equipable, stackable, value, weight, release_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(item_id) DO UPDATE SET
			name = excluded.name,
			examine = excluded.examine,
			members = excluded.members,
			tradeable = excluded.tradeable,
			equipable = excluded.equipable,
			stackable = excluded.stackable,
			value = excluded.value,
			weight = excluded.weight,
			release_date = excluded.release_date,
			updated_at = CURRENT_TIMESTAMP
	`, item.ID, item.Name, item.Examine, item.Members, item.Tradeable,
		item.Equipable, item.Stackable, item.Value, item.Weight, item.ReleaseDate)
	if err != nil {
		return fmt.Errorf("failed to upsert item %d: %w", item.ID, err)
	}
	return nil
}

// GetItem reads an item record by its natural id. Returns (nil, nil) when
// absent.
func (db *DB) GetItem(ctx context.Context, id int) (*models.Item, error) {
	var (
		item     models.Item
		released sql.NullTime
	)
	err := db.QueryRowContext(ctx, `
		SELECT item_id, name, examine, members, tradeable, equipable,
			stackable, value, weight, release_date
		FROM items WHERE item_id = ?
	`, id).Scan(&item.ID, &item.Name, &item.Examine, &item.Members,
		&item.Tradeable, &item.Equipable, &item.Stackable, &item.Value,
		&item.Weight, &released)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}
	if released.Valid {
		item.ReleaseDate = &released.Time
	}
	return &item, nil
}

// UpsertMonster writes a monster record, overwriting all non-key fields on
// conflict (last-write-wins).
func (db *DB) UpsertMonster(ctx context.Context, m *models.Monster) error {
	var styles []byte
	if len(m.AttackStyles) > 0 {
		var err error
		styles, err = json.Marshal(m.AttackStyles)
		if err != nil {
			return fmt.Errorf("failed to encode attack styles: %w", err)
		}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO monsters (monster_id, name, combat_level, hitpoints,
			max_hit, attack_styles, aggressive, examine, slayer_level,
			release_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(monster_id) DO UPDATE SET
			name = excluded.name,
			combat_level = excluded.combat_level,
			hitpoints = excluded.hitpoints,
			max_hit = excluded.max_hit,
			attack_styles = excluded.attack_styles,
			aggressive = excluded.aggressive,
			examine = excluded.examine,
			slayer_level = excluded.slayer_level,
			release_date = excluded.release_date,
			updated_at = CURRENT_TIMESTAMP
	`, m.ID, m.Name, m.CombatLevel, m.Hitpoints, m.MaxHit, string(styles),
		m.Aggressive, m.Examine, m.SlayerLevel, m.ReleaseDate)
	if err != nil {
		return fmt.Errorf("failed to upsert monster %d: %w", m.ID, err)
	}
	return nil
}

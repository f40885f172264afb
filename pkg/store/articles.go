package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wikisync/models"
)

// GetArticle looks up an article by its natural key. Returns (nil, nil) when
// no article exists for (source, slug).
func (db *DB) GetArticle(ctx context.Context, source, slug string) (*models.Article, error) {
	var (
		a        models.Article
		metadata sql.NullString
		license  sql.NullString
		title    sql.NullString
		upstream sql.NullString
		text     sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT article_id, source, slug, title, extracted_text,
			rendered_html_key, raw_content_key, upstream_url, upstream_hash,
			status, license, metadata, synced_at
		FROM articles
		WHERE source = ? AND slug = ?
	`, source, slug).Scan(
		&a.ID, &a.Source, &a.Slug, &title, &text,
		&a.RenderedHTMLKey, &a.RawContentKey, &upstream, &a.UpstreamHash,
		&a.Status, &license, &metadata, &a.SyncedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article %s/%s: %w", source, slug, err)
	}

	a.Title = title.String
	a.ExtractedText = text.String
	a.UpstreamURL = upstream.String
	a.License = license.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode article metadata: %w", err)
		}
	}
	return &a, nil
}

// UpsertArticle inserts or updates an article by its natural key, setting
// synced_at to now.
func (db *DB) UpsertArticle(ctx context.Context, a *models.Article) error {
	var metadata []byte
	if len(a.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode article metadata: %w", err)
		}
	}
	a.SyncedAt = time.Now().UTC()

	_, err := db.ExecContext(ctx, `
		INSERT INTO articles (source, slug, title, extracted_text,
			rendered_html_key, raw_content_key, upstream_url, upstream_hash,
			status, license, metadata, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, slug) DO UPDATE SET
			title = excluded.title,
			extracted_text = excluded.extracted_text,
			rendered_html_key = excluded.rendered_html_key,
			raw_content_key = excluded.raw_content_key,
			upstream_url = excluded.upstream_url,
			upstream_hash = excluded.upstream_hash,
			status = excluded.status,
			license = excluded.license,
			metadata = excluded.metadata,
			synced_at = excluded.synced_at
	`, a.Source, a.Slug, a.Title, a.ExtractedText,
		a.RenderedHTMLKey, a.RawContentKey, a.UpstreamURL, a.UpstreamHash,
		a.Status, a.License, string(metadata), a.SyncedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert article %s/%s: %w", a.Source, a.Slug, err)
	}
	return nil
}

// ListSlugs returns every slug synced for a source, for refresh-existing
// runs.
func (db *DB) ListSlugs(ctx context.Context, source string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT slug FROM articles WHERE source = ? ORDER BY slug
	`, source)
	if err != nil {
		return nil, fmt.Errorf("failed to list slugs for %s: %w", source, err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

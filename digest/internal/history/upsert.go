package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nori0724/techdigest/dbopen"
)

// upsertSQL advances last_seen_at on every sighting and fills
// published_at / date_confidence / hashes only when previously empty.
// first_seen_at and id are immutable after insert.
const upsertSQL = `
INSERT INTO history (id, url, normalized_url, title, source,
    first_seen_at, last_seen_at, published_at, date_confidence,
    title_hash, content_hash)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(normalized_url) DO UPDATE SET
    last_seen_at    = MAX(history.last_seen_at, excluded.last_seen_at),
    published_at    = COALESCE(history.published_at, excluded.published_at),
    date_confidence = CASE
        WHEN history.date_confidence IN ('', 'unknown') THEN excluded.date_confidence
        ELSE history.date_confidence
    END,
    title_hash      = CASE WHEN history.title_hash = '' THEN excluded.title_hash ELSE history.title_hash END,
    content_hash    = CASE WHEN history.content_hash = '' THEN excluded.content_hash ELSE history.content_hash END
`

// Upsert inserts a new entry or merges a re-sighting into the existing row.
func (s *Store) Upsert(ctx context.Context, e *Entry) error {
	if e.NormalizedURL == "" {
		return fmt.Errorf("history: upsert: empty normalized URL")
	}
	fillDefaults(e)
	_, err := s.DB.ExecContext(ctx, upsertSQL, upsertArgs(e)...)
	if err != nil {
		return fmt.Errorf("history: upsert %s: %w", e.NormalizedURL, err)
	}
	return nil
}

// BulkUpsert applies Upsert to every entry inside one transaction, so a
// batch either lands completely or not at all.
func (s *Store) BulkUpsert(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.NormalizedURL == "" {
			return fmt.Errorf("history: bulk upsert: empty normalized URL")
		}
		fillDefaults(e)
	}

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSQL)
		if err != nil {
			return fmt.Errorf("history: prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, upsertArgs(e)...); err != nil {
				return fmt.Errorf("history: bulk upsert %s: %w", e.NormalizedURL, err)
			}
		}
		return nil
	})
}

// Cleanup deletes entries first seen before the cut-off and returns the
// number removed. A zero cut-off defaults to DefaultRetentionDays ago.
// last_seen_at deliberately plays no part: a recently re-sighted old
// article still expires, preserving the recency signal semantics.
func (s *Store) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	if before.IsZero() {
		before = time.Now().UTC().AddDate(0, 0, -DefaultRetentionDays)
	}
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM history WHERE first_seen_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("history: cleanup: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func fillDefaults(e *Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if e.FirstSeenAt.IsZero() {
		e.FirstSeenAt = now
	}
	if e.LastSeenAt.IsZero() {
		e.LastSeenAt = e.FirstSeenAt
	}
	if e.DateConfidence == "" {
		e.DateConfidence = "unknown"
	}
}

func upsertArgs(e *Entry) []any {
	var published any
	if e.PublishedAt != nil {
		published = e.PublishedAt.UnixMilli()
	}
	return []any{
		e.ID, e.URL, e.NormalizedURL, e.Title, e.Source,
		e.FirstSeenAt.UnixMilli(), e.LastSeenAt.UnixMilli(), published,
		string(e.DateConfidence), e.TitleHash, e.ContentHash,
	}
}

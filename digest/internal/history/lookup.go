package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nori0724/techdigest/digest/internal/model"
)

const entryColumns = `id, url, normalized_url, title, source,
first_seen_at, last_seen_at, published_at, date_confidence,
title_hash, content_hash`

// lookupChunk bounds the IN (...) list size of bulk lookups, well under
// SQLite's bound-parameter limit.
const lookupChunk = 500

// FindByNormalizedURL returns the entry for a normalised URL, or nil.
func (s *Store) FindByNormalizedURL(ctx context.Context, normalizedURL string) (*Entry, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM history WHERE normalized_url = ?`, normalizedURL)
	return scanEntry(row)
}

// FindExistingURLs bulk-tests which of the given normalised URLs are
// already recorded. Used by the history-exclusion dedup layer.
func (s *Store) FindExistingURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(urls))
	for start := 0; start < len(urls); start += lookupChunk {
		end := min(start+lookupChunk, len(urls))
		chunk := urls[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, u := range chunk {
			args[i] = u
		}

		rows, err := s.DB.QueryContext(ctx,
			`SELECT normalized_url FROM history WHERE normalized_url IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("history: find existing: %w", err)
		}
		for rows.Next() {
			var u string
			if err := rows.Scan(&u); err != nil {
				rows.Close()
				return nil, fmt.Errorf("history: scan url: %w", err)
			}
			existing[u] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return existing, nil
}

// FindByTitleHash returns all entries sharing a title hash. The hash only
// narrows fuzzy-duplicate candidates; callers must still compare titles.
func (s *Store) FindByTitleHash(ctx context.Context, hash string) ([]*Entry, error) {
	if hash == "" {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM history WHERE title_hash = ?`, hash)
	if err != nil {
		return nil, fmt.Errorf("history: find by title hash: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindByDateRange returns entries first seen in [since, until], newest
// first. A nil until leaves the range open-ended.
func (s *Store) FindByDateRange(ctx context.Context, since time.Time, until *time.Time) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM history WHERE first_seen_at >= ?`
	args := []any{since.UnixMilli()}
	if until != nil {
		query += ` AND first_seen_at <= ?`
		args = append(args, until.UnixMilli())
	}
	query += ` ORDER BY first_seen_at DESC`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: find by date range: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindPotentialReposts returns entries whose sighting span reaches
// minGapDays — the same URL resurfacing long after its first appearance.
func (s *Store) FindPotentialReposts(ctx context.Context, minGapDays int) ([]*Entry, error) {
	gapMs := int64(minGapDays) * 24 * int64(time.Hour/time.Millisecond)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM history
		WHERE last_seen_at - first_seen_at >= ?
		ORDER BY last_seen_at - first_seen_at DESC`, gapMs)
	if err != nil {
		return nil, fmt.Errorf("history: find reposts: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row *sql.Row) (*Entry, error) {
	e, err := scanInto(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("history: scan entry: %w", err)
	}
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanInto(row scannable) (*Entry, error) {
	var e Entry
	var firstSeen, lastSeen int64
	var published sql.NullInt64
	var confidence string
	if err := row.Scan(
		&e.ID, &e.URL, &e.NormalizedURL, &e.Title, &e.Source,
		&firstSeen, &lastSeen, &published, &confidence,
		&e.TitleHash, &e.ContentHash,
	); err != nil {
		return nil, err
	}
	e.FirstSeenAt = time.UnixMilli(firstSeen).UTC()
	e.LastSeenAt = time.UnixMilli(lastSeen).UTC()
	if published.Valid {
		ts := time.UnixMilli(published.Int64).UTC()
		e.PublishedAt = &ts
	}
	e.DateConfidence = model.DateConfidence(confidence)
	return &e, nil
}

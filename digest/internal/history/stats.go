package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetStats returns totals, the first-seen range and per-source counts.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{BySource: make(map[string]int)}

	var oldest, newest sql.NullInt64
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(first_seen_at), MAX(first_seen_at) FROM history`).
		Scan(&stats.Total, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("history: stats: %w", err)
	}
	if oldest.Valid {
		ts := time.UnixMilli(oldest.Int64).UTC()
		stats.OldestSeen = &ts
	}
	if newest.Valid {
		ts := time.UnixMilli(newest.Int64).UTC()
		stats.NewestSeen = &ts
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM history GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("history: stats by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("history: scan source count: %w", err)
		}
		stats.BySource[source] = count
	}
	return stats, rows.Err()
}

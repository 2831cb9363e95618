package history

import (
	"time"

	"github.com/nori0724/techdigest/digest/internal/model"
)

// Entry is one remembered article.
type Entry struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	NormalizedURL string `json:"normalized_url"`
	Title         string `json:"title"`
	Source        string `json:"source"`
	// FirstSeenAt never moves after insert; LastSeenAt advances on every
	// re-sighting.
	FirstSeenAt    time.Time            `json:"first_seen_at"`
	LastSeenAt     time.Time            `json:"last_seen_at"`
	PublishedAt    *time.Time           `json:"published_at,omitempty"`
	DateConfidence model.DateConfidence `json:"date_confidence"`
	TitleHash      string               `json:"title_hash,omitempty"`
	ContentHash    string               `json:"content_hash,omitempty"`
}

// Stats summarises the store contents.
type Stats struct {
	Total        int            `json:"total"`
	OldestSeen   *time.Time     `json:"oldest_seen,omitempty"`
	NewestSeen   *time.Time     `json:"newest_seen,omitempty"`
	BySource     map[string]int `json:"by_source"`
}

// Package model holds the article types exchanged between the collector,
// the deduplicator and the report renderer.
package model

import "time"

// DateConfidence expresses how reliable a resolved publication date is.
type DateConfidence string

const (
	ConfidenceHigh    DateConfidence = "high"
	ConfidenceMedium  DateConfidence = "medium"
	ConfidenceLow     DateConfidence = "low"
	ConfidenceUnknown DateConfidence = "unknown"
)

// DateSource names the extraction layer that produced a resolved date.
type DateSource string

const (
	DateSourcePublishedAt  DateSource = "published_at"
	DateSourceURL          DateSource = "url_date"
	DateSourceRelativeTime DateSource = "relative_time"
	DateSourceFirstSeen    DateSource = "first_seen_at"
	DateSourceNone         DateSource = "none"
)

// FreshnessPriority orders articles in the report by date reliability.
type FreshnessPriority string

const (
	PriorityHigh   FreshnessPriority = "high"
	PriorityNormal FreshnessPriority = "normal"
	PriorityLow    FreshnessPriority = "low"
)

// RawArticle is one article as produced by a fetch, before dedup.
type RawArticle struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary,omitempty"`
	Source          string    `json:"source"`
	CollectedAt     time.Time `json:"collected_at"`
	PublishedAt     string    `json:"published_at,omitempty"`
	DateMetaContent string    `json:"date_meta_content,omitempty"`
}

// FilteredArticle is a RawArticle that survived dedup, annotated with the
// canonical URL and the freshness estimate.
type FilteredArticle struct {
	RawArticle

	NormalizedURL   string            `json:"normalized_url"`
	IsFresh         bool              `json:"is_fresh"`
	DateConfidence  DateConfidence    `json:"date_confidence"`
	DateSource      DateSource        `json:"date_source"`
	ResolvedDate    *time.Time        `json:"resolved_date,omitempty"`
	Priority        FreshnessPriority `json:"freshness_priority"`
	SimilarityScore float64           `json:"similarity_score,omitempty"`
}

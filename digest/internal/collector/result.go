package collector

import (
	"github.com/nori0724/techdigest/digest/internal/fetch"
	"github.com/nori0724/techdigest/digest/internal/model"
)

// Status is the per-source outcome of one collection run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// SourceStatus records how one source fared.
type SourceStatus struct {
	SourceID     string       `json:"sourceId"`
	Tier         int          `json:"tier"`
	Status       Status       `json:"status"`
	ArticleCount int          `json:"articleCount"`
	Error        *fetch.Error `json:"-"`
}

// TierStats aggregates outcomes per tier.
type TierStats struct {
	Sources  int `json:"sources"`
	Success  int `json:"success"`
	Partial  int `json:"partial"`
	Failed   int `json:"failed"`
	Articles int `json:"articles"`
}

// Result is everything one collection pass produced. Articles are
// ordered tier 1 first, and within a tier in source order.
type Result struct {
	Articles []model.RawArticle
	Statuses []SourceStatus
	Errors   []*fetch.Error
	ByTier   map[int]*TierStats
}

// AbortHeavySources returns ids of sources whose retried attempts died
// with an abort-style message. These waste the retry budget and are
// candidates for auto-disable.
func (r *Result) AbortHeavySources() []string {
	var ids []string
	seen := map[string]bool{}
	for _, e := range r.Errors {
		if e.RetryCount >= 1 && isAbortMessage(e.Message) && !seen[e.SourceID] {
			seen[e.SourceID] = true
			ids = append(ids, e.SourceID)
		}
	}
	return ids
}

package dateparse

import (
	"time"

	"github.com/nori0724/techdigest/digest/internal/model"
)

// Freshness is the window verdict for one article.
type Freshness struct {
	IsFresh  bool
	Priority model.FreshnessPriority
	Source   model.DateSource
}

// WindowStart computes the lower bound of the freshness window.
//
// On Mondays (UTC) the window reaches back at least 72h so weekend
// articles are caught up without double-counting runs that already
// happened: the start is the earlier of lastSuccess and now-72h. On other
// days the last successful run bounds the window, falling back to 24h.
func WindowStart(lastSuccess *time.Time, now time.Time) time.Time {
	now = now.UTC()
	if now.Weekday() == time.Monday {
		catchup := now.Add(-72 * time.Hour)
		if lastSuccess != nil && lastSuccess.Before(catchup) {
			return lastSuccess.UTC()
		}
		return catchup
	}
	if lastSuccess != nil {
		return lastSuccess.UTC()
	}
	return now.Add(-24 * time.Hour)
}

// Classify turns a date estimate into a freshness verdict against the
// window start. An estimate with no date is kept on doubt: fresh with low
// priority and source "none".
func Classify(res Result, windowStart time.Time) Freshness {
	if res.Date == nil {
		return Freshness{IsFresh: true, Priority: model.PriorityLow, Source: model.DateSourceNone}
	}

	fresh := !res.Date.Before(windowStart)
	priority := model.PriorityNormal
	switch res.Source {
	case model.DateSourcePublishedAt:
		priority = model.PriorityHigh
	case model.DateSourceFirstSeen:
		priority = model.PriorityLow
	}
	return Freshness{IsFresh: fresh, Priority: priority, Source: res.Source}
}

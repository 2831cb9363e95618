// Package dedup removes duplicate articles through a staged pipeline:
// exact URL, history exclusion, same-session near-duplicate titles,
// fuzzy title match, then a freshness filter. Survivors are written
// back to the history store. All stages preserve input order.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nori0724/techdigest/digest/internal/config"
	"github.com/nori0724/techdigest/digest/internal/dateparse"
	"github.com/nori0724/techdigest/digest/internal/history"
	"github.com/nori0724/techdigest/digest/internal/model"
	"github.com/nori0724/techdigest/digest/internal/similarity"
	"github.com/nori0724/techdigest/digest/internal/urlnorm"
)

// Stats counts survivors after each stage.
type Stats struct {
	TotalInput           int `json:"totalInput"`
	AfterURLDedup        int `json:"afterUrlDedup"`
	AfterHistoryDedup    int `json:"afterHistoryDedup"`
	AfterSimilarityDedup int `json:"afterSimilarityDedup"`
	FreshCount           int `json:"freshCount"`
}

// Deduplicator applies the staged pipeline against one history store.
type Deduplicator struct {
	store      *history.Store
	thresholds *config.ThresholdsFile
	sources    map[string]config.Source
	urlOpts    urlnorm.Options
	logger     *slog.Logger
	now        func() time.Time
}

// New builds a deduplicator. The sources file supplies per-source date
// methods and Layer-2 fallbacks; it may be nil in tests.
func New(store *history.Store, thresholds *config.ThresholdsFile, sources *config.SourcesFile, urlOpts urlnorm.Options, logger *slog.Logger) *Deduplicator {
	byID := map[string]config.Source{}
	if sources != nil {
		for _, s := range sources.Sources {
			byID[s.ID] = s
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{
		store:      store,
		thresholds: thresholds,
		sources:    byID,
		urlOpts:    urlOpts,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run pushes a raw batch through all stages. windowStart bounds the
// freshness filter; history store failures are fatal because dedup
// correctness depends on them.
func (d *Deduplicator) Run(ctx context.Context, articles []model.RawArticle, windowStart time.Time) ([]model.FilteredArticle, *Stats, error) {
	stats := &Stats{TotalInput: len(articles)}

	batch := d.normalizeURLs(articles)
	batch = dedupeByURL(batch)
	stats.AfterURLDedup = len(batch)

	batch, resighted, err := d.excludeHistory(ctx, batch)
	if err != nil {
		return nil, nil, err
	}
	stats.AfterHistoryDedup = len(batch)

	batch = d.layer2(batch)
	batch = d.layer3(batch)
	stats.AfterSimilarityDedup = len(batch)

	kept := d.classifyFreshness(batch, windowStart)
	for _, a := range kept {
		if a.IsFresh {
			stats.FreshCount++
		}
	}

	if err := d.updateHistory(ctx, kept, resighted); err != nil {
		return nil, nil, err
	}
	return kept, stats, nil
}

// normalizeURLs attaches the canonical URL, falling back to the raw
// URL when normalisation fails. A bad URL never drops an article here.
func (d *Deduplicator) normalizeURLs(articles []model.RawArticle) []model.FilteredArticle {
	out := make([]model.FilteredArticle, 0, len(articles))
	for _, a := range articles {
		normalized, err := urlnorm.Normalize(a.URL, d.urlOpts)
		if err != nil {
			d.logger.Debug("dedup: url normalisation failed", "url", a.URL, "error", err)
			normalized = a.URL
		}
		out = append(out, model.FilteredArticle{RawArticle: a, NormalizedURL: normalized})
	}
	return out
}

// dedupeByURL keeps the first occurrence of each normalised URL.
func dedupeByURL(batch []model.FilteredArticle) []model.FilteredArticle {
	seen := map[string]bool{}
	out := batch[:0]
	for _, a := range batch {
		if seen[a.NormalizedURL] {
			continue
		}
		seen[a.NormalizedURL] = true
		out = append(out, a)
	}
	return out
}

// excludeHistory drops articles already recorded in the store. The
// dropped ones are returned separately so the final stage can still
// advance their last_seen_at.
func (d *Deduplicator) excludeHistory(ctx context.Context, batch []model.FilteredArticle) (fresh, resighted []model.FilteredArticle, err error) {
	if len(batch) == 0 {
		return batch, nil, nil
	}
	urls := make([]string, len(batch))
	for i, a := range batch {
		urls[i] = a.NormalizedURL
	}
	existing, err := d.store.FindExistingURLs(ctx, urls)
	if err != nil {
		return nil, nil, fmt.Errorf("dedup: history lookup: %w", err)
	}

	out := batch[:0]
	for _, a := range batch {
		if existing[a.NormalizedURL] {
			resighted = append(resighted, a)
			continue
		}
		out = append(out, a)
	}
	return out, resighted, nil
}

// layer2 drops same-session near-duplicates: Jaccard-only, with the
// cut-off picked by whether the two URLs share a domain.
func (d *Deduplicator) layer2(batch []model.FilteredArticle) []model.FilteredArticle {
	out := batch[:0]
	for _, a := range batch {
		th := d.thresholds.Layer2For(a.Source)
		dup := false
		for _, kept := range out {
			jac := similarity.TitleJaccard(a.Title, kept.Title)
			cutoff := th.CrossDomain
			if urlnorm.IsSameDomain(a.NormalizedURL, kept.NormalizedURL) {
				cutoff = th.SameDomain
			}
			if jac >= cutoff {
				d.logger.Debug("dedup: layer-2 duplicate",
					"title", a.Title, "kept", kept.Title, "jaccard", jac)
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, a)
		}
	}
	return out
}

// layer3 drops fuzzy duplicates using the category thresholds. Among
// several hits the best-scoring one is reported as the reason.
func (d *Deduplicator) layer3(batch []model.FilteredArticle) []model.FilteredArticle {
	out := batch[:0]
	for _, a := range batch {
		category := similarity.DetectCategory(a.Source, a.NormalizedURL)
		th := d.thresholds.For(category)

		dup := false
		bestScore := 0.0
		bestTitle := ""
		for _, kept := range out {
			isDup, jac, edit := similarity.IsFuzzyDuplicate(a.Title, kept.Title, th)
			if !isDup {
				continue
			}
			dup = true
			if score := jac + (1 - edit); score > bestScore {
				bestScore = score
				bestTitle = kept.Title
			}
		}
		if dup {
			d.logger.Debug("dedup: layer-3 duplicate",
				"title", a.Title, "kept", bestTitle,
				"category", category, "score", bestScore)
			continue
		}
		out = append(out, a)
	}
	return out
}

// classifyFreshness resolves each survivor's date, stamps the verdict
// and keeps the article iff it is fresh or its date is unknown.
func (d *Deduplicator) classifyFreshness(batch []model.FilteredArticle, windowStart time.Time) []model.FilteredArticle {
	out := batch[:0]
	for _, a := range batch {
		res := d.resolveDate(a)
		verdict := dateparse.Classify(res, windowStart)

		a.IsFresh = verdict.IsFresh
		a.Priority = verdict.Priority
		a.DateSource = verdict.Source
		a.DateConfidence = res.Confidence
		a.ResolvedDate = res.Date

		if !verdict.IsFresh && res.Confidence != model.ConfidenceUnknown {
			d.logger.Debug("dedup: stale article dropped",
				"title", a.Title, "resolved", res.Date, "window_start", windowStart)
			continue
		}
		out = append(out, a)
	}
	return out
}

// resolveDate follows the cascade: an explicit publishedAt first, then
// the source's configured date method, then the multi-layer fallback.
func (d *Deduplicator) resolveDate(a model.FilteredArticle) dateparse.Result {
	ref := a.CollectedAt
	if ref.IsZero() {
		ref = d.now()
	}

	if a.PublishedAt != "" {
		if ts, ok := dateparse.ParseExplicit(a.PublishedAt); ok {
			return dateparse.Result{Date: &ts, Confidence: model.ConfidenceHigh, Source: model.DateSourcePublishedAt}
		}
	}
	if src, ok := d.sources[a.Source]; ok && src.DateMethod != "" {
		return dateparse.ExtractByMethod(src.DateMethod, a.PublishedAt, a.URL, a.DateMetaContent, src.DatePattern, ref)
	}
	return dateparse.Extract(a.PublishedAt, a.URL, a.DateMetaContent, ref)
}

// updateHistory records every survivor so later runs exclude it, and
// re-sights the already-known URLs so their last_seen_at advances.
func (d *Deduplicator) updateHistory(ctx context.Context, kept, resighted []model.FilteredArticle) error {
	if len(kept) == 0 && len(resighted) == 0 {
		return nil
	}
	now := d.now()
	entries := make([]*history.Entry, 0, len(kept)+len(resighted))
	for _, a := range append(append([]model.FilteredArticle{}, kept...), resighted...) {
		e := &history.Entry{
			URL:            a.URL,
			NormalizedURL:  a.NormalizedURL,
			Title:          a.Title,
			Source:         a.Source,
			FirstSeenAt:    now,
			LastSeenAt:     now,
			DateConfidence: a.DateConfidence,
			TitleHash:      similarity.TitleHash(a.Title),
		}
		if a.DateSource == model.DateSourcePublishedAt {
			e.PublishedAt = a.ResolvedDate
		}
		entries = append(entries, e)
	}
	if err := d.store.BulkUpsert(ctx, entries); err != nil {
		return fmt.Errorf("dedup: history update: %w", err)
	}
	return nil
}

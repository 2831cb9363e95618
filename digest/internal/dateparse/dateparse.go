// Package dateparse estimates article publication dates from three layers
// of evidence: explicit timestamps, URL path patterns, and Japanese or
// English relative-time phrases. It also computes the freshness window the
// deduplicator filters against.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nori0724/techdigest/digest/internal/model"
	"github.com/nori0724/techdigest/digest/internal/similarity"
)

// Result is one date estimate with its provenance.
type Result struct {
	Date       *time.Time
	Confidence model.DateConfidence
	Source     model.DateSource
}

// explicitLayouts are tried in order by ParseExplicit. Timezone-less
// layouts are interpreted as UTC.
var explicitLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Jan 2, 2006",
	"2 Jan 2006",
	"2006年1月2日",
}

// ParseExplicit parses a timestamp string in any recognised layout.
func ParseExplicit(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range explicitLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Default URL date patterns, tried in order. Each must capture year,
// month, day as its first three groups.
var urlDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/(\d{4})[-/](\d{1,2})[-/](\d{1,2})(?:[/?#]|$)`),
	regexp.MustCompile(`[?&]date=(\d{4})[-/](\d{1,2})[-/](\d{1,2})`),
	regexp.MustCompile(`/articles?/(\d{4})(\d{2})(\d{2})(?:[/?#]|$)`),
}

// ParseFromURL extracts a date embedded in a URL path or query. A non-empty
// pattern (anchored regex capturing year, month, day) replaces the default
// pattern list. The result is midnight UTC.
func ParseFromURL(rawURL, pattern string) (time.Time, bool) {
	patterns := urlDatePatterns
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return time.Time{}, false
		}
		patterns = []*regexp.Regexp{re}
	}

	for _, re := range patterns {
		m := re.FindStringSubmatch(rawURL)
		if len(m) < 4 {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

var (
	jaRelativeRe = regexp.MustCompile(`(\d+)\s*(秒|分|時間|日|週間|ヶ月|か月)前`)
	enRelativeRe = regexp.MustCompile(`(?i)(\d+)\s*(second|minute|hour|day|week|month)s?\s+ago`)
)

// ParseRelative resolves a Japanese or English relative-time phrase
// against the reference time.
func ParseRelative(s string, ref time.Time) (time.Time, bool) {
	folded := similarity.Fold(s)

	if m := jaRelativeRe.FindStringSubmatch(folded); len(m) == 3 {
		n, _ := strconv.Atoi(m[1])
		return subtractUnit(ref, n, jaUnit(m[2])), true
	}
	if m := enRelativeRe.FindStringSubmatch(folded); len(m) == 3 {
		n, _ := strconv.Atoi(m[1])
		return subtractUnit(ref, n, strings.ToLower(m[2])), true
	}

	switch {
	case strings.Contains(folded, "昨日"), strings.Contains(folded, "yesterday"):
		return ref.Add(-24 * time.Hour), true
	case strings.Contains(folded, "先週"), strings.Contains(folded, "last week"):
		return ref.Add(-7 * 24 * time.Hour), true
	case strings.Contains(folded, "今日"), strings.Contains(folded, "today"):
		return ref, true
	}
	return time.Time{}, false
}

func jaUnit(u string) string {
	switch u {
	case "秒":
		return "second"
	case "分":
		return "minute"
	case "時間":
		return "hour"
	case "日":
		return "day"
	case "週間":
		return "week"
	default: // ヶ月 / か月
		return "month"
	}
}

func subtractUnit(ref time.Time, n int, unit string) time.Time {
	switch unit {
	case "second":
		return ref.Add(-time.Duration(n) * time.Second)
	case "minute":
		return ref.Add(-time.Duration(n) * time.Minute)
	case "hour":
		return ref.Add(-time.Duration(n) * time.Hour)
	case "day":
		return ref.Add(-time.Duration(n) * 24 * time.Hour)
	case "week":
		return ref.Add(-time.Duration(n) * 7 * 24 * time.Hour)
	default: // month
		return ref.AddDate(0, -n, 0)
	}
}

// Extract runs the three layers in order and returns the first estimate.
// When every layer fails the result carries a nil date with
// source=first_seen_at, telling downstream to fall back on history.
func Extract(publishedAt, rawURL, metaContent string, ref time.Time) Result {
	if ts, ok := ParseExplicit(publishedAt); ok {
		return Result{Date: &ts, Confidence: model.ConfidenceHigh, Source: model.DateSourcePublishedAt}
	}
	if ts, ok := ParseFromURL(rawURL, ""); ok {
		return Result{Date: &ts, Confidence: model.ConfidenceMedium, Source: model.DateSourceURL}
	}
	if ts, ok := ParseRelative(metaContent, ref); ok {
		return Result{Date: &ts, Confidence: model.ConfidenceLow, Source: model.DateSourceRelativeTime}
	}
	return Result{Confidence: model.ConfidenceUnknown, Source: model.DateSourceFirstSeen}
}

// ExtractByMethod dispatches on a source's configured date method.
// Unknown methods fall back to the multi-layer Extract.
func ExtractByMethod(method, publishedAt, rawURL, metaContent, pattern string, ref time.Time) Result {
	switch method {
	case "html_meta", "api":
		if ts, ok := ParseExplicit(metaContent); ok {
			return Result{Date: &ts, Confidence: model.ConfidenceHigh, Source: model.DateSourcePublishedAt}
		}
	case "url_parse":
		if ts, ok := ParseFromURL(rawURL, pattern); ok {
			return Result{Date: &ts, Confidence: model.ConfidenceMedium, Source: model.DateSourceURL}
		}
	case "html_parse", "search_result":
		if ts, ok := ParseRelative(metaContent, ref); ok {
			return Result{Date: &ts, Confidence: model.ConfidenceLow, Source: model.DateSourceRelativeTime}
		}
	default:
		return Extract(publishedAt, rawURL, metaContent, ref)
	}
	return Result{Confidence: model.ConfidenceUnknown, Source: model.DateSourceFirstSeen}
}

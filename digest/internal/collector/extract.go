package collector

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/nori0724/techdigest/digest/internal/model"
)

var errNoArticles = errors.New("collector: no parsable articles payload")

var fenceRe = regexp.MustCompile("(?s)```([a-zA-Z]*)\\n(.*?)```")

type articleJSON struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	Summary         string `json:"summary"`
	PublishedAt     string `json:"publishedAt"`
	DateMetaContent string `json:"dateMetaContent"`
}

// extractArticles locates an articles payload in free-form fetcher
// output. Candidates are tried in order: json-tagged fenced blocks, any
// fenced block starting with { or [, the whole trimmed content when it
// starts with { or [, and finally the substring from the first { to
// the last }.
func extractArticles(content string) ([]articleJSON, error) {
	for _, candidate := range jsonCandidates(content) {
		if arts, ok := parseArticles(candidate); ok {
			return arts, nil
		}
	}
	return nil, errNoArticles
}

func jsonCandidates(content string) []string {
	var out []string
	matches := fenceRe.FindAllStringSubmatch(content, -1)
	for _, m := range matches {
		if strings.EqualFold(m[1], "json") {
			out = append(out, m[2])
		}
	}
	for _, m := range matches {
		body := strings.TrimSpace(m[2])
		if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
			out = append(out, m[2])
		}
	}
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		out = append(out, trimmed)
	}
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		out = append(out, content[start:end+1])
	}
	return out
}

// parseArticles accepts either {"articles": [...]} or a bare array.
func parseArticles(candidate string) ([]articleJSON, bool) {
	candidate = strings.TrimSpace(candidate)
	var wrapped struct {
		Articles []articleJSON `json:"articles"`
	}
	if err := json.Unmarshal([]byte(candidate), &wrapped); err == nil && wrapped.Articles != nil {
		return wrapped.Articles, true
	}
	var bare []articleJSON
	if err := json.Unmarshal([]byte(candidate), &bare); err == nil {
		return bare, true
	}
	return nil, false
}

// normalizeArticles drops entries without a title or URL, caps the
// batch at maxArticles and stamps source and collection time.
func normalizeArticles(raw []articleJSON, sourceID string, maxArticles int, now time.Time) []model.RawArticle {
	var out []model.RawArticle
	for _, a := range raw {
		if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.URL) == "" {
			continue
		}
		out = append(out, model.RawArticle{
			URL:             strings.TrimSpace(a.URL),
			Title:           strings.TrimSpace(a.Title),
			Summary:         strings.TrimSpace(a.Summary),
			Source:          sourceID,
			CollectedAt:     now,
			PublishedAt:     strings.TrimSpace(a.PublishedAt),
			DateMetaContent: strings.TrimSpace(a.DateMetaContent),
		})
		if maxArticles > 0 && len(out) == maxArticles {
			break
		}
	}
	return out
}

// rawPreview collapses whitespace and truncates for parse-error
// diagnostics.
func rawPreview(content string) string {
	collapsed := strings.Join(strings.Fields(content), " ")
	const limit = 120
	if runes := []rune(collapsed); len(runes) > limit {
		return string(runes[:limit])
	}
	return collapsed
}

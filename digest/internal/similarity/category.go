package similarity

import (
	"net/url"
	"strings"
)

// DetectCategory classifies a source for threshold selection. The source id
// is checked first, then the URL hostname; unmatched sources fall back to
// "default".
func DetectCategory(sourceID, rawURL string) string {
	if c := categoryFromText(strings.ToLower(sourceID)); c != "" {
		return c
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		if c := categoryFromText(strings.ToLower(parsed.Hostname())); c != "" {
			return c
		}
	}
	return "default"
}

func categoryFromText(s string) string {
	switch {
	case strings.Contains(s, "arxiv"):
		return "arxiv"
	case strings.Contains(s, "news"), strings.Contains(s, "techcrunch"):
		return "news"
	case strings.Contains(s, "blog"), strings.Contains(s, "qiita"), strings.Contains(s, "zenn"):
		return "blog"
	}
	return ""
}

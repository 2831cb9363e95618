// Package urlnorm canonicalises article URLs for dedup comparison.
//
// Normalisation upgrades http to https, lowercases the host, strips a
// leading "www.", removes tracking query parameters, sorts the remaining
// ones, drops the fragment and re-encodes the path. The result is the
// primary dedup key, so the function must be idempotent:
// Normalize(Normalize(u)) == Normalize(u).
package urlnorm

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// ErrInvalidURL is returned for input that cannot serve as a dedup key.
var ErrInvalidURL = fmt.Errorf("urlnorm: invalid URL")

// DefaultRemoveParams are the tracking parameters stripped when no custom
// set is configured. Any parameter with an "utm_" prefix is always removed.
var DefaultRemoveParams = []string{
	"ref", "source", "via",
	"fbclid", "gclid", "yclid", "msclkid",
	"mc_cid", "mc_eid",
	"_ga", "_gl",
}

// Options tunes normalisation behaviour.
type Options struct {
	// RemoveParams overrides DefaultRemoveParams when non-nil.
	RemoveParams []string
	// KeepTrailingSlash disables trailing-slash stripping.
	KeepTrailingSlash bool
}

// Normalize returns the canonical form of an http/https URL.
func Normalize(raw string, opts Options) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	// Always https: the same article served on both schemes is one article.
	parsed.Scheme = "https"
	parsed.Host = normalizeHost(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""

	normalizePath(parsed, !opts.KeepTrailingSlash)
	normalizeQuery(parsed, removeSet(opts.RemoveParams))

	return parsed.String(), nil
}

// ExtractDomain returns the lowercase host without port or "www." prefix.
func ExtractDomain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// IsSameDomain reports whether two URLs share a domain.
func IsSameDomain(a, b string) bool {
	da, db := ExtractDomain(a), ExtractDomain(b)
	return da != "" && da == db
}

// IsValidURL reports whether raw parses as an absolute http/https URL.
func IsValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}

// normalizeHost lowercases, strips "www." and punycodes non-ASCII hosts.
// The port, if any, is preserved.
func normalizeHost(host string) string {
	host = strings.ToLower(host)

	port := ""
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		host, port = host[:i], host[i:]
	}

	host = strings.TrimPrefix(host, "www.")

	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}
	return host + port
}

// normalizePath collapses duplicate slashes and re-encodes each segment
// (decode once, encode canonically) so differently-encoded paths compare
// equal. stripTrailing removes a trailing slash except on the bare root.
func normalizePath(parsed *url.URL, stripTrailing bool) {
	escaped := parsed.EscapedPath()
	if escaped == "" {
		return
	}

	hadTrailing := strings.HasSuffix(escaped, "/")

	var segments []string
	for _, seg := range strings.Split(escaped, "/") {
		if seg == "" {
			continue // collapses "//" runs and the leading empty segment
		}
		segments = append(segments, reencodeSegment(seg))
	}

	path := "/" + strings.Join(segments, "/")
	if hadTrailing && path != "/" && !stripTrailing {
		path += "/"
	}

	parsed.RawPath = path
	if decoded, err := url.PathUnescape(path); err == nil {
		parsed.Path = decoded
	} else {
		parsed.Path = path
	}
}

// reencodeSegment percent-decodes a path segment and re-encodes it with
// the canonical escape set. Segments with broken escapes are kept as-is.
func reencodeSegment(seg string) string {
	decoded, err := url.PathUnescape(seg)
	if err != nil {
		return seg
	}
	return url.PathEscape(decoded)
}

// normalizeQuery drops tracking parameters, sorts the survivors and
// rebuilds the query. An empty result clears the "?" entirely.
func normalizeQuery(parsed *url.URL, remove map[string]bool) {
	if parsed.RawQuery == "" {
		return
	}

	params, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		// Unparseable query: drop it rather than keep an unstable key.
		parsed.RawQuery = ""
		return
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if remove[strings.ToLower(k)] || strings.HasPrefix(strings.ToLower(k), "utm_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf strings.Builder
	for i, k := range keys {
		vals := params[k]
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				buf.WriteByte('&')
			}
			buf.WriteString(url.QueryEscape(k))
			buf.WriteByte('=')
			buf.WriteString(url.QueryEscape(v))
		}
	}
	parsed.RawQuery = buf.String()
}

func removeSet(params []string) map[string]bool {
	if params == nil {
		params = DefaultRemoveParams
	}
	set := make(map[string]bool, len(params))
	for _, p := range params {
		set[strings.ToLower(p)] = true
	}
	return set
}

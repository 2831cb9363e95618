package urlnorm

import (
	"errors"
	"testing"
)

func TestNormalize_CanonicalForm(t *testing.T) {
	// WHAT: variants of the same article URL normalise to one canonical string.
	// WHY: the normalised URL is the primary dedup key.
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "https://techcrunch.com/2024/01/15/ai", "https://techcrunch.com/2024/01/15/ai"},
		{"http upgraded", "http://techcrunch.com/2024/01/15/ai", "https://techcrunch.com/2024/01/15/ai"},
		{"host case", "https://TechCrunch.com/2024/01/15/ai", "https://techcrunch.com/2024/01/15/ai"},
		{"www stripped", "https://www.techcrunch.com/2024/01/15/ai", "https://techcrunch.com/2024/01/15/ai"},
		{"trailing slash", "https://techcrunch.com/2024/01/15/ai/", "https://techcrunch.com/2024/01/15/ai"},
		{"utm removed", "https://techcrunch.com/2024/01/15/ai/?utm_source=t", "https://techcrunch.com/2024/01/15/ai"},
		{"fragment dropped", "https://techcrunch.com/2024/01/15/ai#comments", "https://techcrunch.com/2024/01/15/ai"},
		{"double slash collapsed", "https://techcrunch.com//2024//01/15/ai", "https://techcrunch.com/2024/01/15/ai"},
		{"query sorted", "https://example.com/a?b=2&a=1", "https://example.com/a?a=1&b=2"},
		{"empty query dropped", "https://example.com/a?", "https://example.com/a"},
		{"bare root kept", "https://example.com/", "https://example.com/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in, Options{})
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_TrackingParams(t *testing.T) {
	// WHAT: every default tracking parameter is removed, other params survive.
	// WHY: newsletters and social shares decorate the same URL differently.
	in := "https://example.com/post?id=7&ref=rss&fbclid=x&gclid=y&mc_cid=z&_ga=1&utm_campaign=daily&via=tw"
	got, err := Normalize(in, Options{})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := "https://example.com/post?id=7"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	// WHAT: normalising an already-normalised URL is a no-op.
	// WHY: articles re-enter the pipeline across runs; the key must be stable.
	inputs := []string{
		"https://techcrunch.com/2024/01/15/ai/?utm_source=t&b=2&a=1",
		"http://www.Example.COM//x//y/?ref=abc#frag",
		"https://example.com/%E6%97%A5%E6%9C%AC%E8%AA%9E/page",
		"https://example.com/%25E6%2597%25A5/page", // double-encoded segment
	}
	for _, in := range inputs {
		once, err := Normalize(in, Options{})
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		twice, err := Normalize(once, Options{})
		if err != nil {
			t.Fatalf("Normalize(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalize_CustomRemoveParams(t *testing.T) {
	// WHAT: a configured removeParams set replaces the default one.
	// WHY: some sites use meaningful params named like tracking params.
	got, err := Normalize("https://example.com/a?ref=keep&session=x", Options{
		RemoveParams: []string{"session"},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "https://example.com/a?ref=keep" {
		t.Errorf("got %q", got)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	// WHAT: non-http(s) and hostless input is rejected with ErrInvalidURL.
	// WHY: such strings cannot serve as dedup keys; callers fall back to raw.
	for _, in := range []string{"", "   ", "ftp://example.com/x", "mailto:a@b.c", "/relative/path", "not a url"} {
		if _, err := Normalize(in, Options{}); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Normalize(%q): expected ErrInvalidURL, got %v", in, err)
		}
	}
}

func TestExtractDomain(t *testing.T) {
	// WHAT: domain extraction lowercases and drops "www." and the port.
	tests := []struct{ in, want string }{
		{"https://WWW.Example.com:8443/x", "example.com"},
		{"http://blog.example.co.jp/y", "blog.example.co.jp"},
		{"::bad::", ""},
	}
	for _, tt := range tests {
		if got := ExtractDomain(tt.in); got != tt.want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSameDomain(t *testing.T) {
	// WHAT: same-domain comparison ignores scheme, www and path.
	if !IsSameDomain("https://www.example.com/a", "http://example.com/b") {
		t.Error("expected same domain")
	}
	if IsSameDomain("https://example.com/a", "https://example.org/a") {
		t.Error("expected different domains")
	}
	if IsSameDomain("::bad::", "::bad::") {
		t.Error("unparseable URLs must never compare equal")
	}
}

package similarity

import (
	"strings"
	"testing"
)

func TestTokenize_MixedLanguage(t *testing.T) {
	// WHAT: ASCII runs become words, Japanese residue becomes bigrams.
	// WHY: word-level Jaccard alone is blind to unsegmented Japanese titles.
	tokens := Tokenize("GPT-4 Turboの新機能")
	for _, want := range []string{"gpt", "4", "turbo", "の新", "新機", "機能"} {
		if _, ok := tokens[want]; !ok {
			t.Errorf("missing token %q in %v", want, keys(tokens))
		}
	}
	if _, ok := tokens["-"]; ok {
		t.Error("punctuation must not become a token")
	}
}

func TestTokenize_SingleNonASCIIChar(t *testing.T) {
	// WHAT: a length-1 residue run emits the character itself.
	tokens := Tokenize("a 猫 b")
	if _, ok := tokens["猫"]; !ok {
		t.Errorf("missing single-char token, got %v", keys(tokens))
	}
}

func TestTokenize_FullWidthFolded(t *testing.T) {
	// WHAT: full-width ASCII folds to half-width before tokenisation.
	// WHY: Japanese sites often render Latin product names in full-width.
	a := Tokenize("ＧＰＴ４　ｔｕｒｂｏ")
	b := Tokenize("gpt4 turbo")
	if Jaccard(a, b) != 1 {
		t.Errorf("full-width and half-width titles should tokenise equally: %v vs %v", keys(a), keys(b))
	}
}

func TestJaccard_Properties(t *testing.T) {
	// WHAT: Jaccard is symmetric, bounded to [0,1], and 1 iff the sets match.
	pairs := [][2]string{
		{"AI agents in production", "production AI agents"},
		{"rust 1.75 released", "go 1.22 released"},
		{"完全に異なるタイトル", "something else entirely"},
		{"", ""},
		{"one empty", ""},
	}
	for _, p := range pairs {
		ab := TitleJaccard(p[0], p[1])
		ba := TitleJaccard(p[1], p[0])
		if ab != ba {
			t.Errorf("not symmetric for %q/%q: %v vs %v", p[0], p[1], ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Errorf("out of range for %q/%q: %v", p[0], p[1], ab)
		}
	}
	if TitleJaccard("", "") != 1 {
		t.Error("two empty titles must score 1")
	}
	if TitleJaccard("a title", "") != 0 {
		t.Error("exactly one empty title must score 0")
	}
	if TitleJaccard("same title here", "same title here") != 1 {
		t.Error("identical titles must score 1")
	}
}

func TestNormalizedEditDistance_Properties(t *testing.T) {
	// WHAT: edit distance is symmetric, in [0,1], 0 iff folded strings match.
	if d := NormalizedEditDistance("", ""); d != 0 {
		t.Errorf("two empty strings: got %v, want 0", d)
	}
	if d := NormalizedEditDistance("abc", ""); d != 1 {
		t.Errorf("one empty string: got %v, want 1", d)
	}
	if d := NormalizedEditDistance("Ｋｕｂｅｒｎｅｔｅｓ", "kubernetes"); d != 0 {
		t.Errorf("fold-equal strings: got %v, want 0", d)
	}
	a, b := "kubernetes 1.29 changes", "kubernetes 1.30 changes"
	if NormalizedEditDistance(a, b) != NormalizedEditDistance(b, a) {
		t.Error("not symmetric")
	}
	if d := NormalizedEditDistance(a, b); d <= 0 || d >= 1 {
		t.Errorf("near-identical strings should land strictly inside (0,1): %v", d)
	}
}

func TestIsFuzzyDuplicate_ReorderedTitle(t *testing.T) {
	// WHAT: two rephrasings of the same announcement trip the default
	// category thresholds (jaccard 0.7 / levenshtein 0.3).
	th := Threshold{JaccardGTE: 0.7, LevenshteinLTE: 0.3}
	a := "Gemini 2 is incredible! The new reasoning capabilities are amazing."
	b := "Gemini 2 is amazing! The reasoning capabilities are incredible."
	dup, jac, _ := IsFuzzyDuplicate(a, b, th)
	if !dup {
		t.Errorf("expected duplicate, jaccard=%v", jac)
	}
	if jac < 0.7 {
		t.Errorf("token overlap should reach 0.7, got %v", jac)
	}

	c := "Completely unrelated database migration guide"
	if dup, _, _ := IsFuzzyDuplicate(a, c, th); dup {
		t.Error("unrelated titles must not be duplicates")
	}
}

func TestTitleHash_Stable(t *testing.T) {
	// WHAT: the hash ignores width, case and whitespace runs, and is hex.
	// WHY: it narrows fuzzy candidates; false negatives break that narrowing.
	h1 := TitleHash("New  Release:   v2.0")
	h2 := TitleHash("ｎｅｗ release: V2.0")
	if h1 != h2 {
		t.Errorf("hash not stable under folding: %q vs %q", h1, h2)
	}
	if h1 == "" || strings.TrimLeft(h1, "0123456789abcdef") != "" {
		t.Errorf("hash must be lowercase hex, got %q", h1)
	}
	if TitleHash("alpha") == TitleHash("beta") {
		t.Error("distinct titles should hash differently")
	}
}

func TestDetectCategory(t *testing.T) {
	// WHAT: category comes from the source id first, then the hostname.
	tests := []struct {
		sourceID string
		url      string
		want     string
	}{
		{"arxiv_cs", "https://arxiv.org/abs/2401.1", "arxiv"},
		{"hackernews", "https://news.ycombinator.com/item", "news"},
		{"techcrunch_ai", "https://techcrunch.com/x", "news"},
		{"zenn_trend", "https://zenn.dev/x", "blog"},
		{"qiita_daily", "https://qiita.com/x", "blog"},
		{"custom", "https://blog.example.com/x", "blog"},
		{"custom", "https://example.com/x", "default"},
		{"custom", "::bad::", "default"},
	}
	for _, tt := range tests {
		if got := DetectCategory(tt.sourceID, tt.url); got != tt.want {
			t.Errorf("DetectCategory(%q, %q) = %q, want %q", tt.sourceID, tt.url, got, tt.want)
		}
	}
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

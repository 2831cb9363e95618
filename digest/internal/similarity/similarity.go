// Package similarity implements the title comparison primitives used by the
// near-duplicate layers: mixed-language tokenisation, Jaccard overlap,
// length-normalised edit distance and a stable title hash.
//
// Titles are a mix of English words and Japanese text, so tokenisation
// extracts ASCII alphanumeric runs as words and character bigrams from the
// non-ASCII residue. All comparisons run on fold-normalised text
// (full-width folded to half-width, lowercased).
package similarity

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// Threshold holds the fuzzy-duplicate cut-offs for one source category.
type Threshold struct {
	JaccardGTE     float64 `yaml:"jaccard_gte" json:"jaccard_gte"`
	LevenshteinLTE float64 `yaml:"levenshtein_lte" json:"levenshtein_lte"`
}

// Layer2Threshold holds the Jaccard-only cut-offs for the same-session layer.
type Layer2Threshold struct {
	SameDomain  float64 `yaml:"same_domain" json:"same_domain"`
	CrossDomain float64 `yaml:"cross_domain" json:"cross_domain"`
}

// Fold folds full-width letters, digits and spaces to their half-width
// forms (and half-width kana to its canonical form) and lowercases the
// result.
func Fold(s string) string {
	return strings.ToLower(width.Fold.String(s))
}

// Tokenize splits a title into a token set: ASCII alphanumeric runs become
// word tokens; each contiguous non-ASCII run contributes its adjacent
// character bigrams (or the single character if the run has length 1).
func Tokenize(s string) map[string]struct{} {
	folded := Fold(s)
	tokens := make(map[string]struct{})

	var word []rune    // current ASCII alphanumeric run
	var residue []rune // current non-ASCII run

	flushWord := func() {
		if len(word) > 0 {
			tokens[string(word)] = struct{}{}
			word = word[:0]
		}
	}
	flushResidue := func() {
		if len(residue) == 1 {
			tokens[string(residue)] = struct{}{}
		}
		for i := 0; i+1 < len(residue); i++ {
			tokens[string(residue[i:i+2])] = struct{}{}
		}
		residue = residue[:0]
	}

	for _, r := range folded {
		switch {
		case isASCIIAlnum(r):
			flushResidue()
			word = append(word, r)
		case r < 128:
			// ASCII punctuation and whitespace separate runs.
			flushWord()
			flushResidue()
		default:
			flushWord()
			residue = append(residue, r)
		}
	}
	flushWord()
	flushResidue()
	return tokens
}

// Jaccard returns |A∩B| / |A∪B|. Two empty sets are identical (1);
// exactly one empty set shares nothing (0).
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// TitleJaccard is Jaccard over the token sets of two raw titles.
func TitleJaccard(a, b string) float64 {
	return Jaccard(Tokenize(a), Tokenize(b))
}

// NormalizedEditDistance returns the edit distance between the
// fold-normalised strings divided by the longer length. Two empty strings
// are at distance 0; exactly one empty string is at distance 1.
// Memory is O(min(|a|,|b|)).
func NormalizedEditDistance(a, b string) float64 {
	ra := []rune(Fold(a))
	rb := []rune(Fold(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 1
	}

	// Keep the row over the shorter string.
	if len(rb) > len(ra) {
		ra, rb = rb, ra
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}

	longer := len(ra) // ra is the longer after the swap
	return float64(prev[len(rb)]) / float64(longer)
}

// IsFuzzyDuplicate applies the fuzzy rule: duplicates iff the Jaccard
// overlap reaches th.JaccardGTE or the normalised edit distance stays
// within th.LevenshteinLTE. Both measures are returned for diagnostics.
func IsFuzzyDuplicate(a, b string, th Threshold) (dup bool, jaccard, edit float64) {
	jaccard = TitleJaccard(a, b)
	edit = NormalizedEditDistance(a, b)
	return jaccard >= th.JaccardGTE || edit <= th.LevenshteinLTE, jaccard, edit
}

// TitleHash returns the djb2 hash of the fold-normalised,
// whitespace-collapsed title in base-16. It only narrows candidate sets;
// it is never a duplicate signal on its own.
func TitleHash(title string) string {
	collapsed := strings.Join(strings.Fields(Fold(title)), " ")
	var h int32 = 5381
	for _, r := range collapsed {
		h = h<<5 + h + int32(r)
	}
	if h < 0 {
		// Base-16 of the absolute value keeps the historical format.
		return strconv.FormatInt(-int64(h), 16)
	}
	return strconv.FormatInt(int64(h), 16)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

package queries

import "strings"

// SynonymIndex maps terms to their canonical tag, case-insensitively.
// Both the canonical tag itself and every synonym resolve to the same
// canonical form, so "K8s", "kubernetes" and "クバネテス" can be treated
// as one tag during corpus matching.
type SynonymIndex struct {
	canonical map[string]string   // lowercased term -> canonical tag
	expansion map[string][]string // canonical tag -> all terms (canonical first)
}

// NewSynonymIndex builds the reverse index from a canonical-tag ->
// synonyms map, as loaded from the tag-synonyms config file.
func NewSynonymIndex(tags map[string][]string) *SynonymIndex {
	idx := &SynonymIndex{
		canonical: make(map[string]string),
		expansion: make(map[string][]string),
	}
	for tag, synonyms := range tags {
		key := strings.ToLower(tag)
		idx.canonical[key] = tag
		terms := []string{strings.ToLower(tag)}
		for _, s := range synonyms {
			ls := strings.ToLower(s)
			idx.canonical[ls] = tag
			terms = append(terms, ls)
		}
		idx.expansion[key] = terms
	}
	return idx
}

// Canonical resolves a term to its canonical tag, or returns the term
// itself when it is not indexed.
func (idx *SynonymIndex) Canonical(term string) string {
	if idx == nil {
		return term
	}
	if tag, ok := idx.canonical[strings.ToLower(term)]; ok {
		return tag
	}
	return term
}

// Expand returns every known spelling of a term: the term itself plus,
// when the term resolves to an indexed tag, the tag and all synonyms.
// All lowercase.
func (idx *SynonymIndex) Expand(term string) []string {
	lt := strings.ToLower(term)
	if idx == nil {
		return []string{lt}
	}
	tag, ok := idx.canonical[lt]
	if !ok {
		return []string{lt}
	}
	terms := idx.expansion[strings.ToLower(tag)]
	out := make([]string, 0, len(terms)+1)
	seen := map[string]bool{}
	for _, t := range append([]string{lt}, terms...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

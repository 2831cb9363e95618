package queries

import (
	"strings"
	"testing"
)

func TestSynonymIndex_CaseInsensitive(t *testing.T) {
	// WHAT: canonical tags and synonyms resolve regardless of case.
	idx := NewSynonymIndex(map[string][]string{
		"Kubernetes": {"K8s", "クバネテス"},
		"LLM":        {"large language model"},
	})

	if got := idx.Canonical("k8s"); got != "Kubernetes" {
		t.Errorf("Canonical(k8s) = %q", got)
	}
	if got := idx.Canonical("KUBERNETES"); got != "Kubernetes" {
		t.Errorf("Canonical(KUBERNETES) = %q", got)
	}
	if got := idx.Canonical("rust"); got != "rust" {
		t.Errorf("unindexed term must pass through, got %q", got)
	}

	terms := idx.Expand("K8s")
	joined := strings.Join(terms, ",")
	for _, want := range []string{"k8s", "kubernetes", "クバネテス"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expand(K8s) missing %q: %v", want, terms)
		}
	}
}

func testGroups() []Group {
	return []Group{
		{ID: "llm", Name: "LLMs", Keywords: []string{"LLM", "GPT"}, Weight: 1.0},
		{ID: "infra", Name: "Infra", Keywords: []string{"Kubernetes"}, Weight: 1.0},
	}
}

func TestGenerate_RecencyBoostsHotGroups(t *testing.T) {
	// WHAT: the group whose keywords dominate the recent corpus ends up
	// with the heavier queries.
	idx := NewSynonymIndex(map[string][]string{"Kubernetes": {"k8s"}})
	opts := DefaultOptions()
	opts.Combined = false
	opts.TopN = 0
	g := NewGenerator(testGroups(), idx, opts)

	recent := []string{
		"GPT-5 rumours swirl", "New LLM benchmark", "LLM agents in production",
	}
	qs := g.Generate(recent, recent)

	byGroup := map[string]float64{}
	for _, q := range qs {
		byGroup[q.GroupID] = q.Weight
	}
	if byGroup["llm"] <= byGroup["infra"] {
		t.Errorf("llm weight %v should exceed infra %v", byGroup["llm"], byGroup["infra"])
	}
	// Full band: matched group gets 1.5*1.2, unmatched 0.5*0.8.
	if w := byGroup["llm"]; w < 1.79 || w > 1.81 {
		t.Errorf("llm weight = %v, want 1.8", w)
	}
	if w := byGroup["infra"]; w < 0.39 || w > 0.41 {
		t.Errorf("infra weight = %v, want 0.4", w)
	}
}

func TestGenerate_SynonymsCountAsMatches(t *testing.T) {
	// WHAT: a title saying "k8s" counts for the "Kubernetes" keyword.
	idx := NewSynonymIndex(map[string][]string{"Kubernetes": {"k8s"}})
	opts := DefaultOptions()
	opts.Combined = false
	opts.TopN = 0
	g := NewGenerator(testGroups(), idx, opts)

	qs := g.Generate([]string{"Why we left k8s"}, []string{"Why we left k8s"})
	var infra float64
	for _, q := range qs {
		if q.GroupID == "infra" {
			infra = q.Weight
		}
	}
	if infra < 1.79 || infra > 1.81 {
		t.Errorf("infra weight = %v, want full boost 1.8", infra)
	}
}

func TestGenerate_CombinedQueries(t *testing.T) {
	// WHAT: pairwise combinations within a group carry a 0.9 discount
	// and respect the per-group cap.
	idx := NewSynonymIndex(nil)
	opts := DefaultOptions()
	opts.MaxCombinations = 1
	opts.TopN = 0
	groups := []Group{{ID: "g", Keywords: []string{"a", "b", "c"}, Weight: 1.0}}
	g := NewGenerator(groups, idx, opts)

	qs := g.Generate(nil, nil)
	var singles, combos int
	for _, q := range qs {
		if q.Combined {
			combos++
			if q.Text != "a b" {
				t.Errorf("combined text = %q, want first pair", q.Text)
			}
			want := qs[0].Weight * combinedDiscount
			if q.Weight < want-1e-9 || q.Weight > want+1e-9 {
				t.Errorf("combined weight = %v, want %v", q.Weight, want)
			}
		} else {
			singles++
		}
	}
	if singles != 3 || combos != 1 {
		t.Errorf("singles=%d combos=%d, want 3/1", singles, combos)
	}
}

func TestGenerate_TopNTruncation(t *testing.T) {
	// WHAT: selection keeps only the N heaviest queries.
	idx := NewSynonymIndex(nil)
	opts := DefaultOptions()
	opts.Combined = false
	opts.TopN = 2
	groups := []Group{
		{ID: "heavy", Keywords: []string{"x", "y"}, Weight: 2.0},
		{ID: "light", Keywords: []string{"z"}, Weight: 0.1},
	}
	g := NewGenerator(groups, idx, opts)

	qs := g.Generate(nil, nil)
	if len(qs) != 2 {
		t.Fatalf("got %d queries, want 2", len(qs))
	}
	for _, q := range qs {
		if q.GroupID != "heavy" {
			t.Errorf("light group survived truncation: %+v", q)
		}
	}
}

func TestAllocate_OnePerGroup(t *testing.T) {
	// WHAT: per-source allocation takes at most one query per group.
	sorted := []Query{
		{Text: "a", GroupID: "g1", Weight: 3},
		{Text: "b", GroupID: "g1", Weight: 2.5},
		{Text: "c", GroupID: "g2", Weight: 2},
		{Text: "d", GroupID: "g3", Weight: 1},
	}
	got := Allocate(sorted, 3)
	if len(got) != 3 {
		t.Fatalf("got %d queries: %v", len(got), got)
	}
	if got[0].Text != "a" || got[1].Text != "c" || got[2].Text != "d" {
		t.Errorf("allocation order wrong: %v", got)
	}

	if got := Allocate(sorted, 1); len(got) != 1 || got[0].Text != "a" {
		t.Errorf("maxPerSource=1: %v", got)
	}
	if got := Allocate(sorted, 0); got != nil {
		t.Errorf("maxPerSource=0 should allocate nothing: %v", got)
	}
}

func TestGenerate_EmptyCorpora(t *testing.T) {
	// WHAT: with no corpus data every group lands at the bottom of both
	// bands; queries still come out, just uniformly weighted.
	idx := NewSynonymIndex(nil)
	opts := DefaultOptions()
	opts.Combined = false
	opts.TopN = 0
	g := NewGenerator(testGroups(), idx, opts)

	qs := g.Generate(nil, nil)
	if len(qs) != 3 {
		t.Fatalf("got %d queries, want 3", len(qs))
	}
	for _, q := range qs {
		if q.Weight < 0.39 || q.Weight > 0.41 {
			t.Errorf("weight = %v, want 0.4 for all", q.Weight)
		}
	}
}

// Package queries turns query-group configuration into a ranked,
// weighted set of search queries. Group weights are adjusted by how
// often each group's keywords appeared in recent titles (recency) and
// in the all-time corpus (frequency), both mapped into configurable
// bands around 1.0.
package queries

import (
	"sort"
	"strings"

	"github.com/nori0724/techdigest/digest/internal/similarity"
)

// Group is one configured query group.
type Group struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Weight   float64  `yaml:"weight"`
}

// Query is a single weighted search query derived from a group.
type Query struct {
	Text    string
	GroupID string
	Weight  float64
	// Combined marks pairwise keyword combinations, which carry a
	// slightly discounted weight.
	Combined bool
}

// Band linearly maps a ratio in [0,1] onto [Low, High].
type Band struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

func (b Band) factor(ratio float64) float64 {
	return b.Low + ratio*(b.High-b.Low)
}

// Options controls scoring, emission and selection.
type Options struct {
	RecencyBand     Band
	FrequencyBand   Band
	Combined        bool
	MaxCombinations int
	TopN            int
	MaxPerSource    int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		RecencyBand:     Band{Low: 0.5, High: 1.5},
		FrequencyBand:   Band{Low: 0.8, High: 1.2},
		Combined:        true,
		MaxCombinations: 3,
		TopN:            10,
		MaxPerSource:    3,
	}
}

const combinedDiscount = 0.9

// Generator scores groups against title corpora and emits queries.
type Generator struct {
	groups []Group
	syn    *SynonymIndex
	opts   Options
}

func NewGenerator(groups []Group, syn *SynonymIndex, opts Options) *Generator {
	return &Generator{groups: groups, syn: syn, opts: opts}
}

// Generate scores every group against the corpora and emits one query
// per keyword plus, when enabled, pairwise combinations. The result is
// sorted by weight descending and truncated to TopN.
func (g *Generator) Generate(recentTitles, allTitles []string) []Query {
	recent := foldTitles(recentTitles)
	all := foldTitles(allTitles)

	recentMatches := make([]int, len(g.groups))
	allMatches := make([]int, len(g.groups))
	var maxRecent, maxAll int
	for i, grp := range g.groups {
		recentMatches[i] = g.countMatches(grp, recent)
		allMatches[i] = g.countMatches(grp, all)
		maxRecent = max(maxRecent, recentMatches[i])
		maxAll = max(maxAll, allMatches[i])
	}

	var out []Query
	for i, grp := range g.groups {
		w := grp.Weight
		w *= g.opts.RecencyBand.factor(ratio(recentMatches[i], maxRecent))
		w *= g.opts.FrequencyBand.factor(ratio(allMatches[i], maxAll))
		out = append(out, g.emit(grp, w)...)
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Weight > out[b].Weight })
	if g.opts.TopN > 0 && len(out) > g.opts.TopN {
		out = out[:g.opts.TopN]
	}
	return out
}

// emit produces per-keyword queries at the group's final weight and,
// when combined queries are on, pairwise keyword combinations at a 0.9
// discount, capped at MaxCombinations per group.
func (g *Generator) emit(grp Group, finalWeight float64) []Query {
	queries := make([]Query, 0, len(grp.Keywords))
	for _, kw := range grp.Keywords {
		queries = append(queries, Query{Text: kw, GroupID: grp.ID, Weight: finalWeight})
	}
	if !g.opts.Combined || g.opts.MaxCombinations <= 0 {
		return queries
	}
	combos := 0
	for i := 0; i < len(grp.Keywords) && combos < g.opts.MaxCombinations; i++ {
		for j := i + 1; j < len(grp.Keywords) && combos < g.opts.MaxCombinations; j++ {
			queries = append(queries, Query{
				Text:     grp.Keywords[i] + " " + grp.Keywords[j],
				GroupID:  grp.ID,
				Weight:   finalWeight * combinedDiscount,
				Combined: true,
			})
			combos++
		}
	}
	return queries
}

// countMatches counts corpus titles containing any spelling of any of
// the group's keywords.
func (g *Generator) countMatches(grp Group, titles []string) int {
	terms := make([]string, 0, len(grp.Keywords))
	for _, kw := range grp.Keywords {
		for _, t := range g.syn.Expand(kw) {
			terms = append(terms, similarity.Fold(t))
		}
	}
	count := 0
	for _, title := range titles {
		for _, term := range terms {
			if strings.Contains(title, term) {
				count++
				break
			}
		}
	}
	return count
}

// Allocate walks the already-sorted query list and picks at most
// maxPerSource queries, with at most one query per group so a single
// hot group cannot monopolise a source's budget.
func Allocate(sorted []Query, maxPerSource int) []Query {
	if maxPerSource <= 0 {
		return nil
	}
	picked := make([]Query, 0, maxPerSource)
	usedGroups := map[string]bool{}
	for _, q := range sorted {
		if usedGroups[q.GroupID] {
			continue
		}
		usedGroups[q.GroupID] = true
		picked = append(picked, q)
		if len(picked) == maxPerSource {
			break
		}
	}
	return picked
}

// Keywords returns the query texts, for joining into a search string.
func Keywords(qs []Query) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Text
	}
	return out
}

func foldTitles(titles []string) []string {
	out := make([]string, len(titles))
	for i, t := range titles {
		out[i] = similarity.Fold(t)
	}
	return out
}

func ratio(n, max int) float64 {
	if max == 0 {
		return 0
	}
	return float64(n) / float64(max)
}

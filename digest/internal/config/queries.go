package config

import (
	"github.com/nori0724/techdigest/digest/internal/queries"
)

// QueriesFile is queries.yaml.
type QueriesFile struct {
	QueryGroups     []queries.Group `yaml:"queryGroups"`
	CombinedQueries struct {
		Enabled         bool `yaml:"enabled"`
		MaxCombinations int  `yaml:"maxCombinations"`
	} `yaml:"combinedQueries"`
	DateRestriction struct {
		Enabled    bool `yaml:"enabled"`
		WithinDays int  `yaml:"withinDays"`
	} `yaml:"dateRestriction"`
	Selection struct {
		TopN         int `yaml:"topN"`
		MaxPerSource int `yaml:"maxPerSource"`
	} `yaml:"selection"`
	Scoring struct {
		RecencyBand   queries.Band `yaml:"recencyBand"`
		FrequencyBand queries.Band `yaml:"frequencyBand"`
	} `yaml:"scoring"`
}

// LoadQueries reads queries.yaml.
func LoadQueries(path string) (*QueriesFile, error) {
	var f QueriesFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	f.applyDefaults()
	return &f, nil
}

func (f *QueriesFile) applyDefaults() {
	def := queries.DefaultOptions()
	if f.CombinedQueries.MaxCombinations <= 0 {
		f.CombinedQueries.MaxCombinations = def.MaxCombinations
	}
	if f.DateRestriction.WithinDays <= 0 {
		f.DateRestriction.WithinDays = 7
	}
	if f.Selection.TopN <= 0 {
		f.Selection.TopN = def.TopN
	}
	if f.Selection.MaxPerSource <= 0 {
		f.Selection.MaxPerSource = def.MaxPerSource
	}
	if f.Scoring.RecencyBand == (queries.Band{}) {
		f.Scoring.RecencyBand = def.RecencyBand
	}
	if f.Scoring.FrequencyBand == (queries.Band{}) {
		f.Scoring.FrequencyBand = def.FrequencyBand
	}
	for i := range f.QueryGroups {
		if f.QueryGroups[i].Weight == 0 {
			f.QueryGroups[i].Weight = 1.0
		}
	}
}

// Options maps the file onto generator options.
func (f *QueriesFile) Options() queries.Options {
	return queries.Options{
		RecencyBand:     f.Scoring.RecencyBand,
		FrequencyBand:   f.Scoring.FrequencyBand,
		Combined:        f.CombinedQueries.Enabled,
		MaxCombinations: f.CombinedQueries.MaxCombinations,
		TopN:            f.Selection.TopN,
		MaxPerSource:    f.Selection.MaxPerSource,
	}
}

// WithinDays returns the date restriction in days, or 0 when disabled.
func (f *QueriesFile) WithinDays() int {
	if !f.DateRestriction.Enabled {
		return 0
	}
	return f.DateRestriction.WithinDays
}

// LoadSynonyms reads tag-synonyms.yaml: canonical tag -> synonyms.
func LoadSynonyms(path string) (map[string][]string, error) {
	var tags map[string][]string
	if err := readYAML(path, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

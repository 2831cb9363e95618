package config

import (
	"fmt"
	"time"

	"github.com/nori0724/techdigest/digest/internal/fetch"
)

// Source describes one configured news source.
type Source struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Tier    int    `yaml:"tier"`
	Enabled bool   `yaml:"enabled"`

	// CollectMethod is DirectFetch or Search.
	CollectMethod fetch.Method `yaml:"collectMethod"`
	// URL is set for DirectFetch sources.
	URL string `yaml:"url,omitempty"`
	// Query and Accounts are set for Search sources; Accounts marks a
	// Twitter-like source whose query is built from account handles.
	Query    string   `yaml:"query,omitempty"`
	Accounts []string `yaml:"accounts,omitempty"`

	// DateMethod is html_meta, html_parse, url_parse, search_result or api.
	DateMethod   string `yaml:"dateMethod,omitempty"`
	DateSelector string `yaml:"dateSelector,omitempty"`
	// DatePattern overrides the built-in URL date patterns for
	// dateMethod=url_parse sources.
	DatePattern string `yaml:"datePattern,omitempty"`

	MaxArticles int `yaml:"maxArticles,omitempty"`
}

// IsTwitter reports whether the source collects via account handles.
func (s *Source) IsTwitter() bool {
	return s.CollectMethod == fetch.MethodSearch && len(s.Accounts) > 0
}

// SourceLimits are per-source rate-control overrides. Millisecond
// fields mirror the config file; zero means "use the default".
type SourceLimits struct {
	TimeoutMs       int  `yaml:"timeoutMs,omitempty"`
	RetryIntervalMs int  `yaml:"retryIntervalMs,omitempty"`
	MaxRetries      *int `yaml:"maxRetries,omitempty"`
}

// RateControl holds global fetch limits with per-source overrides.
type RateControl struct {
	MaxConcurrency         int                     `yaml:"maxConcurrency"`
	DefaultTimeoutMs       int                     `yaml:"defaultTimeoutMs"`
	DefaultRetryIntervalMs int                     `yaml:"defaultRetryIntervalMs"`
	DefaultMaxRetries      int                     `yaml:"defaultMaxRetries"`
	PerSource              map[string]SourceLimits `yaml:"perSource,omitempty"`
}

// LimitsFor resolves the effective limits for one source.
func (rc *RateControl) LimitsFor(sourceID string) fetch.Limits {
	lim := fetch.Limits{
		Timeout:       time.Duration(rc.DefaultTimeoutMs) * time.Millisecond,
		RetryInterval: time.Duration(rc.DefaultRetryIntervalMs) * time.Millisecond,
		MaxRetries:    rc.DefaultMaxRetries,
	}
	over, ok := rc.PerSource[sourceID]
	if !ok {
		return lim
	}
	if over.TimeoutMs > 0 {
		lim.Timeout = time.Duration(over.TimeoutMs) * time.Millisecond
	}
	if over.RetryIntervalMs > 0 {
		lim.RetryInterval = time.Duration(over.RetryIntervalMs) * time.Millisecond
	}
	if over.MaxRetries != nil {
		lim.MaxRetries = *over.MaxRetries
	}
	return lim
}

// SourcesFile is sources.yaml.
type SourcesFile struct {
	Sources     []Source    `yaml:"sources"`
	RateControl RateControl `yaml:"rateControl"`
}

// LoadSources reads and validates sources.yaml.
func LoadSources(path string) (*SourcesFile, error) {
	var f SourcesFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	f.applyDefaults()
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &f, nil
}

func (f *SourcesFile) applyDefaults() {
	if f.RateControl.MaxConcurrency <= 0 {
		f.RateControl.MaxConcurrency = 3
	}
	if f.RateControl.DefaultTimeoutMs <= 0 {
		f.RateControl.DefaultTimeoutMs = 120_000
	}
	if f.RateControl.DefaultRetryIntervalMs <= 0 {
		f.RateControl.DefaultRetryIntervalMs = 5_000
	}
	for i := range f.Sources {
		s := &f.Sources[i]
		if s.Tier == 0 {
			s.Tier = 3
		}
		if s.CollectMethod == "" {
			s.CollectMethod = fetch.MethodDirectFetch
		}
		if s.MaxArticles <= 0 {
			s.MaxArticles = 10
		}
	}
}

func (f *SourcesFile) validate() error {
	seen := map[string]bool{}
	for _, s := range f.Sources {
		if s.ID == "" {
			return fmt.Errorf("source without id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Tier < 1 || s.Tier > 3 {
			return fmt.Errorf("source %s: tier %d out of range", s.ID, s.Tier)
		}
		switch s.CollectMethod {
		case fetch.MethodDirectFetch:
			if s.URL == "" {
				return fmt.Errorf("source %s: DirectFetch requires url", s.ID)
			}
		case fetch.MethodSearch:
			if s.Query == "" && len(s.Accounts) == 0 {
				return fmt.Errorf("source %s: Search requires query or accounts", s.ID)
			}
		default:
			return fmt.Errorf("source %s: unknown collectMethod %q", s.ID, s.CollectMethod)
		}
	}
	return nil
}

// Enabled returns the enabled sources, in file order.
func (f *SourcesFile) Enabled() []Source {
	var out []Source
	for _, s := range f.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// ByID returns the source with the given id, or nil.
func (f *SourcesFile) ByID(id string) *Source {
	for i := range f.Sources {
		if f.Sources[i].ID == id {
			return &f.Sources[i]
		}
	}
	return nil
}

// Disable flips enabled=false for the given source ids and reports how
// many entries changed.
func (f *SourcesFile) Disable(ids []string) int {
	disabled := 0
	for _, id := range ids {
		if s := f.ByID(id); s != nil && s.Enabled {
			s.Enabled = false
			disabled++
		}
	}
	return disabled
}

// Save writes the file back, preserving the auto-disable mutation for
// subsequent runs.
func (f *SourcesFile) Save(path string) error {
	return writeYAML(path, f)
}

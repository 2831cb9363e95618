// Package config loads the five YAML configuration files that drive a
// run: sources, queries, tag-synonyms, dedup-thresholds and app.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrMissingConfig marks a required configuration file that does not
// exist. The orchestrator treats it as fatal (exit 2).
var ErrMissingConfig = errors.New("config: missing file")

// File names expected inside the config directory.
const (
	SourcesFileName    = "sources.yaml"
	QueriesFileName    = "queries.yaml"
	SynonymsFileName   = "tag-synonyms.yaml"
	ThresholdsFileName = "dedup-thresholds.yaml"
	AppFileName        = "app.yaml"
)

// Config aggregates all five files.
type Config struct {
	Dir        string
	Sources    *SourcesFile
	Queries    *QueriesFile
	Synonyms   map[string][]string
	Thresholds *ThresholdsFile
	App        *AppFile
}

// Load reads every configuration file from dir. All five must exist.
func Load(dir string) (*Config, error) {
	cfg := &Config{Dir: dir}
	var err error
	if cfg.Sources, err = LoadSources(filepath.Join(dir, SourcesFileName)); err != nil {
		return nil, err
	}
	if cfg.Queries, err = LoadQueries(filepath.Join(dir, QueriesFileName)); err != nil {
		return nil, err
	}
	if cfg.Synonyms, err = LoadSynonyms(filepath.Join(dir, SynonymsFileName)); err != nil {
		return nil, err
	}
	if cfg.Thresholds, err = LoadThresholds(filepath.Join(dir, ThresholdsFileName)); err != nil {
		return nil, err
	}
	if cfg.App, err = LoadApp(filepath.Join(dir, AppFileName)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readYAML loads one file into out, mapping a missing file onto
// ErrMissingConfig.
func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// writeYAML marshals v and writes it atomically (tmp + rename), so a
// crash mid-write never leaves a truncated config behind.
func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("config: marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: rename %s: %w", path, err)
	}
	return nil
}

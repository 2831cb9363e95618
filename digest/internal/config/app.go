package config

import (
	"github.com/nori0724/techdigest/digest/internal/agent"
)

// AppFile is app.yaml: agent settings, URL normalisation, history
// store, output paths and logging.
type AppFile struct {
	Agent agent.Config `yaml:"agent"`

	URLNormalization struct {
		RemoveParams      []string `yaml:"removeParams,omitempty"`
		KeepTrailingSlash bool     `yaml:"keepTrailingSlash"`
	} `yaml:"urlNormalization"`

	History struct {
		Type          string `yaml:"type"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retentionDays"`
	} `yaml:"history"`

	Output struct {
		ReportsDir      string `yaml:"reportsDir"`
		LastSuccessPath string `yaml:"lastSuccessPath"`
	} `yaml:"output"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	// RepairEligible lists source ids allowed one strict-JSON repair
	// fetch after a parse failure.
	RepairEligible []string `yaml:"repairEligible,omitempty"`
}

// LoadApp reads app.yaml.
func LoadApp(path string) (*AppFile, error) {
	var f AppFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	f.applyDefaults()
	return &f, nil
}

func (f *AppFile) applyDefaults() {
	if f.History.Type == "" {
		f.History.Type = "sqlite"
	}
	if f.History.Path == "" {
		f.History.Path = "data/history.db"
	}
	if f.History.RetentionDays <= 0 {
		f.History.RetentionDays = 90
	}
	if f.Output.ReportsDir == "" {
		f.Output.ReportsDir = "reports"
	}
	if f.Output.LastSuccessPath == "" {
		f.Output.LastSuccessPath = "data/last_success.json"
	}
	if f.Logging.Level == "" {
		f.Logging.Level = "info"
	}
}

// IsRepairEligible reports whether a source may trigger the one-shot
// strict-JSON repair fetch.
func (f *AppFile) IsRepairEligible(sourceID string) bool {
	for _, id := range f.RepairEligible {
		if id == sourceID {
			return true
		}
	}
	return false
}

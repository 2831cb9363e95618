package config

import (
	"github.com/nori0724/techdigest/digest/internal/similarity"
)

// ThresholdsFile is dedup-thresholds.yaml.
type ThresholdsFile struct {
	// Thresholds keys are dedup categories (arxiv, news, blog, default).
	Thresholds map[string]similarity.Threshold `yaml:"thresholds"`
	// Layer2Fallback keys are source ids, plus a "default" entry.
	Layer2Fallback map[string]similarity.Layer2Threshold `yaml:"layer2_fallback"`
}

// LoadThresholds reads dedup-thresholds.yaml.
func LoadThresholds(path string) (*ThresholdsFile, error) {
	var f ThresholdsFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	f.applyDefaults()
	return &f, nil
}

func (f *ThresholdsFile) applyDefaults() {
	if f.Thresholds == nil {
		f.Thresholds = map[string]similarity.Threshold{}
	}
	if _, ok := f.Thresholds["default"]; !ok {
		f.Thresholds["default"] = similarity.Threshold{JaccardGTE: 0.7, LevenshteinLTE: 0.3}
	}
	if f.Layer2Fallback == nil {
		f.Layer2Fallback = map[string]similarity.Layer2Threshold{}
	}
	if _, ok := f.Layer2Fallback["default"]; !ok {
		f.Layer2Fallback["default"] = similarity.Layer2Threshold{SameDomain: 0.6, CrossDomain: 0.8}
	}
}

// For returns the thresholds for a category, falling back to default.
func (f *ThresholdsFile) For(category string) similarity.Threshold {
	if th, ok := f.Thresholds[category]; ok {
		return th
	}
	return f.Thresholds["default"]
}

// Layer2For returns the Layer-2 Jaccard cut-offs for a source id,
// falling back to default.
func (f *ThresholdsFile) Layer2For(sourceID string) similarity.Layer2Threshold {
	if th, ok := f.Layer2Fallback[sourceID]; ok {
		return th
	}
	return f.Layer2Fallback["default"]
}

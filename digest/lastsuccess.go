package digest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// lastSuccessFile is the on-disk shape of last_success.json.
type lastSuccessFile struct {
	LastSuccessAt time.Time `json:"lastSuccessAt"`
}

// loadLastSuccess returns the previous successful run time, or nil on
// the very first run.
func loadLastSuccess(path string) (*time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("digest: read last success: %w", err)
	}
	var f lastSuccessFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("digest: parse last success: %w", err)
	}
	if f.LastSuccessAt.IsZero() {
		return nil, nil
	}
	ts := f.LastSuccessAt.UTC()
	return &ts, nil
}

// saveLastSuccess persists the timestamp atomically.
func saveLastSuccess(path string, ts time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("digest: mkdir for last success: %w", err)
	}
	data, err := json.Marshal(lastSuccessFile{LastSuccessAt: ts.UTC()})
	if err != nil {
		return fmt.Errorf("digest: marshal last success: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("digest: write last success: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("digest: rename last success: %w", err)
	}
	return nil
}

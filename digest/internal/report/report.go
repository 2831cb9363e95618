// Package report renders the daily Markdown report. Files are written
// atomically (write .tmp then rename) so a consumer watching the
// reports directory never reads a partial file.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nori0724/techdigest/digest/internal/collector"
	"github.com/nori0724/techdigest/digest/internal/dedup"
	"github.com/nori0724/techdigest/digest/internal/model"
)

// Input is everything the orchestrator hands to the renderer.
type Input struct {
	Date       time.Time
	Articles   []model.FilteredArticle
	Statuses   []collector.SourceStatus
	DedupStats *dedup.Stats
	// Simple suppresses the per-source grouping and emits a flat list.
	Simple bool
}

// Writer renders reports into a directory.
type Writer struct {
	dir string
}

// NewWriter targets the given reports directory, created on first
// write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write renders the report and returns its path. The filename carries
// the report date: daily_report_2024-01-15.md.
func (w *Writer) Write(in Input) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: mkdir %s: %w", w.dir, err)
	}

	target := filepath.Join(w.dir, "daily_report_"+in.Date.Format("2006-01-02")+".md")
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, []byte(Render(in)), 0o644); err != nil {
		return "", fmt.Errorf("report: write tmp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("report: rename: %w", err)
	}
	return target, nil
}

// Render produces the Markdown document.
func Render(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Tech Digest %s\n\n", in.Date.Format("2006-01-02"))

	if len(in.Articles) == 0 {
		b.WriteString("No fresh articles today.\n")
	} else if in.Simple {
		for _, a := range in.Articles {
			writeArticle(&b, a)
		}
	} else {
		for _, source := range sourceOrder(in.Articles) {
			fmt.Fprintf(&b, "## %s\n\n", source)
			for _, a := range in.Articles {
				if a.Source == source {
					writeArticle(&b, a)
				}
			}
		}
	}

	writeFooter(&b, in)
	return b.String()
}

func writeArticle(b *strings.Builder, a model.FilteredArticle) {
	fmt.Fprintf(b, "- [%s](%s)", a.Title, a.NormalizedURL)
	if a.ResolvedDate != nil {
		fmt.Fprintf(b, " (%s)", a.ResolvedDate.Format("2006-01-02"))
	}
	b.WriteString("\n")
	if a.Summary != "" {
		fmt.Fprintf(b, "  %s\n", a.Summary)
	}
}

// sourceOrder lists the sources in first-appearance order, which keeps
// the tier ordering the collector produced.
func sourceOrder(articles []model.FilteredArticle) []string {
	seen := map[string]bool{}
	var order []string
	for _, a := range articles {
		if !seen[a.Source] {
			seen[a.Source] = true
			order = append(order, a.Source)
		}
	}
	return order
}

func writeFooter(b *strings.Builder, in Input) {
	b.WriteString("\n---\n\n")
	if s := in.DedupStats; s != nil {
		fmt.Fprintf(b, "Collected %d, after dedup %d, fresh %d.\n",
			s.TotalInput, s.AfterSimilarityDedup, s.FreshCount)
	}
	if len(in.Statuses) == 0 {
		return
	}
	var failed []string
	for _, st := range in.Statuses {
		if st.Status != collector.StatusSuccess {
			failed = append(failed, fmt.Sprintf("%s (%s)", st.SourceID, st.Status))
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		fmt.Fprintf(b, "Degraded sources: %s.\n", strings.Join(failed, ", "))
	}
}

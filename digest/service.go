// Package digest is the pipeline orchestrator: it loads configuration,
// generates queries, collects articles tier by tier, auto-disables
// abort-heavy sources with an optional single re-run, deduplicates the
// batch and hands the survivors to the report renderer.
package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nori0724/techdigest/digest/internal/agent"
	"github.com/nori0724/techdigest/digest/internal/collector"
	"github.com/nori0724/techdigest/digest/internal/config"
	"github.com/nori0724/techdigest/digest/internal/dateparse"
	"github.com/nori0724/techdigest/digest/internal/dedup"
	"github.com/nori0724/techdigest/digest/internal/fetch"
	"github.com/nori0724/techdigest/digest/internal/history"
	"github.com/nori0724/techdigest/digest/internal/queries"
	"github.com/nori0724/techdigest/digest/internal/report"
	"github.com/nori0724/techdigest/digest/internal/urlnorm"
)

// Renderer receives the final batch. The default implementation writes
// the Markdown report; tests substitute their own.
type Renderer interface {
	Write(in report.Input) (string, error)
}

// Flags are the per-run behaviour switches the CLI exposes.
type Flags struct {
	DryRun        bool
	Simple        bool
	NoAutoDisable bool
	NoRerun       bool
	// Date overrides "today" when non-zero.
	Date time.Time
}

// Service runs the whole pipeline for one invocation.
type Service struct {
	configDir string
	logger    *slog.Logger
	runner    fetch.Runner
	renderer  Renderer
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRunner replaces the agent subprocess runner.
func WithRunner(r fetch.Runner) Option {
	return func(s *Service) { s.runner = r }
}

// WithRenderer replaces the Markdown report writer.
func WithRenderer(r Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithClock fixes the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over a configuration directory.
func New(configDir string, opts ...Option) *Service {
	s := &Service{
		configDir: configDir,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one full invocation. Per-source failures are absorbed
// into the report; the returned error is fatal (missing config,
// history store breakage) and maps onto exit code 2.
func (s *Service) Run(ctx context.Context, flags Flags) error {
	cfg, err := config.Load(s.configDir)
	if err != nil {
		return err
	}

	now := s.now()
	if !flags.Date.IsZero() {
		now = flags.Date.UTC()
	}

	store, err := history.Open(cfg.App.History.Path)
	if err != nil {
		return fmt.Errorf("digest: open history: %w", err)
	}
	defer store.Close()

	lastSuccess, err := loadLastSuccess(cfg.App.Output.LastSuccessPath)
	if err != nil {
		return err
	}

	col, err := s.buildCollector(ctx, cfg, store, now)
	if err != nil {
		return err
	}

	if flags.DryRun {
		for _, task := range col.Tasks() {
			s.logger.Info("digest: planned task",
				"source_id", task.Source.ID, "tier", task.Source.Tier,
				"method", string(task.Request.Method), "target", task.Request.Target)
		}
		return nil
	}

	result, err := col.Run(ctx)
	if err != nil {
		return fmt.Errorf("digest: collection: %w", err)
	}

	result, cfg, err = s.autoDisable(ctx, cfg, store, result, flags, now)
	if err != nil {
		return err
	}

	windowStart := dateparse.WindowStart(lastSuccess, now)
	ded := dedup.New(store, cfg.Thresholds, cfg.Sources, s.urlOptions(cfg), s.logger)
	articles, stats, err := ded.Run(ctx, result.Articles, windowStart)
	if err != nil {
		return err
	}
	s.logger.Info("digest: dedup complete",
		"input", stats.TotalInput, "kept", len(articles), "fresh", stats.FreshCount)

	renderer := s.renderer
	if renderer == nil {
		renderer = report.NewWriter(cfg.App.Output.ReportsDir)
	}
	path, err := renderer.Write(report.Input{
		Date:       now,
		Articles:   articles,
		Statuses:   result.Statuses,
		DedupStats: stats,
		Simple:     flags.Simple,
	})
	if err != nil {
		return fmt.Errorf("digest: render report: %w", err)
	}
	s.logger.Info("digest: report written", "path", path)

	if err := saveLastSuccess(cfg.App.Output.LastSuccessPath, now); err != nil {
		return err
	}

	horizon := now.AddDate(0, 0, -cfg.App.History.RetentionDays)
	removed, err := store.Cleanup(ctx, horizon)
	if err != nil {
		return fmt.Errorf("digest: history cleanup: %w", err)
	}
	if removed > 0 {
		s.logger.Info("digest: history purged", "removed", removed)
	}
	return nil
}

// buildCollector loads corpora, generates and allocates queries, and
// plans the tasks for the currently enabled sources.
func (s *Service) buildCollector(ctx context.Context, cfg *config.Config, store *history.Store, now time.Time) (*collector.Collector, error) {
	runner := s.runner
	if runner == nil {
		var err error
		runner, err = agent.NewCLIRunner(cfg.App.Agent, s.logger)
		if err != nil {
			return nil, err
		}
	}

	recent, err := titleCorpus(ctx, store, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	all, err := titleCorpus(ctx, store, now.AddDate(0, 0, -cfg.App.History.RetentionDays))
	if err != nil {
		return nil, err
	}

	gen := queries.NewGenerator(cfg.Queries.QueryGroups,
		queries.NewSynonymIndex(cfg.Synonyms), cfg.Queries.Options())
	sorted := gen.Generate(recent, all)

	enabled := cfg.Sources.Enabled()
	allocated := map[string][]queries.Query{}
	for _, src := range enabled {
		if src.CollectMethod == fetch.MethodSearch {
			allocated[src.ID] = queries.Allocate(sorted, cfg.Queries.Options().MaxPerSource)
		}
	}

	tasks := collector.BuildTasks(enabled, allocated, cfg.Queries.WithinDays())
	executor := fetch.NewExecutor(runner, s.logger)
	return collector.New(tasks, executor, &cfg.Sources.RateControl, cfg.App, s.logger), nil
}

// autoDisable persists enabled=false for abort-heavy sources and,
// unless re-running is off, reloads configuration and collects once
// more without them.
func (s *Service) autoDisable(ctx context.Context, cfg *config.Config, store *history.Store, result *collector.Result, flags Flags, now time.Time) (*collector.Result, *config.Config, error) {
	if flags.NoAutoDisable {
		return result, cfg, nil
	}
	heavy := result.AbortHeavySources()
	if len(heavy) == 0 {
		return result, cfg, nil
	}

	s.logger.Warn("digest: disabling abort-heavy sources", "sources", heavy)
	if cfg.Sources.Disable(heavy) > 0 {
		sourcesPath := filepath.Join(s.configDir, config.SourcesFileName)
		if err := cfg.Sources.Save(sourcesPath); err != nil {
			return nil, nil, err
		}
	}
	if flags.NoRerun {
		return result, cfg, nil
	}

	reloaded, err := config.Load(s.configDir)
	if err != nil {
		return nil, nil, err
	}
	col, err := s.buildCollector(ctx, reloaded, store, now)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("digest: re-running collection without disabled sources")
	rerun, err := col.Run(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("digest: re-run: %w", err)
	}
	return rerun, reloaded, nil
}

func (s *Service) urlOptions(cfg *config.Config) urlnorm.Options {
	return urlnorm.Options{
		RemoveParams:      cfg.App.URLNormalization.RemoveParams,
		KeepTrailingSlash: cfg.App.URLNormalization.KeepTrailingSlash,
	}
}

// titleCorpus pulls titles first seen since the cut-off.
func titleCorpus(ctx context.Context, store *history.Store, since time.Time) ([]string, error) {
	entries, err := store.FindByDateRange(ctx, since, nil)
	if err != nil {
		return nil, fmt.Errorf("digest: title corpus: %w", err)
	}
	titles := make([]string, len(entries))
	for i, e := range entries {
		titles[i] = e.Title
	}
	return titles, nil
}

// StatsJSON returns the history store statistics as indented JSON, for
// the -stats command.
func (s *Service) StatsJSON(ctx context.Context) ([]byte, error) {
	cfg, err := config.Load(s.configDir)
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg.App.History.Path)
	if err != nil {
		return nil, fmt.Errorf("digest: open history: %w", err)
	}
	defer store.Close()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(stats, "", "  ")
}

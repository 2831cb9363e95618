// Package collector orchestrates fetches across all enabled sources:
// tier 1 runs to completion before tier 2 starts, tasks within a tier
// fan out under a concurrency bound, and one source failing never
// cancels its siblings.
package collector

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nori0724/techdigest/digest/internal/config"
	"github.com/nori0724/techdigest/digest/internal/fetch"
	"github.com/nori0724/techdigest/digest/internal/model"
)

var abortMessages = []string{
	"aborted by user",
	"process aborted",
	"operation aborted",
}

func isAbortMessage(msg string) bool {
	m := strings.ToLower(msg)
	for _, a := range abortMessages {
		if strings.Contains(m, a) {
			return true
		}
	}
	return false
}

// Collector runs planned tasks through the fetch executor.
type Collector struct {
	tasks    []Task
	executor *fetch.Executor
	rate     *config.RateControl
	app      *config.AppFile
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a collector over the given tasks.
func New(tasks []Task, executor *fetch.Executor, rate *config.RateControl, app *config.AppFile, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		tasks:    tasks,
		executor: executor,
		rate:     rate,
		app:      app,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Tasks returns the planned tasks, for dry-run reporting.
func (c *Collector) Tasks() []Task { return c.tasks }

// taskOutcome is one task's settled result.
type taskOutcome struct {
	articles []model.RawArticle
	err      *fetch.Error
}

// Run executes all tasks tier by tier and returns the aggregated
// result. Per-source failures land in the result, not in the returned
// error; Run itself only fails on context cancellation.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	res := &Result{ByTier: map[int]*TierStats{}}

	for _, tier := range c.tiers() {
		tasks := c.tierTasks(tier)
		outcomes := make([]taskOutcome, len(tasks))

		var g errgroup.Group
		g.SetLimit(c.maxConcurrency())
		for i, task := range tasks {
			i, task := i, task
			g.Go(func() error {
				outcomes[i] = c.runTask(ctx, task)
				return nil
			})
		}
		_ = g.Wait()

		for i, task := range tasks {
			c.settle(res, task, outcomes[i])
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}
	return res, nil
}

// runTask fetches, extracts and normalises one source's articles,
// applying the strict-JSON repair path where eligible.
func (c *Collector) runTask(ctx context.Context, task Task) taskOutcome {
	log := c.logger.With("source_id", task.Source.ID, "tier", task.Source.Tier)
	lim := c.rate.LimitsFor(task.Source.ID)

	content, ferr := c.executor.Execute(ctx, task.Request, lim)
	if ferr != nil {
		return taskOutcome{err: ferr}
	}

	raw, err := extractArticles(content)
	if err != nil {
		raw, ferr = c.repair(ctx, task, lim, content)
		if ferr != nil {
			log.Warn("collector: parse failed", "error", ferr.Message)
			return taskOutcome{err: ferr}
		}
	}

	articles := normalizeArticles(raw, task.Source.ID, task.Source.MaxArticles, c.now())
	log.Info("collector: source done", "articles", len(articles))
	return taskOutcome{articles: articles}
}

// repair issues the one-shot strict-JSON fetch for eligible
// DirectFetch sources, or returns the parse error directly.
func (c *Collector) repair(ctx context.Context, task Task, lim fetch.Limits, content string) ([]articleJSON, *fetch.Error) {
	parseErr := &fetch.Error{
		Type:      fetch.ErrParse,
		SourceID:  task.Source.ID,
		Timestamp: c.now(),
		Message:   "no JSON articles found; preview: " + rawPreview(content),
	}
	if c.app == nil || !c.app.IsRepairEligible(task.Source.ID) ||
		task.Request.Method != fetch.MethodDirectFetch {
		return nil, parseErr
	}

	c.logger.Info("collector: attempting strict-JSON repair", "source_id", task.Source.ID)
	req := task.Request
	req.Prompt = repairPrompt + "\n\n" + content
	repaired, ferr := c.executor.Execute(ctx, req, lim)
	if ferr != nil {
		return nil, ferr
	}
	raw, err := extractArticles(repaired)
	if err != nil {
		parseErr.Message = "repair failed; preview: " + rawPreview(repaired)
		return nil, parseErr
	}
	return raw, nil
}

// settle folds one outcome into the result, deriving the per-source
// status.
func (c *Collector) settle(res *Result, task Task, out taskOutcome) {
	status := SourceStatus{
		SourceID:     task.Source.ID,
		Tier:         task.Source.Tier,
		ArticleCount: len(out.articles),
		Error:        out.err,
	}
	switch {
	case out.err == nil:
		status.Status = StatusSuccess
	case len(out.articles) > 0:
		status.Status = StatusPartial
	default:
		status.Status = StatusFailed
	}

	res.Articles = append(res.Articles, out.articles...)
	res.Statuses = append(res.Statuses, status)
	if out.err != nil {
		res.Errors = append(res.Errors, out.err)
	}

	ts := res.ByTier[task.Source.Tier]
	if ts == nil {
		ts = &TierStats{}
		res.ByTier[task.Source.Tier] = ts
	}
	ts.Sources++
	ts.Articles += len(out.articles)
	switch status.Status {
	case StatusSuccess:
		ts.Success++
	case StatusPartial:
		ts.Partial++
	default:
		ts.Failed++
	}
}

func (c *Collector) tiers() []int {
	seen := map[int]bool{}
	var tiers []int
	for _, t := range c.tasks {
		if !seen[t.Source.Tier] {
			seen[t.Source.Tier] = true
			tiers = append(tiers, t.Source.Tier)
		}
	}
	sort.Ints(tiers)
	return tiers
}

func (c *Collector) tierTasks(tier int) []Task {
	var out []Task
	for _, t := range c.tasks {
		if t.Source.Tier == tier {
			out = append(out, t)
		}
	}
	return out
}

func (c *Collector) maxConcurrency() int {
	if c.rate == nil || c.rate.MaxConcurrency <= 0 {
		return 1
	}
	return c.rate.MaxConcurrency
}

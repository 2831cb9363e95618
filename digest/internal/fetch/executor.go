// Package fetch wraps the LLM-fetch boundary with tier-based retry,
// per-attempt timeouts and error classification. The Runner interface
// is the contract the actual fetcher (an agent subprocess) satisfies.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Method selects how a source is collected.
type Method string

const (
	MethodDirectFetch Method = "DirectFetch"
	MethodSearch      Method = "Search"
)

// Runner is the abstracted fetcher. Both calls are idempotent and
// return free-form text that usually, but not always, contains JSON.
type Runner interface {
	ExecuteDirect(ctx context.Context, url, prompt string) (string, error)
	ExecuteSearch(ctx context.Context, query, prompt string) (string, error)
}

// Request describes one fetch against one source.
type Request struct {
	SourceID string
	Tier     int
	Method   Method
	// Target is the URL for DirectFetch or the query for Search.
	Target string
	Prompt string
}

// Limits are the effective rate-control values for one source.
type Limits struct {
	Timeout       time.Duration
	RetryInterval time.Duration
	MaxRetries    int
}

// TierRetryFloor is the minimum retry budget per tier. High-trust
// tier-1 sources always get at least three retries; tier-3 sources
// are best-effort and get none beyond their configured value.
func TierRetryFloor(tier int) int {
	switch tier {
	case 1:
		return 3
	case 2:
		return 1
	default:
		return 0
	}
}

// Executor runs requests through a Runner under the retry policy.
type Executor struct {
	runner Runner
	logger *slog.Logger
}

func NewExecutor(runner Runner, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{runner: runner, logger: logger}
}

// Execute performs the request with up to max(MaxRetries, tier floor)
// retries, a fixed RetryInterval between attempts and a per-attempt
// deadline of Timeout. On exhaustion it returns the classified error
// of the last attempt, carrying the retry count actually spent.
func (x *Executor) Execute(ctx context.Context, req Request, lim Limits) (string, *Error) {
	retries := max(lim.MaxRetries, TierRetryFloor(req.Tier))
	log := x.logger.With("source_id", req.SourceID, "method", string(req.Method))

	var lastMsg string
	attempt := 0
	for ; attempt <= retries; attempt++ {
		content, err := x.attempt(ctx, req, lim.Timeout)
		if err == nil {
			return content, nil
		}
		lastMsg = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			lastMsg = fmt.Sprintf("attempt timeout after %s", lim.Timeout)
		}
		log.Warn("fetch: attempt failed",
			"attempt", attempt, "retries", retries, "error", lastMsg)

		if ctx.Err() != nil || attempt == retries {
			break
		}
		if !sleepCtx(ctx, lim.RetryInterval) {
			break
		}
	}

	return "", &Error{
		Type:       Classify(lastMsg),
		SourceID:   req.SourceID,
		RetryCount: min(attempt, retries),
		Timestamp:  time.Now().UTC(),
		Message:    lastMsg,
	}
}

func (x *Executor) attempt(ctx context.Context, req Request, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	switch req.Method {
	case MethodSearch:
		return x.runner.ExecuteSearch(ctx, req.Target, req.Prompt)
	default:
		return x.runner.ExecuteDirect(ctx, req.Target, req.Prompt)
	}
}

// sleepCtx waits d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

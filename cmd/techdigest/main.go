// Command techdigest runs the daily technical-news pipeline: collect
// articles from the configured sources, deduplicate them against the
// batch and the history store, and write the Markdown report.
//
// Usage:
//
//	techdigest -config config                # full daily run
//	techdigest -config config -dry-run       # print planned tasks only
//	techdigest -config config -date 2024-01-15
//	techdigest -config config -stats         # history store statistics
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nori0724/techdigest/digest"
)

func main() {
	configDir := flag.String("config", "config", "configuration directory")
	dryRun := flag.Bool("dry-run", false, "plan fetch tasks without executing them")
	verbose := flag.Bool("verbose", false, "debug logging (same as -log-level debug)")
	simple := flag.Bool("simple", false, "flat report without per-source sections")
	dateStr := flag.String("date", "", "override today (YYYY-MM-DD)")
	noAutoDisable := flag.Bool("no-auto-disable", false, "keep abort-heavy sources enabled")
	noRerun := flag.Bool("no-rerun", false, "skip the re-run after auto-disable")
	stats := flag.Bool("stats", false, "print history store statistics and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := digest.New(*configDir, digest.WithLogger(logger))

	if *stats {
		data, err := svc.StatsJSON(ctx)
		if err != nil {
			logger.Error("techdigest: stats failed", "error", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
		return
	}

	flags := digest.Flags{
		DryRun:        *dryRun,
		Simple:        *simple,
		NoAutoDisable: *noAutoDisable,
		NoRerun:       *noRerun,
	}
	if *dateStr != "" {
		date, err := time.ParseInLocation("2006-01-02", *dateStr, time.UTC)
		if err != nil {
			logger.Error("techdigest: invalid -date", "value", *dateStr, "error", err)
			os.Exit(2)
		}
		flags.Date = date
	}

	if err := svc.Run(ctx, flags); err != nil {
		logger.Error("techdigest: fatal", "error", err)
		os.Exit(2)
	}
}

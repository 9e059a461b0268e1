package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/shiftbrief/internal/cache"
	"github.com/kalambet/shiftbrief/internal/config"
	"github.com/kalambet/shiftbrief/internal/scheduler"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Run the daily pre-meeting analysis batch",
	Long: `Run the daily analysis batch headlessly: regenerate the MES dataset if
configured, run every domain analysis, and persist the bundle to the
analysis cache. Intended for cron before the morning production meeting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaily()
	},
}

func runDaily() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	closeLog, err := setupDailyLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sched := scheduler.New(st.orchestrator, st.cache, scheduler.Config{
		DataGenCommand: strings.Fields(cfg.Scheduler.DataGenCommand),
		DataGenTimeout: cfg.Scheduler.DataGenTimeout(),
		MaxConcurrent:  cfg.Scheduler.MaxConcurrent,
		Freshness:      cfg.Cache.Freshness(),
	})

	if err := sched.RunDaily(ctx); err != nil {
		printError("daily analysis failed: %v", err)
		return err
	}
	printSuccess("Daily analysis complete")
	return nil
}

// setupDailyLogging tees structured logs to stderr and to a date-stamped
// file under the cache's logs directory, so unattended cron runs leave a
// record. The retention pass prunes old log files along with old bundles.
func setupDailyLogging(cfg config.Config) (func(), error) {
	logDir := cache.LogDir(cfg.Cache.Dir)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	logPath := filepath.Join(logDir,
		fmt.Sprintf("daily_analysis_%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(
		io.MultiWriter(os.Stderr, f), &slog.HandlerOptions{Level: logLevel})))

	return func() { f.Close() }, nil
}

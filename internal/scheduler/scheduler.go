// Package scheduler drives the daily pre-meeting analysis batch: optional
// synthetic data regeneration, a freshness gate over the cache, parallel
// domain analyses through the orchestrator, and persistence of the bundle.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/shiftbrief/internal/cache"
	"github.com/kalambet/shiftbrief/internal/orchestrator"
)

const (
	defaultDataGenTimeout = 300 * time.Second
	defaultMaxConcurrent  = 3
)

// analysisNames is the fixed batch, in the order sections appear in the
// morning review.
var analysisNames = []string{
	"executive_summary",
	"production_summary",
	"quality_insights",
	"equipment_status",
	"inventory_analysis",
}

var analysisQueries = map[string]string{
	"production_summary": "Analyze today's production performance: work order completion, output versus targets, and current bottlenecks.",
	"quality_insights":   "Summarize today's quality status: defect rates, dominant defect types, and rework or scrap trends.",
	"equipment_status":   "Report equipment status: OEE, downtime events, and upcoming maintenance needs.",
	"inventory_analysis": "Review inventory: stock levels, active shortages, and materials approaching reorder points.",
}

// Runner is the slice of the orchestrator the scheduler needs.
type Runner interface {
	Run(ctx context.Context, query string) *orchestrator.Result
	DailyBriefing(ctx context.Context, date string) *orchestrator.Result
}

// Config controls one daily run.
type Config struct {
	// DataGenCommand regenerates the MES dataset before analysis; empty
	// disables regeneration. The first element is the binary, the rest its
	// arguments.
	DataGenCommand []string
	DataGenTimeout time.Duration
	MaxConcurrent  int
	Freshness      time.Duration
}

// Scheduler runs the daily analysis batch.
type Scheduler struct {
	runner Runner
	cache  *cache.Manager
	cfg    Config
	now    func() time.Time
}

// New builds a scheduler. Zero config values fall back to the defaults.
func New(runner Runner, c *cache.Manager, cfg Config) *Scheduler {
	if cfg.DataGenTimeout <= 0 {
		cfg.DataGenTimeout = defaultDataGenTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = cache.DefaultFreshness
	}
	return &Scheduler{runner: runner, cache: c, cfg: cfg, now: time.Now}
}

// RunDaily executes the batch for today. A fresh cache entry short-circuits
// the whole run. Individual analysis failures are recorded in the entry
// rather than aborting the batch; RunDaily only errors when nothing at all
// could be produced or the result cannot be persisted.
func (s *Scheduler) RunDaily(ctx context.Context) error {
	start := s.now()
	date := start.Format("2006-01-02")

	s.regenerateData(ctx)

	if s.cache.IsFresh(s.cfg.Freshness) {
		slog.Info("daily analysis cache is fresh, skipping", "date", date)
		return nil
	}

	slog.Info("running daily analysis batch", "date", date, "analyses", len(analysisNames))

	results := make([]cache.Analysis, len(analysisNames))
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrent)
	for i, name := range analysisNames {
		g.Go(func() error {
			results[i] = s.runOne(ctx, name, date)
			return nil
		})
	}
	g.Wait()

	entry := cache.Entry{
		GeneratedAt:  start.Format(time.RFC3339),
		AnalysisDate: date,
		Analyses:     make(map[string]cache.Analysis, len(analysisNames)),
		CompletedAt:  s.now().Format(time.RFC3339),
	}
	failed := 0
	for i, name := range analysisNames {
		entry.Analyses[name] = results[i]
		entry.TotalExecutionTime += results[i].ExecutionTime
		if results[i].Error != "" {
			failed++
		}
	}

	if err := s.cache.Save(entry); err != nil {
		return fmt.Errorf("persist daily analysis: %w", err)
	}
	slog.Info("daily analysis batch complete",
		"date", date, "failed", failed, "duration", s.now().Sub(start))

	if failed == len(analysisNames) {
		return fmt.Errorf("all %d daily analyses failed for %s", failed, date)
	}
	return nil
}

// regenerateData runs the external dataset generator, if configured. Failure
// is logged and the batch continues against the existing data.
func (s *Scheduler) regenerateData(ctx context.Context) {
	if len(s.cfg.DataGenCommand) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DataGenTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.cfg.DataGenCommand[0], s.cfg.DataGenCommand[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		slog.Warn("data generation failed, continuing with existing data",
			"command", s.cfg.DataGenCommand[0], "error", err, "output", string(out))
		return
	}
	slog.Info("data generation complete", "command", s.cfg.DataGenCommand[0])
}

func (s *Scheduler) runOne(ctx context.Context, name, date string) cache.Analysis {
	branchStart := s.now()

	var res *orchestrator.Result
	if name == "executive_summary" {
		res = s.runner.DailyBriefing(ctx, date)
	} else {
		res = s.runner.Run(ctx, analysisQueries[name])
	}

	a := cache.Analysis{
		GeneratedAt:   s.now().Format(time.RFC3339),
		ExecutionTime: s.now().Sub(branchStart).Seconds(),
	}
	if res.Synthesis == "" {
		msg := "analysis produced no result"
		if res.ErrorAnalysis != nil {
			msg = res.ErrorAnalysis.UserMessage
		}
		a.Error = msg
		slog.Warn("daily analysis failed", "analysis", name, "error", msg)
		return a
	}

	a.Analysis = res.Synthesis
	a.CapabilitiesUsed = capabilitiesUsed(res)
	return a
}

func capabilitiesUsed(res *orchestrator.Result) []string {
	var used []string
	for _, d := range res.Domains {
		if d.Success {
			used = append(used, string(d.Domain))
		}
	}
	return used
}

// Package orchestrator coordinates meeting query handling: classification,
// bounded concurrent fan-out to the domain analysis capabilities, synthesis of
// whatever came back, and conversion of total failure into recovery guidance.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/shiftbrief/internal/capability"
	"github.com/kalambet/shiftbrief/internal/classify"
	"github.com/kalambet/shiftbrief/internal/meeting"
	"github.com/kalambet/shiftbrief/internal/recovery"
)

const (
	minConcurrent     = 3
	maxConcurrent     = 5
	defaultConcurrent = 3
)

// Config controls orchestration behavior.
type Config struct {
	MaxConcurrent  int
	DefaultTimeout time.Duration
	QuickTimeout   time.Duration
	EnabledDomains []meeting.Domain
}

// SessionContext tracks the running meeting session.
type SessionContext struct {
	LastQuery     string    `json:"last_query,omitempty"`
	LastQueryTime time.Time `json:"last_query_time,omitempty"`
	QueryCount    int       `json:"query_count"`
}

// AgentStatus is the externally visible orchestrator state.
type AgentStatus struct {
	Initialized    bool                    `json:"initialized"`
	DomainsEnabled map[meeting.Domain]bool `json:"domains_enabled"`
	Session        SessionContext          `json:"session_context"`
	MeetingContext meeting.Context         `json:"meeting_context"`
	ErrorStats     map[string]int          `json:"error_stats"`
}

// DomainResult is the immutable outcome of one domain's analysis branch.
type DomainResult struct {
	Domain        meeting.Domain         `json:"domain"`
	Success       bool                   `json:"success"`
	Text          string                 `json:"analysis,omitempty"`
	ExecutionTime time.Duration          `json:"execution_time"`
	Err           *recovery.ErrorContext `json:"error,omitempty"`
	Partial       map[string]any         `json:"partial,omitempty"`
}

// Result is one full orchestration outcome. Synthesis is set when at least
// one domain succeeded; ErrorAnalysis when every branch failed.
type Result struct {
	ID             string                  `json:"id"`
	Query          string                  `json:"query"`
	Classification classify.Classification `json:"classification"`
	Domains        []DomainResult          `json:"domain_results"`
	Synthesis      string                  `json:"synthesis,omitempty"`
	ErrorAnalysis  *recovery.Analysis      `json:"error_analysis,omitempty"`
	Partial        *recovery.Presented     `json:"partial_results,omitempty"`
	ExecutionTime  time.Duration           `json:"execution_time"`
	Timestamp      time.Time               `json:"timestamp"`
}

// Orchestrator owns the meeting session state and the dispatch machinery.
// All mutable state sits behind one mutex; the fan-out itself is lock-free
// because workers write only their own result slot.
type Orchestrator struct {
	analyzer  capability.Analyzer
	timeouts  *recovery.TimeoutHandler
	errors    recovery.Analyzer
	presenter recovery.Presenter

	concurrency int

	mu        sync.Mutex
	mc        meeting.Context
	session   SessionContext
	enabled   map[meeting.Domain]bool
	errStats  map[string]int
}

// New builds an orchestrator. Concurrency is clamped to the supported range;
// an empty EnabledDomains enables everything.
func New(analyzer capability.Analyzer, cfg Config) *Orchestrator {
	concurrency := cfg.MaxConcurrent
	if concurrency == 0 {
		concurrency = defaultConcurrent
	}
	if concurrency < minConcurrent {
		concurrency = minConcurrent
	}
	if concurrency > maxConcurrent {
		concurrency = maxConcurrent
	}

	enabled := make(map[meeting.Domain]bool, 4)
	if len(cfg.EnabledDomains) == 0 {
		for _, d := range meeting.AllDomains() {
			enabled[d] = true
		}
	} else {
		for _, d := range cfg.EnabledDomains {
			if d.Valid() {
				enabled[d] = true
			}
		}
	}

	return &Orchestrator{
		analyzer:    analyzer,
		timeouts:    recovery.NewTimeoutHandler(cfg.DefaultTimeout, cfg.QuickTimeout),
		concurrency: concurrency,
		mc:          meeting.NewContext(),
		enabled:     enabled,
		errStats:    make(map[string]int),
	}
}

// Run classifies and answers one meeting query. It always returns a usable
// Result: partial domain failures degrade to a report over the survivors, and
// total failure degrades to an error analysis.
func (o *Orchestrator) Run(ctx context.Context, query string) *Result {
	start := time.Now()
	c := classify.Classify(query)

	o.mu.Lock()
	o.mc.UpdateFromQuery(query)
	o.session.LastQuery = query
	o.session.LastQueryTime = time.Now()
	o.session.QueryCount++
	mc := o.mc
	o.mu.Unlock()

	domains := o.enabledDomains(c.Domains)
	slog.Info("orchestrating query",
		"type", c.Type, "domains", len(domains), "priority", c.Priority)

	coordinated := c.RequiresAll || c.RequiresCoordination
	results := o.dispatch(ctx, domains, query, mc, coordinated)

	res := &Result{
		ID:             uuid.NewString(),
		Query:          query,
		Classification: c,
		Domains:        results,
		Timestamp:      time.Now(),
	}

	succeeded := 0
	var firstErr *recovery.ErrorContext
	var firstPartial map[string]any
	for i := range results {
		switch {
		case results[i].Success:
			succeeded++
		case results[i].Err != nil:
			o.recordError(*results[i].Err)
			if firstErr == nil {
				firstErr = results[i].Err
			}
		case results[i].Partial != nil:
			if firstPartial == nil {
				firstPartial = results[i].Partial
			}
		}
	}

	if succeeded > 0 {
		res.Synthesis = synthesize(c, query, mc, results)
	} else {
		ec := firstErr
		if ec == nil {
			// Every branch timed out; synthesize an error context from that.
			ec = &recovery.ErrorContext{
				Query:          query,
				ErrorMessage:   "analysis timed out for every domain",
				ErrorType:      "timeout",
				Timestamp:      time.Now(),
				MeetingType:    mc.Type,
				MeetingPhase:   mc.Phase,
				TimeRemaining:  mc.TimeRemaining,
				PartialResults: firstPartial,
			}
			o.recordError(*ec)
		}
		analysis := o.errors.Analyze(*ec)
		res.ErrorAnalysis = &analysis
	}

	if firstPartial != nil {
		presented := o.presenter.Format(firstPartial, query, mc)
		res.Partial = &presented
	}

	res.ExecutionTime = time.Since(start)
	return res
}

// dispatch fans the query out across domains with bounded concurrency.
// Workers write only their own pre-allocated slot and a failing branch never
// cancels its siblings, so one slow or broken domain cannot take the others
// down with it.
func (o *Orchestrator) dispatch(ctx context.Context, domains []meeting.Domain, query string, mc meeting.Context, coordinated bool) []DomainResult {
	results := make([]DomainResult, len(domains))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, d := range domains {
		g.Go(func() error {
			branchStart := time.Now()
			outcome := o.timeouts.Execute(ctx, mc, query, func(ctx context.Context) (string, error) {
				return o.analyzer.Analyze(ctx, d, query, mc, coordinated)
			})

			dr := DomainResult{Domain: d, ExecutionTime: time.Since(branchStart)}
			switch {
			case outcome.OK:
				dr.Success = true
				dr.Text = outcome.Result
			case outcome.Partial != nil:
				dr.Partial = outcome.Partial
			default:
				dr.Err = &recovery.ErrorContext{
					Query:         query,
					ErrorMessage:  outcome.Err.Error(),
					ErrorType:     "analysis_error",
					Timestamp:     time.Now(),
					ExecutionTime: time.Since(branchStart),
					MeetingType:   mc.Type,
					MeetingPhase:  mc.Phase,
					TimeRemaining: mc.TimeRemaining,
				}
				slog.Warn("domain analysis failed", "domain", d, "error", outcome.Err)
			}
			results[i] = dr
			return nil
		})
	}
	g.Wait()
	return results
}

func (o *Orchestrator) enabledDomains(requested []meeting.Domain) []meeting.Domain {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []meeting.Domain
	for _, d := range requested {
		if o.enabled[d] {
			out = append(out, d)
		}
	}
	return out
}

func (o *Orchestrator) recordError(ec recovery.ErrorContext) {
	analysis := o.errors.Analyze(ec)
	o.mu.Lock()
	o.errStats[string(analysis.Category)]++
	o.mu.Unlock()
}

// DailyBriefing runs the comprehensive briefing query for a date (today when
// empty).
func (o *Orchestrator) DailyBriefing(ctx context.Context, date string) *Result {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	query := fmt.Sprintf("Generate a comprehensive daily briefing for %s: "+
		"production performance, quality status, equipment status, and inventory alerts, "+
		"with priority actions for today's meeting.", date)
	return o.Run(ctx, query)
}

// SetMeetingContext replaces the meeting context in one explicit call.
func (o *Orchestrator) SetMeetingContext(meetingType string, phase meeting.Phase, timeRemaining *int, focus []meeting.Domain, participants []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mc.Set(meetingType, phase, timeRemaining, focus, participants)
}

// MeetingContext returns a copy of the current meeting context.
func (o *Orchestrator) MeetingContext() meeting.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mc
}

// Status reports the orchestrator's current state.
func (o *Orchestrator) Status() AgentStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	enabled := make(map[meeting.Domain]bool, len(o.enabled))
	for d, on := range o.enabled {
		enabled[d] = on
	}
	stats := make(map[string]int, len(o.errStats))
	for k, v := range o.errStats {
		stats[k] = v
	}
	return AgentStatus{
		Initialized:    true,
		DomainsEnabled: enabled,
		Session:        o.session,
		MeetingContext: o.mc,
		ErrorStats:     stats,
	}
}

// Reload resets the session and error statistics while keeping configuration.
func (o *Orchestrator) Reload() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session = SessionContext{}
	o.errStats = make(map[string]int)
	o.mc = meeting.NewContext()
	slog.Info("orchestrator session reset")
}

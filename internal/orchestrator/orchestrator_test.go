package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/shiftbrief/internal/classify"
	"github.com/kalambet/shiftbrief/internal/meeting"
)

// mockAnalyzer scripts per-domain behavior for orchestration tests.
type mockAnalyzer struct {
	mu        sync.Mutex
	responses map[meeting.Domain]string
	errs      map[meeting.Domain]error
	delay     time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
	coordinated atomic.Bool
}

func (m *mockAnalyzer) Analyze(ctx context.Context, d meeting.Domain, query string, mc meeting.Context, coordinated bool) (string, error) {
	m.calls.Add(1)
	m.coordinated.Store(coordinated)
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		prev := m.maxInFlight.Load()
		if cur <= prev || m.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[d]; ok {
		return "", err
	}
	if resp, ok := m.responses[d]; ok {
		return resp, nil
	}
	return fmt.Sprintf("%s analysis text", d), nil
}

func newOrchestrator(a *mockAnalyzer) *Orchestrator {
	return New(a, Config{
		DefaultTimeout: 2 * time.Second,
		QuickTimeout:   time.Second,
	})
}

func TestRunSingleDomain(t *testing.T) {
	a := &mockAnalyzer{responses: map[meeting.Domain]string{
		meeting.DomainQuality: "defect rate at 1.2%",
	}}
	o := newOrchestrator(a)

	res := o.Run(context.Background(), "show me defect rates")
	if res.Classification.Type != classify.TypeSingleDomain {
		t.Fatalf("classification = %v", res.Classification.Type)
	}
	if len(res.Domains) != 1 || !res.Domains[0].Success {
		t.Fatalf("domain results = %+v", res.Domains)
	}
	if !strings.Contains(res.Synthesis, "defect rate at 1.2%") {
		t.Errorf("synthesis missing analysis text:\n%s", res.Synthesis)
	}
	if res.ErrorAnalysis != nil {
		t.Error("unexpected error analysis on success")
	}
	if res.ID == "" {
		t.Error("missing result ID")
	}
	if a.coordinated.Load() {
		t.Error("single-domain query dispatched as coordinated")
	}
}

func TestRunBriefingFansOutToAllDomains(t *testing.T) {
	a := &mockAnalyzer{}
	o := newOrchestrator(a)

	res := o.Run(context.Background(), "give me the daily briefing")
	if res.Classification.Type != classify.TypeDailyBriefing {
		t.Fatalf("classification = %v", res.Classification.Type)
	}
	if len(res.Domains) != 4 {
		t.Fatalf("%d domains dispatched, want 4", len(res.Domains))
	}
	for _, heading := range []string{
		"## Executive Summary", "## Critical Issues", "## KPIs", "## Recommendations", "## Follow-ups",
		"Production Performance", "Quality Status", "Equipment Status", "Inventory Alerts",
	} {
		if !strings.Contains(res.Synthesis, heading) {
			t.Errorf("synthesis missing section %q", heading)
		}
	}
	if !strings.Contains(res.Synthesis, "- [ ]") {
		t.Error("synthesis missing action item checklist")
	}
	if !a.coordinated.Load() {
		t.Error("briefing fan-out not dispatched as coordinated")
	}
}

func TestRunConcurrencyBounded(t *testing.T) {
	a := &mockAnalyzer{delay: 30 * time.Millisecond}
	o := newOrchestrator(a)

	o.Run(context.Background(), "full briefing please")
	if got := a.maxInFlight.Load(); got > 3 {
		t.Errorf("max concurrent analyses = %d, want <= 3", got)
	}
	if a.calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", a.calls.Load())
	}
}

func TestRunPartialFailureStillSynthesizes(t *testing.T) {
	a := &mockAnalyzer{errs: map[meeting.Domain]error{
		meeting.DomainEquipment: errors.New("model unavailable"),
	}}
	o := newOrchestrator(a)

	res := o.Run(context.Background(), "comprehensive summary")
	if res.Synthesis == "" {
		t.Fatal("no synthesis despite three successful domains")
	}
	if !strings.Contains(res.Synthesis, "equipment") {
		t.Error("synthesis does not name the unavailable domain")
	}
	if !strings.Contains(res.Synthesis, "equipment analysis is unavailable") {
		t.Error("failed domain not listed under Critical Issues")
	}
	if res.ErrorAnalysis != nil {
		t.Error("partial failure must not produce a top-level error analysis")
	}

	st := o.Status()
	if st.ErrorStats["agent"] != 1 {
		t.Errorf("error stats = %v, want agent:1", st.ErrorStats)
	}
}

func TestRunTotalFailureProducesErrorAnalysis(t *testing.T) {
	boom := errors.New("database is locked")
	a := &mockAnalyzer{errs: map[meeting.Domain]error{
		meeting.DomainProduction: boom,
		meeting.DomainQuality:    boom,
		meeting.DomainEquipment:  boom,
		meeting.DomainInventory:  boom,
	}}
	o := newOrchestrator(a)

	res := o.Run(context.Background(), "overall status")
	if res.Synthesis != "" {
		t.Error("synthesis produced with zero successes")
	}
	if res.ErrorAnalysis == nil {
		t.Fatal("missing error analysis")
	}
	if res.ErrorAnalysis.Category != "database" {
		t.Errorf("category = %v, want database", res.ErrorAnalysis.Category)
	}
	if len(res.ErrorAnalysis.Actions) == 0 {
		t.Error("error analysis carries no recovery actions")
	}
}

func TestRunTimeoutProducesPartial(t *testing.T) {
	a := &mockAnalyzer{delay: 5 * time.Second}
	o := New(a, Config{DefaultTimeout: 30 * time.Millisecond, QuickTimeout: 30 * time.Millisecond})

	res := o.Run(context.Background(), "machine downtime today")
	if res.Partial == nil {
		t.Fatal("timeout produced no presented partial results")
	}
	if !res.Partial.PartialSuccess {
		t.Error("PartialSuccess = false")
	}
	if res.ErrorAnalysis == nil {
		t.Error("total timeout should still produce an error analysis")
	}
}

func TestSynthesisDeterministicOrder(t *testing.T) {
	a := &mockAnalyzer{}
	o := newOrchestrator(a)

	first := o.Run(context.Background(), "daily briefing").Synthesis
	for i := 0; i < 5; i++ {
		if got := o.Run(context.Background(), "daily briefing").Synthesis; got != first {
			t.Fatalf("synthesis differs between runs:\n%s\n---\n%s", got, first)
		}
	}
}

func TestDailyBriefing(t *testing.T) {
	a := &mockAnalyzer{}
	o := newOrchestrator(a)

	res := o.DailyBriefing(context.Background(), "2026-08-28")
	if res.Classification.Type != classify.TypeDailyBriefing {
		t.Errorf("classification = %v, want daily_briefing", res.Classification.Type)
	}
	if !strings.Contains(res.Query, "2026-08-28") {
		t.Errorf("query = %q", res.Query)
	}
}

func TestStatusAndReload(t *testing.T) {
	a := &mockAnalyzer{}
	o := newOrchestrator(a)

	o.Run(context.Background(), "production output")
	o.Run(context.Background(), "quality issues")

	st := o.Status()
	if !st.Initialized {
		t.Error("Initialized = false")
	}
	if st.Session.QueryCount != 2 || st.Session.LastQuery != "quality issues" {
		t.Errorf("session = %+v", st.Session)
	}
	if len(st.MeetingContext.FocusAreas) != 2 {
		t.Errorf("focus areas = %v", st.MeetingContext.FocusAreas)
	}

	o.Reload()
	st = o.Status()
	if st.Session.QueryCount != 0 || len(st.MeetingContext.FocusAreas) != 0 {
		t.Errorf("reload did not reset session: %+v", st)
	}
}

func TestSetMeetingContextDrivesTimeouts(t *testing.T) {
	a := &mockAnalyzer{delay: 200 * time.Millisecond}
	o := New(a, Config{DefaultTimeout: 2 * time.Second, QuickTimeout: 50 * time.Millisecond})

	// Briefing phase forces the quick budget, so the slow analyzer times out.
	o.SetMeetingContext("daily", meeting.PhaseBriefing, nil, nil, nil)
	res := o.Run(context.Background(), "inventory shortages")
	if res.Partial == nil && res.ErrorAnalysis == nil {
		t.Error("briefing-phase query with slow backend should degrade")
	}
}

func TestSuggestions(t *testing.T) {
	a := &mockAnalyzer{}
	o := newOrchestrator(a)

	got := o.Suggestions(nil)
	if len(got) == 0 || len(got) > 3 {
		t.Fatalf("empty history suggestions = %v", got)
	}

	got = o.Suggestions([]string{"show production output"})
	if len(got) == 0 || len(got) > 3 {
		t.Fatalf("suggestions = %v", got)
	}
	if got[0] != "How do quality issues correlate with production problems?" {
		t.Errorf("got[0] = %q", got[0])
	}

	// History already covering everything still yields something useful.
	got = o.Suggestions([]string{
		"compare production vs quality trend and why, briefing of equipment and inventory cause",
	})
	if len(got) == 0 || len(got) > 3 {
		t.Fatalf("saturated history suggestions = %v", got)
	}
}

package recovery

import (
	"testing"
	"time"

	"github.com/kalambet/shiftbrief/internal/meeting"
)

func intPtr(n int) *int { return &n }

func baseContext(msg string) ErrorContext {
	return ErrorContext{
		Query:        "show production output",
		ErrorMessage: msg,
		ErrorType:    "error",
		Timestamp:    time.Now(),
		MeetingType:  "daily",
		MeetingPhase: meeting.PhaseAnalysis,
	}
}

func TestClassifyCategories(t *testing.T) {
	tests := []struct {
		msg  string
		want Category
	}{
		{"sqlite error: no such table: work_orders", CategoryDatabase},
		{"context deadline exceeded", CategoryTimeout},
		{"model not found in ollama", CategoryAgent},
		{"invalid date range: missing start", CategoryValidation},
		{"chart rendering failed", CategoryVisualization},
		{"bad configuration value", CategoryConfiguration},
		{"connection refused", CategoryNetwork},
		{"access denied to reports dir", CategoryPermission},
		{"something exploded", CategoryUnknown},
	}

	var a Analyzer
	for _, tt := range tests {
		got := a.Analyze(baseContext(tt.msg))
		if got.Category != tt.want {
			t.Errorf("Analyze(%q).Category = %v, want %v", tt.msg, got.Category, tt.want)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Mentions both database and timeout terms; database rule runs first.
	var a Analyzer
	got := a.Analyze(baseContext("database query timed out"))
	if got.Category != CategoryDatabase {
		t.Errorf("Category = %v, want database", got.Category)
	}
}

func TestBriefingTimeoutIsMeetingContext(t *testing.T) {
	ec := baseContext("briefing generation timeout")
	ec.MeetingPhase = meeting.PhaseBriefing

	var a Analyzer
	got := a.Analyze(ec)
	if got.Category != CategoryMeetingContext {
		t.Errorf("Category = %v, want meeting_context", got.Category)
	}
	if got.Severity != SeverityHigh {
		t.Errorf("Severity = %v, want high", got.Severity)
	}
}

func TestSeverityRules(t *testing.T) {
	tests := []struct {
		name          string
		msg           string
		timeRemaining *int
		want          Severity
	}{
		{"configuration critical", "bad configuration", nil, SeverityCritical},
		{"permission critical", "access denied", nil, SeverityCritical},
		{"database high", "sqlite error", nil, SeverityHigh},
		{"timeout medium with ample time", "timed out", intPtr(30), SeverityMedium},
		{"timeout escalates under pressure", "timed out", intPtr(5), SeverityHigh},
		{"agent escalates under pressure", "llm failure", intPtr(9), SeverityHigh},
		{"agent medium at boundary", "llm failure", intPtr(10), SeverityMedium},
		{"unknown low", "huh", nil, SeverityLow},
	}

	var a Analyzer
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := baseContext(tt.msg)
			ec.TimeRemaining = tt.timeRemaining
			got := a.Analyze(ec)
			if got.Severity != tt.want {
				t.Errorf("Severity = %v, want %v", got.Severity, tt.want)
			}
		})
	}
}

func TestActionsSortedByPriorityThenEstimate(t *testing.T) {
	var a Analyzer
	for _, msg := range []string{"sqlite error", "timed out", "llm failure", "chart failed", "mystery"} {
		got := a.Analyze(baseContext(msg))
		if len(got.Actions) == 0 {
			t.Fatalf("Analyze(%q): no actions", msg)
		}
		for i := 1; i < len(got.Actions); i++ {
			prev, cur := got.Actions[i-1], got.Actions[i]
			if prev.Priority > cur.Priority ||
				(prev.Priority == cur.Priority && prev.TimeEstimate > cur.TimeEstimate) {
				t.Errorf("Analyze(%q): actions out of order at %d: %+v then %+v", msg, i, prev, cur)
			}
		}
	}
}

func TestAlternativesCapped(t *testing.T) {
	ec := baseContext("sqlite error")
	ec.Query = "production quality equipment inventory output defect downtime stock"
	ec.TimeRemaining = intPtr(5)
	ec.MeetingPhase = meeting.PhaseBriefing

	var a Analyzer
	got := a.Analyze(ec)
	if len(got.Alternatives) > 6 {
		t.Errorf("%d alternatives, want at most 6", len(got.Alternatives))
	}
	if len(got.Alternatives) == 0 {
		t.Error("no alternatives generated")
	}
}

func TestAnalyzeAlwaysComplete(t *testing.T) {
	var a Analyzer
	got := a.Analyze(ErrorContext{})
	if got.Category != CategoryUnknown {
		t.Errorf("Category = %v, want unknown", got.Category)
	}
	if got.UserMessage == "" || got.RootCause == "" || got.MeetingImpact == "" {
		t.Errorf("incomplete analysis: %+v", got)
	}
	if len(got.Actions) == 0 || len(got.MeetingGuidance) == 0 {
		t.Error("missing actions or guidance")
	}
}

func TestPartialResultsReflected(t *testing.T) {
	ec := baseContext("timed out")
	ec.PartialResults = map[string]any{"collected_data": map[string]any{}}

	var a Analyzer
	got := a.Analyze(ec)
	if !got.PartialAvailable {
		t.Error("PartialAvailable = false")
	}
	if got.UserMessage == "" {
		t.Error("empty user message")
	}
}

func TestFallback(t *testing.T) {
	got := Fallback(ErrorContext{ErrorMessage: "boom"})
	if got.Category != CategoryUnknown || got.Severity != SeverityMedium {
		t.Errorf("fallback = %v/%v", got.Category, got.Severity)
	}
	if len(got.Actions) != 1 || got.Actions[0].Automated {
		t.Errorf("fallback actions = %+v", got.Actions)
	}
	if got.TechnicalDetails != "boom" {
		t.Errorf("TechnicalDetails = %q", got.TechnicalDetails)
	}
}

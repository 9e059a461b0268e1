package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/shiftbrief/internal/meeting"
)

const (
	DefaultTimeout = 120 * time.Second
	QuickTimeout   = 30 * time.Second
)

// TimeoutHandler derives deadlines from the meeting context and wraps
// operations with them. Briefings and time-constrained meetings get shorter
// budgets than open-ended analysis.
type TimeoutHandler struct {
	Default time.Duration
	Quick   time.Duration
}

// NewTimeoutHandler returns a handler with the given budgets. Zero values
// fall back to the package defaults.
func NewTimeoutHandler(def, quick time.Duration) *TimeoutHandler {
	if def <= 0 {
		def = DefaultTimeout
	}
	if quick <= 0 {
		quick = QuickTimeout
	}
	return &TimeoutHandler{Default: def, Quick: quick}
}

// DetermineTimeout picks the deadline for one operation. A positive override
// wins. Briefing phase always uses the quick budget. When less than 15
// minutes remain in the meeting, the budget is capped at half the remaining
// time. The result never exceeds Default.
func (h *TimeoutHandler) DetermineTimeout(mc meeting.Context, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if mc.Phase == meeting.PhaseBriefing {
		return h.Quick
	}
	if mc.TimeRemaining != nil && *mc.TimeRemaining < 15 {
		half := time.Duration(*mc.TimeRemaining) * time.Minute / 2
		if half < h.Quick {
			return half
		}
		return h.Quick
	}
	return h.Default
}

// Outcome is the result of a timeout-wrapped operation. Exactly one of
// Result and Partial is populated on failure paths: a timeout yields Partial,
// any other failure yields Err.
type Outcome struct {
	OK      bool
	Result  string
	Err     error
	Partial map[string]any
}

// Execute runs fn under the meeting-derived deadline. fn receives a context
// that expires at the deadline; if it keeps running past expiry its result is
// discarded. A timeout produces meeting-oriented partial results rather than
// a bare error.
func (h *TimeoutHandler) Execute(ctx context.Context, mc meeting.Context, query string, fn func(context.Context) (string, error)) Outcome {
	timeout := h.DetermineTimeout(mc, 0)
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type res struct {
		text string
		err  error
	}
	// Buffered so an abandoned fn can still send without leaking.
	ch := make(chan res, 1)
	go func() {
		text, err := fn(timeoutCtx)
		ch <- res{text, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if timeoutCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				slog.Warn("meeting operation timed out", "timeout", timeout, "query", query)
				return Outcome{Partial: h.partialResults(mc, query)}
			}
			return Outcome{Err: r.err}
		}
		return Outcome{OK: true, Result: r.text}
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return Outcome{Err: ctx.Err()}
		}
		slog.Warn("meeting operation timed out", "timeout", timeout, "query", query)
		return Outcome{Partial: h.partialResults(mc, query)}
	}
}

func (h *TimeoutHandler) partialResults(mc meeting.Context, query string) map[string]any {
	partial := map[string]any{
		"status":          "meeting_timeout",
		"message":         "Analysis timed out during meeting - partial results available",
		"timestamp":       time.Now().Format(time.RFC3339),
		"meeting_context": mc,
		"collected_data":  map[string]any{},
		"meeting_suggestions": []string{
			"Continue with verbal status updates",
			"Focus on critical issues only",
			"Schedule detailed analysis for after meeting",
		},
	}
	if query != "" {
		partial["quick_alternative"] = SimplifyQuery(query)
	}
	return partial
}

// SimplifyQuery rewrites a SQL query into a cheaper version suitable for
// meeting time pressure: a tight row limit and, for recency-sensitive tables,
// a filter down to yesterday's data.
func SimplifyQuery(query string) string {
	lower := strings.ToLower(query)

	if !strings.Contains(lower, "where") && containsAny(lower, "production", "quality", "equipment") {
		yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
		query += fmt.Sprintf(" WHERE date >= '%s'", yesterday)
	}
	if !strings.Contains(lower, "limit") {
		query += " LIMIT 20"
	}
	return query
}

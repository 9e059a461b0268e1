package recovery

import (
	"fmt"
	"time"

	"github.com/kalambet/shiftbrief/internal/meeting"
)

// Presented is a partial result formatted for meeting consumption.
type Presented struct {
	Success           bool           `json:"success"`
	PartialSuccess    bool           `json:"partial_success"`
	Query             string         `json:"original_query"`
	Status            string         `json:"status"`
	Message           string         `json:"message"`
	PartialResults    map[string]any `json:"partial_results"`
	MeetingContext    meeting.Context `json:"meeting_context"`
	MeetingGuidance   []string       `json:"meeting_guidance"`
	QuickAlternatives []string       `json:"quick_alternatives"`
	TimeManagement    []string       `json:"time_management"`
	CompletionPercent *float64       `json:"completion_percent,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
}

// Presenter formats incomplete analysis output so a meeting can keep moving.
// The zero value is ready to use.
type Presenter struct{}

// Format turns raw partial data into a Presented result. Wording adapts to
// how much meeting time remains; completion percent is derived from
// completed/total step counts when the partial data carries them.
func (p *Presenter) Format(partial map[string]any, query string, mc meeting.Context) Presented {
	out := Presented{
		PartialSuccess:    true,
		Query:             query,
		Status:            "meeting_partial_results",
		Message:           p.message(mc),
		PartialResults:    partial,
		MeetingContext:    mc,
		MeetingGuidance:   p.guidance(mc, partial),
		QuickAlternatives: p.quickAlternatives(query),
		TimeManagement:    p.timeManagement(mc),
		Timestamp:         time.Now(),
	}

	completed, okC := asFloat(partial["completed_steps"])
	total, okT := asFloat(partial["total_steps"])
	if okC && okT && total > 0 {
		pct := completed / total * 100
		out.CompletionPercent = &pct
	}
	return out
}

func (p *Presenter) message(mc meeting.Context) string {
	msg := "I have some preliminary results for our meeting."
	if mc.TimeRemaining != nil && *mc.TimeRemaining < 10 {
		msg += fmt.Sprintf(" With %d minutes left, let's focus on the key findings.", *mc.TimeRemaining)
	} else if mc.Type == "daily" {
		msg += " Here's what I found so far for our daily review."
	}
	return msg
}

func (p *Presenter) guidance(mc meeting.Context, partial map[string]any) []string {
	var g []string
	if data, ok := partial["collected_data"].(map[string]any); ok && len(data) > 0 {
		g = append(g, "Use the available data to start the discussion")
	}
	g = append(g,
		"Focus on the most critical issues first",
		"Engage the team for additional insights",
		"Document items needing follow-up analysis",
	)
	if mc.TimeRemaining != nil && *mc.TimeRemaining < 15 {
		g = append(g, "Prioritize immediate action items")
	}
	return g
}

const maxQuickAlternatives = 4

func (p *Presenter) quickAlternatives(query string) []string {
	var alts []string
	for _, d := range meeting.MatchDomains(query) {
		switch d {
		case meeting.DomainProduction:
			alts = append(alts,
				"Check yesterday's production summary",
				"Review current shift performance",
				"Identify any immediate bottlenecks",
			)
		case meeting.DomainQuality:
			alts = append(alts,
				"Review any quality alerts from last 24 hours",
				"Check first-pass yield for key products",
				"Discuss any customer complaints",
			)
		case meeting.DomainEquipment:
			alts = append(alts,
				"Review equipment status board",
				"Check planned maintenance for today",
				"Identify any current equipment issues",
			)
		case meeting.DomainInventory:
			alts = append(alts,
				"Review material shortage reports",
				"Check supplier delivery status for critical materials",
				"Identify inventory risks to this week's schedule",
			)
		}
	}
	if len(alts) > maxQuickAlternatives {
		alts = alts[:maxQuickAlternatives]
	}
	return alts
}

func (p *Presenter) timeManagement(mc meeting.Context) []string {
	remaining := 30
	if mc.TimeRemaining != nil {
		remaining = *mc.TimeRemaining
	}
	switch {
	case remaining < 10:
		return []string{
			"Focus on safety and quality issues only",
			"Defer detailed analysis to follow-up",
			"Identify immediate action items",
		}
	case remaining < 20:
		return []string{
			"Prioritize critical production issues",
			"Use rapid-fire status updates",
			"Schedule complex analysis for later",
		}
	}
	return []string{
		"Continue with planned meeting agenda",
		"Allow time for team discussion",
		"Document follow-up items",
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

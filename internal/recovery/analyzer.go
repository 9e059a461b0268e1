package recovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/shiftbrief/internal/meeting"
)

// Analyzer classifies failures and produces meeting-focused recovery guidance.
// The zero value is ready to use.
type Analyzer struct{}

// Analyze builds a complete Analysis for the given failure. It never fails:
// unclassifiable input falls through to the unknown category, and every field
// of the result is populated.
func (a *Analyzer) Analyze(ec ErrorContext) Analysis {
	category := classify(ec)
	severity := assessSeverity(ec, category)

	return Analysis{
		Category:           category,
		Severity:           severity,
		RootCause:          rootCause(ec, category),
		UserMessage:        userMessage(ec, category),
		TechnicalDetails:   ec.ErrorMessage,
		Actions:            actionsFor(category),
		MeetingGuidance:    guidance(category),
		Alternatives:       alternatives(ec),
		PartialAvailable:   ec.PartialResults != nil,
		MeetingImpact:      impact(ec, severity),
		MeetingAdjustments: adjustments(ec, category, severity),
	}
}

// Fallback is the analysis used when nothing better can be produced, for
// example when a caller has no ErrorContext at all.
func Fallback(ec ErrorContext) Analysis {
	return Analysis{
		Category:         CategoryUnknown,
		Severity:         SeverityMedium,
		RootCause:        "Error analysis failed during meeting - unknown issue",
		UserMessage:      "I encountered an unexpected issue during our meeting analysis.",
		TechnicalDetails: ec.ErrorMessage,
		Actions: []Action{{
			Type:          "continue_meeting_manually",
			Description:   "Continue meeting with manual facilitation",
			Priority:      1,
			Automated:     false,
			TimeEstimate:  0,
			MeetingImpact: "medium",
		}},
		MeetingGuidance: []string{
			"Technical issues happen - the meeting can still be productive.",
			"Use this as an opportunity for more team interaction and discussion.",
		},
		Alternatives: []string{
			"Proceed with verbal status updates from each area",
			"Focus on known issues and action item follow-up",
		},
		MeetingImpact: "Moderate impact - meeting can continue with manual facilitation",
		MeetingAdjustments: []string{
			"Switch to discussion-based format",
			"Document technical issues for post-meeting resolution",
		},
	}
}

// Classification is ordered: the first matching rule wins, so a message
// mentioning both "database" and "timeout" is a database error.
func classify(ec ErrorContext) Category {
	msg := strings.ToLower(ec.ErrorMessage)

	if ec.MeetingPhase == meeting.PhaseBriefing && strings.Contains(msg, "timeout") {
		return CategoryMeetingContext
	}
	switch {
	case containsAny(msg, "sqlite", "database", "no such table", "no such column", "syntax error"):
		return CategoryDatabase
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return CategoryTimeout
	case containsAny(msg, "agent", "model", "llm", "ollama"):
		return CategoryAgent
	case containsAny(msg, "validation", "invalid", "missing", "required"):
		return CategoryValidation
	case containsAny(msg, "visualization", "chart", "graph", "dashboard"):
		return CategoryVisualization
	case containsAny(msg, "config", "configuration", "setting"):
		return CategoryConfiguration
	case containsAny(msg, "network", "connection", "http", "api"):
		return CategoryNetwork
	case containsAny(msg, "permission", "access", "denied", "unauthorized"):
		return CategoryPermission
	}
	return CategoryUnknown
}

func assessSeverity(ec ErrorContext, category Category) Severity {
	switch category {
	case CategoryConfiguration, CategoryPermission:
		return SeverityCritical
	case CategoryDatabase, CategoryMeetingContext:
		return SeverityHigh
	}

	// Under time pressure, delays and lost analyses escalate.
	if ec.TimeRemaining != nil && *ec.TimeRemaining < 10 {
		if category == CategoryTimeout || category == CategoryAgent {
			return SeverityHigh
		}
	}

	switch category {
	case CategoryTimeout, CategoryVisualization, CategoryAgent:
		return SeverityMedium
	}
	return SeverityLow
}

func rootCause(ec ErrorContext, category Category) string {
	msg := strings.ToLower(ec.ErrorMessage)

	switch category {
	case CategoryDatabase:
		switch {
		case strings.Contains(msg, "no such table"):
			return "Production database table is missing or renamed - this may affect meeting data availability"
		case strings.Contains(msg, "no such column"):
			return "Database schema has changed - column references need updating for meeting queries"
		case strings.Contains(msg, "syntax error"):
			return "Production data query contains errors - preventing meeting analysis"
		case strings.Contains(msg, "locked"):
			return "Production database is busy with other operations - may delay meeting analysis"
		}
		return "Production database access issue - impacting meeting data retrieval"
	case CategoryTimeout:
		switch {
		case ec.MeetingPhase == meeting.PhaseBriefing:
			return "Daily briefing generation is taking too long - may need to simplify analysis scope"
		case ec.ExecutionTime > time.Minute:
			return "Complex production analysis exceeded meeting time constraints"
		}
		return "System performance issue causing delays during meeting"
	case CategoryAgent:
		if strings.Contains(msg, "model") {
			return "AI analysis engine is unavailable - limiting meeting insights capability"
		}
		return "Meeting analysis agent failed - reducing available insights"
	case CategoryMeetingContext:
		return "Meeting-specific configuration or timing issue affecting analysis flow"
	case CategoryValidation:
		return "Meeting query parameters are invalid - check date ranges and filter criteria"
	case CategoryVisualization:
		return "Meeting dashboard visualization failed - data may still be available in text format"
	case CategoryConfiguration:
		return "Production meeting system configuration needs attention"
	case CategoryNetwork:
		return "Network connectivity issue affecting external production data sources"
	case CategoryPermission:
		return "Insufficient access rights to production data needed for meeting analysis"
	}
	return "Unknown issue occurred during meeting analysis"
}

var baseMessages = map[Category]string{
	CategoryDatabase:       "I'm having trouble accessing the production database for our meeting analysis.",
	CategoryTimeout:        "The analysis is taking longer than our meeting schedule allows.",
	CategoryAgent:          "I'm experiencing a technical issue that's limiting my analysis capabilities for this meeting.",
	CategoryValidation:     "There's an issue with the meeting parameters or data filters.",
	CategoryVisualization:  "I had trouble creating the meeting dashboard visualization.",
	CategoryConfiguration:  "There's a system configuration issue affecting our meeting tools.",
	CategoryNetwork:        "I'm having connectivity issues that may affect external data access.",
	CategoryPermission:     "I don't have the necessary access to complete this meeting analysis.",
	CategoryMeetingContext: "There's an issue with the meeting setup or timing configuration.",
	CategoryUnknown:        "I encountered an unexpected issue during our meeting analysis.",
}

func userMessage(ec ErrorContext, category Category) string {
	msg, ok := baseMessages[category]
	if !ok {
		msg = baseMessages[CategoryUnknown]
	}

	if ec.MeetingPhase == meeting.PhaseBriefing {
		msg += " This may affect our daily briefing preparation."
	} else if ec.TimeRemaining != nil && *ec.TimeRemaining < 15 {
		msg += fmt.Sprintf(" We have about %d minutes remaining in our meeting.", *ec.TimeRemaining)
	}

	if ec.PartialResults != nil {
		msg += " However, I do have some preliminary results we can review."
	} else if category == CategoryTimeout {
		msg += " Let me suggest a quicker approach to get the key information we need."
	}
	return msg
}

func guidance(category Category) []string {
	switch category {
	case CategoryDatabase:
		return []string{
			"Meeting continuity: we can proceed with cached production data while resolving database issues.",
			"Data alternatives: consider using yesterday's production summary for trend analysis.",
			"Time management: database issues shouldn't delay critical meeting decisions.",
		}
	case CategoryTimeout:
		return []string{
			"Meeting efficiency: focus on the most critical production issues first.",
			"Priority setting: identify must-discuss items vs. nice-to-have analysis.",
			"Action items: document complex analysis needs for follow-up after the meeting.",
		}
	case CategoryAgent:
		return []string{
			"Backup plans: manual analysis methods can substitute for AI insights during meetings.",
			"Team knowledge: leverage team expertise when automated analysis isn't available.",
			"Essential metrics: focus on key performance indicators that don't require complex analysis.",
		}
	case CategoryVisualization:
		return []string{
			"Alternative formats: numbers and tables can be just as effective as charts in meetings.",
			"Verbal summaries: sometimes discussing trends is more valuable than viewing charts.",
			"Meeting notes: document visualization needs for post-meeting follow-up.",
		}
	case CategoryMeetingContext:
		return []string{
			"Meeting setup: verify meeting type and time range settings are correct.",
			"Schedule flexibility: consider adjusting meeting scope if technical issues persist.",
			"Focus areas: prioritize the most critical production areas for discussion.",
		}
	}
	return []string{
		"Meeting momentum: don't let technical issues derail productive discussions.",
		"Team collaboration: use this as an opportunity for more interactive team analysis.",
		"Documentation: record technical issues for post-meeting resolution.",
	}
}

const maxAlternatives = 6

func alternatives(ec ErrorContext) []string {
	var alts []string
	query := strings.ToLower(ec.Query)
	category := classify(ec)

	if ec.TimeRemaining != nil && *ec.TimeRemaining < 20 {
		alts = append(alts,
			"Focus on the top 3 most critical production issues for today",
			"Review yesterday's key metrics and identify any immediate concerns",
			"Discuss known issues and their current status rather than discovering new ones",
		)
	}

	switch ec.MeetingPhase {
	case meeting.PhaseBriefing:
		alts = append(alts,
			"Start with a verbal status update from team leads",
			"Review the production schedule and identify potential bottlenecks",
			"Focus on safety incidents and quality alerts first",
		)
	case meeting.PhaseAnalysis:
		alts = append(alts,
			"Use manual calculation for key efficiency metrics",
			"Compare current performance to last week's results",
			"Focus on trend direction rather than precise calculations",
		)
	}

	switch category {
	case CategoryDatabase:
		alts = append(alts,
			"Use the latest production report from the shift supervisor",
			"Review printed production logs if available",
			"Focus on verbal updates from work center leads",
		)
	case CategoryTimeout:
		alts = append(alts,
			"Break the analysis into smaller, focused questions",
			"Prioritize safety and quality issues over efficiency metrics",
			"Schedule a follow-up session for detailed analysis",
		)
	}

	if containsAny(query, "production", "output", "efficiency") {
		alts = append(alts,
			"Review production targets vs. actual output for key work centers",
			"Identify any equipment or staffing issues affecting today's production",
			"Check if any work orders are behind schedule",
		)
	}
	if containsAny(query, "quality", "defect", "yield") {
		alts = append(alts,
			"Review any quality holds or customer complaints from the last 24 hours",
			"Check first-pass yield for critical products",
			"Discuss any process changes that might affect quality",
		)
	}
	if containsAny(query, "equipment", "machine", "downtime") {
		alts = append(alts,
			"Review planned maintenance activities for today",
			"Check equipment status boards for any current issues",
			"Discuss any equipment performance concerns from the previous shift",
		)
	}
	if containsAny(query, "inventory", "stock", "material") {
		alts = append(alts,
			"Review material shortage reports for today's production",
			"Check supplier delivery status for critical materials",
			"Identify any inventory issues that could affect this week's schedule",
		)
	}

	if len(alts) > maxAlternatives {
		alts = alts[:maxAlternatives]
	}
	return alts
}

func impact(ec ErrorContext, severity Severity) string {
	switch severity {
	case SeverityCritical:
		return "High impact - may require rescheduling or switching to manual meeting format"
	case SeverityHigh:
		if ec.TimeRemaining != nil && *ec.TimeRemaining < 15 {
			return "Significant impact - recommend focusing on essential items only"
		}
		return "Moderate impact - can work around with alternative approaches"
	case SeverityMedium:
		return "Low to moderate impact - meeting can proceed with minor adjustments"
	}
	return "Minimal impact - meeting can proceed normally with slight modifications"
}

func adjustments(ec ErrorContext, category Category, severity Severity) []string {
	var adj []string

	if severity == SeverityCritical || severity == SeverityHigh {
		adj = append(adj,
			"Consider extending meeting by 10-15 minutes if schedule allows",
			"Focus on verbal updates and team discussion rather than data analysis",
			"Defer complex analysis to a follow-up session",
		)
	}

	switch category {
	case CategoryTimeout:
		adj = append(adj,
			"Switch to rapid-fire status updates from each area",
			"Use pre-prepared reports instead of live analysis",
			"Schedule detailed analysis for after the meeting",
		)
	case CategoryDatabase:
		adj = append(adj,
			"Use manual data collection from work centers",
			"Focus on qualitative discussion of production issues",
			"Review trends from previous meetings instead of current data",
		)
	}

	if ec.MeetingType == "daily" && ec.TimeRemaining != nil && *ec.TimeRemaining < 10 {
		adj = append(adj,
			"Limit discussion to safety incidents and critical quality issues",
			"Defer efficiency analysis to weekly meeting",
			"Focus on immediate action items only",
		)
	}
	return adj
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

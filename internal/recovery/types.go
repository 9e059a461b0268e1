// Package recovery converts failures during meeting analysis into actionable
// guidance: classified error analyses, tiered recovery actions, meeting-aware
// timeouts, and partial-result presentation. Nothing in this package returns
// an error to the caller; a failure to analyze a failure still produces a
// usable fallback.
package recovery

import (
	"time"

	"github.com/kalambet/shiftbrief/internal/meeting"
)

// Severity grades how much an error disrupts the meeting.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Category is the error taxonomy used for routing recovery strategies.
type Category string

const (
	CategoryDatabase       Category = "database"
	CategoryAgent          Category = "agent"
	CategoryTimeout        Category = "timeout"
	CategoryValidation     Category = "validation"
	CategoryVisualization  Category = "visualization"
	CategoryConfiguration  Category = "configuration"
	CategoryNetwork        Category = "network"
	CategoryPermission     Category = "permission"
	CategoryMeetingContext Category = "meeting_context"
	CategoryUnknown        Category = "unknown"
)

// ErrorContext carries everything the analyzer needs about a failure.
type ErrorContext struct {
	Query            string         `json:"original_query"`
	ErrorMessage     string         `json:"error_message"`
	ErrorType        string         `json:"error_type"`
	Timestamp        time.Time      `json:"timestamp"`
	ExecutionTime    time.Duration  `json:"execution_time"`
	MeetingType      string         `json:"meeting_type"`
	MeetingPhase     meeting.Phase  `json:"meeting_phase"`
	TimeRemaining    *int           `json:"time_remaining,omitempty"`
	PartialResults   map[string]any `json:"partial_results,omitempty"`
	RecoveryAttempts int            `json:"recovery_attempts"`
}

// Action is one recovery step, ranked by priority then estimated cost.
type Action struct {
	Type          string         `json:"action_type"`
	Description   string         `json:"description"`
	Priority      int            `json:"priority"`
	Automated     bool           `json:"automated"`
	TimeEstimate  int            `json:"time_estimate"`
	MeetingImpact string         `json:"meeting_impact"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

// Analysis is the full output of error analysis.
type Analysis struct {
	Category           Category `json:"category"`
	Severity           Severity `json:"severity"`
	RootCause          string   `json:"root_cause"`
	UserMessage        string   `json:"user_message"`
	TechnicalDetails   string   `json:"technical_details"`
	Actions            []Action `json:"recovery_actions"`
	MeetingGuidance    []string `json:"meeting_guidance"`
	Alternatives       []string `json:"alternative_approaches"`
	PartialAvailable   bool     `json:"partial_results_available"`
	MeetingImpact      string   `json:"meeting_impact_assessment"`
	MeetingAdjustments []string `json:"suggested_meeting_adjustments"`
}

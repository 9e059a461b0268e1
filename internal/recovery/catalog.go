package recovery

import "sort"

// actionsFor returns the recovery action catalog for a category, sorted
// ascending by (priority, time estimate) so callers can execute in order.
func actionsFor(category Category) []Action {
	var actions []Action

	switch category {
	case CategoryDatabase:
		actions = []Action{
			{
				Type:          "quick_schema_check",
				Description:   "Quickly verify database structure for meeting queries",
				Priority:      1,
				Automated:     true,
				TimeEstimate:  10,
				MeetingImpact: "low",
				Parameters:    map[string]any{"tool": "get_schema", "quick_mode": true},
			},
			{
				Type:          "fallback_to_cached_data",
				Description:   "Use recent cached production data for meeting",
				Priority:      2,
				Automated:     true,
				TimeEstimate:  5,
				MeetingImpact: "low",
				Parameters:    map[string]any{"use_cache": true, "max_age_hours": 24},
			},
			{
				Type:          "simplified_meeting_query",
				Description:   "Use basic production queries for essential meeting metrics",
				Priority:      3,
				Automated:     true,
				TimeEstimate:  15,
				MeetingImpact: "medium",
				Parameters:    map[string]any{"query_type": "essential_metrics"},
			},
		}
	case CategoryTimeout:
		actions = []Action{
			{
				Type:          "present_partial_results",
				Description:   "Show available results and continue meeting",
				Priority:      1,
				Automated:     true,
				TimeEstimate:  2,
				MeetingImpact: "low",
				Parameters:    map[string]any{"show_partial": true},
			},
			{
				Type:          "quick_summary_mode",
				Description:   "Switch to rapid summary analysis for meeting efficiency",
				Priority:      2,
				Automated:     true,
				TimeEstimate:  30,
				MeetingImpact: "medium",
				Parameters:    map[string]any{"analysis_mode": "quick_summary"},
			},
			{
				Type:          "defer_detailed_analysis",
				Description:   "Schedule detailed analysis for after the meeting",
				Priority:      3,
				Automated:     false,
				TimeEstimate:  5,
				MeetingImpact: "low",
				Parameters:    map[string]any{"schedule_followup": true},
			},
		}
	case CategoryAgent:
		actions = []Action{
			{
				Type:          "fallback_to_basic_analysis",
				Description:   "Use simplified analysis without advanced AI features",
				Priority:      1,
				Automated:     true,
				TimeEstimate:  20,
				MeetingImpact: "medium",
				Parameters:    map[string]any{"analysis_level": "basic"},
			},
			{
				Type:          "direct_data_presentation",
				Description:   "Present raw production data with manual interpretation",
				Priority:      2,
				Automated:     true,
				TimeEstimate:  10,
				MeetingImpact: "medium",
				Parameters:    map[string]any{"format": "raw_data_tables"},
			},
			{
				Type:          "meeting_facilitator_mode",
				Description:   "Switch to manual meeting facilitation with basic data support",
				Priority:      3,
				Automated:     false,
				TimeEstimate:  0,
				MeetingImpact: "high",
				Parameters:    map[string]any{"manual_mode": true},
			},
		}
	case CategoryVisualization:
		actions = []Action{
			{
				Type:          "table_format_fallback",
				Description:   "Present meeting data in table format instead of charts",
				Priority:      1,
				Automated:     true,
				TimeEstimate:  5,
				MeetingImpact: "low",
				Parameters:    map[string]any{"format": "tables"},
			},
			{
				Type:          "basic_charts_only",
				Description:   "Use simple chart types for meeting visualization",
				Priority:      2,
				Automated:     true,
				TimeEstimate:  10,
				MeetingImpact: "low",
				Parameters:    map[string]any{"chart_complexity": "basic"},
			},
		}
	case CategoryMeetingContext:
		actions = []Action{
			{
				Type:          "reset_meeting_context",
				Description:   "Reset meeting parameters to default configuration",
				Priority:      1,
				Automated:     true,
				TimeEstimate:  5,
				MeetingImpact: "low",
				Parameters:    map[string]any{"reset_to_defaults": true},
			},
			{
				Type:          "manual_meeting_setup",
				Description:   "Manually configure meeting parameters",
				Priority:      2,
				Automated:     false,
				TimeEstimate:  60,
				MeetingImpact: "high",
				Parameters:    map[string]any{"manual_setup": true},
			},
		}
	default:
		actions = []Action{
			{
				Type:          "quick_retry",
				Description:   "Quickly retry the operation",
				Priority:      1,
				Automated:     true,
				TimeEstimate:  10,
				MeetingImpact: "low",
				Parameters:    map[string]any{"max_retries": 1},
			},
			{
				Type:          "continue_meeting_without_feature",
				Description:   "Continue meeting without this specific analysis",
				Priority:      2,
				Automated:     false,
				TimeEstimate:  0,
				MeetingImpact: "medium",
				Parameters:    map[string]any{"skip_feature": true},
			},
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Priority != actions[j].Priority {
			return actions[i].Priority < actions[j].Priority
		}
		return actions[i].TimeEstimate < actions[j].TimeEstimate
	})
	return actions
}

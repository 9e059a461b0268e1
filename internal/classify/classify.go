// Package classify turns a natural-language meeting question into a routing
// decision: which analysis domains it touches and how it should be handled.
// Classification is pure keyword matching so identical input always yields
// identical output.
package classify

import (
	"strings"

	"github.com/kalambet/shiftbrief/internal/meeting"
)

// QueryType labels the routing shape of a classified query.
type QueryType string

const (
	TypeDailyBriefing QueryType = "daily_briefing"
	TypeSingleDomain  QueryType = "single_domain"
	TypeMultiDomain   QueryType = "multi_domain"
	TypeGeneral       QueryType = "general"
)

// Priority orders queries by meeting urgency.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Classification is the routing decision for one query.
type Classification struct {
	Type                 QueryType        `json:"type"`
	Domains              []meeting.Domain `json:"domains"`
	Priority             Priority         `json:"priority"`
	RequiresAll          bool             `json:"requires_all_domains"`
	RequiresCoordination bool             `json:"requires_coordination"`
}

var briefingKeywords = []string{
	"daily briefing", "meeting summary", "production status", "overall status",
	"daily summary", "meeting overview", "production overview", "daily report",
	"status update", "comprehensive summary", "full briefing",
}

// Classify maps query text to a Classification. Briefing phrasing wins over
// individual domain hits; more than one domain hit requires coordinated
// synthesis; no hits at all fans out to every domain rather than failing.
func Classify(text string) Classification {
	lower := strings.ToLower(text)

	for _, kw := range briefingKeywords {
		if strings.Contains(lower, kw) {
			return Classification{
				Type:        TypeDailyBriefing,
				Domains:     meeting.AllDomains(),
				Priority:    PriorityHigh,
				RequiresAll: true,
			}
		}
	}

	matched := meeting.MatchDomains(text)
	switch len(matched) {
	case 0:
		return Classification{
			Type:     TypeGeneral,
			Domains:  meeting.AllDomains(),
			Priority: PriorityLow,
		}
	case 1:
		return Classification{
			Type:     TypeSingleDomain,
			Domains:  matched,
			Priority: PriorityMedium,
		}
	default:
		return Classification{
			Type:                 TypeMultiDomain,
			Domains:              matched,
			Priority:             PriorityMedium,
			RequiresCoordination: true,
		}
	}
}

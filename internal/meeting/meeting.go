// Package meeting holds the shared vocabulary for production meetings:
// manufacturing domains, meeting phases, and the live meeting context that
// query handling updates as a session progresses.
package meeting

import (
	"strings"
	"time"
)

// Domain identifies one manufacturing analysis area.
type Domain string

const (
	DomainProduction Domain = "production"
	DomainQuality    Domain = "quality"
	DomainEquipment  Domain = "equipment"
	DomainInventory  Domain = "inventory"
)

// AllDomains returns every domain in canonical order. Callers that fan out
// across domains iterate this slice so dispatch order is deterministic.
func AllDomains() []Domain {
	return []Domain{DomainProduction, DomainQuality, DomainEquipment, DomainInventory}
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	switch d {
	case DomainProduction, DomainQuality, DomainEquipment, DomainInventory:
		return true
	}
	return false
}

// Phase identifies where in a meeting a query arrives.
type Phase string

const (
	PhaseBriefing   Phase = "briefing"
	PhaseAnalysis   Phase = "analysis"
	PhaseDiscussion Phase = "discussion"
	PhaseWrapUp     Phase = "wrap_up"
)

// Context is the live state of the current meeting session.
// TimeRemaining is minutes left in the meeting; nil means unknown.
type Context struct {
	Type          string    `json:"meeting_type"`
	Phase         Phase     `json:"meeting_phase"`
	TimeRemaining *int      `json:"time_remaining,omitempty"`
	FocusAreas    []Domain  `json:"focus_areas"`
	Participants  []string  `json:"participants,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// NewContext returns the default daily-meeting context.
func NewContext() Context {
	return Context{
		Type:        "daily",
		Phase:       PhaseAnalysis,
		LastUpdated: time.Now(),
	}
}

var domainKeywords = map[Domain][]string{
	DomainProduction: {"production", "work order", "manufacturing", "output", "throughput", "completion"},
	DomainQuality:    {"quality", "defect", "yield", "rework", "inspection", "control"},
	DomainEquipment:  {"equipment", "machine", "oee", "downtime", "maintenance", "efficiency"},
	DomainInventory:  {"inventory", "stock", "material", "supply", "shortage", "reorder"},
}

// DomainKeywords returns the keyword list that maps query text to a domain.
func DomainKeywords(d Domain) []string {
	return domainKeywords[d]
}

// MatchDomains returns every domain whose keywords appear in text, in
// canonical order. Matching is case-insensitive substring containment.
func MatchDomains(text string) []Domain {
	lower := strings.ToLower(text)
	var matched []Domain
	for _, d := range AllDomains() {
		for _, kw := range domainKeywords[d] {
			if strings.Contains(lower, kw) {
				matched = append(matched, d)
				break
			}
		}
	}
	return matched
}

// UpdateFromQuery adjusts the context based on a query's wording. The meeting
// type follows explicit daily/weekly/monthly cues and matched domains are
// unioned into FocusAreas. Focus areas only grow within a session.
func (c *Context) UpdateFromQuery(text string) {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "daily", "today", "briefing"):
		c.Type = "daily"
	case containsAny(lower, "weekly", "week"):
		c.Type = "weekly"
	case containsAny(lower, "monthly", "month"):
		c.Type = "monthly"
	}

	for _, d := range MatchDomains(text) {
		c.addFocusArea(d)
	}
	c.LastUpdated = time.Now()
}

// Set replaces the whole context in one call, used by explicit
// set-meeting-context requests rather than query-driven drift.
func (c *Context) Set(meetingType string, phase Phase, timeRemaining *int, focus []Domain, participants []string) {
	if meetingType != "" {
		c.Type = meetingType
	}
	if phase != "" {
		c.Phase = phase
	}
	c.TimeRemaining = timeRemaining
	for _, d := range focus {
		if d.Valid() {
			c.addFocusArea(d)
		}
	}
	if participants != nil {
		c.Participants = participants
	}
	c.LastUpdated = time.Now()
}

func (c *Context) addFocusArea(d Domain) {
	for _, existing := range c.FocusAreas {
		if existing == d {
			return
		}
	}
	c.FocusAreas = append(c.FocusAreas, d)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

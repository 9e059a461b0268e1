package orchestrator

import "strings"

const maxSuggestions = 3

var defaultSuggestions = []string{
	"What are the current production bottlenecks?",
	"Which quality metrics need immediate attention?",
	"How is our equipment performance trending?",
}

// Suggestions proposes follow-up questions from the recent query history:
// domains the conversation touched suggest their untouched neighbors, and
// missing analysis angles (trends, comparisons, root causes) fill the rest.
// At most three suggestions are returned.
func (o *Orchestrator) Suggestions(history []string) []string {
	if len(history) == 0 {
		return defaultSuggestions
	}

	if len(history) > 3 {
		history = history[len(history)-3:]
	}
	recent := strings.ToLower(strings.Join(history, " "))

	var out []string
	add := func(s string) {
		if len(out) < maxSuggestions {
			out = append(out, s)
		}
	}

	if strings.Contains(recent, "production") && !strings.Contains(recent, "quality") {
		add("How do quality issues correlate with production problems?")
	}
	if strings.Contains(recent, "quality") && !strings.Contains(recent, "equipment") {
		add("Which equipment issues are causing quality problems?")
	}
	if strings.Contains(recent, "equipment") && !strings.Contains(recent, "inventory") {
		add("How do equipment failures affect inventory consumption?")
	}
	if strings.Contains(recent, "inventory") && !strings.Contains(recent, "production") {
		add("How do inventory shortages impact production schedules?")
	}

	if !containsAnyWord(recent, "briefing", "summary", "meeting") {
		add("Generate a daily production meeting briefing")
	}
	if !containsAnyWord(recent, "trend", "over time", "historical") {
		add("What are the historical trends for these metrics?")
	}
	if !containsAnyWord(recent, "compare", "versus", "vs") {
		add("How do these metrics compare across different work centers?")
	}
	if !containsAnyWord(recent, "cause", "why", "reason") {
		add("What are the root causes of these issues?")
	}

	if len(out) == 0 {
		return []string{
			"What manufacturing KPIs should we monitor daily?",
			"Which areas have the highest improvement potential?",
			"What are today's critical production priorities?",
		}
	}
	return out
}

func containsAnyWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

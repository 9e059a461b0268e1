package classify

import (
	"testing"

	"github.com/kalambet/shiftbrief/internal/meeting"
)

func TestClassifyBriefing(t *testing.T) {
	queries := []string{
		"give me the daily briefing",
		"what's the overall status?",
		"I need a comprehensive summary before the meeting",
		"Production Status please",
	}

	for _, q := range queries {
		c := Classify(q)
		if c.Type != TypeDailyBriefing {
			t.Errorf("Classify(%q).Type = %v, want daily_briefing", q, c.Type)
		}
		if !c.RequiresAll {
			t.Errorf("Classify(%q): RequiresAll = false", q)
		}
		if c.Priority != PriorityHigh {
			t.Errorf("Classify(%q).Priority = %v, want high", q, c.Priority)
		}
		if len(c.Domains) != 4 {
			t.Errorf("Classify(%q): %d domains, want 4", q, len(c.Domains))
		}
	}
}

func TestClassifySingleDomain(t *testing.T) {
	tests := []struct {
		query string
		want  meeting.Domain
	}{
		{"how many work orders completed today?", meeting.DomainProduction},
		{"show the defect rate trend", meeting.DomainQuality},
		{"which machine had the most downtime?", meeting.DomainEquipment},
		{"any material shortages this week?", meeting.DomainInventory},
	}

	for _, tt := range tests {
		c := Classify(tt.query)
		if c.Type != TypeSingleDomain {
			t.Errorf("Classify(%q).Type = %v, want single_domain", tt.query, c.Type)
		}
		if len(c.Domains) != 1 || c.Domains[0] != tt.want {
			t.Errorf("Classify(%q).Domains = %v, want [%v]", tt.query, c.Domains, tt.want)
		}
		if c.RequiresCoordination {
			t.Errorf("Classify(%q): RequiresCoordination = true", tt.query)
		}
	}
}

func TestClassifyMultiDomain(t *testing.T) {
	c := Classify("how does machine downtime affect our output and yield?")
	if c.Type != TypeMultiDomain {
		t.Fatalf("Type = %v, want multi_domain", c.Type)
	}
	if !c.RequiresCoordination {
		t.Error("RequiresCoordination = false")
	}
	if len(c.Domains) < 2 {
		t.Errorf("Domains = %v, want at least 2", c.Domains)
	}
}

func TestClassifyGeneralFansOut(t *testing.T) {
	c := Classify("anything I should know?")
	if c.Type != TypeGeneral {
		t.Fatalf("Type = %v, want general", c.Type)
	}
	if len(c.Domains) != 4 {
		t.Errorf("Domains = %v, want all four", c.Domains)
	}
	if c.Priority != PriorityLow {
		t.Errorf("Priority = %v, want low", c.Priority)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	const q = "equipment downtime impact on production and inventory"
	first := Classify(q)
	for i := 0; i < 10; i++ {
		got := Classify(q)
		if got.Type != first.Type || len(got.Domains) != len(first.Domains) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
		for j := range got.Domains {
			if got.Domains[j] != first.Domains[j] {
				t.Fatalf("run %d domain order differs: %v vs %v", i, got.Domains, first.Domains)
			}
		}
	}
}

func TestBriefingWinsOverDomainHits(t *testing.T) {
	// "production status" contains a production keyword but is a briefing phrase.
	c := Classify("production status")
	if c.Type != TypeDailyBriefing {
		t.Errorf("Type = %v, want daily_briefing", c.Type)
	}
}

package orchestrator

import (
	"fmt"
	"strings"

	"github.com/kalambet/shiftbrief/internal/classify"
	"github.com/kalambet/shiftbrief/internal/meeting"
)

var domainHeadings = map[meeting.Domain]string{
	meeting.DomainProduction: "Production Performance",
	meeting.DomainQuality:    "Quality Status",
	meeting.DomainEquipment:  "Equipment Status",
	meeting.DomainInventory:  "Inventory Alerts",
}

var domainKPIs = map[meeting.Domain]string{
	meeting.DomainProduction: "work order completion, output vs target, scrap rate",
	meeting.DomainQuality:    "defect rate, yield, first-pass quality",
	meeting.DomainEquipment:  "OEE, downtime incidents, machine status",
	meeting.DomainInventory:  "reorder alerts, stock-outs, consumption vs forecast",
}

// synthesize assembles the meeting-ready report from whatever domain analyses
// succeeded. Sections follow dispatch order so the same inputs always produce
// the same report. Failed domains are named rather than silently dropped.
func synthesize(c classify.Classification, query string, mc meeting.Context, results []DomainResult) string {
	var b strings.Builder

	switch c.Type {
	case classify.TypeDailyBriefing:
		fmt.Fprintf(&b, "# Daily Production Briefing (%s meeting)\n\n", mc.Type)
	case classify.TypeMultiDomain:
		b.WriteString("# Cross-Domain Analysis\n\n")
	default:
		b.WriteString("# Meeting Analysis\n\n")
	}

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "Query: %s\n\n", query)
	var ok, failed []string
	for _, r := range results {
		if r.Success {
			ok = append(ok, string(r.Domain))
		} else {
			failed = append(failed, string(r.Domain))
		}
	}
	fmt.Fprintf(&b, "Domains analyzed: %s.\n", strings.Join(ok, ", "))
	if len(failed) > 0 {
		fmt.Fprintf(&b, "Unavailable this run: %s. Findings below cover the remaining areas.\n", strings.Join(failed, ", "))
	}
	b.WriteString("\n")

	b.WriteString("## Critical Issues\n\n")
	if len(failed) == 0 {
		b.WriteString("No analysis branch failed this run. Check the domain sections for issues flagged by the analysts.\n")
	} else {
		for _, d := range failed {
			fmt.Fprintf(&b, "- %s analysis is unavailable; that area is a blind spot for this meeting\n", d)
		}
	}
	b.WriteString("\n")

	b.WriteString("## KPIs\n\n")
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(&b, "- %s: %s\n", domainHeadings[r.Domain], domainKPIs[r.Domain])
		}
	}
	b.WriteString("\n")

	for _, r := range results {
		if !r.Success {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", domainHeadings[r.Domain], strings.TrimSpace(r.Text))
	}

	b.WriteString("## Recommendations\n\n")
	for _, rec := range recommendations(c, failed) {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	b.WriteString("\n")

	b.WriteString("## Follow-ups\n\n")
	for _, item := range actionItems(c, failed) {
		fmt.Fprintf(&b, "- [ ] %s\n", item)
	}

	return b.String()
}

func recommendations(c classify.Classification, failed []string) []string {
	var recs []string
	switch c.Type {
	case classify.TypeDailyBriefing:
		recs = append(recs,
			"Walk the domain sections above in order and assign an owner to each critical issue",
			"Compare today's KPIs against yesterday's briefing before closing the meeting",
		)
	case classify.TypeMultiDomain:
		recs = append(recs,
			"Reconcile findings that span more than one domain before committing to actions",
		)
	default:
		recs = append(recs,
			"Review the analysis above before the discussion phase",
		)
	}
	for _, d := range failed {
		recs = append(recs, fmt.Sprintf("Treat the %s area as unknown until its analysis is re-run", d))
	}
	return recs
}

func actionItems(c classify.Classification, failed []string) []string {
	var items []string
	switch c.Type {
	case classify.TypeDailyBriefing:
		items = append(items,
			"Confirm priority actions with each area lead",
			"Review open action items from the previous meeting",
		)
	case classify.TypeMultiDomain:
		items = append(items,
			"Assign owners for the cross-domain findings above",
		)
	default:
		items = append(items,
			"Decide whether the findings above need an owner",
		)
	}
	for _, d := range failed {
		items = append(items, fmt.Sprintf("Re-run the %s analysis after the meeting", d))
	}
	return items
}

// Package capability implements the domain analysis capabilities: LLM-backed
// analysts, one per manufacturing domain, that answer meeting questions over
// live production data.
package capability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/shiftbrief/internal/meeting"
	"github.com/kalambet/shiftbrief/internal/ollama"
)

// Chatter abstracts the inference backend so tests can swap in a mock.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, schema *ollama.Schema) (string, error)
}

// DataProvider supplies the production data snapshot that grounds prompts.
type DataProvider interface {
	ProductionContext(ctx context.Context, meetingType string) (string, error)
}

// Analyzer is the boundary the orchestrator dispatches through. Analysis
// calls are best-effort: they may be slow or fail, and the caller owns
// timeout and recovery handling. coordinated marks branches of a
// multi-domain fan-out whose answers will be merged into one report.
type Analyzer interface {
	Analyze(ctx context.Context, domain meeting.Domain, query string, mc meeting.Context, coordinated bool) (string, error)
}

// OllamaAnalyzer answers domain questions with a local Ollama model, grounding
// each prompt in a current production data snapshot.
type OllamaAnalyzer struct {
	chatter Chatter
	model   string
	data    DataProvider
}

// NewOllamaAnalyzer creates an analyzer backed by the given chat client and
// model. data may be nil, in which case prompts carry no data snapshot.
func NewOllamaAnalyzer(chatter Chatter, model string, data DataProvider) *OllamaAnalyzer {
	return &OllamaAnalyzer{chatter: chatter, model: model, data: data}
}

// Analyze runs one domain analysis. The returned text is the model's analysis
// verbatim; the orchestrator is responsible for formatting and synthesis.
func (a *OllamaAnalyzer) Analyze(ctx context.Context, domain meeting.Domain, query string, mc meeting.Context, coordinated bool) (string, error) {
	prompt := a.buildPrompt(ctx, domain, query, mc, coordinated)

	result, err := a.chatter.Chat(ctx, a.model, []ollama.Message{
		{Role: "system", Content: SystemPrompt(domain)},
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("%s analysis: %w", domain, err)
	}
	if strings.TrimSpace(result) == "" {
		return "", fmt.Errorf("%s analysis: model returned empty response", domain)
	}
	return result, nil
}

func (a *OllamaAnalyzer) buildPrompt(ctx context.Context, domain meeting.Domain, query string, mc meeting.Context, coordinated bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s meeting query (%s phase): %s\n", mc.Type, mc.Phase, query)

	if mc.TimeRemaining != nil {
		fmt.Fprintf(&b, "Meeting time remaining: %d minutes. Keep the answer tight.\n", *mc.TimeRemaining)
	}

	if a.data != nil {
		snapshot, err := a.data.ProductionContext(ctx, mc.Type)
		if err != nil {
			// The analysis can still run; it just loses grounding data.
			slog.Warn("production context unavailable", "domain", domain, "error", err)
		} else if snapshot != "" {
			b.WriteString("\n")
			b.WriteString(snapshot)
		}
	}

	b.WriteString("\nProvide the analysis for the ")
	b.WriteString(string(domain))
	b.WriteString(" domain.")

	if coordinated {
		b.WriteString("\n\n")
		b.WriteString(SynthesisPrompt)
	}
	return b.String()
}

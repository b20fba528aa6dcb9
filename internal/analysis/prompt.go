package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finlens/finlens/internal/core"
)

const systemPrompt = `You are a careful market analyst. You are given a fact pack: a bounded snapshot of price, indicators, levels, and context for a single symbol. Base every statement strictly on the facts provided; where a value is null it is unknown, not zero. Be direct about uncertainty, avoid hype, and never present the output as financial advice. Respond with a single JSON object conforming to the requested schema and nothing else.`

// buildPrompt renders the request into a bounded context for the engine.
// Empty optional sections of the pack are pruned so the context stays
// small.
func buildPrompt(req core.AnalysisRequest, includeSchema bool) (string, error) {
	facts, err := encodeFacts(req.Pack)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Symbol: %s (%s)\n\n", req.Pack.Symbol, req.Pack.AssetClass))

	sb.WriteString("## Fact Pack:\n```json\n")
	sb.Write(facts)
	sb.WriteString("\n```\n\n")

	if req.Horizon != "" {
		sb.WriteString(fmt.Sprintf("## Horizon: %s\n", req.Horizon))
	}
	if req.Risk != "" {
		sb.WriteString(fmt.Sprintf("## Risk appetite: %s\n", req.Risk))
	}
	sb.WriteString("\n")

	sb.WriteString("## Task:\n")
	sb.WriteString("Produce a structured analysis of the symbol from the fact pack alone.\n")
	sb.WriteString("Rate 1 (strong avoid) to 5 (strong setup), with a confidence between 0 and 1.\n")
	sb.WriteString("Propose entry and exit plans anchored to the extracted levels where sensible.\n")

	if includeSchema {
		sb.WriteString("\nRespond with JSON matching exactly this schema:\n```json\n")
		sb.WriteString(resultSchema)
		sb.WriteString("\n```\n")
	}

	return sb.String(), nil
}

// encodeFacts marshals the pack compactly, dropping sections that carry
// no information.
func encodeFacts(pack core.FactPack) ([]byte, error) {
	trimmed := pack
	if trimmed.Events != nil && !trimmed.Events.Known() {
		trimmed.Events = nil
	}
	if trimmed.Options != nil && !trimmed.Options.Known() {
		trimmed.Options = nil
	}
	if trimmed.Derivs != nil && !trimmed.Derivs.Known() {
		trimmed.Derivs = nil
	}
	return json.Marshal(trimmed)
}

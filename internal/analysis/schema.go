// Package analysis turns a fact pack into a schema-conformant analysis
// result via a generative engine, with validation, bounded repair, and a
// single fallback attempt.
package analysis

import "encoding/json"

// SchemaName labels the structured output format for engines that
// enforce schemas server-side.
const SchemaName = "market_analysis"

// maxListItems bounds every array in a repaired result.
const maxListItems = 8

// resultSchema is the fixed output contract. Engines with native schema
// enforcement receive it directly; others get it embedded in the prompt.
const resultSchema = `{
  "type": "object",
  "properties": {
    "symbol": {"type": "string"},
    "rating": {"type": "integer", "minimum": 1, "maximum": 5},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "summary": {"type": "string"},
    "action": {"type": "string", "enum": ["buy", "hold", "sell"]},
    "trend": {
      "type": "object",
      "properties": {
        "dir": {"type": "string", "enum": ["up", "down", "side"]},
        "rsi": {"type": "number"},
        "sma20_above50": {"type": "boolean"},
        "price_vs_sma200": {"type": "string", "enum": ["above", "below"]}
      }
    },
    "levels": {
      "type": "object",
      "properties": {
        "support": {"type": "array", "items": {"type": "number"}},
        "resistance": {"type": "array", "items": {"type": "number"}}
      },
      "required": ["support", "resistance"]
    },
    "entry_plan": {
      "type": "object",
      "properties": {
        "method": {"type": "string"},
        "entries": {"type": "array", "items": {"type": "number"}},
        "stops": {"type": "array", "items": {"type": "number"}},
        "targets": {"type": "array", "items": {"type": "number"}},
        "notes": {"type": "string"}
      }
    },
    "exit_plan": {
      "type": "object",
      "properties": {
        "method": {"type": "string"},
        "entries": {"type": "array", "items": {"type": "number"}},
        "stops": {"type": "array", "items": {"type": "number"}},
        "targets": {"type": "array", "items": {"type": "number"}},
        "notes": {"type": "string"}
      }
    },
    "signals_bull": {"type": "array", "items": {"type": "string"}},
    "signals_bear": {"type": "array", "items": {"type": "string"}},
    "derivs": {"type": "object"},
    "events": {"type": "object"},
    "news": {"type": "array", "items": {"type": "string"}},
    "risk_notes": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["symbol", "rating", "confidence", "summary", "action", "levels", "entry_plan", "exit_plan"]
}`

// Schema returns the output contract as raw JSON.
func Schema() json.RawMessage {
	return json.RawMessage(resultSchema)
}

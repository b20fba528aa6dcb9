package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/finlens/finlens/internal/core"
)

// Violation is one schema deviation found in a candidate response. Hard
// violations (missing required field, wrong structural shape) cannot be
// repaired; soft ones are fixed mechanically.
type Violation struct {
	Path string
	Msg  string
	Hard bool
}

func (v Violation) String() string {
	kind := "soft"
	if v.Hard {
		kind = "hard"
	}
	return fmt.Sprintf("%s: %s (%s)", v.Path, v.Msg, kind)
}

// CheckResult reports every violation found in a candidate, plus a
// repaired copy when all violations were soft. The input is never
// mutated.
type CheckResult struct {
	Valid      bool
	Violations []Violation
	Repaired   map[string]any // nil when a hard violation was found
}

// Hard reports whether any violation is unrepairable.
func (r CheckResult) Hard() bool {
	for _, v := range r.Violations {
		if v.Hard {
			return true
		}
	}
	return false
}

var knownFields = map[string]bool{
	"symbol": true, "rating": true, "confidence": true, "summary": true,
	"action": true, "trend": true, "levels": true, "entry_plan": true,
	"exit_plan": true, "signals_bull": true, "signals_bear": true,
	"derivs": true, "events": true, "news": true, "risk_notes": true,
}

type checker struct {
	violations []Violation
}

func (c *checker) soft(path, msg string) {
	c.violations = append(c.violations, Violation{Path: path, Msg: msg})
}

func (c *checker) hard(path, msg string) {
	c.violations = append(c.violations, Violation{Path: path, Msg: msg, Hard: true})
}

// Check validates a candidate response against the analysis contract.
// It enumerates every violation, never just the first, and repairing an
// already-repaired candidate is a no-op.
func Check(candidate map[string]any) CheckResult {
	c := &checker{}
	out := map[string]any{}

	keys := make([]string, 0, len(candidate))
	for k := range candidate {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !knownFields[k] {
			c.soft(k, "unknown field dropped")
		}
	}

	if s, ok := c.requireString(candidate, "symbol"); ok {
		out["symbol"] = s
	}

	if f, ok := c.requireNumber(candidate, "rating"); ok {
		n := math.Round(f)
		if n != f {
			c.soft("rating", "non-integer rounded")
		}
		if n < 1 {
			c.soft("rating", fmt.Sprintf("%g clamped to 1", n))
			n = 1
		} else if n > 5 {
			c.soft("rating", fmt.Sprintf("%g clamped to 5", n))
			n = 5
		}
		out["rating"] = n
	}

	if f, ok := c.requireNumber(candidate, "confidence"); ok {
		if f < 0 {
			c.soft("confidence", fmt.Sprintf("%g clamped to 0", f))
			f = 0
		} else if f > 1 {
			c.soft("confidence", fmt.Sprintf("%g clamped to 1", f))
			f = 1
		}
		out["confidence"] = f
	}

	if s, ok := c.requireString(candidate, "summary"); ok {
		out["summary"] = s
	}

	if s, ok := c.requireString(candidate, "action"); ok {
		norm := strings.ToLower(strings.TrimSpace(s))
		switch norm {
		case "buy", "hold", "sell":
			if norm != s {
				c.soft("action", "normalized")
			}
			out["action"] = norm
		default:
			c.hard("action", fmt.Sprintf("unknown action %q", s))
		}
	}

	if obj, ok := c.requireObject(candidate, "levels"); ok {
		out["levels"] = map[string]any{
			"support":    c.floatList(obj["support"], "levels.support"),
			"resistance": c.floatList(obj["resistance"], "levels.resistance"),
		}
	}

	if obj, ok := c.requireObject(candidate, "entry_plan"); ok {
		out["entry_plan"] = c.repairPlan(obj, "entry_plan")
	}
	if obj, ok := c.requireObject(candidate, "exit_plan"); ok {
		out["exit_plan"] = c.repairPlan(obj, "exit_plan")
	}

	if raw, present := candidate["trend"]; present {
		if obj, ok := raw.(map[string]any); ok {
			out["trend"] = c.repairTrend(obj)
		} else {
			c.soft("trend", "not an object, dropped")
		}
	}

	for _, key := range []string{"signals_bull", "signals_bear", "news", "risk_notes"} {
		if raw, present := candidate[key]; present {
			out[key] = c.stringList(raw, key)
		}
	}

	if raw, present := candidate["derivs"]; present {
		if obj, ok := raw.(map[string]any); ok {
			out["derivs"] = c.repairDerivs(obj)
		} else {
			c.soft("derivs", "not an object, dropped")
		}
	}
	if raw, present := candidate["events"]; present {
		if obj, ok := raw.(map[string]any); ok {
			out["events"] = c.repairEvents(obj)
		} else {
			c.soft("events", "not an object, dropped")
		}
	}

	result := CheckResult{
		Valid:      len(c.violations) == 0,
		Violations: c.violations,
	}
	if !result.Hard() {
		result.Repaired = out
	}
	return result
}

// Decode converts a repaired candidate into the typed result.
func Decode(repaired map[string]any) (*core.AnalysisResult, error) {
	buf, err := json.Marshal(repaired)
	if err != nil {
		return nil, fmt.Errorf("encoding repaired candidate: %w", err)
	}
	var res core.AnalysisResult
	if err := json.Unmarshal(buf, &res); err != nil {
		return nil, fmt.Errorf("decoding repaired candidate: %w", err)
	}
	return &res, nil
}

func (c *checker) requireString(m map[string]any, key string) (string, bool) {
	raw, present := m[key]
	if !present {
		c.hard(key, "required field missing")
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		c.hard(key, "not a string")
		return "", false
	}
	return s, true
}

func (c *checker) requireNumber(m map[string]any, key string) (float64, bool) {
	raw, present := m[key]
	if !present {
		c.hard(key, "required field missing")
		return 0, false
	}
	f, coerced, ok := coerceNumber(raw)
	if !ok {
		c.hard(key, "not a number")
		return 0, false
	}
	if coerced {
		c.soft(key, "coerced from string")
	}
	return f, true
}

func (c *checker) requireObject(m map[string]any, key string) (map[string]any, bool) {
	raw, present := m[key]
	if !present {
		c.hard(key, "required field missing")
		return nil, false
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		c.hard(key, "not an object")
		return nil, false
	}
	return obj, true
}

// coerceNumber accepts native JSON numbers plus numeric strings. The
// second return reports whether a coercion happened.
func coerceNumber(raw any) (float64, bool, bool) {
	switch x := raw.(type) {
	case float64:
		return x, false, true
	case int:
		return float64(x), false, true
	case json.Number:
		f, err := x.Float64()
		return f, false, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil, err == nil
	}
	return 0, false, false
}

// floatList repairs a numeric array: non-numeric entries are dropped,
// length is capped. A missing or malformed array repairs to empty.
func (c *checker) floatList(raw any, path string) []any {
	out := []any{}
	if raw == nil {
		return out
	}
	items, ok := raw.([]any)
	if !ok {
		c.soft(path, "not an array, dropped")
		return out
	}
	for i, item := range items {
		if i >= maxListItems {
			c.soft(path, fmt.Sprintf("truncated to %d items", maxListItems))
			break
		}
		f, coerced, ok := coerceNumber(item)
		if !ok {
			c.soft(fmt.Sprintf("%s[%d]", path, i), "not a number, dropped")
			continue
		}
		if coerced {
			c.soft(fmt.Sprintf("%s[%d]", path, i), "coerced from string")
		}
		out = append(out, f)
	}
	return out
}

func (c *checker) stringList(raw any, path string) []any {
	out := []any{}
	if raw == nil {
		return out
	}
	items, ok := raw.([]any)
	if !ok {
		c.soft(path, "not an array, dropped")
		return out
	}
	for i, item := range items {
		if i >= maxListItems {
			c.soft(path, fmt.Sprintf("truncated to %d items", maxListItems))
			break
		}
		s, ok := item.(string)
		if !ok {
			c.soft(fmt.Sprintf("%s[%d]", path, i), "not a string, dropped")
			continue
		}
		out = append(out, s)
	}
	return out
}

func (c *checker) repairPlan(obj map[string]any, path string) map[string]any {
	out := map[string]any{}
	if s, ok := obj["method"].(string); ok {
		out["method"] = s
	}
	for _, key := range []string{"entries", "stops", "targets"} {
		if raw, present := obj[key]; present {
			out[key] = c.floatList(raw, path+"."+key)
		}
	}
	if s, ok := obj["notes"].(string); ok {
		out["notes"] = s
	}
	return out
}

func (c *checker) repairTrend(obj map[string]any) map[string]any {
	out := map[string]any{}
	if s, ok := obj["dir"].(string); ok {
		norm := strings.ToLower(strings.TrimSpace(s))
		if norm == "sideways" {
			norm = "side"
		}
		switch norm {
		case "up", "down", "side":
			if norm != s {
				c.soft("trend.dir", "normalized")
			}
			out["dir"] = norm
		default:
			c.soft("trend.dir", fmt.Sprintf("unknown direction %q, dropped", s))
		}
	}
	if raw, present := obj["rsi"]; present {
		if f, coerced, ok := coerceNumber(raw); ok {
			if coerced {
				c.soft("trend.rsi", "coerced from string")
			}
			out["rsi"] = f
		} else {
			c.soft("trend.rsi", "not a number, dropped")
		}
	}
	if b, ok := obj["sma20_above50"].(bool); ok {
		out["sma20_above50"] = b
	}
	if s, ok := obj["price_vs_sma200"].(string); ok {
		norm := strings.ToLower(strings.TrimSpace(s))
		if norm == "above" || norm == "below" {
			out["price_vs_sma200"] = norm
		} else {
			c.soft("trend.price_vs_sma200", fmt.Sprintf("unknown value %q, dropped", s))
		}
	}
	return out
}

var derivFields = []string{
	"funding_rate", "open_interest", "open_interest_notional",
	"open_interest_change_24h", "implied_vol_rank",
}

func (c *checker) repairDerivs(obj map[string]any) map[string]any {
	out := map[string]any{}
	for _, key := range derivFields {
		if raw, present := obj[key]; present && raw != nil {
			if f, coerced, ok := coerceNumber(raw); ok {
				if coerced {
					c.soft("derivs."+key, "coerced from string")
				}
				out[key] = f
			} else {
				c.soft("derivs."+key, "not a number, dropped")
			}
		}
	}
	return out
}

func (c *checker) repairEvents(obj map[string]any) map[string]any {
	out := map[string]any{}
	for _, key := range []string{"next_earnings", "dividend_ex_date"} {
		raw, present := obj[key]
		if !present || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			c.soft("events."+key, "not a date string, dropped")
			continue
		}
		if norm, ok := normalizeDate(s); ok {
			if norm != s {
				c.soft("events."+key, "date normalized")
			}
			out[key] = norm
		} else {
			c.soft("events."+key, fmt.Sprintf("unparseable date %q, dropped", s))
		}
	}
	return out
}

func normalizeDate(s string) (string, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.RFC3339), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC().Format(time.RFC3339), true
	}
	return "", false
}

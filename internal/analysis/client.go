package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/finlens/finlens/internal/config"
	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/llm"
	"github.com/finlens/finlens/internal/metrics"
)

// Recorder captures raw engine payloads for offline debugging.
type Recorder interface {
	Record(ctx context.Context, kind, symbol string, payload []byte) error
}

// Client runs the request/validate/retry loop against a primary engine
// and at most one fallback. It holds no state across calls.
type Client struct {
	primary  llm.Provider
	fallback llm.Provider // nil disables the fallback attempt
	cfg      config.AnalysisConfig
	log      *zap.Logger
	recorder Recorder          // nil disables payload capture
	metrics  *metrics.Registry // nil disables metrics
}

// NewClient creates an analysis client. recorder and reg may be nil.
func NewClient(primary, fallback llm.Provider, cfg config.AnalysisConfig, log *zap.Logger, recorder Recorder, reg *metrics.Registry) *Client {
	return &Client{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		log:      log,
		recorder: recorder,
		metrics:  reg,
	}
}

// Analyze runs one analysis: primary attempt, then exactly one fallback
// attempt on any failure. The overall timeout, when set, bounds both
// attempts together. Both attempts failing yields ErrAnalysisUnavailable
// wrapping the last cause.
func (c *Client) Analyze(ctx context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error) {
	if c.cfg.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.OverallTimeout)
		defer cancel()
	}

	providers := []llm.Provider{c.primary}
	if c.fallback != nil {
		providers = append(providers, c.fallback)
	}

	var lastErr error
	for i, p := range providers {
		res, err := c.attempt(ctx, p, req)
		if err == nil {
			return res, nil
		}
		lastErr = err
		c.log.Warn("analysis attempt failed",
			zap.String("provider", p.Name()),
			zap.String("symbol", req.Pack.Symbol),
			zap.Bool("fallback", i > 0),
			zap.Error(err))
		if ctx.Err() != nil {
			// Overall deadline is gone; the fallback would fail the
			// same way.
			break
		}
	}
	return nil, core.WrapError(core.ErrAnalysisUnavailable, lastErr)
}

func (c *Client) attempt(ctx context.Context, p llm.Provider, req core.AnalysisRequest) (*core.AnalysisResult, error) {
	prompt, err := buildPrompt(req, !p.SupportsSchema())
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	attemptCtx := ctx
	if c.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
	}

	chatReq := llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens:    c.cfg.MaxTokens,
		Temperature:  c.cfg.Temperature,
		JSONMode:     true,
	}
	if p.SupportsSchema() {
		chatReq.Schema = &llm.ResponseSchema{Name: SchemaName, Schema: Schema(), Strict: true}
	}

	resp, err := p.Chat(attemptCtx, chatReq)
	if err != nil {
		c.recordAttempt(p.Name(), "error")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.WrapError(core.ErrLLMTimeout, err)
		}
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}

	if c.cfg.Debug {
		c.log.Debug("raw engine payload",
			zap.String("provider", p.Name()),
			zap.String("symbol", req.Pack.Symbol),
			zap.String("content", resp.Content),
			zap.Int("output_tokens", resp.Usage.OutputTokens))
	}
	if c.recorder != nil {
		if err := c.recorder.Record(ctx, "analysis_response", req.Pack.Symbol, []byte(resp.Content)); err != nil {
			c.log.Warn("payload capture failed", zap.Error(err))
		}
	}

	candidate, err := extractJSON(resp.Content)
	if err != nil {
		c.recordAttempt(p.Name(), "malformed")
		return nil, core.WrapError(core.ErrSchemaValidation, err)
	}

	check := Check(candidate)
	if check.Hard() {
		c.recordAttempt(p.Name(), "invalid")
		return nil, core.WrapError(core.ErrSchemaValidation,
			fmt.Errorf("hard violations: %s", joinViolations(check.Violations)))
	}
	if !check.Valid {
		c.log.Info("response repaired",
			zap.String("provider", p.Name()),
			zap.Int("violations", len(check.Violations)))
		if c.metrics != nil {
			c.metrics.RecordSchemaRepairs(len(check.Violations))
		}
	}

	res, err := Decode(check.Repaired)
	if err != nil {
		c.recordAttempt(p.Name(), "invalid")
		return nil, core.WrapError(core.ErrSchemaValidation, err)
	}

	c.recordAttempt(p.Name(), "ok")
	return res, nil
}

func (c *Client) recordAttempt(provider, status string) {
	if c.metrics != nil {
		c.metrics.RecordAnalysisAttempt(provider, status)
	}
}

// extractJSON pulls the outermost JSON object from engine output that
// may be wrapped in code fences or prose.
func extractJSON(content string) (map[string]any, error) {
	s := strings.TrimSpace(content)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var candidate map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &candidate); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}
	return candidate, nil
}

func joinViolations(vs []Violation) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		if v.Hard {
			parts = append(parts, v.String())
		}
	}
	return strings.Join(parts, "; ")
}

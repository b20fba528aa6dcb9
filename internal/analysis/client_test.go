package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/finlens/finlens/internal/config"
	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/llm"
)

const validResponse = `{
	"symbol": "AAPL",
	"rating": 4,
	"confidence": 0.7,
	"summary": "Uptrend intact.",
	"action": "buy",
	"levels": {"support": [180.0], "resistance": [195.0]},
	"entry_plan": {"entries": [182.0]},
	"exit_plan": {"targets": [194.0]}
}`

type fakeProvider struct {
	name    string
	schema  bool
	calls   int
	lastReq llm.ChatRequest
	respond func(req llm.ChatRequest) (*llm.ChatResponse, error)
}

func (f *fakeProvider) Name() string         { return f.name }
func (f *fakeProvider) SupportsSchema() bool { return f.schema }

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	return f.respond(req)
}

func respondWith(content string) func(llm.ChatRequest) (*llm.ChatResponse, error) {
	return func(llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: content}, nil
	}
}

func testRequest() core.AnalysisRequest {
	return core.AnalysisRequest{
		Pack: core.FactPack{
			Symbol:     "AAPL",
			AssetClass: core.AssetStock,
			AsOf:       time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
			Indicators: core.IndicatorSet{"rsi14": core.Def(61.5)},
		},
		Horizon: "swing",
		Risk:    "moderate",
	}
}

func testConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		Primary:     "primary",
		Fallback:    "fallback",
		Temperature: 0.3,
		MaxTokens:   2048,
	}
}

func TestAnalyze_PrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "primary", schema: true, respond: respondWith(validResponse)}
	fallback := &fakeProvider{name: "fallback", respond: respondWith(validResponse)}

	c := NewClient(primary, fallback, testConfig(), zap.NewNop(), nil, nil)
	res, err := c.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if res.Rating != 4 || res.Action != "buy" {
		t.Errorf("unexpected result: %+v", res)
	}
	if primary.calls != 1 {
		t.Errorf("expected 1 primary call, got %d", primary.calls)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback must not run when primary succeeds, got %d calls", fallback.calls)
	}
}

func TestAnalyze_PrimaryTimeoutFallsBackOnce(t *testing.T) {
	primary := &fakeProvider{name: "primary", schema: true,
		respond: func(llm.ChatRequest) (*llm.ChatResponse, error) {
			return nil, context.DeadlineExceeded
		}}
	fallback := &fakeProvider{name: "fallback", respond: respondWith(validResponse)}

	c := NewClient(primary, fallback, testConfig(), zap.NewNop(), nil, nil)
	res, err := c.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("expected fallback to rescue the request: %v", err)
	}

	if primary.calls != 1 {
		t.Errorf("primary must be tried exactly once, got %d", primary.calls)
	}
	if fallback.calls != 1 {
		t.Errorf("fallback must be tried exactly once, got %d", fallback.calls)
	}
	if res.Confidence != 0.7 {
		t.Errorf("expected fallback confidence 0.7, got %g", res.Confidence)
	}
}

func TestAnalyze_OverallTimeoutSkipsFallback(t *testing.T) {
	primary := &fakeProvider{name: "primary", schema: true,
		respond: func(llm.ChatRequest) (*llm.ChatResponse, error) {
			time.Sleep(100 * time.Millisecond)
			return nil, context.DeadlineExceeded
		}}
	fallback := &fakeProvider{name: "fallback", respond: respondWith(validResponse)}

	cfg := testConfig()
	cfg.OverallTimeout = 50 * time.Millisecond

	c := NewClient(primary, fallback, cfg, zap.NewNop(), nil, nil)
	_, err := c.Analyze(context.Background(), testRequest())
	if !errors.Is(err, core.ErrAnalysisUnavailable) {
		t.Errorf("expected ErrAnalysisUnavailable, got %v", err)
	}

	if primary.calls != 1 {
		t.Errorf("primary must be tried exactly once, got %d", primary.calls)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback must be skipped once the overall budget is spent, got %d calls", fallback.calls)
	}
}

func TestAnalyze_MissingConfidenceTriggersFallback(t *testing.T) {
	missing := strings.Replace(validResponse, "\"confidence\": 0.7,\n", "", 1)
	primary := &fakeProvider{name: "primary", schema: true, respond: respondWith(missing)}
	fallback := &fakeProvider{name: "fallback", respond: respondWith(validResponse)}

	c := NewClient(primary, fallback, testConfig(), zap.NewNop(), nil, nil)
	res, err := c.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("expected fallback result: %v", err)
	}

	if fallback.calls != 1 {
		t.Errorf("hard violation must route to fallback, got %d calls", fallback.calls)
	}
	// Confidence comes from the fallback response, never fabricated.
	if res.Confidence != 0.7 {
		t.Errorf("expected confidence 0.7 from fallback, got %g", res.Confidence)
	}
}

func TestAnalyze_BothAttemptsFail(t *testing.T) {
	fail := func(llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, errors.New("boom")
	}
	primary := &fakeProvider{name: "primary", schema: true, respond: fail}
	fallback := &fakeProvider{name: "fallback", respond: fail}

	c := NewClient(primary, fallback, testConfig(), zap.NewNop(), nil, nil)
	_, err := c.Analyze(context.Background(), testRequest())

	if !errors.Is(err, core.ErrAnalysisUnavailable) {
		t.Errorf("expected ErrAnalysisUnavailable, got %v", err)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("expected one call each, got primary=%d fallback=%d", primary.calls, fallback.calls)
	}
}

func TestAnalyze_NoFallbackConfigured(t *testing.T) {
	primary := &fakeProvider{name: "primary", schema: true,
		respond: func(llm.ChatRequest) (*llm.ChatResponse, error) {
			return nil, errors.New("boom")
		}}

	c := NewClient(primary, nil, testConfig(), zap.NewNop(), nil, nil)
	_, err := c.Analyze(context.Background(), testRequest())

	if !errors.Is(err, core.ErrAnalysisUnavailable) {
		t.Errorf("expected ErrAnalysisUnavailable, got %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("expected 1 primary call, got %d", primary.calls)
	}
}

func TestAnalyze_SchemaDeliveryByCapability(t *testing.T) {
	native := &fakeProvider{name: "native", schema: true, respond: respondWith(validResponse)}
	c := NewClient(native, nil, testConfig(), zap.NewNop(), nil, nil)
	if _, err := c.Analyze(context.Background(), testRequest()); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if native.lastReq.Schema == nil {
		t.Error("schema-capable provider must receive the schema natively")
	}
	if strings.Contains(native.lastReq.Messages[0].Content, `"required"`) {
		t.Error("schema must not be duplicated into the prompt")
	}

	emulated := &fakeProvider{name: "emulated", respond: respondWith(validResponse)}
	c = NewClient(emulated, nil, testConfig(), zap.NewNop(), nil, nil)
	if _, err := c.Analyze(context.Background(), testRequest()); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if emulated.lastReq.Schema != nil {
		t.Error("provider without schema support must not get a native schema")
	}
	if !strings.Contains(emulated.lastReq.Messages[0].Content, `"required"`) {
		t.Error("schema must be embedded in the prompt for emulated enforcement")
	}
}

func TestAnalyze_CodeFencedResponse(t *testing.T) {
	fenced := "Here is the analysis:\n```json\n" + validResponse + "\n```\n"
	primary := &fakeProvider{name: "primary", schema: true, respond: respondWith(fenced)}

	c := NewClient(primary, nil, testConfig(), zap.NewNop(), nil, nil)
	res, err := c.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Symbol != "AAPL" {
		t.Errorf("unexpected symbol %s", res.Symbol)
	}
}

// Package app wires configuration into the fact-pack builder and the
// analysis client, and owns the optional metrics endpoint.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finlens/finlens/internal/analysis"
	"github.com/finlens/finlens/internal/archive"
	"github.com/finlens/finlens/internal/config"
	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/factpack"
	"github.com/finlens/finlens/internal/indicator"
	"github.com/finlens/finlens/internal/levels"
	"github.com/finlens/finlens/internal/llm"
	"github.com/finlens/finlens/internal/llm/factory"
	"github.com/finlens/finlens/internal/metrics"
	"github.com/finlens/finlens/internal/provider/binance"
	"github.com/finlens/finlens/internal/provider/coinbase"
	"github.com/finlens/finlens/internal/provider/cryptopanic"
	"github.com/finlens/finlens/internal/provider/polygon"
)

// App is the assembled application: data sources, builder, analysis
// client, and metrics, all constructed from a validated Config.
type App struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Registry
	builder *factpack.Builder
	client  *analysis.Client
	levels  levels.Config

	mu      sync.Mutex
	srv     *http.Server
	running bool
}

// New constructs the application from configuration. The config is
// expected to have passed Validate.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	reg := metrics.NewRegistry()

	sources := factpack.Sources{
		Stock:        polygon.New(cfg.Providers.Polygon.APIKey),
		CryptoBars:   coinbase.New(),
		CryptoDerivs: binance.New(),
		CryptoNews:   cryptopanic.New(cfg.Providers.CryptoPanic.APIKey),
	}

	lvlCfg := levelsFromConfig(cfg.Levels)
	builder := factpack.NewBuilder(sources, cfg.Builder, lvlCfg, log, reg)

	primary, err := factory.New(cfg.Analysis.Primary, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}
	var fallback llm.Provider
	if cfg.Analysis.Fallback != "" {
		fallback, err = factory.New(cfg.Analysis.Fallback, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("fallback provider: %w", err)
		}
	}

	var recorder analysis.Recorder
	if cfg.Archive.Enabled {
		store, err := archive.New(cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		recorder = archive.NewCapture(store)
	}

	client := analysis.NewClient(primary, fallback, cfg.Analysis, log, recorder, reg)

	return &App{
		cfg:     cfg,
		log:     log,
		metrics: reg,
		builder: builder,
		client:  client,
		levels:  lvlCfg,
	}, nil
}

// BuildFactPack assembles a fact pack for the symbol. An empty class is
// inferred from the symbol's shape.
func (a *App) BuildFactPack(ctx context.Context, symbol string, class core.AssetClass) (*core.FactPack, error) {
	if class == "" {
		class = DetectAssetClass(symbol)
	}
	return a.builder.Build(ctx, symbol, class)
}

// Analyze runs the configured LLM chain over a fact pack and returns a
// validated analysis result.
func (a *App) Analyze(ctx context.Context, pack *core.FactPack, horizon, risk string) (*core.AnalysisResult, error) {
	if pack == nil {
		return nil, fmt.Errorf("fact pack is required")
	}
	return a.client.Analyze(ctx, core.AnalysisRequest{
		Pack:    *pack,
		Horizon: horizon,
		Risk:    risk,
	})
}

// ComputeIndicators evaluates the requested indicators over a series; no
// names means the full default set.
func (a *App) ComputeIndicators(series core.PriceSeries, names ...string) core.IndicatorSet {
	return indicator.ComputeSet(series, names...)
}

// ExtractLevels derives support/resistance levels from a series using
// the configured extractor settings.
func (a *App) ExtractLevels(series core.PriceSeries) core.LevelSet {
	return levels.Extract(series, a.levels)
}

// Start serves the metrics endpoint when enabled. It returns once the
// listener goroutine is launched; a disabled endpoint is a no-op.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("already running")
	}
	if !a.cfg.Metrics.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.metrics.Handler())

	handler := metrics.HTTPMiddleware(a.metrics)(
		metrics.LoggingMiddleware(a.log)(mux),
	)

	a.srv = &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.running = true

	go func() {
		a.log.Info("metrics endpoint listening",
			zap.String("addr", a.cfg.Metrics.Addr),
			zap.String("path", a.cfg.Metrics.Path))
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts down the metrics endpoint, waiting for in-flight scrapes.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false

	if a.srv != nil {
		if err := a.srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		a.srv = nil
	}
	return nil
}

// cryptoQuotes are quote currencies that mark a dashed pair as crypto.
var cryptoQuotes = map[string]bool{
	"USD":  true,
	"USDT": true,
	"USDC": true,
	"EUR":  true,
	"BTC":  true,
	"ETH":  true,
}

// DetectAssetClass infers the asset class from the symbol's shape:
// dashed pairs with a known quote currency (BTC-USD) are crypto,
// everything else is treated as a stock ticker.
func DetectAssetClass(symbol string) core.AssetClass {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(symbol)), "-")
	if len(parts) == 2 && cryptoQuotes[parts[1]] {
		return core.AssetCrypto
	}
	return core.AssetStock
}

func levelsFromConfig(cfg config.LevelsConfig) levels.Config {
	out := levels.DefaultConfig()
	if cfg.Window > 0 {
		out.Window = cfg.Window
	}
	if cfg.Lookback > 0 {
		out.Lookback = cfg.Lookback
	}
	if cfg.ToleranceFactor > 0 {
		out.ToleranceFactor = cfg.ToleranceFactor
	}
	if cfg.MaxPerSide > 0 {
		out.MaxPerSide = cfg.MaxPerSide
	}
	return out
}

// Package factpack assembles bounded, immutable market snapshots: bars
// are fetched and normalized, indicators and levels computed, and
// optional context (events, derivatives, news) merged in as available.
package factpack

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finlens/finlens/internal/config"
	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/indicator"
	"github.com/finlens/finlens/internal/levels"
	"github.com/finlens/finlens/internal/metrics"
	"github.com/finlens/finlens/internal/normalize"
	"github.com/finlens/finlens/internal/provider"
)

// Sources holds the upstream data providers. Stock fields serve stock
// symbols, crypto fields serve crypto symbols; unused ones may be nil.
type Sources struct {
	Stock        provider.StockProvider
	CryptoBars   provider.CryptoBarProvider
	CryptoDerivs provider.CryptoDerivativesProvider
	CryptoNews   provider.CryptoNewsProvider
}

// Builder assembles fact packs. Each Build call is independent; the
// builder keeps no state across calls.
type Builder struct {
	sources Sources
	cfg     config.BuilderConfig
	levels  levels.Config
	log     *zap.Logger
	metrics *metrics.Registry // nil disables metrics
	now     func() time.Time
}

// NewBuilder creates a fact-pack builder. reg may be nil.
func NewBuilder(sources Sources, cfg config.BuilderConfig, levelsCfg levels.Config, log *zap.Logger, reg *metrics.Registry) *Builder {
	return &Builder{
		sources: sources,
		cfg:     cfg,
		levels:  levelsCfg,
		log:     log,
		metrics: reg,
		now:     time.Now,
	}
}

// fetchResults collects the per-source outcomes of one build. Sources
// are independent, so merge order never affects the pack.
type fetchResults struct {
	bars     core.PriceSeries
	dropped  int
	barsErr  error
	prevFeed *float64 // provider-reported previous close, if any

	events    *core.EventInfo
	options   *core.OptionsInfo
	derivsRaw *provider.DerivativesPayload
	news      []core.NewsItem
}

// Build assembles one fact pack within the configured fetch budget.
// Bars are required; events, derivatives, and news degrade to unknown
// on failure. A missing bar series fails the whole build.
func (b *Builder) Build(ctx context.Context, symbol string, class core.AssetClass) (*core.FactPack, error) {
	if !class.Valid() {
		return nil, core.WrapError(core.ErrFactPackBuild, fmt.Errorf("unknown asset class %q", class))
	}

	buildID := uuid.NewString()
	start := b.now()

	ctx, cancel := context.WithTimeout(ctx, b.cfg.FetchBudget)
	defer cancel()

	b.log.Debug("building fact pack",
		zap.String("build_id", buildID),
		zap.String("symbol", symbol),
		zap.String("asset_class", string(class)))

	res := b.fetch(ctx, symbol, class)

	if res.barsErr != nil {
		b.recordBuild(class, "error", start)
		// Classify off the bars error itself: a permanent bars failure
		// stays a build error even when an optional fetch ate the budget.
		if errors.Is(res.barsErr, context.DeadlineExceeded) || errors.Is(res.barsErr, context.Canceled) {
			b.recordBarsFailure("timeout")
			return nil, core.WrapError(core.ErrFactPackTimeout, res.barsErr)
		}
		b.recordBarsFailure("error")
		return nil, core.WrapError(core.ErrFactPackBuild, res.barsErr)
	}

	last, ok := res.bars.Last()
	if !ok {
		b.recordBuild(class, "error", start)
		return nil, core.WrapError(core.ErrFactPackBuild, core.WrapError(core.ErrEmptySeries, nil))
	}

	pack := &core.FactPack{
		Symbol:        symbol,
		AssetClass:    class,
		AsOf:          b.now().UTC(),
		PriceSnapshot: last,
		Indicators:    indicator.ComputeSet(res.bars),
		Levels:        levels.Extract(res.bars, b.levels),
		Events:        res.events,
		Options:       res.options,
		News:          res.news,
		DroppedBars:   res.dropped,
	}
	if pack.News == nil {
		pack.News = []core.NewsItem{}
	}

	// The provider's previous close wins over our own second-to-last bar.
	prev := res.prevFeed
	if prev == nil {
		prev = prevClose(res.bars)
	}
	if prev != nil {
		pack.PrevClose = prev
		if *prev != 0 {
			chg := (last.Close - *prev) / *prev
			pack.Change = &chg
		}
	}

	if res.derivsRaw != nil {
		d := normalize.Derivatives(*res.derivsRaw, last.Close)
		pack.Derivs = &d
	}

	if res.dropped > 0 && b.metrics != nil {
		b.metrics.AddDroppedBars(res.dropped)
	}
	b.recordBuild(class, "ok", start)

	b.log.Info("fact pack built",
		zap.String("build_id", buildID),
		zap.String("symbol", symbol),
		zap.Int("bars", res.bars.Len()),
		zap.Int("dropped_bars", res.dropped),
		zap.Int("news", len(pack.News)),
		zap.Duration("elapsed", b.now().Sub(start)))

	return pack, nil
}

// fetch runs the per-class source fetches concurrently and waits for
// all of them. Optional failures are logged and absorbed here.
func (b *Builder) fetch(ctx context.Context, symbol string, class core.AssetClass) *fetchResults {
	res := &fetchResults{}
	var wg sync.WaitGroup

	if class == core.AssetStock {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := b.sources.Stock.FetchBars(ctx, symbol, b.cfg.Interval, b.cfg.Lookback)
			if err != nil {
				res.barsErr = err
				return
			}
			res.bars, res.dropped, res.barsErr = normalize.StockBars(payload)
			res.prevFeed = payload.PrevClose
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := b.sources.Stock.FetchEvents(ctx, symbol)
			if err != nil {
				b.absorb(symbol, "events", err)
				return
			}
			ev := normalize.Events(payload, b.now().UTC())
			res.events = &ev
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := b.sources.Stock.FetchOptionChain(ctx, symbol, nil)
			if err != nil {
				b.absorb(symbol, "options", err)
				return
			}
			// An empty chain carries no signal worth attaching.
			if len(payload.Contracts) == 0 {
				return
			}
			opt := normalize.OptionChain(payload)
			res.options = &opt
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := b.sources.Stock.FetchNews(ctx, symbol, b.cfg.NewsLimit)
			if err != nil {
				b.absorb(symbol, "news", err)
				return
			}
			res.news = normalize.News(payload, b.cfg.NewsLimit)
		}()
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := b.sources.CryptoBars.FetchBars(ctx, symbol, b.cfg.Interval, b.cfg.Lookback)
			if err != nil {
				res.barsErr = err
				return
			}
			res.bars, res.dropped, res.barsErr = normalize.CryptoBars(payload)
		}()

		if b.sources.CryptoDerivs != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				payload, err := b.sources.CryptoDerivs.FetchFundingOI(ctx, symbol)
				if err != nil {
					b.absorb(symbol, "derivatives", err)
					return
				}
				res.derivsRaw = &payload
			}()
		}

		if b.sources.CryptoNews != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				payload, err := b.sources.CryptoNews.FetchNews(ctx, symbol, b.cfg.NewsLimit)
				if err != nil {
					b.absorb(symbol, "news", err)
					return
				}
				res.news = normalize.News(payload, b.cfg.NewsLimit)
			}()
		}
	}

	wg.Wait()
	return res
}

// absorb records an optional-source failure without failing the build.
func (b *Builder) absorb(symbol, source string, err error) {
	kind := "permanent"
	if errors.Is(err, core.ErrDataSourceTransient) || errors.Is(err, context.DeadlineExceeded) {
		kind = "transient"
	}
	b.log.Warn("optional source failed",
		zap.String("symbol", symbol),
		zap.String("source", source),
		zap.String("kind", kind),
		zap.Error(err))
	if b.metrics != nil {
		b.metrics.RecordSourceFailure(source, kind)
	}
}

func (b *Builder) recordBuild(class core.AssetClass, status string, start time.Time) {
	if b.metrics != nil {
		b.metrics.RecordPackBuild(string(class), status, b.now().Sub(start).Seconds())
	}
}

func (b *Builder) recordBarsFailure(kind string) {
	if b.metrics != nil {
		b.metrics.RecordSourceFailure("bars", kind)
	}
}

// prevClose derives the previous close from the series itself.
func prevClose(series core.PriceSeries) *float64 {
	if series.Len() < 2 {
		return nil
	}
	c := series.Points[series.Len()-2].Close
	return &c
}

package factpack

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/finlens/finlens/internal/config"
	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/levels"
	"github.com/finlens/finlens/internal/provider"
)

func testBars(n int) []provider.RawBar {
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]provider.RawBar, n)
	price := 100.0
	for i := range bars {
		price += 0.5
		bars[i] = provider.RawBar{
			Time:   base.AddDate(0, 0, i).UnixMilli(),
			Open:   price - 0.3,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		}
	}
	return bars
}

type fakeStock struct {
	barsErr    error
	eventsErr  error
	newsErr    error
	optionsErr error
	prevClose  *float64
	block      bool
	newsBlock  bool
}

func (f *fakeStock) Name() string { return "fake-stock" }

func (f *fakeStock) FetchBars(ctx context.Context, symbol, interval string, lookback int) (provider.StockBarsPayload, error) {
	if f.block {
		<-ctx.Done()
		return provider.StockBarsPayload{}, ctx.Err()
	}
	if f.barsErr != nil {
		return provider.StockBarsPayload{}, f.barsErr
	}
	return provider.StockBarsPayload{
		Symbol:    symbol,
		Interval:  interval,
		Bars:      testBars(60),
		PrevClose: f.prevClose,
	}, nil
}

func (f *fakeStock) FetchEvents(ctx context.Context, symbol string) (provider.StockEventsPayload, error) {
	if f.eventsErr != nil {
		return provider.StockEventsPayload{}, f.eventsErr
	}
	ex := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	return provider.StockEventsPayload{
		Symbol:    symbol,
		Dividends: []provider.RawDividend{{ExDate: &ex, CashAmount: 0.25}},
	}, nil
}

func (f *fakeStock) FetchNews(ctx context.Context, symbol string, limit int) (provider.NewsPayload, error) {
	if f.newsBlock {
		<-ctx.Done()
		return provider.NewsPayload{}, ctx.Err()
	}
	if f.newsErr != nil {
		return provider.NewsPayload{}, f.newsErr
	}
	return provider.NewsPayload{
		Symbol: symbol,
		Items: []provider.RawNews{
			{Title: "Guidance raised", Source: "wire", PublishedAt: time.Now().UTC()},
		},
	}, nil
}

func (f *fakeStock) FetchOptionChain(ctx context.Context, symbol string, expiry *time.Time) (provider.OptionChainPayload, error) {
	if f.optionsErr != nil {
		return provider.OptionChainPayload{}, f.optionsErr
	}
	iv := 0.35
	return provider.OptionChainPayload{
		Symbol: symbol,
		Expiry: time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC),
		Contracts: []provider.RawOptionContract{
			{Strike: 130, Type: "call", ImpliedVol: &iv, OpenInterest: 200},
			{Strike: 130, Type: "put", OpenInterest: 100},
		},
	}, nil
}

type fakeCryptoBars struct{}

func (f *fakeCryptoBars) Name() string { return "fake-crypto" }

func (f *fakeCryptoBars) FetchBars(ctx context.Context, symbol, interval string, lookback int) (provider.CryptoBarsPayload, error) {
	return provider.CryptoBarsPayload{Symbol: symbol, Interval: interval, Bars: testBars(60)}, nil
}

type fakeDerivs struct{ err error }

func (f *fakeDerivs) Name() string { return "fake-derivs" }

func (f *fakeDerivs) FetchFundingOI(ctx context.Context, symbol string) (provider.DerivativesPayload, error) {
	if f.err != nil {
		return provider.DerivativesPayload{}, f.err
	}
	rate := 0.0001
	oi := 50000.0
	return provider.DerivativesPayload{Symbol: symbol, FundingRate: &rate, OpenInterest: &oi}, nil
}

func testBuilder(sources Sources) *Builder {
	cfg := config.BuilderConfig{
		FetchBudget: 2 * time.Second,
		Lookback:    180,
		Interval:    "1d",
		NewsLimit:   5,
	}
	return NewBuilder(sources, cfg, levels.DefaultConfig(), zap.NewNop(), nil)
}

func TestBuild_Stock(t *testing.T) {
	prev := 128.5
	b := testBuilder(Sources{Stock: &fakeStock{prevClose: &prev}})

	pack, err := b.Build(context.Background(), "AAPL", core.AssetStock)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if pack.Symbol != "AAPL" || pack.AssetClass != core.AssetStock {
		t.Errorf("identity wrong: %+v", pack)
	}
	if !pack.Indicators.Get("sma20").Defined {
		t.Error("expected sma20 on a 60-bar series")
	}
	if pack.Events == nil || pack.Events.DividendExDate == nil {
		t.Error("expected dividend ex-date from events")
	}
	if pack.Derivs != nil {
		t.Error("stock packs must not carry derivatives")
	}
	if pack.Options == nil {
		t.Fatal("expected option chain summary on a stock pack")
	}
	if pack.Options.AvgImpliedVol == nil || *pack.Options.AvgImpliedVol != 0.35 {
		t.Errorf("wrong avg implied vol: %v", pack.Options.AvgImpliedVol)
	}
	if pack.Options.PutCallOIRatio == nil || *pack.Options.PutCallOIRatio != 0.5 {
		t.Errorf("wrong put/call OI ratio: %v", pack.Options.PutCallOIRatio)
	}
	if len(pack.News) != 1 {
		t.Errorf("expected 1 news item, got %d", len(pack.News))
	}
	if pack.PrevClose == nil || *pack.PrevClose != 128.5 {
		t.Errorf("expected provider prev close 128.5, got %v", pack.PrevClose)
	}
	if pack.Change == nil {
		t.Error("expected change vs prev close")
	}
}

func TestBuild_NewsFailureStillSucceeds(t *testing.T) {
	b := testBuilder(Sources{Stock: &fakeStock{
		newsErr: core.WrapError(core.ErrDataSourceTransient, errors.New("rate limited")),
	}})

	pack, err := b.Build(context.Background(), "AAPL", core.AssetStock)
	if err != nil {
		t.Fatalf("optional failure must not fail the build: %v", err)
	}
	if len(pack.News) != 0 {
		t.Errorf("expected empty news, got %d items", len(pack.News))
	}
}

func TestBuild_EventsFailureStaysUnknown(t *testing.T) {
	b := testBuilder(Sources{Stock: &fakeStock{
		eventsErr: errors.New("upstream down"),
	}})

	pack, err := b.Build(context.Background(), "AAPL", core.AssetStock)
	if err != nil {
		t.Fatalf("optional failure must not fail the build: %v", err)
	}
	if pack.Events != nil {
		t.Errorf("expected unknown events, got %+v", pack.Events)
	}
}

func TestBuild_OptionsFailureStaysUnknown(t *testing.T) {
	b := testBuilder(Sources{Stock: &fakeStock{
		optionsErr: core.WrapError(core.ErrDataSourcePermanent, errors.New("options not entitled")),
	}})

	pack, err := b.Build(context.Background(), "AAPL", core.AssetStock)
	if err != nil {
		t.Fatalf("optional failure must not fail the build: %v", err)
	}
	if pack.Options != nil {
		t.Errorf("expected unknown options, got %+v", pack.Options)
	}
}

func TestBuild_BarsFailureFailsWholeBuild(t *testing.T) {
	b := testBuilder(Sources{Stock: &fakeStock{
		barsErr: core.WrapError(core.ErrDataSourceTransient, errors.New("upstream down")),
	}})

	pack, err := b.Build(context.Background(), "AAPL", core.AssetStock)
	if !errors.Is(err, core.ErrFactPackBuild) {
		t.Errorf("expected ErrFactPackBuild, got %v", err)
	}
	if pack != nil {
		t.Error("no partial pack may be returned on a required-source failure")
	}
}

func TestBuild_BarsFailureKeepsCategoryOnSlowOptional(t *testing.T) {
	b := testBuilder(Sources{Stock: &fakeStock{
		barsErr:   core.WrapError(core.ErrSymbolNotFound, errors.New("unknown ticker")),
		newsBlock: true,
	}})
	b.cfg.FetchBudget = 50 * time.Millisecond

	_, err := b.Build(context.Background(), "NOPE", core.AssetStock)
	if !errors.Is(err, core.ErrFactPackBuild) {
		t.Errorf("expected ErrFactPackBuild, got %v", err)
	}
	if !errors.Is(err, core.ErrSymbolNotFound) {
		t.Errorf("expected the bars cause to survive, got %v", err)
	}
	if errors.Is(err, core.ErrFactPackTimeout) {
		t.Error("a permanent bars failure must not be reported as a timeout")
	}
}

func TestBuild_DeadlineExceeded(t *testing.T) {
	b := testBuilder(Sources{Stock: &fakeStock{block: true}})
	b.cfg.FetchBudget = 50 * time.Millisecond

	_, err := b.Build(context.Background(), "AAPL", core.AssetStock)
	if !errors.Is(err, core.ErrFactPackTimeout) {
		t.Errorf("expected ErrFactPackTimeout, got %v", err)
	}
}

func TestBuild_Crypto(t *testing.T) {
	b := testBuilder(Sources{
		CryptoBars:   &fakeCryptoBars{},
		CryptoDerivs: &fakeDerivs{},
	})

	pack, err := b.Build(context.Background(), "BTC-USD", core.AssetCrypto)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if pack.Derivs == nil || pack.Derivs.FundingRate == nil {
		t.Fatal("expected derivatives on a crypto pack")
	}
	if pack.Derivs.OpenInterestNotional == nil {
		t.Error("expected OI notional derived from last close")
	}
	if pack.Events != nil {
		t.Error("crypto packs must not carry stock events")
	}
	// Without a feed value the previous close comes from the series.
	if pack.PrevClose == nil {
		t.Error("expected prev close from second-to-last bar")
	}
}

func TestBuild_CryptoDerivsFailureAbsorbed(t *testing.T) {
	b := testBuilder(Sources{
		CryptoBars:   &fakeCryptoBars{},
		CryptoDerivs: &fakeDerivs{err: errors.New("exchange down")},
	})

	pack, err := b.Build(context.Background(), "BTC-USD", core.AssetCrypto)
	if err != nil {
		t.Fatalf("optional failure must not fail the build: %v", err)
	}
	if pack.Derivs != nil {
		t.Errorf("expected unknown derivatives, got %+v", pack.Derivs)
	}
}

func TestBuild_UnknownAssetClass(t *testing.T) {
	b := testBuilder(Sources{Stock: &fakeStock{}})

	_, err := b.Build(context.Background(), "AAPL", core.AssetClass("bond"))
	if !errors.Is(err, core.ErrFactPackBuild) {
		t.Errorf("expected ErrFactPackBuild, got %v", err)
	}
}

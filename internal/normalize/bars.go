// Package normalize converts raw source payloads into core types. Each
// payload variant has a dedicated entry point; callers never branch on
// field presence themselves.
package normalize

import (
	"time"

	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/provider"
)

// StockBars normalizes an equity bar payload into a PriceSeries. Malformed
// bars (out-of-order timestamps, negative volume, high < low, range not
// covering open/close) are dropped and counted rather than failing the
// series; an empty result fails with ErrEmptySeries.
func StockBars(p provider.StockBarsPayload) (core.PriceSeries, int, error) {
	return barSeries(p.Symbol, p.Interval, p.Bars)
}

// CryptoBars normalizes a crypto bar payload into a PriceSeries under the
// same dropping rules as StockBars.
func CryptoBars(p provider.CryptoBarsPayload) (core.PriceSeries, int, error) {
	return barSeries(p.Symbol, p.Interval, p.Bars)
}

func barSeries(symbol, interval string, raw []provider.RawBar) (core.PriceSeries, int, error) {
	points := make([]core.PricePoint, 0, len(raw))
	dropped := 0
	var lastTime time.Time

	for _, b := range raw {
		p := core.PricePoint{
			Time:   time.UnixMilli(b.Time).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
		if !p.Valid() || (len(points) > 0 && !p.Time.After(lastTime)) {
			dropped++
			continue
		}
		points = append(points, p)
		lastTime = p.Time
	}

	if len(points) == 0 {
		return core.PriceSeries{}, dropped, core.WrapError(core.ErrEmptySeries, nil)
	}

	series, err := core.NewPriceSeries(symbol, interval, points)
	if err != nil {
		// Monotonicity was enforced above; a failure here means the drop
		// filter has a bug, surface it as an empty-series failure.
		return core.PriceSeries{}, dropped, core.WrapError(core.ErrEmptySeries, err)
	}
	return series, dropped, nil
}

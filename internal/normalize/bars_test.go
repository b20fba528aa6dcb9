package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/provider"
)

func rawBar(t time.Time, o, h, l, c, v float64) provider.RawBar {
	return provider.RawBar{Time: t.UnixMilli(), Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestStockBars_CleanSeries(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	payload := provider.StockBarsPayload{
		Symbol:   "AAPL",
		Interval: "1d",
		Bars: []provider.RawBar{
			rawBar(base, 10, 11, 9, 10.5, 100),
			rawBar(base.AddDate(0, 0, 1), 10.5, 12, 10, 11.5, 200),
		},
	}

	series, dropped, err := StockBars(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 0 {
		t.Errorf("expected 0 drops, got %d", dropped)
	}
	if series.Len() != 2 {
		t.Errorf("expected 2 points, got %d", series.Len())
	}
}

func TestStockBars_DropsMalformedNotWholeSeries(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	payload := provider.StockBarsPayload{
		Symbol:   "AAPL",
		Interval: "1d",
		Bars: []provider.RawBar{
			rawBar(base, 10, 11, 9, 10.5, 100),
			rawBar(base.AddDate(0, 0, 1), 10, 9, 11, 10, 100),   // high < low
			rawBar(base.AddDate(0, 0, 2), 10, 11, 9, 10.2, -5),  // negative volume
			rawBar(base, 10, 11, 9, 10.1, 100),                  // timestamp regression
			rawBar(base.AddDate(0, 0, 3), 10.2, 11, 10, 10.8, 300),
		},
	}

	series, dropped, err := StockBars(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 3 {
		t.Errorf("expected 3 drops, got %d", dropped)
	}
	if series.Len() != 2 {
		t.Errorf("expected 2 surviving points, got %d", series.Len())
	}
	last, _ := series.Last()
	if last.Close != 10.8 {
		t.Errorf("wrong surviving last bar: %f", last.Close)
	}
}

func TestStockBars_AllMalformedIsEmptySeriesError(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	payload := provider.StockBarsPayload{
		Symbol:   "AAPL",
		Interval: "1d",
		Bars: []provider.RawBar{
			rawBar(base, 10, 9, 11, 10, 100),
			rawBar(base.AddDate(0, 0, 1), 10, 11, 9, 10, -1),
		},
	}

	_, dropped, err := StockBars(payload)
	if !errors.Is(err, core.ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
	if dropped != 2 {
		t.Errorf("expected 2 drops, got %d", dropped)
	}
}

func TestCryptoBars_EmptyPayload(t *testing.T) {
	_, _, err := CryptoBars(provider.CryptoBarsPayload{Symbol: "BTC-USD", Interval: "1h"})
	if !errors.Is(err, core.ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

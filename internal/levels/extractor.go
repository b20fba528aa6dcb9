// Package levels derives discrete support/resistance prices from swing
// structure in a price series.
package levels

import (
	"math"
	"sort"

	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/indicator"
)

// Config holds the extractor's tuning knobs. The defaults mirror the
// values the analysis prompt was calibrated against.
type Config struct {
	// Window is the look-back/look-forward span (in bars) a bar must
	// dominate to count as a swing high or low.
	Window int
	// Lookback caps how many recent bars are scanned.
	Lookback int
	// ToleranceFactor scales the minimum cluster width as a fraction of
	// the last close, used when ATR is unavailable or smaller.
	ToleranceFactor float64
	// MaxPerSide caps the number of levels returned per side.
	MaxPerSide int
	// SwingBoost is the score added to clusters anchored on a swing point.
	SwingBoost float64
}

// DefaultConfig returns the standard extractor settings: window 3,
// 180-bar lookback, 0.5% tolerance floor, top 3 per side.
func DefaultConfig() Config {
	return Config{
		Window:          3,
		Lookback:        180,
		ToleranceFactor: 0.005,
		MaxPerSide:      3,
		SwingBoost:      3.0,
	}
}

type cluster struct {
	price float64
	score float64
}

// Extract identifies swing extrema over the window, clusters nearby prices
// within a tolerance band, and returns the strongest clusters as a
// LevelSet split around the last close. A series too short for the window
// yields an empty LevelSet, not an error.
func Extract(series core.PriceSeries, cfg Config) core.LevelSet {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultConfig().Lookback
	}
	if cfg.ToleranceFactor <= 0 {
		cfg.ToleranceFactor = DefaultConfig().ToleranceFactor
	}
	if cfg.MaxPerSide <= 0 {
		cfg.MaxPerSide = DefaultConfig().MaxPerSide
	}
	if cfg.SwingBoost <= 0 {
		cfg.SwingBoost = DefaultConfig().SwingBoost
	}

	points := series.Points
	if len(points) > cfg.Lookback {
		points = points[len(points)-cfg.Lookback:]
	}
	// Need a full window on both sides of at least one bar.
	if len(points) < 2*cfg.Window+1 {
		return core.LevelSet{}
	}

	last := points[len(points)-1].Close
	step := clusterStep(points, last, cfg.ToleranceFactor)
	if step <= 0 || math.IsNaN(step) {
		return core.LevelSet{}
	}

	// Touch counts: every close/high/low contributes to its price bin.
	bins := make(map[int]*cluster)
	touch := func(price, weight float64) {
		idx := int(math.Round(price / step))
		c, ok := bins[idx]
		if !ok {
			c = &cluster{price: float64(idx) * step}
			bins[idx] = c
		}
		c.score += weight
	}

	for _, p := range points {
		touch(p.Close, 1)
		touch(p.High, 1)
		touch(p.Low, 1)
	}

	// Swing points dominate their window and get a score boost.
	for i := cfg.Window; i < len(points)-cfg.Window; i++ {
		if isSwingHigh(points, i, cfg.Window) {
			touch(points[i].High, cfg.SwingBoost)
		}
		if isSwingLow(points, i, cfg.Window) {
			touch(points[i].Low, cfg.SwingBoost)
		}
	}

	clusters := make([]cluster, 0, len(bins))
	for _, c := range bins {
		clusters = append(clusters, *c)
	}

	// Strongest first; equal scores prefer the cluster nearest last close.
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].score != clusters[j].score {
			return clusters[i].score > clusters[j].score
		}
		return math.Abs(clusters[i].price-last) < math.Abs(clusters[j].price-last)
	})

	var support, resistance []float64
	for _, c := range clusters {
		if c.price <= last && len(support) < cfg.MaxPerSide {
			support = append(support, round2(c.price))
		} else if c.price > last && len(resistance) < cfg.MaxPerSide {
			resistance = append(resistance, round2(c.price))
		}
		if len(support) == cfg.MaxPerSide && len(resistance) == cfg.MaxPerSide {
			break
		}
	}

	sort.Float64s(support)
	sort.Float64s(resistance)
	return core.LevelSet{Support: support, Resistance: resistance}
}

// clusterStep sizes price bins off ATR(14), with a floor at a fraction of
// the last close so thin series still cluster sensibly.
func clusterStep(points []core.PricePoint, last, tolerance float64) float64 {
	floor := math.Max(last*tolerance, 0.01)

	highs := make([]float64, len(points))
	lows := make([]float64, len(points))
	closes := make([]float64, len(points))
	for i, p := range points {
		highs[i] = p.High
		lows[i] = p.Low
		closes[i] = p.Close
	}

	atr := indicator.ATR(highs, lows, closes, 14)
	if len(atr) == 0 {
		return floor
	}
	return math.Max(atr[len(atr)-1], floor)
}

func isSwingHigh(points []core.PricePoint, i, w int) bool {
	for j := i - w; j <= i+w; j++ {
		if j != i && points[j].High >= points[i].High {
			return false
		}
	}
	return true
}

func isSwingLow(points []core.PricePoint, i, w int) bool {
	for j := i - w; j <= i+w; j++ {
		if j != i && points[j].Low <= points[i].Low {
			return false
		}
	}
	return true
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

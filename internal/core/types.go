package core

import (
	"fmt"
	"math"
	"time"
)

// AssetClass determines which optional data sources apply to a symbol.
type AssetClass string

const (
	AssetStock  AssetClass = "stock"
	AssetCrypto AssetClass = "crypto"
)

// Valid reports whether the asset class is one of the known values.
func (a AssetClass) Valid() bool {
	return a == AssetStock || a == AssetCrypto
}

// PricePoint represents one OHLCV bar.
type PricePoint struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Valid checks per-bar sanity: high covers open/close, low undercuts them,
// volume is non-negative.
func (p PricePoint) Valid() bool {
	if p.Volume < 0 {
		return false
	}
	if p.High < p.Open || p.High < p.Close {
		return false
	}
	if p.Low > p.Open || p.Low > p.Close {
		return false
	}
	return p.High >= p.Low
}

// PriceSeries is an ordered sequence of bars for one symbol and interval.
// Construct with NewPriceSeries; callers treat it as immutable afterwards.
type PriceSeries struct {
	Symbol   string       `json:"symbol"`
	Interval string       `json:"interval"`
	Points   []PricePoint `json:"points"`
}

// NewPriceSeries builds a series from ordered points. It fails if
// timestamps are not strictly increasing.
func NewPriceSeries(symbol, interval string, points []PricePoint) (PriceSeries, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Time.After(points[i-1].Time) {
			return PriceSeries{}, fmt.Errorf("non-monotonic timestamp at index %d (%s)", i, points[i].Time)
		}
	}
	return PriceSeries{Symbol: symbol, Interval: interval, Points: points}, nil
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Points) }

// Last returns the most recent bar, or false if the series is empty.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Closes returns the close prices in order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Volumes returns the volumes in order.
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Volume
	}
	return out
}

// Value is an indicator result that distinguishes "not computable" from a
// computed zero. Undefined values marshal as null.
type Value struct {
	Float   float64
	Defined bool
}

// Def wraps a computed value.
func Def(f float64) Value { return Value{Float: f, Defined: true} }

// Undef is the undefined indicator value.
func Undef() Value { return Value{} }

// MarshalJSON encodes undefined values as null. NaN and infinities have
// no JSON token, so they render as null too.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Defined || math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%g", v.Float)), nil
}

// UnmarshalJSON decodes null as undefined.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if _, err := fmt.Sscanf(string(data), "%g", &f); err != nil {
		return err
	}
	*v = Value{Float: f, Defined: true}
	return nil
}

// IndicatorSet maps indicator names to their latest values. Tuple
// indicators expose one entry per leg (macd, macd_signal, macd_hist).
type IndicatorSet map[string]Value

// Get returns the named value; missing names are undefined.
func (s IndicatorSet) Get(name string) Value {
	if v, ok := s[name]; ok {
		return v
	}
	return Undef()
}

// LevelSet holds discrete support/resistance prices, each side ascending
// and capped by the extractor.
type LevelSet struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}

// Empty reports whether no levels were found on either side.
func (l LevelSet) Empty() bool {
	return len(l.Support) == 0 && len(l.Resistance) == 0
}

// EventInfo holds upcoming corporate events for stocks. Nil fields mean
// the value is unknown, not that the event does not exist.
type EventInfo struct {
	NextEarnings   *time.Time `json:"next_earnings"`
	DividendExDate *time.Time `json:"dividend_ex_date"`
}

// Known reports whether any event date is populated.
func (e EventInfo) Known() bool {
	return e.NextEarnings != nil || e.DividendExDate != nil
}

// DerivativesInfo holds crypto derivatives context. Nil fields are unknown.
type DerivativesInfo struct {
	FundingRate          *float64 `json:"funding_rate"`
	OpenInterest         *float64 `json:"open_interest"`
	OpenInterestNotional *float64 `json:"open_interest_notional"`
	OpenInterestChg24h   *float64 `json:"open_interest_change_24h"`
	ImpliedVolRank       *float64 `json:"implied_vol_rank"`
}

// Known reports whether any derivatives field is populated.
func (d DerivativesInfo) Known() bool {
	return d.FundingRate != nil || d.OpenInterest != nil ||
		d.OpenInterestChg24h != nil || d.ImpliedVolRank != nil
}

// OptionsInfo condenses one option expiry into sentiment context for the
// stock pack. Nil fields are unknown.
type OptionsInfo struct {
	Expiry         string   `json:"expiry"`
	Contracts      int      `json:"contracts"`
	AvgImpliedVol  *float64 `json:"avg_implied_vol,omitempty"`
	PutCallOIRatio *float64 `json:"put_call_oi_ratio,omitempty"`
}

// Known reports whether the summary carries any usable signal.
func (o OptionsInfo) Known() bool {
	return o.AvgImpliedVol != nil || o.PutCallOIRatio != nil
}

// NewsItem is one headline attached to a symbol.
type NewsItem struct {
	Headline    string    `json:"headline"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// FactPack is the bounded, immutable snapshot handed to analysis. It is
// built fresh per request and never cached or shared across builds.
type FactPack struct {
	Symbol     string     `json:"symbol"`
	AssetClass AssetClass `json:"asset_class"`
	AsOf       time.Time  `json:"as_of"`

	PriceSnapshot PricePoint `json:"price_snapshot"`
	PrevClose     *float64   `json:"prev_close,omitempty"`
	Change        *float64   `json:"change,omitempty"` // fractional, vs prev close

	Indicators IndicatorSet     `json:"indicators"`
	Levels     LevelSet         `json:"levels"`
	Events     *EventInfo       `json:"events,omitempty"`      // stocks only
	Options    *OptionsInfo     `json:"options,omitempty"`     // stocks only
	Derivs     *DerivativesInfo `json:"derivatives,omitempty"` // crypto only
	News       []NewsItem       `json:"news"`

	DroppedBars int `json:"dropped_bars,omitempty"`
}

// AnalysisRequest pairs a fact pack with the caller's framing.
type AnalysisRequest struct {
	Pack    FactPack `json:"fact_pack"`
	Horizon string   `json:"horizon"`
	Risk    string   `json:"risk"`
}

// TrendView is the model's read on direction and moving-average posture.
type TrendView struct {
	Dir           string   `json:"dir"` // "up" | "down" | "side"
	RSI           *float64 `json:"rsi,omitempty"`
	SMA20Above50  *bool    `json:"sma20_above50,omitempty"`
	PriceVsSMA200 string   `json:"price_vs_sma200,omitempty"` // "above" | "below"
}

// TradePlan holds entry or exit guidance from the model.
type TradePlan struct {
	Method  string    `json:"method,omitempty"`
	Entries []float64 `json:"entries,omitempty"`
	Stops   []float64 `json:"stops,omitempty"`
	Targets []float64 `json:"targets,omitempty"`
	Notes   string    `json:"notes,omitempty"`
}

// AnalysisResult is the schema-conformant engine output.
type AnalysisResult struct {
	Symbol     string  `json:"symbol"`
	Rating     int     `json:"rating"`     // 1..5
	Confidence float64 `json:"confidence"` // [0,1]
	Summary    string  `json:"summary"`
	Action     string  `json:"action"` // "buy" | "hold" | "sell"

	Trend     TrendView `json:"trend"`
	Levels    LevelSet  `json:"levels"`
	EntryPlan TradePlan `json:"entry_plan"`
	ExitPlan  TradePlan `json:"exit_plan"`

	SignalsBull []string         `json:"signals_bull,omitempty"`
	SignalsBear []string         `json:"signals_bear,omitempty"`
	Derivs      *DerivativesInfo `json:"derivs,omitempty"`
	Events      *EventInfo       `json:"events,omitempty"`
	News        []string         `json:"news,omitempty"`
	RiskNotes   []string         `json:"risk_notes,omitempty"`
}

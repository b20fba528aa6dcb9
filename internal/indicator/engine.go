package indicator

import (
	"github.com/finlens/finlens/internal/core"
)

// Indicator names recognized by ComputeSet.
const (
	NameSMA20      = "sma20"
	NameSMA50      = "sma50"
	NameSMA200     = "sma200"
	NameEMA21      = "ema21"
	NameRSI14      = "rsi14"
	NameMACD       = "macd"
	NameMACDSignal = "macd_signal"
	NameMACDHist   = "macd_hist"
	NameBBMid      = "bb_mid"
	NameBBUpper    = "bb_upper"
	NameBBLower    = "bb_lower"
	NameBBWidth    = "bb_width"
	NameATR14      = "atr14"
	NameOBV        = "obv"
	NameVWAP       = "vwap"
	NameVolSMA20   = "vol_sma20"
	NameStochK     = "stoch_k"
	NameStochD     = "stoch_d"
)

// AllNames lists every indicator ComputeSet can produce, in a stable order.
func AllNames() []string {
	return []string{
		NameSMA20, NameSMA50, NameSMA200, NameEMA21, NameRSI14,
		NameMACD, NameMACDSignal, NameMACDHist,
		NameBBMid, NameBBUpper, NameBBLower, NameBBWidth,
		NameATR14, NameOBV, NameVWAP, NameVolSMA20,
		NameStochK, NameStochD,
	}
}

// ComputeSet computes the latest value of each requested indicator over the
// series. An empty request means all indicators. Series too short for an
// indicator yield an undefined value for that name, never an error. The
// result depends only on the input series.
func ComputeSet(series core.PriceSeries, requested ...string) core.IndicatorSet {
	if len(requested) == 0 {
		requested = AllNames()
	}

	closes := series.Closes()
	volumes := series.Volumes()
	highs := make([]float64, series.Len())
	lows := make([]float64, series.Len())
	for i, p := range series.Points {
		highs[i] = p.High
		lows[i] = p.Low
	}

	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		want[name] = true
	}

	set := make(core.IndicatorSet, len(requested))

	if want[NameSMA20] {
		set[NameSMA20] = last(SMA(closes, 20))
	}
	if want[NameSMA50] {
		set[NameSMA50] = last(SMA(closes, 50))
	}
	if want[NameSMA200] {
		set[NameSMA200] = last(SMA(closes, 200))
	}
	if want[NameEMA21] {
		set[NameEMA21] = last(EMA(closes, 21))
	}
	if want[NameRSI14] {
		set[NameRSI14] = last(RSI(closes, 14))
	}

	if want[NameMACD] || want[NameMACDSignal] || want[NameMACDHist] {
		line, signal, hist := MACD(closes, 12, 26, 9)
		if want[NameMACD] {
			set[NameMACD] = last(line)
		}
		if want[NameMACDSignal] {
			set[NameMACDSignal] = last(signal)
		}
		if want[NameMACDHist] {
			set[NameMACDHist] = last(hist)
		}
	}

	if want[NameBBMid] || want[NameBBUpper] || want[NameBBLower] || want[NameBBWidth] {
		mid, upper, lower := Bollinger(closes, 20, 2.0)
		if want[NameBBMid] {
			set[NameBBMid] = last(mid)
		}
		if want[NameBBUpper] {
			set[NameBBUpper] = last(upper)
		}
		if want[NameBBLower] {
			set[NameBBLower] = last(lower)
		}
		if want[NameBBWidth] {
			set[NameBBWidth] = bandWidth(mid, upper, lower)
		}
	}

	if want[NameATR14] {
		set[NameATR14] = last(ATR(highs, lows, closes, 14))
	}
	if want[NameOBV] {
		set[NameOBV] = last(OBV(closes, volumes))
	}
	if want[NameVWAP] {
		set[NameVWAP] = last(VWAP(highs, lows, closes, volumes))
	}
	if want[NameVolSMA20] {
		set[NameVolSMA20] = last(VolSMA(volumes, 20))
	}

	if want[NameStochK] || want[NameStochD] {
		k, d := Stoch(highs, lows, closes, 14, 3)
		if want[NameStochK] {
			set[NameStochK] = last(k)
		}
		if want[NameStochD] {
			set[NameStochD] = last(d)
		}
	}

	return set
}

// last picks the latest value from a series, or undefined when the series
// was too short to compute.
func last(values []float64) core.Value {
	if len(values) == 0 {
		return core.Undef()
	}
	return core.Def(values[len(values)-1])
}

// bandWidth computes (upper-lower)/mid for the latest band values.
func bandWidth(mid, upper, lower []float64) core.Value {
	if len(mid) == 0 || mid[len(mid)-1] == 0 {
		return core.Undef()
	}
	i := len(mid) - 1
	return core.Def((upper[i] - lower[i]) / mid[i])
}

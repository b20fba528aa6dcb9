package indicator

import "math"

// Bollinger calculates Bollinger bands: an SMA midline with upper/lower
// bands k standard deviations away. All three slices have length
// len(prices) - period + 1. Population standard deviation is used.
func Bollinger(prices []float64, period int, k float64) (mid, upper, lower []float64) {
	if period <= 0 || len(prices) < period {
		return []float64{}, []float64{}, []float64{}
	}

	mid = SMA(prices, period)
	upper = make([]float64, len(mid))
	lower = make([]float64, len(mid))

	for i := range mid {
		var variance float64
		for j := i; j < i+period; j++ {
			d := prices[j] - mid[i]
			variance += d * d
		}
		std := math.Sqrt(variance / float64(period))
		upper[i] = mid[i] + k*std
		lower[i] = mid[i] - k*std
	}

	return mid, upper, lower
}

// ATR calculates Average True Range with Wilder smoothing.
// Output length: len(closes) - period. True range uses the previous close,
// so the first bar contributes no range.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	if period <= 0 || n < period+1 || len(highs) != n || len(lows) != n {
		return []float64{}
	}

	tr := make([]float64, n-1)
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i-1] = math.Max(hl, math.Max(hc, lc))
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)

	result := make([]float64, 0, len(tr)-period+1)
	result = append(result, atr)
	for i := period; i < len(tr); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		result = append(result, atr)
	}

	return result
}

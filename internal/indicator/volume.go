package indicator

// OBV calculates On-Balance Volume, a cumulative volume flow series.
// Output has the same length as the input; the first bar starts at zero.
func OBV(closes, volumes []float64) []float64 {
	n := len(closes)
	if n == 0 || len(volumes) != n {
		return []float64{}
	}

	result := make([]float64, n)
	for i := 1; i < n; i++ {
		switch {
		case closes[i] > closes[i-1]:
			result[i] = result[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			result[i] = result[i-1] - volumes[i]
		default:
			result[i] = result[i-1]
		}
	}
	return result
}

// VWAP calculates cumulative volume-weighted average price over the whole
// series (session-agnostic), using the typical price (h+l+c)/3.
func VWAP(highs, lows, closes, volumes []float64) []float64 {
	n := len(closes)
	if n == 0 || len(highs) != n || len(lows) != n || len(volumes) != n {
		return []float64{}
	}

	result := make([]float64, n)
	var cumPV, cumV float64
	for i := 0; i < n; i++ {
		tp := (highs[i] + lows[i] + closes[i]) / 3
		cumPV += tp * volumes[i]
		cumV += volumes[i]
		if cumV == 0 {
			result[i] = tp
			continue
		}
		result[i] = cumPV / cumV
	}
	return result
}

// VolSMA calculates the simple moving average of volume.
func VolSMA(volumes []float64, period int) []float64 {
	return SMA(volumes, period)
}

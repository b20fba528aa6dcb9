package indicator

// MACD calculates moving-average convergence-divergence.
// line has length len(prices)-slow+1; signal and hist are the signal EMA
// over line, so both have length len(line)-signalPeriod+1.
func MACD(prices []float64, fast, slow, signalPeriod int) (line, signal, hist []float64) {
	if fast <= 0 || slow <= fast || signalPeriod <= 0 || len(prices) < slow {
		return []float64{}, []float64{}, []float64{}
	}

	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	// Align: slowEMA starts (slow-fast) entries later than fastEMA.
	offset := slow - fast
	line = make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signal = EMA(line, signalPeriod)
	if len(signal) == 0 {
		return line, []float64{}, []float64{}
	}

	hist = make([]float64, len(signal))
	lineOffset := len(line) - len(signal)
	for i := range signal {
		hist[i] = line[i+lineOffset] - signal[i]
	}

	return line, signal, hist
}

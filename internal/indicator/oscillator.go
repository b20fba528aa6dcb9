package indicator

// RSI calculates the Relative Strength Index with Wilder smoothing.
// Output is bounded to [0,100] and has length: len(prices) - period.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period+1 {
		return []float64{}
	}

	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	// Seed with simple averages over the first period
	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	result := make([]float64, 0, len(prices)-period)
	result = append(result, rsiValue(avgGain, avgLoss))

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		result = append(result, rsiValue(avgGain, avgLoss))
	}

	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Stoch calculates the fast stochastic oscillator. %K has length
// len(closes)-kPeriod+1; %D smooths %K with an SMA of dPeriod.
func Stoch(highs, lows, closes []float64, kPeriod, dPeriod int) (k, d []float64) {
	n := len(closes)
	if kPeriod <= 0 || dPeriod <= 0 || n < kPeriod || len(highs) != n || len(lows) != n {
		return []float64{}, []float64{}
	}

	k = make([]float64, 0, n-kPeriod+1)
	for i := kPeriod - 1; i < n; i++ {
		lo, hi := lows[i-kPeriod+1], highs[i-kPeriod+1]
		for j := i - kPeriod + 2; j <= i; j++ {
			if lows[j] < lo {
				lo = lows[j]
			}
			if highs[j] > hi {
				hi = highs[j]
			}
		}
		span := hi - lo
		if span == 0 {
			k = append(k, 50)
			continue
		}
		k = append(k, 100*(closes[i]-lo)/span)
	}

	d = SMA(k, dPeriod)
	return k, d
}

package indicator

import "testing"

func TestBollinger_SymmetricAroundMid(t *testing.T) {
	prices := []float64{10, 11, 12, 11, 10, 11, 12, 11, 10, 11}

	mid, upper, lower := Bollinger(prices, 5, 2.0)
	if len(mid) != 6 {
		t.Fatalf("expected 6 values, got %d", len(mid))
	}

	for i := range mid {
		if upper[i] < mid[i] || lower[i] > mid[i] {
			t.Errorf("band order broken at %d: lower=%f mid=%f upper=%f", i, lower[i], mid[i], upper[i])
		}
		if !almostEqual(upper[i]-mid[i], mid[i]-lower[i], 1e-9) {
			t.Errorf("bands not symmetric at %d", i)
		}
	}
}

func TestBollinger_FlatSeriesCollapses(t *testing.T) {
	prices := []float64{5, 5, 5, 5, 5, 5}
	mid, upper, lower := Bollinger(prices, 5, 2.0)
	for i := range mid {
		if upper[i] != 5 || lower[i] != 5 {
			t.Errorf("flat series should collapse to mid, got lower=%f upper=%f", lower[i], upper[i])
		}
	}
}

func TestBollinger_NotEnoughData(t *testing.T) {
	mid, _, _ := Bollinger([]float64{1, 2}, 20, 2.0)
	if len(mid) != 0 {
		t.Errorf("expected empty slice, got %d values", len(mid))
	}
}

func TestATR_ConstantRange(t *testing.T) {
	// Every bar spans exactly 2 with no gaps: ATR should be 2.
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = 11
		lows[i] = 9
		closes[i] = 10
	}

	atr := ATR(highs, lows, closes, 14)
	if len(atr) != n-14 {
		t.Fatalf("expected %d values, got %d", n-14, len(atr))
	}
	for _, v := range atr {
		if !almostEqual(v, 2, 1e-9) {
			t.Errorf("expected ATR 2, got %f", v)
		}
	}
}

func TestATR_GapContributesToRange(t *testing.T) {
	highs := []float64{11, 21, 21, 21, 21}
	lows := []float64{9, 19, 19, 19, 19}
	closes := []float64{10, 20, 20, 20, 20}

	atr := ATR(highs, lows, closes, 2)
	if len(atr) == 0 {
		t.Fatal("expected values")
	}
	// First TR is |21-10| = 11 due to the gap up.
	if atr[0] <= 2 {
		t.Errorf("gap should inflate ATR, got %f", atr[0])
	}
}

func TestATR_NotEnoughData(t *testing.T) {
	if got := ATR([]float64{1}, []float64{1}, []float64{1}, 14); len(got) != 0 {
		t.Errorf("expected empty slice, got %d values", len(got))
	}
}

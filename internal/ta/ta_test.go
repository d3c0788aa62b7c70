package ta

import (
	"math"
	"testing"

	"swarm-trading-bot/internal/types"
)

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	if got := SMA(closes, 5); got != 3 {
		t.Errorf("SMA(5) = %v, want 3", got)
	}
	if got := SMA(closes, 2); got != 4.5 {
		t.Errorf("SMA(2) = %v, want 4.5", got)
	}
	if got := SMA(closes, 6); !math.IsNaN(got) {
		t.Errorf("SMA with short window should be NaN, got %v", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 14, 15}
	if got := RSI(closes, 5); got != 100 {
		t.Errorf("RSI monotone up = %v, want 100", got)
	}
}

func TestRSIMixed(t *testing.T) {
	closes := []float64{10, 12, 11, 13, 12, 14}
	got := RSI(closes, 5)
	if math.IsNaN(got) || got <= 0 || got >= 100 {
		t.Errorf("RSI mixed = %v, want value strictly between 0 and 100", got)
	}
}

func TestBollingerBandsOrdering(t *testing.T) {
	closes := []float64{10, 11, 9, 12, 10, 11, 10, 12, 9, 11}
	mid, up, low := Bollinger(closes, 10, 2)
	if !(low < mid && mid < up) {
		t.Errorf("bands out of order: low=%v mid=%v up=%v", low, mid, up)
	}
}

func TestATRFlatMarket(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i], lows[i], closes[i] = 100, 100, 100
	}
	if got := ATR(highs, lows, closes, 14); got != 0 {
		t.Errorf("ATR flat market = %v, want 0", got)
	}
}

func TestComputeFromCandles(t *testing.T) {
	candles := make([]types.Candle, 30)
	for i := range candles {
		px := 100 + float64(i)
		candles[i] = types.Candle{Open: px, High: px + 1, Low: px - 1, Close: px, Vol: 1000}
	}
	ind := Compute(candles, Params{
		SMAWindows: []int{9, 21},
		RSIPeriod:  14,
		BBWindow:   20,
		BBStdDev:   2,
		ATRPeriod:  14,
	})
	if math.IsNaN(ind.SMA[9]) || math.IsNaN(ind.SMA[21]) {
		t.Error("expected SMA values for both windows")
	}
	if ind.RSI != 100 {
		t.Errorf("RSI on monotone ramp = %v, want 100", ind.RSI)
	}
	if math.IsNaN(ind.ATR) {
		t.Error("expected ATR value")
	}
	if !(ind.BB.Lower < ind.BB.Middle && ind.BB.Middle < ind.BB.Upper) {
		t.Error("Bollinger bands out of order")
	}
}

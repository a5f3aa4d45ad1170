package features

import (
	"math"
	"testing"
	"time"

	"CoinSight/internal/domain/models"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestReturns(t *testing.T) {
	rets := Returns([]float64{100, 110, 99})
	if len(rets) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(rets))
	}
	if !almostEqual(rets[0], 0.1, 1e-12) {
		t.Fatalf("expected first return 0.1, got %v", rets[0])
	}
	if !almostEqual(rets[1], -0.1, 1e-12) {
		t.Fatalf("expected second return -0.1, got %v", rets[1])
	}
	if Returns([]float64{100}) != nil {
		t.Fatalf("single point should yield nil returns")
	}
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4}, 2)
	want := []float64{1.5, 2.5, 3.5}
	if len(got) != len(want) {
		t.Fatalf("SMA(2) has %d windows, want %d", len(got), len(want))
	}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Fatalf("SMA(2)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if got := SMA([]float64{2, 4}, 10); got != nil {
		t.Fatalf("SMA over short series = %v, want nil", got)
	}
	if got := SMA(nil, 5); got != nil {
		t.Fatalf("SMA of empty series = %v, want nil", got)
	}
}

func TestTrailingMean(t *testing.T) {
	if got := trailingMean([]float64{1, 2, 3, 4}, 2); !almostEqual(got, 3.5, 1e-12) {
		t.Fatalf("trailingMean(2) = %v, want 3.5", got)
	}
	// window longer than series averages what exists
	if got := trailingMean([]float64{2, 4}, 10); !almostEqual(got, 3, 1e-12) {
		t.Fatalf("trailingMean over short series = %v, want 3", got)
	}
	if got := trailingMean(nil, 5); got != 0 {
		t.Fatalf("trailingMean of empty series = %v, want 0", got)
	}
}

func TestRSIBounds(t *testing.T) {
	up := make([]float64, 20)
	down := make([]float64, 20)
	for i := range up {
		up[i] = float64(100 + i)
		down[i] = float64(100 - i)
	}
	if got := RSI(up, 14); got != 100 {
		t.Fatalf("all-gain RSI = %v, want 100", got)
	}
	if got := RSI(down, 14); got != 0 {
		t.Fatalf("all-loss RSI = %v, want 0", got)
	}
	if got := RSI([]float64{1, 2, 3}, 14); got != 50 {
		t.Fatalf("short-series RSI = %v, want neutral 50", got)
	}
	// zero average loss reads as max strength, even with zero gains
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}
	if got := RSI(flat, 14); got != 100 {
		t.Fatalf("flat-series RSI = %v, want 100", got)
	}
}

func TestVolatility(t *testing.T) {
	if got := Volatility(nil); got != defaultVolatility {
		t.Fatalf("empty volatility = %v, want the %v default", got, defaultVolatility)
	}
	if got := Volatility([]float64{0.01, 0.01, 0.01}); got != 0 {
		t.Fatalf("constant returns volatility = %v, want 0", got)
	}
	got := Volatility([]float64{0.02, -0.02})
	if !almostEqual(got, 0.02, 1e-12) {
		t.Fatalf("volatility = %v, want 0.02", got)
	}
}

func TestTrendSlope(t *testing.T) {
	up := []float64{100, 101, 102, 103, 104}
	down := []float64{104, 103, 102, 101, 100}
	if TrendSlope(up) <= 0 {
		t.Fatalf("rising series should have positive slope")
	}
	if TrendSlope(down) >= 0 {
		t.Fatalf("falling series should have negative slope")
	}
	if got := TrendSlope([]float64{5, 5, 5}); got != 0 {
		t.Fatalf("flat series slope = %v, want 0", got)
	}
	if got := TrendSlope([]float64{7}); got != 0 {
		t.Fatalf("single point slope = %v, want 0", got)
	}
}

func TestMomentum(t *testing.T) {
	prices := []float64{100, 100, 100, 110}
	if got := Momentum(prices, 1); !almostEqual(got, 0.1, 1e-12) {
		t.Fatalf("momentum(1) = %v, want 0.1", got)
	}
	// lookback capped at series length
	if got := Momentum(prices, 100); !almostEqual(got, 0.1, 1e-12) {
		t.Fatalf("capped momentum = %v, want 0.1", got)
	}
}

func TestSnapshotSafeOnDegenerateInput(t *testing.T) {
	h := &models.History{Asset: "bitcoin", Points: []models.PricePoint{
		{Date: time.Now(), Price: 100, Volume: 0},
	}}
	snap := Snapshot(h, 0.5)
	vals := []float64{snap.SMA7, snap.SMA30, snap.RSI14, snap.Volatility30,
		snap.TrendSlope, snap.Momentum10, snap.VolumeRatio, snap.Sentiment, snap.CapStability}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("snapshot field %d is not finite: %v", i, v)
		}
	}
	if snap.RSI14 != 50 {
		t.Fatalf("single-point RSI = %v, want 50", snap.RSI14)
	}
	if snap.DataPoints != 1 {
		t.Fatalf("DataPoints = %d, want 1", snap.DataPoints)
	}
}

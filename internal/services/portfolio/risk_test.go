package portfolio

import (
	"context"
	"math"
	"testing"
	"time"

	"CoinSight/internal/domain/models"
	domsvc "CoinSight/internal/domain/service"
)

type stubProvider struct {
	hists map[string]*models.History
}

func (s *stubProvider) GetHistory(ctx context.Context, asset string, days int) (*models.History, error) {
	return s.hists[asset], nil
}

func (s *stubProvider) CurrentPrice(ctx context.Context, asset string) (float64, string, error) {
	return s.hists[asset].Last().Price, models.SourceSynthetic, nil
}

var _ domsvc.HistoryProvider = (*stubProvider)(nil)

func seriesHistory(asset string, prices []float64) *models.History {
	h := &models.History{Asset: asset, Days: len(prices), Source: models.SourceSynthetic}
	start := time.Now().UTC().AddDate(0, 0, -len(prices))
	for i, p := range prices {
		h.Points = append(h.Points, models.PricePoint{Date: start.AddDate(0, 0, i), Price: p})
	}
	return h
}

func wavePrices(n int, base, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base * (1 + amp*math.Sin(float64(i)/4))
	}
	return out
}

func TestVaRAndCVaR(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.05, 0.015, -0.01, 0.03, -0.02, 0.005, -0.04, 0.01}
	v := VaR(returns, 0.95)
	if v <= 0 {
		t.Fatalf("VaR should be positive for a losing tail, got %v", v)
	}
	c := CVaR(returns, 0.95)
	if c < v {
		t.Fatalf("CVaR %v must be at least VaR %v", c, v)
	}
}

func TestVaRAllGains(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.03}
	if v := VaR(returns, 0.95); v != 0 {
		t.Fatalf("all-gain VaR = %v, want 0", v)
	}
}

func TestSharpeZeroVolGuard(t *testing.T) {
	if got := Sharpe([]float64{0.01, 0.01, 0.01}); got != 0 {
		t.Fatalf("constant-return Sharpe = %v, want 0 (zero-vol guard)", got)
	}
	if got := Sharpe(nil); got != 0 {
		t.Fatalf("empty Sharpe = %v, want 0", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	series := []float64{100, 120, 90, 110, 80}
	got := MaxDrawdown(series)
	want := (120.0 - 80.0) / 120.0
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("max drawdown = %v, want %v", got, want)
	}
	if MaxDrawdown([]float64{100, 110, 120}) != 0 {
		t.Fatalf("rising series should have zero drawdown")
	}
}

func TestAnalyzeConstantSeriesIsSafe(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 50
	}
	a := NewAnalyzer(&stubProvider{hists: map[string]*models.History{
		"stablecoin": seriesHistory("stablecoin", prices),
	}})
	m, err := a.Analyze(context.Background(), []models.Position{
		{Asset: "stablecoin", Amount: 10, PurchasePrice: 50},
	}, 60)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if m.VaR95 != 0 || m.CVaR95 != 0 || m.Volatility != 0 || m.Sharpe != 0 || m.MaxDrawdown != 0 {
		t.Fatalf("constant series should produce zero metrics: %+v", m)
	}
	if m.TotalValue != 500 {
		t.Fatalf("total value = %v, want 500", m.TotalValue)
	}
}

func TestAnalyzeEmptyPortfolio(t *testing.T) {
	a := NewAnalyzer(&stubProvider{hists: map[string]*models.History{}})
	m, err := a.Analyze(context.Background(), nil, 90)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	vals := []float64{m.VaR95, m.CVaR95, m.Volatility, m.Sharpe, m.MaxDrawdown, m.TotalValue}
	for i, v := range vals {
		if v != 0 {
			t.Fatalf("metric %d = %v, want 0 for empty portfolio", i, v)
		}
	}
}

func TestAnalyzeMixedLengthsAlignsOnOverlap(t *testing.T) {
	a := NewAnalyzer(&stubProvider{hists: map[string]*models.History{
		"bitcoin":  seriesHistory("bitcoin", wavePrices(90, 45000, 0.05)),
		"ethereum": seriesHistory("ethereum", wavePrices(60, 3000, 0.08)),
	}})
	m, err := a.Analyze(context.Background(), []models.Position{
		{Asset: "bitcoin", Amount: 0.1, PurchasePrice: 40000},
		{Asset: "ethereum", Amount: 1, PurchasePrice: 2800},
	}, 90)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	// overlap is the shorter series: 60 points, 59 returns
	if m.Window != 59 {
		t.Fatalf("window = %d, want 59", m.Window)
	}
	for _, v := range []float64{m.VaR95, m.CVaR95, m.Volatility, m.Sharpe, m.MaxDrawdown} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite metric in %+v", m)
		}
	}
}

func TestOptimizeWeightsSumToOne(t *testing.T) {
	a := NewAnalyzer(&stubProvider{hists: map[string]*models.History{
		"bitcoin":  seriesHistory("bitcoin", wavePrices(90, 45000, 0.03)),
		"ethereum": seriesHistory("ethereum", wavePrices(90, 3000, 0.06)),
		"solana":   seriesHistory("solana", wavePrices(90, 95, 0.1)),
	}})
	positions := []models.Position{
		{Asset: "bitcoin", Amount: 0.1},
		{Asset: "ethereum", Amount: 1},
		{Asset: "solana", Amount: 10},
	}
	for _, tol := range []string{models.ToleranceLow, models.ToleranceMedium, models.ToleranceHigh} {
		weights, err := a.Optimize(context.Background(), positions, tol, 90)
		if err != nil {
			t.Fatalf("optimize(%s): %v", tol, err)
		}
		sum := 0.0
		for _, w := range weights {
			if w.Weight < 0 {
				t.Fatalf("negative weight for %s: %v", w.Asset, w.Weight)
			}
			sum += w.Weight
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("weights for %s sum to %v, want 1", tol, sum)
		}
	}
}

func TestOptimizeAllZeroScoresEqualWeights(t *testing.T) {
	// falling series: negative sharpe everywhere, all raw scores zero
	falling := func(n int, base float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = base * math.Pow(0.99, float64(i))
		}
		return out
	}
	a := NewAnalyzer(&stubProvider{hists: map[string]*models.History{
		"a": seriesHistory("a", falling(60, 100)),
		"b": seriesHistory("b", falling(60, 200)),
	}})
	weights, err := a.Optimize(context.Background(), []models.Position{
		{Asset: "a", Amount: 1}, {Asset: "b", Amount: 1},
	}, models.ToleranceMedium, 60)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(weights) != 2 {
		t.Fatalf("expected 2 weights, got %d", len(weights))
	}
	for _, w := range weights {
		if math.Abs(w.Weight-0.5) > 1e-9 {
			t.Fatalf("expected equal weights, got %v for %s", w.Weight, w.Asset)
		}
	}
}

func TestLowToleranceFavorsCalmAsset(t *testing.T) {
	// same positive drift, different volatility
	drift := func(n int, base, vol float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = base * math.Pow(1.002, float64(i)) * (1 + vol*math.Sin(float64(i)/3))
		}
		return out
	}
	a := NewAnalyzer(&stubProvider{hists: map[string]*models.History{
		"calm": seriesHistory("calm", drift(90, 100, 0.01)),
		"wild": seriesHistory("wild", drift(90, 100, 0.10)),
	}})
	positions := []models.Position{{Asset: "calm", Amount: 1}, {Asset: "wild", Amount: 1}}

	low, err := a.Optimize(context.Background(), positions, models.ToleranceLow, 90)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	byAsset := map[string]float64{}
	for _, w := range low {
		byAsset[w.Asset] = w.Weight
	}
	if byAsset["calm"] <= byAsset["wild"] {
		t.Fatalf("low tolerance should favor the calm asset: %+v", byAsset)
	}
}

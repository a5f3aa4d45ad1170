package recovery

import (
	"context"
	"testing"
	"time"

	"CoinSight/internal/domain/models"
)

func neutralSnapshot() *models.FeatureSnapshot {
	return &models.FeatureSnapshot{
		RSI14:        50,
		Volatility30: 0.02,
		VolumeRatio:  1,
		Sentiment:    0.5,
		CapStability: 0.8,
		DataPoints:   90,
	}
}

func TestSeverityBuckets(t *testing.T) {
	cases := []struct {
		loss float64
		want string
	}{
		{0.10, models.SeverityLow},
		{0.0, models.SeverityLow},
		{-0.0999, models.SeverityLow},
		{-0.10, models.SeverityMedium},
		{-0.2499, models.SeverityMedium},
		{-0.25, models.SeverityHigh},
		{-0.4999, models.SeverityHigh},
		{-0.50, models.SeverityCritical},
		{-0.90, models.SeverityCritical},
	}
	for _, c := range cases {
		if got := Severity(c.loss); got != c.want {
			t.Fatalf("Severity(%v) = %q, want %q", c.loss, got, c.want)
		}
	}
}

func TestActionTable(t *testing.T) {
	cases := []struct {
		loss, prob float64
		want       string
	}{
		{-0.6, 0.4, models.ActionDCA},
		{-0.6, 0.2, models.ActionSell},
		{-0.50, 0.35, models.ActionDCA},
		{-0.50, 0.2, models.ActionSell},
		{-0.3, 0.6, models.ActionDCA},
		{-0.3, 0.4, models.ActionWait},
		{-0.20, 0.55, models.ActionDCA},
		{-0.20, 0.4, models.ActionWait},
		{-0.15, 0.7, models.ActionHold},
		{-0.15, 0.5, models.ActionWait},
		{-0.10, 0.7, models.ActionHold},
		{-0.10, 0.5, models.ActionWait},
		{-0.05, 0.1, models.ActionHold},
		{0.2, 0.9, models.ActionHold},
	}
	for _, c := range cases {
		if got := determineAction(c.loss, c.prob); got != c.want {
			t.Fatalf("determineAction(%v, %v) = %q, want %q", c.loss, c.prob, got, c.want)
		}
	}
}

func TestProbabilityStrictlyInUnitInterval(t *testing.T) {
	s := NewScorer()
	for _, price := range []float64{1, 40, 80, 99, 150} {
		a, err := s.Assess(context.Background(), models.Position{
			Asset:         "bitcoin",
			Amount:        1,
			PurchasePrice: 100,
			PurchaseDate:  time.Now().AddDate(0, -3, 0),
		}, price, neutralSnapshot())
		if err != nil {
			t.Fatalf("assess at price %v: %v", price, err)
		}
		if a.RecoveryProbability <= 0 || a.RecoveryProbability >= 1 {
			t.Fatalf("probability %v at price %v not strictly in (0,1)", a.RecoveryProbability, price)
		}
		if a.Confidence < 0.3 || a.Confidence > 0.95 {
			t.Fatalf("confidence %v out of [0.3, 0.95]", a.Confidence)
		}
		if a.RiskScore < 0.1 || a.RiskScore > 0.9 {
			t.Fatalf("risk %v out of [0.1, 0.9]", a.RiskScore)
		}
	}
}

func TestBreakevenDaysClamped(t *testing.T) {
	if got := breakevenDays(0, 1, 0); got != 30 {
		t.Fatalf("no-loss optimistic breakeven = %d, want 30", got)
	}
	if got := breakevenDays(-5, -1, 10); got != 365 {
		t.Fatalf("extreme breakeven = %d, want clamp 365", got)
	}
	if got := breakevenDays(0, 1.5, 0); got < 7 {
		t.Fatalf("breakeven = %d, below the 7-day floor", got)
	}
}

func TestDeepLossScoresWorseThanShallow(t *testing.T) {
	s := NewScorer()
	pos := models.Position{Asset: "ethereum", Amount: 2, PurchasePrice: 100, PurchaseDate: time.Now().AddDate(0, -1, 0)}

	shallow, err := s.Assess(context.Background(), pos, 95, neutralSnapshot())
	if err != nil {
		t.Fatalf("assess shallow: %v", err)
	}
	deep, err := s.Assess(context.Background(), pos, 40, neutralSnapshot())
	if err != nil {
		t.Fatalf("assess deep: %v", err)
	}
	if deep.RecoveryProbability >= shallow.RecoveryProbability {
		t.Fatalf("deep loss probability %v should be below shallow %v",
			deep.RecoveryProbability, shallow.RecoveryProbability)
	}
	if deep.EstimatedDays <= shallow.EstimatedDays {
		t.Fatalf("deep loss days %d should exceed shallow %d", deep.EstimatedDays, shallow.EstimatedDays)
	}
}

func TestFallbackWithoutSnapshot(t *testing.T) {
	s := NewScorer()
	a, err := s.Assess(context.Background(), models.Position{
		Asset: "solana", Amount: 10, PurchasePrice: 100,
	}, 70, nil)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.ModelType != models.ModelFallback {
		t.Fatalf("model type = %q, want fallback", a.ModelType)
	}
	if a.RecoveryProbability <= 0 || a.RecoveryProbability >= 1 {
		t.Fatalf("fallback probability %v not strictly in (0,1)", a.RecoveryProbability)
	}
	if len(a.Factors) == 0 {
		t.Fatalf("fallback should still explain itself")
	}
}

func TestAssessRejectsBadPrices(t *testing.T) {
	s := NewScorer()
	if _, err := s.Assess(context.Background(), models.Position{Asset: "x", PurchasePrice: 0}, 10, nil); err == nil {
		t.Fatalf("expected error for zero purchase price")
	}
	if _, err := s.Assess(context.Background(), models.Position{Asset: "x", PurchasePrice: 10}, 0, nil); err == nil {
		t.Fatalf("expected error for zero current price")
	}
}

func TestStrategyMatchesAction(t *testing.T) {
	st := buildStrategy(models.ActionDCA, 100, 120)
	if st.Tranches < 2 || st.Tranches > 6 {
		t.Fatalf("dca tranches = %d, want within [2,6]", st.Tranches)
	}
	st = buildStrategy(models.ActionSell, 100, 60)
	if st.StopLoss != 95 {
		t.Fatalf("sell stop = %v, want 95", st.StopLoss)
	}
	st = buildStrategy(models.ActionHold, 100, 10)
	if st.ReviewDays < 7 {
		t.Fatalf("hold review days = %d, want >= 7", st.ReviewDays)
	}
}

package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"CoinSight/internal/domain/models"
)

type fakeProvider struct {
	points int
	price  float64
}

func (f *fakeProvider) GetHistory(ctx context.Context, asset string, days int) (*models.History, error) {
	n := f.points
	if n > days {
		n = days
	}
	pts := make([]models.PricePoint, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range pts {
		pts[i] = models.PricePoint{Date: base.AddDate(0, 0, i), Price: f.price, Volume: 1e6}
	}
	return &models.History{Asset: asset, Days: days, Source: models.SourceSynthetic, Points: pts}, nil
}

func (f *fakeProvider) CurrentPrice(ctx context.Context, asset string) (float64, string, error) {
	return f.price, models.SourceSynthetic, nil
}

type fakeForecaster struct {
	fail map[string]bool
}

func (f *fakeForecaster) Forecast(ctx context.Context, asset string, days int, model string) (*models.Forecast, error) {
	if f.fail[asset] {
		return nil, fmt.Errorf("model blew up for %s", asset)
	}
	return &models.Forecast{Asset: asset, ModelType: models.ModelARIMA, CurrentPrice: 100}, nil
}

type fakeScorer struct {
	gotSnap *models.FeatureSnapshot
	gotPos  models.Position
}

func (f *fakeScorer) Assess(ctx context.Context, pos models.Position, currentPrice float64, snap *models.FeatureSnapshot) (*models.RecoveryAssessment, error) {
	f.gotSnap = snap
	f.gotPos = pos
	return &models.RecoveryAssessment{Asset: pos.Asset, RecoveryProbability: 0.5}, nil
}

type fakeRisk struct{}

func (fakeRisk) Analyze(ctx context.Context, positions []models.Position, days int) (*models.RiskMetrics, error) {
	return &models.RiskMetrics{TotalValue: 1000, Window: days}, nil
}

func (fakeRisk) Optimize(ctx context.Context, positions []models.Position, tolerance string, days int) ([]models.AssetWeight, error) {
	out := make([]models.AssetWeight, len(positions))
	for i, p := range positions {
		out[i] = models.AssetWeight{Asset: p.Asset, Weight: 1 / float64(len(positions))}
	}
	return out, nil
}

func TestRecoveryBuildsSnapshotFromHistory(t *testing.T) {
	scorer := &fakeScorer{}
	uc := NewAnalysisUseCase(&fakeProvider{points: 90, price: 50}, &fakeForecaster{}, scorer, fakeRisk{})

	_, err := uc.Recovery(context.Background(), &models.RecoveryRequest{
		Asset:         "BTC",
		Amount:        1,
		PurchasePrice: 100,
		PurchaseDate:  "2025-01-01",
		Sentiment:     0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scorer.gotSnap == nil {
		t.Fatalf("expected a feature snapshot with 90 points of history")
	}
	if scorer.gotPos.Asset != "bitcoin" {
		t.Fatalf("expected canonical asset bitcoin, got %s", scorer.gotPos.Asset)
	}
}

func TestRecoveryShortHistorySkipsSnapshot(t *testing.T) {
	scorer := &fakeScorer{}
	uc := NewAnalysisUseCase(&fakeProvider{points: 10, price: 50}, &fakeForecaster{}, scorer, fakeRisk{})

	_, err := uc.Recovery(context.Background(), &models.RecoveryRequest{
		Asset:         "bitcoin",
		Amount:        1,
		PurchasePrice: 100,
		PurchaseDate:  "2025-01-01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scorer.gotSnap != nil {
		t.Fatalf("expected nil snapshot for a 10-point history")
	}
}

func TestRecoveryRejectsBadDate(t *testing.T) {
	uc := NewAnalysisUseCase(&fakeProvider{points: 90, price: 50}, &fakeForecaster{}, &fakeScorer{}, fakeRisk{})

	_, err := uc.Recovery(context.Background(), &models.RecoveryRequest{
		Asset:         "bitcoin",
		Amount:        1,
		PurchasePrice: 100,
		PurchaseDate:  "yesterday-ish",
	})
	if err == nil {
		t.Fatalf("expected error for invalid purchase date")
	}
}

func TestOverviewAggregatesAllBranches(t *testing.T) {
	uc := NewAnalysisUseCase(&fakeProvider{points: 90, price: 50}, &fakeForecaster{}, &fakeScorer{}, fakeRisk{})

	res, err := uc.Overview(context.Background(), &models.RiskRequest{
		Positions: []models.PositionRequest{
			{Asset: "bitcoin", Amount: 1},
			{Asset: "ethereum", Amount: 2},
			{Asset: "bitcoin", Amount: 3}, // duplicate: one forecast only
		},
		Tolerance: "medium",
		Days:      90,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Risk == nil || res.Risk.TotalValue != 1000 {
		t.Fatalf("risk branch missing: %+v", res.Risk)
	}
	if len(res.Weights) != 3 {
		t.Fatalf("expected 3 weights, got %d", len(res.Weights))
	}
	if len(res.Forecasts) != 2 {
		t.Fatalf("expected forecasts for 2 unique assets, got %d", len(res.Forecasts))
	}
	if res.Errors != nil {
		t.Fatalf("expected no errors, got %v", res.Errors)
	}
}

func TestOverviewReportsBranchFailures(t *testing.T) {
	fc := &fakeForecaster{fail: map[string]bool{"ethereum": true}}
	uc := NewAnalysisUseCase(&fakeProvider{points: 90, price: 50}, fc, &fakeScorer{}, fakeRisk{})

	res, err := uc.Overview(context.Background(), &models.RiskRequest{
		Positions: []models.PositionRequest{
			{Asset: "bitcoin", Amount: 1},
			{Asset: "ethereum", Amount: 2},
		},
		Days: 90,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := res.Forecasts["bitcoin"]; !ok {
		t.Fatalf("healthy branch should still land")
	}
	if _, ok := res.Errors["forecast:ethereum"]; !ok {
		t.Fatalf("expected the failed branch in Errors, got %v", res.Errors)
	}
}

func TestOverviewRejectsEmptyPositions(t *testing.T) {
	uc := NewAnalysisUseCase(&fakeProvider{points: 90, price: 50}, &fakeForecaster{}, &fakeScorer{}, fakeRisk{})
	if _, err := uc.Overview(context.Background(), &models.RiskRequest{}); err == nil {
		t.Fatalf("expected error for empty positions")
	}
}

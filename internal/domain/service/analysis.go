package service

import (
	"context"

	"CoinSight/internal/domain/models"
)

// HistoryProvider serves daily price series. Implementations must absorb
// upstream failure into a synthetic series; the only error a caller sees is
// a broken request (bad asset, days < 1).
type HistoryProvider interface {
	GetHistory(ctx context.Context, asset string, days int) (*models.History, error)
	CurrentPrice(ctx context.Context, asset string) (float64, string, error)
}

// PricePredictor is the common capability of the forecasting strategies.
// Fit trains on a chronological price series; Predict extends it.
type PricePredictor interface {
	Fit(prices []float64) error
	Predict(steps int) ([]float64, error)
	Name() string
}

// Forecaster runs a predictor over an asset's history, backtests it and
// assembles the forecast.
type Forecaster interface {
	Forecast(ctx context.Context, asset string, days int, model string) (*models.Forecast, error)
}

// RecoveryScorer assesses an underwater position.
type RecoveryScorer interface {
	Assess(ctx context.Context, pos models.Position, currentPrice float64, snap *models.FeatureSnapshot) (*models.RecoveryAssessment, error)
}

// RiskAnalyzer computes portfolio risk metrics and optimized weights.
type RiskAnalyzer interface {
	Analyze(ctx context.Context, positions []models.Position, days int) (*models.RiskMetrics, error)
	Optimize(ctx context.Context, positions []models.Position, tolerance string, days int) ([]models.AssetWeight, error)
}

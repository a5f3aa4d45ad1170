package models

import "time"

// Model type tags carried on forecast output. Fallback marks the bounded
// random-walk path used when a model produced unusable numbers.
const (
	ModelLSTM     = "LSTM"
	ModelARIMA    = "ARIMA"
	ModelFallback = "fallback"
)

// Prediction is one forecasted day.
type Prediction struct {
	Date       time.Time
	Price      float64
	Confidence float64 // percent, non-increasing with horizon
	Model      string
}

// ForecastMetrics are backtest quality measures over the holdout window.
type ForecastMetrics struct {
	MAE  float64
	RMSE float64
	MAPE float64
}

// Forecast is the result of one forecasting run for an asset.
type Forecast struct {
	Asset              string
	ModelType          string // ModelLSTM | ModelARIMA | ModelFallback
	Source             string // source of the underlying history
	CurrentPrice       float64
	Predictions        []Prediction
	Accuracy           float64 // percent of backtest points above the accuracy bar
	Metrics            ForecastMetrics
	TrainingWindowDays int             // points the backtest trained on; 0 on the fallback path
	Backtest           []BacktestPoint // walk-forward holdout comparisons; nil on the fallback path
	GeneratedAt        time.Time
}

// BacktestPoint is one walk-forward comparison of predicted vs actual.
type BacktestPoint struct {
	Date      time.Time
	Actual    float64
	Predicted float64
	Accuracy  float64 // max(0, 100 - |err|/actual*100)
}

// BacktestReport summarizes a walk-forward evaluation.
type BacktestReport struct {
	Points    []BacktestPoint
	TrainSize int     // points before the holdout split
	Accuracy  float64 // percent of points with per-point accuracy > 70
	Metrics   ForecastMetrics
}

package forecast

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"CoinSight/internal/domain/models"
	"CoinSight/internal/domain/repository"
	domsvc "CoinSight/internal/domain/service"
	"CoinSight/internal/services/features"
	applogger "CoinSight/pkg/logger"
)

// minHistory is the shortest series a model can be fit on. Anything below
// surfaces as an InsufficientDataError.
const minHistory = 30

// Engine runs a predictor over an asset's history, backtests it and
// assembles the forecast. It is the only place an analysis error can
// surface from, and only as models.InsufficientDataError.
type Engine struct {
	provider domsvc.HistoryProvider
	archive  repository.ForecastArchive
	log      *applogger.Logger

	historyDays int
	epochs      int
	hiddenSize  int
	window      int
}

var _ domsvc.Forecaster = (*Engine)(nil)

type EngineOption func(*Engine)

// WithArchive persists completed runs. Archive errors are logged, never
// returned.
func WithArchive(a repository.ForecastArchive) EngineOption {
	return func(e *Engine) { e.archive = a }
}

func WithEngineLogger(l *applogger.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithTraining overrides the LSTM training parameters.
func WithTraining(epochs, hiddenSize, window int) EngineOption {
	return func(e *Engine) {
		if epochs > 0 {
			e.epochs = epochs
		}
		if hiddenSize > 0 {
			e.hiddenSize = hiddenSize
		}
		if window > 0 {
			e.window = window
		}
	}
}

// WithHistoryDays sets how much history is pulled for training.
func WithHistoryDays(days int) EngineOption {
	return func(e *Engine) {
		if days > 0 {
			e.historyDays = days
		}
	}
}

func NewEngine(provider domsvc.HistoryProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		provider:    provider,
		historyDays: 365,
		epochs:      100,
		hiddenSize:  50,
		window:      60,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// newPredictor builds a predictor for the model name. The seed is derived
// from the asset so repeated runs on the same series line up.
func (e *Engine) newPredictor(model string, seed int64) domsvc.PricePredictor {
	if model == "arima" {
		return NewARIMA(2, 1, 2)
	}
	return NewLSTM(
		WithHiddenSize(e.hiddenSize),
		WithWindow(e.window),
		WithEpochs(e.epochs),
		WithSeed(seed),
	)
}

func assetSeed(asset string) int64 {
	h := fnv.New64a()
	h.Write([]byte(asset))
	return int64(h.Sum64())
}

// Forecast fits the requested model, predicts day 1..days, backtests the
// model walk-forward and returns the assembled forecast. A model that
// produces non-finite or non-positive prices is replaced by the bounded
// random-walk fallback; upstream trouble never surfaces because the
// provider absorbs it into a synthetic series.
func (e *Engine) Forecast(ctx context.Context, asset string, days int, model string) (*models.Forecast, error) {
	if days < 1 {
		days = 7
	}
	if model != "arima" {
		model = "lstm"
	}

	hist, err := e.provider.GetHistory(ctx, asset, e.historyDays)
	if err != nil {
		return nil, err
	}
	prices := hist.Prices()
	if len(prices) < minHistory {
		return nil, &models.InsufficientDataError{Asset: asset, Required: minHistory, Actual: len(prices)}
	}

	now := time.Now().UTC()
	current := prices[len(prices)-1]
	seed := assetSeed(asset)

	predictor := e.newPredictor(model, seed)
	modelType := predictor.Name()

	predicted, err := fitAndPredict(predictor, prices, days)
	if err != nil || !allUsable(predicted) {
		if e.log != nil {
			e.log.Warn("model output unusable, using random-walk fallback",
				applogger.String("asset", asset),
				applogger.String("model", modelType))
		}
		vol := features.Volatility(features.Returns(prices))
		predicted = randomWalk(current, vol, days, rand.New(rand.NewSource(seed)))
		modelType = models.ModelFallback
	}

	f := &models.Forecast{
		Asset:        asset,
		ModelType:    modelType,
		Source:       hist.Source,
		CurrentPrice: current,
		Predictions:  make([]models.Prediction, 0, days),
		GeneratedAt:  now,
	}
	for d := 1; d <= days; d++ {
		f.Predictions = append(f.Predictions, models.Prediction{
			Date:       now.AddDate(0, 0, d),
			Price:      predicted[d-1],
			Confidence: confidence(modelType, d),
			Model:      modelType,
		})
	}

	if modelType == models.ModelFallback {
		f.Accuracy = fallbackAccuracy
	} else {
		report, err := walkForward(func() domsvc.PricePredictor {
			return e.newPredictor(model, seed)
		}, prices, now)
		if err != nil {
			if e.log != nil {
				e.log.Warn("backtest failed", applogger.String("asset", asset), applogger.Error(err))
			}
			f.Accuracy = fallbackAccuracy
		} else {
			f.Accuracy = report.Accuracy
			f.Metrics = report.Metrics
			f.TrainingWindowDays = report.TrainSize
			f.Backtest = report.Points
		}
	}

	e.archiveRun(f)
	return f, nil
}

// confidence decays with the horizon and never increases. LSTM starts
// higher and decays slower than ARIMA.
func confidence(modelType string, day int) float64 {
	switch modelType {
	case models.ModelARIMA:
		return math.Max(50, 85-float64(day)*2.5)
	case models.ModelFallback:
		return math.Max(40, 60-float64(day))
	default:
		return math.Max(60, 90-float64(day)*2)
	}
}

func fitAndPredict(p domsvc.PricePredictor, prices []float64, steps int) ([]float64, error) {
	if err := p.Fit(prices); err != nil {
		return nil, err
	}
	return p.Predict(steps)
}

func allUsable(prices []float64) bool {
	for _, v := range prices {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return len(prices) > 0
}

func (e *Engine) archiveRun(f *models.Forecast) {
	if e.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.archive.StoreForecast(ctx, f); err != nil && e.log != nil {
			e.log.Warn("forecast archive write failed",
				applogger.String("asset", f.Asset),
				applogger.Error(err))
		}
	}()
}

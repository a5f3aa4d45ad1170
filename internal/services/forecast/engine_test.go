package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"CoinSight/internal/domain/models"
	domsvc "CoinSight/internal/domain/service"
)

type stubProvider struct {
	hist *models.History
}

func (s *stubProvider) GetHistory(ctx context.Context, asset string, days int) (*models.History, error) {
	return s.hist, nil
}

func (s *stubProvider) CurrentPrice(ctx context.Context, asset string) (float64, string, error) {
	return s.hist.Last().Price, s.hist.Source, nil
}

var _ domsvc.HistoryProvider = (*stubProvider)(nil)

func makeHistory(asset string, n int) *models.History {
	h := &models.History{Asset: asset, Days: n, Source: models.SourceSynthetic}
	price := 100.0
	start := time.Now().UTC().AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		price *= 1 + 0.01*math.Sin(float64(i)/5)
		h.Points = append(h.Points, models.PricePoint{
			Date:  start.AddDate(0, 0, i),
			Price: price,
		})
	}
	return h
}

func TestARIMAConstantSeriesStaysFlat(t *testing.T) {
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = 42
	}
	m := NewARIMA(2, 1, 2)
	if err := m.Fit(prices); err != nil {
		t.Fatalf("fit: %v", err)
	}
	preds, err := m.Predict(5)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	for i, p := range preds {
		if p != 42 {
			t.Fatalf("prediction %d = %v, want 42", i, p)
		}
	}
}

func TestARIMAPredictBeforeFit(t *testing.T) {
	m := NewARIMA(2, 1, 2)
	if _, err := m.Predict(3); err == nil {
		t.Fatalf("expected error predicting before fit")
	}
}

func TestARIMAOutputsFinite(t *testing.T) {
	prices := makeHistory("bitcoin", 120).Prices()
	m := NewARIMA(2, 1, 2)
	if err := m.Fit(prices); err != nil {
		t.Fatalf("fit: %v", err)
	}
	preds, err := m.Predict(30)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(preds) != 30 {
		t.Fatalf("expected 30 predictions, got %d", len(preds))
	}
	for i, p := range preds {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("prediction %d is not finite: %v", i, p)
		}
	}
}

func TestLSTMSeedReproducible(t *testing.T) {
	prices := makeHistory("ethereum", 80).Prices()

	run := func() []float64 {
		m := NewLSTM(WithSeed(7), WithEpochs(3), WithHiddenSize(8), WithWindow(10))
		if err := m.Fit(prices); err != nil {
			t.Fatalf("fit: %v", err)
		}
		preds, err := m.Predict(5)
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		return preds
	}

	a := run()
	b := run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at step %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestWalkForwardHoldoutSize(t *testing.T) {
	prices := makeHistory("bitcoin", 100).Prices()
	report, err := walkForward(func() domsvc.PricePredictor {
		return NewARIMA(2, 1, 2)
	}, prices, time.Now())
	if err != nil {
		t.Fatalf("walkForward: %v", err)
	}
	// 20% of 100 is below the 30-point cap
	if len(report.Points) != 20 {
		t.Fatalf("holdout = %d points, want 20", len(report.Points))
	}
	if report.Accuracy < 0 || report.Accuracy > 100 {
		t.Fatalf("accuracy out of range: %v", report.Accuracy)
	}
	for _, p := range report.Points {
		if p.Accuracy < 0 || p.Accuracy > 100 {
			t.Fatalf("point accuracy out of range: %v", p.Accuracy)
		}
	}
}

func TestWalkForwardHoldoutCap(t *testing.T) {
	prices := makeHistory("bitcoin", 300).Prices()
	report, err := walkForward(func() domsvc.PricePredictor {
		return NewARIMA(2, 1, 2)
	}, prices, time.Now())
	if err != nil {
		t.Fatalf("walkForward: %v", err)
	}
	if len(report.Points) != 30 {
		t.Fatalf("holdout = %d points, want capped 30", len(report.Points))
	}
}

func TestEngineInsufficientData(t *testing.T) {
	e := NewEngine(&stubProvider{hist: makeHistory("bitcoin", 10)})
	_, err := e.Forecast(context.Background(), "bitcoin", 7, "arima")
	if err == nil {
		t.Fatalf("expected insufficient data error")
	}
	ie, ok := models.AsInsufficientData(err)
	if !ok {
		t.Fatalf("expected InsufficientDataError, got %T: %v", err, err)
	}
	if ie.Required != 30 || ie.Actual != 10 {
		t.Fatalf("unexpected counts: required=%d actual=%d", ie.Required, ie.Actual)
	}
}

func TestEngineConfidenceMonotonic(t *testing.T) {
	e := NewEngine(&stubProvider{hist: makeHistory("bitcoin", 120)})
	f, err := e.Forecast(context.Background(), "bitcoin", 30, "arima")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(f.Predictions) != 30 {
		t.Fatalf("expected 30 predictions, got %d", len(f.Predictions))
	}
	for i := 1; i < len(f.Predictions); i++ {
		if f.Predictions[i].Confidence > f.Predictions[i-1].Confidence {
			t.Fatalf("confidence increased at day %d: %v > %v",
				i+1, f.Predictions[i].Confidence, f.Predictions[i-1].Confidence)
		}
	}
	for i, p := range f.Predictions {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
			t.Fatalf("prediction %d has unusable price %v", i, p.Price)
		}
	}
}

func TestEngineAttachesBacktestSeries(t *testing.T) {
	e := NewEngine(&stubProvider{hist: makeHistory("bitcoin", 100)})
	f, err := e.Forecast(context.Background(), "bitcoin", 7, "arima")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if f.ModelType != models.ModelARIMA {
		t.Fatalf("expected the arima path, got %q", f.ModelType)
	}
	// 100 points: 20-point holdout, 80 training
	if len(f.Backtest) != 20 {
		t.Fatalf("backtest series = %d points, want 20", len(f.Backtest))
	}
	if f.TrainingWindowDays != 80 {
		t.Fatalf("training window = %d, want 80", f.TrainingWindowDays)
	}
	for i, p := range f.Backtest {
		if math.IsNaN(p.Predicted) || math.IsInf(p.Predicted, 0) {
			t.Fatalf("backtest point %d predicted not finite: %v", i, p.Predicted)
		}
		if p.Accuracy < 0 || p.Accuracy > 100 {
			t.Fatalf("backtest point %d accuracy out of range: %v", i, p.Accuracy)
		}
		if p.Date.IsZero() {
			t.Fatalf("backtest point %d has no date", i)
		}
	}
}

func TestEngineLSTMPath(t *testing.T) {
	e := NewEngine(&stubProvider{hist: makeHistory("ethereum", 90)},
		WithTraining(3, 8, 10))
	f, err := e.Forecast(context.Background(), "ethereum", 7, "lstm")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if f.ModelType != models.ModelLSTM && f.ModelType != models.ModelFallback {
		t.Fatalf("unexpected model type %q", f.ModelType)
	}
	if f.ModelType == models.ModelFallback && f.Accuracy != 65 {
		t.Fatalf("fallback accuracy = %v, want the 65 label", f.Accuracy)
	}
	for i, p := range f.Predictions {
		if p.Price <= 0 {
			t.Fatalf("prediction %d not positive: %v", i, p.Price)
		}
	}
}

func TestConfidenceFormulas(t *testing.T) {
	if got := confidence(models.ModelLSTM, 1); got != 88 {
		t.Fatalf("lstm day-1 confidence = %v, want 88", got)
	}
	if got := confidence(models.ModelLSTM, 30); got != 60 {
		t.Fatalf("lstm day-30 confidence = %v, want floor 60", got)
	}
	if got := confidence(models.ModelARIMA, 30); got != 50 {
		t.Fatalf("arima day-30 confidence = %v, want floor 50", got)
	}
	if got := confidence(models.ModelARIMA, 2); got != 80 {
		t.Fatalf("arima day-2 confidence = %v, want 80", got)
	}
}

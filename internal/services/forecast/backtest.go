package forecast

import (
	"math"
	"time"

	"CoinSight/internal/domain/models"
	domsvc "CoinSight/internal/domain/service"
)

// accuracyBar is the per-point accuracy a prediction must clear to count
// toward the overall accuracy percentage.
const accuracyBar = 70.0

// walkForward evaluates a predictor on the tail of the series: the holdout
// is min(30, 20%) of the points, and for every holdout point a fresh
// predictor is fit on everything before it and asked for one step.
func walkForward(factory func() domsvc.PricePredictor, prices []float64, now time.Time) (*models.BacktestReport, error) {
	testSize := len(prices) / 5
	if testSize > 30 {
		testSize = 30
	}
	if testSize < 1 {
		testSize = 1
	}
	split := len(prices) - testSize

	report := &models.BacktestReport{
		Points:    make([]models.BacktestPoint, 0, testSize),
		TrainSize: split,
	}
	var sumAbs, sumSq, sumPct float64
	correct := 0

	for i := 0; i < testSize; i++ {
		p := factory()
		if err := p.Fit(prices[:split+i]); err != nil {
			return nil, err
		}
		preds, err := p.Predict(1)
		if err != nil {
			return nil, err
		}
		predicted := preds[0]
		actual := prices[split+i]

		absErr := math.Abs(actual - predicted)
		acc := 0.0
		if actual != 0 {
			acc = math.Max(0, 100-absErr/math.Abs(actual)*100)
			sumPct = sumPct + absErr/math.Abs(actual)
		}
		if acc > accuracyBar {
			correct++
		}
		sumAbs += absErr
		sumSq += absErr * absErr

		report.Points = append(report.Points, models.BacktestPoint{
			Date:      now.AddDate(0, 0, -(testSize - i)),
			Actual:    actual,
			Predicted: predicted,
			Accuracy:  acc,
		})
	}

	n := float64(testSize)
	report.Accuracy = float64(correct) / n * 100
	report.Metrics = models.ForecastMetrics{
		MAE:  sumAbs / n,
		RMSE: math.Sqrt(sumSq / n),
		MAPE: sumPct / n * 100,
	}
	return report, nil
}

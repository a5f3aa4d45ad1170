package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinSight/internal/domain/models"
)

// overviewTimeout bounds the whole fan-out; slow branches report into
// Errors instead of blocking the response.
const overviewTimeout = 30 * time.Second

// overviewForecastDays is the horizon used for the per-asset forecasts in
// the consolidated view.
const overviewForecastDays = 7

// Overview runs risk, weight optimization and a short per-asset forecast
// concurrently and consolidates the results. Individual failures land in
// Errors; the call itself only fails on empty input.
func (uc *AnalysisUseCase) Overview(ctx context.Context, req *models.RiskRequest) (*models.PortfolioOverview, error) {
	if len(req.Positions) == 0 {
		return nil, fmt.Errorf("positions required")
	}

	ctx, cancel := context.WithTimeout(ctx, overviewTimeout)
	defer cancel()

	res := &models.PortfolioOverview{
		Timestamp: time.Now(),
		Forecasts: map[string]*models.Forecast{},
		Errors:    map[string]string{},
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 2+len(req.Positions))
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.Risk(ctx, req)
		ch <- item{"risk", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.Optimize(ctx, &models.OptimizeRequest{
			Positions: req.Positions,
			Tolerance: req.Tolerance,
			Days:      req.Days,
		})
		ch <- item{"weights", v, err}
	}()

	seen := map[string]bool{}
	for _, p := range req.Positions {
		if seen[p.Asset] {
			continue
		}
		seen[p.Asset] = true
		asset := p.Asset
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := uc.Forecast(ctx, &models.ForecastRequest{
				Asset: asset,
				Days:  overviewForecastDays,
				Model: "arima",
			})
			ch <- item{"forecast:" + asset, v, err}
		}()
	}

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			continue
		}
		switch {
		case it.name == "risk":
			res.Risk = it.val.(*models.RiskMetrics)
		case it.name == "weights":
			res.Weights = it.val.([]models.AssetWeight)
		default:
			res.Forecasts[it.name[len("forecast:"):]] = it.val.(*models.Forecast)
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

package usecase

import (
	"context"
	"time"

	"CoinSight/internal/domain/models"
	applogger "CoinSight/pkg/logger"
	"CoinSight/pkg/queue"
)

// ForecastWarmType is the queue message type for warm-up runs.
const ForecastWarmType = "forecast.warm"

// ForecastWarmPayload asks for one forecast run.
type ForecastWarmPayload struct {
	Asset string `json:"asset"`
	Days  int    `json:"days"`
	Model string `json:"model"`
}

// ForecastWarmJob re-runs a forecast off the request path so the series
// cache and the archive stay fresh for the tracked assets.
type ForecastWarmJob struct {
	uc  *AnalysisUseCase
	log *applogger.Logger
}

var _ queue.Job = (*ForecastWarmJob)(nil)

func NewForecastWarmJob(uc *AnalysisUseCase, log *applogger.Logger) *ForecastWarmJob {
	return &ForecastWarmJob{uc: uc, log: log}
}

func (j *ForecastWarmJob) Name() string { return "forecast-warm" }
func (j *ForecastWarmJob) Type() string { return ForecastWarmType }

func (j *ForecastWarmJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ForecastWarmPayload](payload)
	if err != nil {
		return err
	}
	req := &models.ForecastRequest{Asset: p.Asset, Days: p.Days, Model: p.Model}
	if req.Days <= 0 {
		req.Days = 7
	}
	if req.Model == "" {
		req.Model = "arima"
	}

	f, err := j.uc.Forecast(ctx, req)
	if err != nil {
		if _, ok := models.AsInsufficientData(err); ok {
			// Retrying will not grow the series; drop the message.
			j.log.Warn("forecast warm skipped", applogger.String("asset", p.Asset), applogger.Error(err))
			return nil
		}
		return err
	}
	j.log.Debug("forecast warmed",
		applogger.String("asset", f.Asset),
		applogger.String("model", f.ModelType),
		applogger.Float64("accuracy", f.Accuracy),
	)
	return nil
}

// ForecastWarmer enqueues warm-up runs for the tracked assets on a fixed
// interval.
type ForecastWarmer struct {
	q        queue.QueueService
	assets   []string
	interval time.Duration
	model    string
	log      *applogger.Logger
}

func NewForecastWarmer(q queue.QueueService, assets []string, interval time.Duration, model string, log *applogger.Logger) *ForecastWarmer {
	if interval <= 0 {
		interval = time.Hour
	}
	if model == "" {
		model = "arima"
	}
	return &ForecastWarmer{q: q, assets: assets, interval: interval, model: model, log: log}
}

// Start blocks until ctx is cancelled. Run it in a goroutine.
func (w *ForecastWarmer) Start(ctx context.Context) {
	if w.q == nil || len(w.assets) == 0 {
		return
	}
	w.enqueueAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.enqueueAll(ctx)
		}
	}
}

func (w *ForecastWarmer) enqueueAll(ctx context.Context) {
	for _, asset := range w.assets {
		p := ForecastWarmPayload{Asset: asset, Days: 7, Model: w.model}
		if err := w.q.PublishMessage(ctx, ForecastWarmType, p); err != nil {
			w.log.Warn("forecast warm enqueue failed",
				applogger.String("asset", asset),
				applogger.Error(err),
			)
		}
	}
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"CoinSight/internal/domain/models"
	domrepo "CoinSight/internal/domain/repository"
	pkgch "CoinSight/pkg/clickhouse"
	applogger "CoinSight/pkg/logger"
)

// CHForecastArchive persists forecast runs in ClickHouse.
type CHForecastArchive struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.ForecastArchive = (*CHForecastArchive)(nil)

func NewCHForecastArchive(ch *pkgch.Client, table string) *CHForecastArchive {
	if table == "" {
		table = "coinsight.forecasts"
	}
	return &CHForecastArchive{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (a *CHForecastArchive) SetLogger(l *applogger.Logger) { a.l = l }

func (a *CHForecastArchive) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

// StoreForecast writes one completed run. Predictions are stored as a JSON
// column; the run-level fields are queryable directly.
func (a *CHForecastArchive) StoreForecast(ctx context.Context, f *models.Forecast) error {
	if f == nil {
		return fmt.Errorf("forecast is nil")
	}
	start := time.Now()

	preds, err := json.Marshal(f.Predictions)
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	backtest, err := json.Marshal(f.Backtest)
	if err != nil {
		return fmt.Errorf("marshal backtest: %w", err)
	}
	horizon := 0
	if n := len(f.Predictions); n > 0 {
		horizon = n
	}

	q := fmt.Sprintf(`INSERT INTO %s
        (generated_at, asset, model_type, source, current_price, horizon_days, accuracy, mae, rmse, mape, training_window, predictions, backtest)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, a.table)
	_, err = a.db.ExecContext(ctx, q,
		f.GeneratedAt,
		f.Asset,
		f.ModelType,
		f.Source,
		f.CurrentPrice,
		horizon,
		f.Accuracy,
		f.Metrics.MAE,
		f.Metrics.RMSE,
		f.Metrics.MAPE,
		f.TrainingWindowDays,
		string(preds),
		string(backtest),
	)
	if err != nil {
		if a.l != nil {
			a.l.Error("clickhouse forecast insert error",
				applogger.String("table", a.table),
				applogger.String("asset", f.Asset),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store forecast: %w", err)
	}
	if a.l != nil {
		a.l.Info("clickhouse forecast archived",
			applogger.String("asset", f.Asset),
			applogger.String("model", f.ModelType),
			applogger.Int("horizon_days", horizon),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (a *CHForecastArchive) Close() error {
	return nil // Managed by pkg
}

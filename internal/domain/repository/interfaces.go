package repository

import (
	"context"
	"time"

	"CoinSight/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, t *models.Tick) error
	StoreBatch(ctx context.Context, ticks []*models.Tick) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// ForecastArchive persists completed forecast runs. Archive failures are
// logged by callers, never surfaced.
type ForecastArchive interface {
	Init(ctx context.Context) error
	StoreForecast(ctx context.Context, f *models.Forecast) error
	Close() error
}

type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}

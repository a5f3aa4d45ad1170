package usecase

import (
	"context"
	"sync"

	"CoinSight/internal/domain/models"
	drepo "CoinSight/internal/domain/repository"
	mid "CoinSight/internal/middleware"
	"CoinSight/internal/services/market"
)

// TickCollector consumes the exchange stream, maintains the last-price
// table the analysis layer reads, and hands ticks to the processor.
type TickCollector struct {
	stream  drepo.MarketStream
	proc    *TickProcessor
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline

	mu         sync.RWMutex
	lastPrices map[string]float64 // keyed by asset id, not pair symbol
}

// NewTickCollector creates a new TickCollector instance.
func NewTickCollector(stream drepo.MarketStream, proc *TickProcessor, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *TickCollector {
	return &TickCollector{
		stream:     stream,
		proc:       proc,
		metrics:    metrics,
		pipe:       pipe,
		lastPrices: make(map[string]float64),
	}
}

// IsConnected returns true if the market stream is connected.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// LastPrice returns the freshest streamed price for an asset id.
func (c *TickCollector) LastPrice(asset string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.lastPrices[asset]
	return p, ok
}

func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *TickCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t := <-tickCh:
			if t == nil {
				continue
			}
			c.record(t)
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.proc.Process(ctx, t)
			}
			c.metrics.RecordLastPrice(t.Symbol, t.Price)
		}
	}
}

func (c *TickCollector) record(t *models.Tick) {
	asset := market.AssetForStreamSymbol(t.Symbol)
	c.mu.Lock()
	c.lastPrices[asset] = t.Price
	c.mu.Unlock()
}

func (c *TickCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying TickProcessor for lifecycle management.
func (c *TickCollector) Processor() *TickProcessor { return c.proc }

// Shutdown stops pipeline and closes stream.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}

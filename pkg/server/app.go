package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CoinSight/internal/usecase"
	pkgch "CoinSight/pkg/clickhouse"
	"CoinSight/pkg/config"
	xhttp "CoinSight/pkg/http"
	pkgkafka "CoinSight/pkg/kafka"
	applogger "CoinSight/pkg/logger"
	pkgqueue "CoinSight/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	collector   *usecase.TickCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	queue       *pkgqueue.RedisQueue
	warmer      *usecase.ForecastWarmer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetForecastQueue injects the warm-up queue and its scheduler.
func (a *App) SetForecastQueue(q *pkgqueue.RedisQueue, w *usecase.ForecastWarmer) {
	a.queue = q
	a.warmer = w
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the stream collector when enabled. The analysis endpoints work
	// without it; they just lose the realtime price table.
	if a.cfg.Stream.Enabled && a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("collector started", applogger.Strings("symbols", a.cfg.Stream.Symbols))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start the warm-up queue and its scheduler
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			l.Warn("forecast queue start error", applogger.Error(err))
		} else {
			if a.warmer != nil {
				go a.warmer.Start(ctx)
				l.Info("forecast warmer started")
			}
			// Repeated error logs are batched through the queue and
			// re-emitted deduplicated.
			l.AddCollector(&applogger.CollectionConfig{
				TimeInterval:   30 * time.Second,
				CountThreshold: 100,
				Topic:          usecase.AggregatedLogsType,
				Publisher:      a.queue,
			})
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.log

	// Stop collector (pipeline + stream)
	if a.cfg.Stream.Enabled && a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop the warm-up queue, flushing collected logs first
	if a.queue != nil {
		l.RemoveCollector()
		stopCtx, cancelStop := context.WithTimeout(ctx, 10*time.Second)
		if err := a.queue.Stop(stopCtx); err != nil {
			l.Warn("forecast queue stop error", applogger.Error(err))
		}
		cancelStop()
	}

	// Stop consumer before closing the storage it writes to
	if a.consumer != nil {
		stopCtx, cancelStop := context.WithTimeout(ctx, 10*time.Second)
		if err := a.consumer.Stop(stopCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
		cancelStop()
	}

	// Close tick processor resources (publisher/storage)
	if a.collector != nil {
		if proc := a.collector.Processor(); proc != nil {
			proc.Close()
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}

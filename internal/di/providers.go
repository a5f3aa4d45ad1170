package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"CoinSight/internal/domain/repository"
	domsvc "CoinSight/internal/domain/service"
	"CoinSight/internal/handler/api"
	mid "CoinSight/internal/middleware"
	internalrepo "CoinSight/internal/repository"
	"CoinSight/internal/service/binance"
	icache "CoinSight/internal/service/cache"
	"CoinSight/internal/services/forecast"
	"CoinSight/internal/services/market"
	"CoinSight/internal/services/portfolio"
	"CoinSight/internal/services/recovery"
	"CoinSight/internal/usecase"
	pkgcache "CoinSight/pkg/cache"
	pkgch "CoinSight/pkg/clickhouse"
	"CoinSight/pkg/config"
	pkgkafka "CoinSight/pkg/kafka"
	applogger "CoinSight/pkg/logger"
	"CoinSight/pkg/metrics"
	pkgqueue "CoinSight/pkg/queue"
	"CoinSight/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
// Returns nil when ClickHouse is not configured.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if db == "" {
		db = "coinsight"
	}
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".ticks (" +
			"ts DateTime64(3), symbol String, price Float64, volume Float64, source String, event_id String" +
			") ENGINE=ReplacingMergeTree ORDER BY (symbol, ts, event_id)",
		"CREATE TABLE IF NOT EXISTS " + db + ".forecasts (" +
			"generated_at DateTime, asset String, model_type String, source String, current_price Float64, " +
			"horizon_days UInt16, accuracy Float64, mae Float64, rmse Float64, mape Float64, " +
			"training_window UInt16, predictions String, backtest String" +
			") ENGINE=MergeTree ORDER BY (asset, generated_at)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend is on.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTickStorage creates ClickHouse storage repository.
func ProvideTickStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	if chClient == nil {
		return nil
	}
	db := cfg.ClickHouse.Database
	if db == "" {
		db = "coinsight"
	}
	return internalrepo.NewClickHouseStorage(chClient.DB(), db+".ticks")
}

// ProvideTickPublisher creates Kafka publisher repository.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML. The
// consumer archives the streamed ticks to ClickHouse and only runs when
// both sides of that path are configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" || cfg.ClickHouse.Host == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaTicksHandler registers the handler for the ticks topic.
func ProvideKafkaTicksHandler(store repository.Storage, m repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	if store == nil {
		return nil
	}
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, m)
}

// ProvideBinanceStream creates the Binance miniTicker WebSocket stream.
func ProvideBinanceStream(cfg *config.Config) repository.MarketStream {
	return binance.New(
		cfg.Stream.WebSocketURL,
		cfg.Stream.Symbols,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
	)
}

// ProvideTickProcessor creates the tick processor use case.
func ProvideTickProcessor(
	pub repository.Publisher,
	store repository.Storage,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(
		pub,
		store,
		m,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideTickCollector creates the tick collector use case.
func ProvideTickCollector(
	stream repository.MarketStream,
	processor *usecase.TickProcessor,
	m repository.Metrics,
) *usecase.TickCollector {
	// Build middleware pipeline between WebSocket and backend
	pipe := mid.NewRealtimePipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, processor, m, pipe)
}

// ProvideMarketCache builds the series cache: layered over Redis when Redis
// is configured, in-memory otherwise.
func ProvideMarketCache(cfg *config.Config) pkgcache.Service {
	if cfg.Redis.Enabled {
		host, port := splitHostPort(cfg.Redis.Addr, 6379)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if err == nil {
			return pkgcache.NewLayeredCache(rc)
		}
		// fall through to memory when Redis is unreachable at boot
	}
	return pkgcache.NewMemoryCache()
}

func splitHostPort(addr string, defPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defPort
	}
	return host, port
}

// ProvideMarketProvider creates the history provider backed by the market
// API with the synthetic fallback. Streamed prices answer CurrentPrice
// first when the stream is on.
func ProvideMarketProvider(
	cfg *config.Config,
	c pkgcache.Service,
	collector *usecase.TickCollector,
	m repository.Metrics,
	l *applogger.Logger,
) domsvc.HistoryProvider {
	opts := []market.ProviderOption{
		market.WithAPIKey(cfg.Market.APIKey),
		market.WithCurrency(cfg.Market.Currency),
		market.WithTimeout(cfg.Market.Timeout),
		market.WithCache(c, cfg.Market.CacheTTL),
		market.WithFailureBreaker(cfg.Market.MaxFailures, cfg.Market.FailureCooldown),
		market.WithMetrics(m),
		market.WithLogger(l),
	}
	if cfg.Stream.Enabled {
		opts = append(opts, market.WithLivePrices(collector.LastPrice))
	}
	return market.NewProvider(cfg.Market.BaseURL, opts...)
}

// ProvideForecastArchive persists forecast runs to ClickHouse when enabled.
func ProvideForecastArchive(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.ForecastArchive {
	if chClient == nil || !cfg.Forecast.ArchiveRuns {
		return nil
	}
	db := cfg.ClickHouse.Database
	if db == "" {
		db = "coinsight"
	}
	a := internalrepo.NewCHForecastArchive(chClient, db+".forecasts")
	a.SetLogger(l)
	return a
}

// ProvideForecaster creates the forecast engine.
func ProvideForecaster(
	provider domsvc.HistoryProvider,
	archive repository.ForecastArchive,
	cfg *config.Config,
	l *applogger.Logger,
) domsvc.Forecaster {
	opts := []forecast.EngineOption{
		forecast.WithTraining(cfg.Forecast.Epochs, cfg.Forecast.HiddenSize, cfg.Forecast.Window),
		forecast.WithEngineLogger(l),
	}
	if archive != nil {
		opts = append(opts, forecast.WithArchive(archive))
	}
	return forecast.NewEngine(provider, opts...)
}

// ProvideRecoveryScorer creates the recovery scorer.
func ProvideRecoveryScorer() domsvc.RecoveryScorer {
	return recovery.NewScorer()
}

// ProvideRiskAnalyzer creates the portfolio risk analyzer.
func ProvideRiskAnalyzer(provider domsvc.HistoryProvider) domsvc.RiskAnalyzer {
	return portfolio.NewAnalyzer(provider)
}

// ProvideAnalysisUseCase assembles the analysis orchestration layer.
func ProvideAnalysisUseCase(
	provider domsvc.HistoryProvider,
	forecaster domsvc.Forecaster,
	scorer domsvc.RecoveryScorer,
	risk domsvc.RiskAnalyzer,
) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(provider, forecaster, scorer, risk)
}

// ProvideAnalysisHandler creates the HTTP handler with response caching.
func ProvideAnalysisHandler(l *applogger.Logger, uc *usecase.AnalysisUseCase, cfg *config.Config) *api.AnalysisHandler {
	h := api.NewAnalysisHandler(l, uc)

	var bc icache.BytesCache
	if cfg.Redis.Enabled {
		bc = icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	} else {
		bc = icache.NewTTLCache()
	}
	h.SetCache(bc, api.CacheTTLs{
		History:  cfg.Forecast.CacheTTL.History,
		Forecast: cfg.Forecast.CacheTTL.Forecast,
	})
	return h
}

// ProvideForecastQueue builds the Redis-backed warm-up queue. Nil when
// Redis is off; the API then serves cold forecasts only.
func ProvideForecastQueue(cfg *config.Config, l *applogger.Logger, uc *usecase.AnalysisUseCase) *pkgqueue.RedisQueue {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	q := pkgqueue.NewRedisQueue(l, &pkgqueue.QueueConfig{
		Workers:    1,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, client, pkgqueue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewForecastWarmJob(uc, l))
	q.RegisterJob(usecase.NewAggregatedLogsJob(l))
	return q
}

// ProvideForecastWarmer schedules warm-up runs for the streamed assets.
func ProvideForecastWarmer(cfg *config.Config, q *pkgqueue.RedisQueue, l *applogger.Logger) *usecase.ForecastWarmer {
	if q == nil || !cfg.Stream.Enabled {
		return nil
	}
	seen := map[string]bool{}
	assets := make([]string, 0, len(cfg.Stream.Symbols))
	for _, s := range cfg.Stream.Symbols {
		asset := market.AssetForStreamSymbol(s)
		if !seen[asset] {
			seen[asset] = true
			assets = append(assets, asset)
		}
	}
	return usecase.NewForecastWarmer(q, assets, cfg.Forecast.WarmInterval, cfg.Forecast.DefaultModel, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	chClient *pkgch.Client,
	handler *api.AnalysisHandler,
	q *pkgqueue.RedisQueue,
	warmer *usecase.ForecastWarmer,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	var mh pkgkafka.MessageHandler
	if kh != nil {
		mh = kh
	}
	app := server.New(cfg, l, collector, consumer, mh, chClient)
	app.SetHTTPHandler(handler)
	app.SetForecastQueue(q, warmer)
	return app
}

//go:build wireinject
// +build wireinject

package di

import (
	"CoinSight/pkg/config"
	"CoinSight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTickStorage,
		ProvideTickPublisher,
		ProvideForecastArchive,
		ProvideBinanceStream,

		// Stream use cases
		ProvideTickProcessor,
		ProvideTickCollector,
		ProvideKafkaTicksHandler,

		// Analysis services
		ProvideMarketCache,
		ProvideMarketProvider,
		ProvideForecaster,
		ProvideRecoveryScorer,
		ProvideRiskAnalyzer,
		ProvideAnalysisUseCase,
		ProvideAnalysisHandler,

		// Background warm-up
		ProvideForecastQueue,
		ProvideForecastWarmer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

//go:build wireinject
// +build wireinject

package di

import (
	"SignalForge/pkg/config"
	"SignalForge/pkg/server"

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
		ProvideRedisCache,
		ProvideCache,
		ProvideQueue,

		// Repositories
		ProvideCandleStore,
		ProvideStrategyStore,
		ProvideResultPublisher,

		// Analytics collaborators
		ProvideIndicatorProvider,
		ProvideRegimeClassifier,
		ProvideSignalDetector,
		ProvideSeriesDetector,
		ProvideTracker,

		// Use cases
		ProvideBacktestUseCase,
		ProvideBacktestJob,
		ProvideScoreUseCase,

		// HTTP
		ProvideRateLimiter,
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

//go:build wireinject
// +build wireinject

package di

import (
	"github.com/YoByron/trading-sub013/pkg/config"
	"github.com/YoByron/trading-sub013/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Stores and publishers
		ProvideHistoryStore,
		ProvideDecisionJournal,
		ProvideReportStore,
		ProvideHaltStore,
		ProvideIntentPublisher,

		// Pipeline stages
		ProvideHaltSwitch,
		ProvideRiskLimits,
		ProvideRiskManager,
		ProvideSizer,
		ProvideTracker,
		ProvideEvaluator,
		ProvideVoter,
		ProvideSignalBook,
		ProvideGateBindings,
		ProvideDecisionPipeline,

		// Collectors and background workers
		ProvideSignalStream,
		ProvideSignalCollector,
		ProvideFillsHandler,
		ProvideJobQueue,
		ProvideValidationRunner,

		// HTTP surface
		ProvideOpsUseCase,
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

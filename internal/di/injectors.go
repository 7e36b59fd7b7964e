//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"crewboard/internal"
	"crewboard/internal/artwork"
	"crewboard/internal/controllers"
	"crewboard/internal/github"
	"crewboard/internal/presence"
	"crewboard/internal/providers"
	"crewboard/internal/services"
	"crewboard/internal/statistic"
	"crewboard/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		presence.NewRegistry,
		wire.Bind(new(providers.SubscriptionCounter), new(*presence.Registry)),
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewRosterProvider,

		github.NewClient,
		services.NewStatisticService,
		presence.NewClient,
		presence.NewLookupClient,
		artwork.NewExtractor,
		services.NewViewModelService,
		statistic.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewHandler,
		internal.NewApp,
	)

	return nil, nil
}

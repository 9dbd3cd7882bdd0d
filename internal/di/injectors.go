//go:build wireinject
// +build wireinject

package di

import (
	"gitviewer/internal"
	"gitviewer/internal/controllers"
	"gitviewer/internal/providers"
	"gitviewer/internal/render"
	"gitviewer/internal/services"
	"gitviewer/internal/storage"
	"gitviewer/internal/structures"

	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		storage.NewZstdCompressor,
		storage.NewViewStore,
		services.NewViewService,
		services.NewIdentityService,
		render.NewThemeRegistry,
		render.NewImageRenderer,
		controllers.NewCounterController,
		controllers.NewThemeController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}

package internal

import (
	"gitviewer/internal/controllers"
	"gitviewer/internal/providers"
	"net/http"
)

func InitRoutes(counterController *controllers.CounterController, themeController *controllers.ThemeController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/api/views/{username}", http.HandlerFunc(counterController.Views))
	routers.Get("/api/count/{username}", http.HandlerFunc(counterController.Count))
	routers.Get("/api/themes", http.HandlerFunc(themeController.Themes))
	routers.Get("/api/validate-username", http.HandlerFunc(counterController.ValidateUsername))
	return routers
}

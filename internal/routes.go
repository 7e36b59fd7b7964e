package internal

import (
	"crewboard/internal/controllers"
	"crewboard/internal/providers"
	"net/http"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/g", http.HandlerFunc(apiController.Batch))
	routers.Get("/members", http.HandlerFunc(apiController.Members))
	routers.Get("/member", http.HandlerFunc(apiController.Member))
	routers.Stream("/events", http.HandlerFunc(apiController.Events))
	return routers
}

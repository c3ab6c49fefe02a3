package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rideback/backend/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, repo service.DataRepository, matchSvc *service.MatchService, demandSvc *service.DemandService, trainingSvc *service.TrainingService) {
	handler := NewHandler(repo, matchSvc, demandSvc, trainingSvc)

	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Get("/zones", handler.ListZones)
		api.Get("/recommendations", handler.Recommendations)

		api.Post("/complete_ride", handler.CompleteRide)
		api.Post("/train", handler.Train)
	}
}

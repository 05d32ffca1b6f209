package server

import (
	"mediacrawl/internal/core/crawljob"
	"mediacrawl/internal/core/job"
	"mediacrawl/internal/health"
	"mediacrawl/internal/platform/redis"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Job   *job.Service
	Crawl *crawljob.Service
	Redis *redis.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	// Health endpoints
	healthHandler := health.NewHealthHandler(d.Redis)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	crawlHandler := crawljob.NewHandler(d.Job, d.Crawl)
	api.Post("/crawl", crawlHandler.HandleCreate)
	api.Get("/crawl/:jobId", crawlHandler.HandleGet)

	return healthHandler
}

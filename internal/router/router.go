package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noor-academy/manhaj-api/internal/config"
	"github.com/noor-academy/manhaj-api/internal/handler"
	"github.com/noor-academy/manhaj-api/internal/middleware"
	"github.com/noor-academy/manhaj-api/internal/models"
	"github.com/noor-academy/manhaj-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExamHandler        *handler.ExamHandler
	RetakeHandler      *handler.RetakeHandler
	ProgressionHandler *handler.ProgressionHandler
	CatalogHandler     *handler.CatalogHandler
	PostHandler        *handler.PostHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	staffOnly := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)

	if deps.CatalogHandler != nil {
		deps.CatalogHandler.RegisterPublic(api)
		staff := api.Group("", jwtMiddleware, staffOnly)
		deps.CatalogHandler.RegisterStaff(staff)
	}

	if deps.PostHandler != nil {
		deps.PostHandler.RegisterPublic(api)
		staff := api.Group("", jwtMiddleware, staffOnly)
		deps.PostHandler.RegisterStaff(staff)
	}

	protected := api.Group("", jwtMiddleware)

	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(protected, staffOnly)
	}

	if deps.RetakeHandler != nil {
		deps.RetakeHandler.Register(protected, staffOnly)
	}

	if deps.ProgressionHandler != nil {
		deps.ProgressionHandler.Register(protected)
	}
}

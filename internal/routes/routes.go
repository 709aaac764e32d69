package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mertokas/tasknest-backend/internal/config"
	"github.com/mertokas/tasknest-backend/internal/handlers"
	"github.com/mertokas/tasknest-backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	taskHandler *handlers.TaskHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	api.Get("/health", healthHandler.Check)

	// Auth — public. Refresh and logout authenticate via the refresh token
	// in the request body, not the Authorization header.
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)

	// Tasks — access token required.
	tasks := api.Group("/tasks", middleware.JWTProtected(cfg))
	tasks.Post("/", taskHandler.Create)
	tasks.Get("/", taskHandler.List)
	tasks.Get("/:id", taskHandler.Get)
	tasks.Patch("/:id", taskHandler.Update)
	tasks.Delete("/:id", taskHandler.Delete)
	tasks.Patch("/:id/toggle", taskHandler.ToggleStatus)
}

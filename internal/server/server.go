package server

import (
	"log"

	"sheetpulse/internal/bootstrap"
	"sheetpulse/internal/config"
	"sheetpulse/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.APIContainer
}

func New(cfg *config.Config, container *bootstrap.APIContainer) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-User-Id",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	app.Use(otelfiber.Middleware())
	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, cfg, container)

	return &Server{app: app, cfg: cfg, container: container}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("sheetpulse API listening on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.APIContainer) {
	api := app.Group("/api")

	c.ConnectionHandler.RegisterRoutes(api)
	c.ChatHandler.RegisterRoutes(api)
	c.AnalyticsHandler.RegisterRoutes(api)
	c.WebSocketHandler.RegisterRoutes(app)

	api.Post("/internal/trigger-sync", serverutils.InternalAPIKeyMiddleware(cfg.App.InternalAPIKey), c.InternalHandler.TriggerSync)
}

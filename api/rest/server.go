// Package rest provides the REST API server for the flow engine.
package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"pipewright/flowkit/pkg/engine"
)

// Server represents the REST API server.
type Server struct {
	app    *fiber.App
	engine *engine.Engine
	config *Config
}

// Config holds the configuration for the REST API server.
type Config struct {
	// Address is the address to listen on (e.g., ":8080").
	Address string `yaml:"address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// EnableCORS enables Cross-Origin Resource Sharing.
	EnableCORS bool `yaml:"enable_cors"`

	// APIKey, when non-empty, requires clients to present it in the
	// X-API-Key header.
	APIKey string `yaml:"api_key,omitempty"`
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      ":8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		EnableCORS:   true,
	}
}

// NewServer creates a new REST API server around an engine.
func NewServer(e *engine.Engine, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		ErrorHandler: customErrorHandler,
		AppName:      "Flowkit API",
	})

	server := &Server{
		app:    app,
		engine: e,
		config: config,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	if s.config.EnableCORS {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Origin,Content-Type,Accept,X-API-Key",
			MaxAge:       86400,
		}))
	}

	if s.config.APIKey != "" {
		s.app.Use(s.apiKeyAuth)
	}
}

// apiKeyAuth validates API key authentication. Health endpoints stay
// open for probes.
func (s *Server) apiKeyAuth(c *fiber.Ctx) error {
	path := c.Path()
	if path == "/health" || path == "/ready" {
		return c.Next()
	}

	apiKey := c.Get("X-API-Key")
	if apiKey == "" {
		apiKey = c.Query("api_key")
	}

	if apiKey == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "API key is required",
		})
	}
	if apiKey != s.config.APIKey {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid API key",
		})
	}
	return c.Next()
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/ready", s.readyCheck)

	api := s.app.Group("/api/v1")
	api.Get("/flows", s.listFlows)
	api.Get("/flows/:name/plan", s.getFlowPlan)
	api.Get("/tasks", s.listTasks)
	api.Post("/runs", s.submitRun)
	api.Get("/runs", s.listRuns)
	api.Get("/runs/:id", s.getRun)
}

// App returns the underlying fiber application, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts serving on the configured address and blocks.
func (s *Server) Listen() error {
	return s.app.Listen(s.config.Address)
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// customErrorHandler renders unhandled errors as JSON.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	})
}

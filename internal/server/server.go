package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/entity"
	"github.com/joseph-ayodele/proforma-verifier/internal/export"
	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
)

// Verifier is satisfied by both the pipeline and the queue in front of it.
type Verifier interface {
	Verify(ctx context.Context, doc llm.Document) (entity.VerificationResult, error)
}

type Config struct {
	Addr        string
	MaxUploadMB int
	Version     string
}

// ConfigFrom maps the HTTP config section onto the server config.
func ConfigFrom(c common.HTTPConfig, version string) Config {
	return Config{Addr: c.Addr, MaxUploadMB: c.MaxUploadMB, Version: version}
}

type Server struct {
	cfg      Config
	app      *fiber.App
	verifier Verifier
	exporter *export.Service
	logger   *slog.Logger
}

func New(cfg Config, verifier Verifier, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if exporter == nil {
		exporter = export.NewService(logger)
	}
	s := &Server{cfg: cfg, verifier: verifier, exporter: exporter, logger: logger}
	s.app = fiber.New(fiber.Config{
		AppName:               "proforma-verifier",
		BodyLimit:             cfg.MaxUploadMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleFiberError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.requestContext)
	s.RegisterRoutes(s.app)
	return s
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/verify", s.handleVerify)
}

func (s *Server) Listen() error {
	s.logger.Info("http.listen", "addr", s.cfg.Addr, "max_upload_mb", s.cfg.MaxUploadMB)
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// requestContext attaches a request id (from X-Request-ID or fresh) to the
// user context and logs each request.
func (s *Server) requestContext(c *fiber.Ctx) error {
	start := time.Now()
	rid := c.Get(fiber.HeaderXRequestID)
	if rid == "" {
		rid = uuid.New().String()
	}
	c.Set(fiber.HeaderXRequestID, rid)
	c.SetUserContext(common.WithRequestID(c.UserContext(), rid))

	err := c.Next()

	s.logger.Info("http.request",
		"req_id", rid,
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return err
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

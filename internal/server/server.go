// ABOUTME: HTTP surface for uploads, retrieval and agent chat built on echo
// ABOUTME: Maps domain error kinds to status codes with a uniform JSON error body
package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/websiTester/ba-agent-sub000/internal/app"
	"github.com/websiTester/ba-agent-sub000/internal/core"
	"github.com/websiTester/ba-agent-sub000/internal/metrics"
	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// Deps are the components the handlers call
type Deps struct {
	Ingestor  *core.Ingestor
	Retriever *core.Retriever
	Router    *core.Router
	Registry  *core.AgentRegistry
	Memory    *core.ConversationMemory
	Metrics   *metrics.Metrics
	// Health reports backing service reachability; nil means always healthy
	Health func(ctx context.Context) error
	// MaxUploadBytes bounds multipart bodies; 0 uses the ingestion default
	MaxUploadBytes int64
}

// FromApp collects Deps from a wired App
func FromApp(a *app.App) Deps {
	return Deps{
		Ingestor:       a.Ingestor,
		Retriever:      a.Retriever,
		Router:         a.Router,
		Registry:       a.Registry,
		Memory:         a.Memory,
		Metrics:        a.Metrics,
		Health:         a.Health,
		MaxUploadBytes: a.Config.Ingest.MaxUploadBytes,
	}
}

// Server is the echo application
type Server struct {
	e      *echo.Echo
	deps   Deps
	logger *log.Logger
}

// New builds the echo instance and registers every route
func New(deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = core.DefaultMaxUploadBytes
	}
	s := &Server{
		e:      echo.New(),
		deps:   deps,
		logger: log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(middleware.Recover())
	s.e.HTTPErrorHandler = s.handleError
	s.e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	s.e.GET("/healthz", s.healthz)
	if deps.Metrics != nil {
		s.e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	// multipart overhead on top of the file itself
	s.e.POST("/upload", s.upload, middleware.BodyLimit(bodyLimit(deps.MaxUploadBytes+1<<20)))
	s.e.DELETE("/document", s.deleteDocument)
	s.e.GET("/documents", s.listDocuments)
	s.e.POST("/retrieve", s.retrieve)
	s.e.POST("/chat", s.chat)
	s.e.GET("/agents", s.listAgents)
	s.e.POST("/agents/:agentKey/reload", s.reloadAgent)
	s.e.GET("/threads/:threadId", s.getThread)
	return s
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.logger.Printf("listening on %s", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    models.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// StatusFor maps an error kind to an HTTP status
func StatusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindExtraction, models.KindChunking:
		return http.StatusUnprocessableEntity
	case models.KindCredential:
		return http.StatusServiceUnavailable
	case models.KindEmbedding, models.KindModel, models.KindRetrievalDegraded:
		return http.StatusBadGateway
	case models.KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var body errorBody
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		body.Error.Kind = models.KindInternal
		if code < http.StatusInternalServerError {
			body.Error.Kind = models.KindValidation
		}
		body.Error.Message = http.StatusText(code)
		if msg, ok := he.Message.(string); ok && msg != "" {
			body.Error.Message = msg
		}
	} else {
		body.Error.Kind = models.KindOf(err)
		body.Error.Message = models.PublicMessage(err)
		code = StatusFor(body.Error.Kind)
	}

	req := c.Request()
	s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
	if req.Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}

func (s *Server) healthz(c echo.Context) error {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request().Context()); err != nil {
			s.logger.Printf("health check failed: %v", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

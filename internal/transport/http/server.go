// Package http provides the public HTTP server.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/config"
	"github.com/xiaot623/ragbook/internal/service"
	"github.com/xiaot623/ragbook/internal/transport/http/middleware"
	v1 "github.com/xiaot623/ragbook/internal/transport/http/v1"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Server is the public HTTP server.
type Server struct {
	echo *echo.Echo
	log  logrus.FieldLogger
}

// NewServer creates the server and registers every route.
func NewServer(cfg *config.Config, svc *service.Service, log logrus.FieldLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo: e,
		log:  log.WithField("component", "server"),
	}
	e.HTTPErrorHandler = s.handleError

	// Middleware
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.RequestLogger(s.log))

	// Routes
	e.GET("/", s.handleIndex)
	e.GET("/health", s.handleHealth)

	g := e.Group("/v1", middleware.RateLimit(float64(cfg.RateLimitRPS), cfg.RateLimitBurst))
	v1.NewHandler(svc, cfg.MaxUploadBytes, log).RegisterRoutes(g)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("http server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "RAG service with interview booking",
		"endpoints": map[string]string{
			"upload":   "/v1/upload/file",
			"rag":      "/v1/rag/ask",
			"booking":  "/v1/booking/schedule",
			"bookings": "/v1/booking/list",
			"ws":       "/v1/ws",
		},
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// handleError renders errors that escape handlers (routing, rate limiting,
// panics) in the same shape handlers use.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"
	var herr *echo.HTTPError
	if errors.As(err, &herr) {
		status = herr.Code
		if m, ok := herr.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	} else {
		s.log.WithError(err).Error("unhandled error")
	}

	code := v1.CodeInternal
	switch {
	case status == http.StatusNotFound:
		code = v1.CodeNotFound
	case status == http.StatusTooManyRequests:
		code = v1.CodeRateLimited
	case status >= 400 && status < 500:
		code = v1.CodeInvalidInput
	case status >= 500:
		message = "internal server error"
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = v1.JSONError(c, status, code, message)
	}
	if err != nil {
		s.log.WithError(err).Warn("failed to write error response")
	}
}

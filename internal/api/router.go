package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kamathanirudh/labstack/internal/lab"
	"github.com/kamathanirudh/labstack/internal/metrics"
	"github.com/kamathanirudh/labstack/internal/template"
)

// Server holds the API server dependencies.
type Server struct {
	echo       *echo.Echo
	controller *lab.Controller
	registry   *template.Registry
	defaultTTL int
}

// NewServer creates a new API server with all routes configured.
func NewServer(ctrl *lab.Controller, registry *template.Registry, defaultTTLMinutes int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		controller: ctrl,
		registry:   registry,
		defaultTTL: defaultTTLMinutes,
	}

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(metrics.EchoMiddleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Lab lifecycle
	e.POST("/labs", s.createLab)
	e.GET("/labs/:id/status", s.getLabStatus)
	e.POST("/labs/:id/terminate", s.terminateLab)

	// Templates
	e.GET("/templates", s.listTemplates)

	return s
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	return s.echo.Close()
}

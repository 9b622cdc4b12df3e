// Package api exposes the FNOL session machine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/claimflow/internal/fnol"
)

// Server represents the API server.
type Server struct {
	echo    *echo.Echo
	port    int
	machine *fnol.Machine
}

// NewServer creates a new API server around the session machine.
func NewServer(port int, machine *fnol.Machine) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RateLimiter(
		middleware.NewRateLimiterMemoryStore(rate.Limit(20)),
	))

	server := &Server{
		echo:    e,
		port:    port,
		machine: machine,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")

	sessions := v1.Group("/fnol/sessions")
	sessions.POST("", s.createSession)
	sessions.GET("/:thread_id", s.resumeSession)
	sessions.POST("/:thread_id/advance", s.advanceSession)
	sessions.POST("/:thread_id/evidence", s.attachEvidence)
	sessions.GET("/:thread_id/summary", s.sessionSummary)
	sessions.DELETE("/:thread_id", s.abandonSession)
}

// Start begins the API server and blocks until an interrupt, then shuts down
// gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

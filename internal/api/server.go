// Package api exposes the simulation pipeline as a JSON API
package api

import (
	"context"
	"net/http"
	"time"

	"claimsim/app"
	"claimsim/domain/simulation"
	"claimsim/internal/logger"
	"claimsim/ports"

	"github.com/gin-gonic/gin"
)

// Runner executes a pipeline run. *app.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req app.RunRequest) (*simulation.Run, error)
}

// Server serves the run API. The runner is expected to persist into runs.
type Server struct {
	engine   *gin.Engine
	runner   Runner
	runs     ports.RunRepository
	defaults app.RunRequest
	port     string

	// OnRun, when set, receives every completed run
	OnRun func(*simulation.Run)
}

// Config holds API server configuration
type Config struct {
	Port    string
	GinMode string
}

// NewServer wires the routes. defaults supplies the window and simulation
// settings that requests may override.
func NewServer(cfg Config, runner Runner, runs ports.RunRepository, defaults app.RunRequest) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	s := &Server{
		engine:   gin.New(),
		runner:   runner,
		runs:     runs,
		defaults: defaults,
		port:     cfg.Port,
	}
	s.engine.Use(gin.Recovery(), requestLogger())

	s.engine.GET("/healthz", s.Health)
	api := s.engine.Group("/api")
	{
		api.POST("/runs", s.CreateRun)
		api.GET("/runs", s.ListRuns)
		api.GET("/runs/:id", s.GetRun)
		api.GET("/runs/:id/claims/:claim", s.GetClaim)
	}
	return s
}

// Handler exposes the engine, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.FromContext(c.Request.Context()).Infow("[API] request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.FromContext(ctx).Infof("[API] listening on :%s", s.port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

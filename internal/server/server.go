// Package server exposes problem submission and browsing over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TobiSchelling/solutionlab/internal/auth"
	"github.com/TobiSchelling/solutionlab/internal/config"
	"github.com/TobiSchelling/solutionlab/internal/database"
	"github.com/TobiSchelling/solutionlab/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP server for problems and solutions.
type Server struct {
	db        *database.DB
	generator pipeline.Generator
	submitter *pipeline.Submitter
	verifier  *auth.Verifier
	limiter   *userLimiter
	log       *zap.Logger
	engine    *gin.Engine
}

// New creates a Server. A nil verifier rejects every authenticated route.
func New(db *database.DB, gen pipeline.Generator, verifier *auth.Verifier, limits config.RateLimit, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if verifier == nil {
		logger.Warn("no token secret configured; authenticated routes will reject all requests")
	}
	s := &Server{
		db:        db,
		generator: gen,
		submitter: pipeline.NewSubmitter(db, gen, logger),
		verifier:  verifier,
		limiter:   newUserLimiter(limits),
		log:       logger,
		engine:    gin.New(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(requestLogger(s.log))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/functions/v1/generate-solutions", s.handleGenerateSolutions)

	api := r.Group("/api")
	api.Use(s.authRequired())
	api.POST("/problems", s.rateLimited(), s.handleSubmit)
	api.GET("/problems", s.handleListProblems)
	api.GET("/problems/:id", s.handleGetProblem)
	api.DELETE("/problems/:id", s.handleDeleteProblem)
	api.GET("/problems/:id/report", s.handleReport)
	api.GET("/stats", s.handleStats)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", "http://"+addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

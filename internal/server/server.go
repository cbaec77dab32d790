// Package server hosts suite assets, stored results and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/born-ml/benchmarks/internal/envinfo"
	"github.com/born-ml/benchmarks/internal/record"
	"github.com/born-ml/benchmarks/internal/store"
)

// RunLister reads stored benchmark runs.
type RunLister interface {
	ListRuns(ctx context.Context, f store.RunFilter) ([]record.BenchmarkRun, error)
}

// Config configures the router.
type Config struct {
	// SuiteDir is served under /suite: suite_log.json and models/<name>/model.json.
	SuiteDir string
	Metrics  http.Handler
	Runs     RunLister
}

// Server serves the harness routes.
type Server struct {
	cfg Config
}

// New creates a Server.
func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Handler returns the gin router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.HandleMethodNotAllowed = true

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, envinfo.Versions()) })

	if s.cfg.SuiteDir != "" {
		r.Static("/suite", s.cfg.SuiteDir)
	}
	if s.cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.cfg.Metrics))
	}
	if s.cfg.Runs != nil {
		r.GET("/api/runs", s.ListRunsHandler)
	}
	return r
}

// ListRunsHandler returns stored runs filtered by the model, function and
// limit query parameters.
func (s *Server) ListRunsHandler(c *gin.Context) {
	f := store.RunFilter{
		ModelName:    c.Query("model"),
		FunctionName: c.Query("function"),
		Limit:        100,
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		f.Limit = n
	}

	runs, err := s.cfg.Runs.ListRuns(c.Request.Context(), f)
	if err != nil {
		slog.Error("list runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []record.BenchmarkRun{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

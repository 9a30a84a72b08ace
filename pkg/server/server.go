package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/elonfeng/clawbeat/internal/ingest"
	"github.com/elonfeng/clawbeat/internal/store"
	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

// Repository is the slice of the store the API reads.
type Repository interface {
	Snapshot(ctx context.Context, window int) (dispatch.Snapshot, error)
	ListNewsItems(ctx context.Context, opts store.ListOpts) ([]dispatch.NewsItem, error)
	ListOverrides(ctx context.Context, date string) ([]dispatch.Override, error)
	CountItemsBySource(ctx context.Context) (map[string]int, error)
}

// Collector runs one ingestion pass.
type Collector interface {
	Run(ctx context.Context) (ingest.Result, error)
}

// Options configures the HTTP API.
type Options struct {
	Port           int
	PageSize       int
	MaxPageSize    int
	Window         int // stories loaded per render
	AllowedOrigins []string
}

// Server provides the HTTP API.
type Server struct {
	repo      Repository
	curator   *dispatch.Curator
	collector Collector
	opts      Options
}

// New creates a new HTTP server. collector may be nil, which disables
// POST /api/v1/collect.
func New(repo Repository, curator *dispatch.Curator, collector Collector, opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.PageSize <= 0 {
		opts.PageSize = dispatch.DefaultPageSize
	}
	if opts.MaxPageSize < opts.PageSize {
		opts.MaxPageSize = opts.PageSize
	}
	if opts.Window <= 0 {
		opts.Window = 1000
	}
	return &Server{
		repo:      repo,
		curator:   curator,
		collector: collector,
		opts:      opts,
	}
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.opts.Port)
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.opts.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
		}))
	}

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/api/v1")
	v1.GET("/dispatch", s.handleDispatch)
	v1.GET("/dispatch/:date/spotlight", s.handleSpotlight)
	v1.GET("/items", s.handleItems)
	v1.GET("/overrides", s.handleOverrides)
	v1.GET("/sources", s.handleSources)
	v1.POST("/collect", s.handleCollect)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("clawbeat server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

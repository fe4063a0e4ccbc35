// Package server exposes stored tests and their reports as JSON over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/ablizer/ablizer/internal/analysis"
	"github.com/ablizer/ablizer/internal/store"
)

const (
	DefaultPort      = 8080
	DefaultCacheSize = 1024
	// DefaultRecordRate is the sustained number of count submissions per
	// second; bursts of twice that are allowed.
	DefaultRecordRate = 20

	shutdownTimeout = 10 * time.Second
)

type Options struct {
	Port       int
	Alpha      float64
	CacheSize  int
	RecordRate int
	Logger     *charmlog.Logger
}

type Server struct {
	store     store.Store
	analyzer  *analysis.Analyzer
	cache     *analysis.Cache
	port      int
	router    *http.ServeMux
	limiter   *rate.Limiter
	metrics   *metrics
	registry  *prometheus.Registry
	logger    *charmlog.Logger
	startTime time.Time
}

func New(s store.Store, opts Options) (*Server, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.RecordRate <= 0 {
		opts.RecordRate = DefaultRecordRate
	}
	if opts.Logger == nil {
		opts.Logger = charmlog.Default()
	}

	cache, err := analysis.NewCache(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	registry := prometheus.NewRegistry()

	srv := &Server{
		store:     s,
		analyzer:  &analysis.Analyzer{Store: s, Alpha: opts.Alpha, Cache: cache},
		cache:     cache,
		port:      opts.Port,
		router:    http.NewServeMux(),
		limiter:   rate.NewLimiter(rate.Limit(opts.RecordRate), opts.RecordRate*2),
		metrics:   newMetrics(registry, cache),
		registry:  registry,
		logger:    opts.Logger,
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/reports", s.handleReports)
	s.router.HandleFunc("GET /api/tests/{name}/report", s.handleReport)
	s.router.HandleFunc("POST /api/tests/{name}/counts", s.handleRecord)
	s.router.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ablizer API listening", "addr", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

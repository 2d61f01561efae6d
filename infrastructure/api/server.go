// Package api serves the index over a read-only HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/ahrav/go-aipi/internal/application"
	"github.com/ahrav/go-aipi/internal/domain"
	"github.com/ahrav/go-aipi/internal/ports"
)

// Snapshotter yields the current index snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*application.Snapshot, error)
}

// Server routes API requests to the index.
type Server struct {
	snapshots   Snapshotter
	releases    ports.ReleaseStore
	metrics     ports.MetricsCollector
	gatherer    prometheus.Gatherer
	defaultMode domain.Mode
	mux         *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithReleases serves the release archive under /v1/releases.
func WithReleases(store ports.ReleaseStore) Option {
	return func(s *Server) { s.releases = store }
}

// WithMetrics records request counts and latencies.
func WithMetrics(collector ports.MetricsCollector) Option {
	return func(s *Server) { s.metrics = collector }
}

// WithGatherer exposes g at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithDefaultMode sets the mode used when a request names none.
func WithDefaultMode(m domain.Mode) Option {
	return func(s *Server) { s.defaultMode = m }
}

// NewServer creates a Server reading snapshots from snapshots.
func NewServer(snapshots Snapshotter, opts ...Option) *Server {
	s := &Server{snapshots: snapshots, defaultMode: domain.ModeEvidence, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /v1/meta", s.handleMeta)
	s.mux.HandleFunc("GET /v1/providers", s.handleProviders)
	s.mux.HandleFunc("GET /v1/providers/{id}", s.handleProvider)
	s.mux.HandleFunc("GET /v1/providers/{id}/export", s.handleProviderExport)
	s.mux.HandleFunc("GET /v1/export.csv", s.handleExportCSV)
	s.mux.HandleFunc("GET /v1/export.xlsx", s.handleExportXLSX)
	s.mux.HandleFunc("GET /v1/detail", s.handleDetail)
	s.mux.HandleFunc("GET /v1/sensitivity", s.handleSensitivity)
	s.mux.HandleFunc("GET /v1/releases", s.handleReleases)
	s.mux.HandleFunc("GET /v1/releases/{tag}", s.handleRelease)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "*")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.mux.ServeHTTP(rec, r)

	if s.metrics != nil {
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordCounter("http_requests_total", 1,
			map[string]string{"route": route, "code": fmt.Sprint(rec.status)})
		s.metrics.RecordHistogram("http_request_duration_seconds", time.Since(start).Seconds(),
			map[string]string{"route": route})
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	log := klog.FromContext(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		log.Info("api shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

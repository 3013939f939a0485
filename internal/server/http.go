package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/metrics"
	"github.com/Aman-CERP/docsearch/pkg/version"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 5 * time.Second

// HTTPServer serves the search API.
type HTTPServer struct {
	exec     *Executor
	logger   *slog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
}

// HTTPOption configures an HTTPServer.
type HTTPOption func(*HTTPServer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) HTTPOption {
	return func(s *HTTPServer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records request metrics into m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) HTTPOption {
	return func(s *HTTPServer) {
		s.metrics = m
		s.gatherer = g
	}
}

// NewHTTPServer returns an HTTP server over exec.
func NewHTTPServer(exec *Executor, opts ...HTTPOption) *HTTPServer {
	s := &HTTPServer{
		exec:     exec,
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(s.recoverer)
	r.Use(s.metrics.Middleware())

	r.Get("/search", s.handleSearch)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *HTTPServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http_server_started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New(errors.ErrCodeInternal, "http server failed", err).WithDetail("addr", addr)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.New(errors.ErrCodeInternal, "http shutdown failed", err)
		}
		s.logger.Info("http_server_stopped", slog.String("addr", addr))
		return nil
	})
	return g.Wait()
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	req := Request{
		Query:  params.Get("q"),
		Fields: params["field"],
		Group:  params.Get("group"),
		Sort:   params["sort"],
	}
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, errors.ValidationError("limit must be an integer", err).WithDetail("limit", v))
			return
		}
		req.Limit = n
	}
	if v := params.Get("highlight"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, errors.ValidationError("highlight must be a boolean", err).WithDetail("highlight", v))
			return
		}
		req.Highlight = b
	}

	resp, err := s.exec.Execute(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Short(),
	})
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	attrs := append([]any{
		slog.String("request_id", chiMiddleware.GetReqID(r.Context())),
		slog.Int("status", status),
	}, errors.LogArgs(err)...)
	if status >= http.StatusInternalServerError {
		s.logger.Error("search_request_failed", attrs...)
	} else {
		s.logger.Debug("search_request_rejected", attrs...)
	}
	writeJSON(w, status, errors.ToPayload(err))
}

// recoverer turns panics into JSON 500 responses.
func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				s.logger.Error("panic_recovered",
					slog.Any("panic", rvr),
					slog.String("path", r.URL.Path))
				writeJSON(w, http.StatusInternalServerError,
					errors.ToPayload(errors.New(errors.ErrCodeInternal, "internal error", nil)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.HasCode(err, errors.ErrCodeQueryEmpty),
		errors.HasCode(err, errors.ErrCodeInvalidQuery),
		errors.HasCode(err, errors.ErrCodeInvalidInput):
		return http.StatusBadRequest
	case errors.HasCode(err, errors.ErrCodeIndexOpen),
		errors.HasCode(err, errors.ErrCodeCorruptIndex):
		return http.StatusServiceUnavailable
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

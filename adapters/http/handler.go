// Package http provides the HTTP surface of schemagate: the schema API, the
// validating gateway routes and the operational endpoints.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/core/openapi"
	"github.com/artpar/schemagate/pkg/jsonapi"
)

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Schemas  int    `json:"schemas,omitempty"`
	Revision string `json:"revision,omitempty"`
	Upstream string `json:"upstream,omitempty"`
}

// HealthChecker interface for checking upstream health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	store    SchemaStore
	upstream HealthChecker
}

// NewHealthHandler creates a new health handler. upstream may be nil.
func NewHealthHandler(store SchemaStore, upstream HealthChecker) *HealthHandler {
	return &HealthHandler{store: store, upstream: upstream}
}

// Liveness reports that the process is serving requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readiness reports whether schemas are loaded and the upstream, if any,
// is reachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Schemas:  len(h.store.List()),
		Revision: h.store.Revision(),
	}

	if h.upstream != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := h.upstream.HealthCheck(ctx); err != nil {
			jsonapi.WriteErrorWithMeta(w, jsonapi.Meta{
				"schemas":  resp.Schemas,
				"revision": resp.Revision,
				"upstream": "unreachable",
			}, jsonapi.ErrServiceUnavailable(err.Error()))
			return
		}
		resp.Upstream = "ok"
	}

	writeJSON(w, http.StatusOK, resp)
}

// VersionHandler returns a handler reporting the service version.
func VersionHandler(version string) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(VersionResponse{
			Version: version,
			Service: "schemagate",
		})
	}
}

// RouterConfig holds everything the router serves.
type RouterConfig struct {
	Store SchemaStore

	// Settings returns the validation settings in force. It is called per
	// request so reloaded configuration applies without a restart.
	Settings func() config.ValidationConfig

	// Gateway routes and the upstream they forward to. Upstream may be nil
	// when there are no routes.
	Routes   []config.RouteConfig
	Upstream Forwarder

	Metrics        *metrics.Collector
	MetricsPath    string       // default /metrics
	MetricsHandler http.Handler // default promhttp.Handler()

	// OpenAPI enables /openapi.json and the Swagger UI at /docs/.
	OpenAPI *openapi.Service

	Version string
	Logger  zerolog.Logger
}

// NewRouter creates the HTTP router.
func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, metricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, metricsPath))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteNotFound(w, "resource")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonapi.WriteMethodNotAllowed(w, r.Method, nil)
	})

	var upstreamHealth HealthChecker
	if hc, ok := cfg.Upstream.(HealthChecker); ok {
		upstreamHealth = hc
	}
	health := NewHealthHandler(cfg.Store, upstreamHealth)
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Metrics != nil {
		handler := cfg.MetricsHandler
		if handler == nil {
			handler = promhttp.Handler()
		}
		r.Handle(metricsPath, handler)
	}

	r.Get("/version", VersionHandler(cfg.Version))

	validator := NewValidator(cfg.Store, cfg.Settings, cfg.Metrics, logger)
	NewSchemaHandler(cfg.Store, validator, cfg.Settings, logger).Routes(r)

	if cfg.OpenAPI != nil {
		docs := NewDocsHandler(cfg.OpenAPI, logger)
		r.Get("/openapi.json", docs.OpenAPI)
		r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
		})
		r.Get("/docs/*", docs.SwaggerUI())
	}

	if len(cfg.Routes) > 0 && cfg.Upstream != nil {
		NewGateway(cfg.Upstream, validator, cfg.Settings, logger).Mount(r, cfg.Routes)
	}

	return r
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if skipInstrumentation(r.URL.Path, metricsPath) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := statusLabel(ww.Status())
			path := metrics.NormalizePath(r.URL.Path)

			m.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			m.RequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

// NewLoggingMiddleware creates middleware that logs HTTP requests at debug
// level.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if skipInstrumentation(r.URL.Path, metricsPath) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func skipInstrumentation(path, metricsPath string) bool {
	return strings.HasPrefix(path, "/health") || path == metricsPath ||
		strings.HasPrefix(path, "/docs")
}

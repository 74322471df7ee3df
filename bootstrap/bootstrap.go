// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file with SCHEMAGATE_* environment
// overrides, or from the environment alone when no file is given.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	apihttp "github.com/artpar/schemagate/adapters/http"
	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/adapters/rpc"
	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/core/openapi"
	"github.com/artpar/schemagate/core/registry"
)

// EnvConfigPath names the config file when no path is passed explicitly.
const EnvConfigPath = "SCHEMAGATE_CONFIG"

// Options configures New.
type Options struct {
	// ConfigPath is the YAML config file. Empty falls back to
	// SCHEMAGATE_CONFIG, then to environment-only configuration.
	ConfigPath string

	Version string

	// Registerer and Gatherer back the metrics collector and /metrics.
	// They default to the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	Registry   *registry.Registry
	Metrics    *metrics.Collector
	OpenAPI    *openapi.Service
	HTTPServer *http.Server

	upstream *apihttp.UpstreamClient
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}

	holder, err := loadConfig(path, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	cfg := holder.Get()

	logger := NewLogger(cfg.Logging, out)
	holder.SetLogger(logger)
	logger.Info().Str("config", path).Msg("initializing schemagate")

	a := &App{
		Logger:   logger,
		Config:   holder,
		Registry: registry.New(logger),
	}

	if cfg.Metrics.Enabled {
		reg := opts.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		a.Metrics = metrics.NewWithRegistry(reg)
		logger.Info().Msg("prometheus metrics enabled")
	}

	if err := a.initRegistry(cfg); err != nil {
		return nil, fmt.Errorf("init registry: %w", err)
	}

	if err := a.initHTTPServer(cfg, opts); err != nil {
		a.Registry.Stop()
		return nil, fmt.Errorf("init http server: %w", err)
	}

	holder.OnChange(func(c *config.Config) {
		if level, err := zerolog.ParseLevel(c.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		a.Metrics.ObserveConfigReload(nil)
	})
	holder.OnError(a.Metrics.ObserveConfigReload)

	return a, nil
}

func loadConfig(path string, logger zerolog.Logger) (*config.Holder, error) {
	if path != "" {
		h, err := config.NewHolder(path, logger)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return config.NewStaticHolder(cfg, logger), nil
}

func (a *App) initRegistry(cfg *config.Config) error {
	a.Registry.OnChange(func(revision string) {
		a.Metrics.ObserveReload(len(a.Registry.List()), nil)
		if a.OpenAPI != nil {
			a.OpenAPI.InvalidateCache()
		}
	})
	a.Registry.OnError(func(err error) {
		a.Metrics.ObserveReload(0, err)
	})

	if _, err := os.Stat(cfg.Schemas.Dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.Logger.Warn().Str("dir", cfg.Schemas.Dir).Msg("schema directory not found, starting empty")
			return nil
		}
		return err
	}

	if err := a.Registry.Load(cfg.Schemas.Dir); err != nil {
		a.Metrics.ObserveReload(0, err)
		return err
	}

	for _, name := range cfg.SchemaNames() {
		if _, ok := a.Registry.Get(name); !ok {
			return fmt.Errorf("route references unknown schema %q", name)
		}
	}

	if cfg.Schemas.Watch {
		if err := a.Registry.Watch(cfg.Schemas.Dir); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to watch schema directory")
		}
	}
	return nil
}

func (a *App) initHTTPServer(cfg *config.Config, opts Options) error {
	routes := OpenAPIRoutes(cfg.Routes)

	if cfg.OpenAPI.Enabled {
		a.OpenAPI = openapi.NewService(openapi.ServiceConfig{
			Source: a.Registry,
			Routes: routes,
			Info: openapi.Info{
				Title:   cfg.OpenAPI.Title,
				Version: cfg.OpenAPI.Version,
			},
			Logger: a.Logger,
		})
	}

	var upstream apihttp.Forwarder
	if cfg.Upstream.URL != "" {
		client, err := apihttp.NewUpstreamClient(apihttp.UpstreamConfig{
			BaseURL:         cfg.Upstream.URL,
			Timeout:         cfg.Upstream.Timeout,
			MaxIdleConns:    cfg.Upstream.MaxIdleConns,
			IdleConnTimeout: cfg.Upstream.IdleConnTimeout,
			Metrics:         a.Metrics,
		})
		if err != nil {
			return fmt.Errorf("upstream: %w", err)
		}
		a.upstream = client
		upstream = client
	}

	var metricsHandler http.Handler
	if a.Metrics != nil && opts.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})
	}

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Store: a.Registry,
		Settings: func() config.ValidationConfig {
			return a.Config.Get().Validation
		},
		Routes:         cfg.Routes,
		Upstream:       upstream,
		Metrics:        a.Metrics,
		MetricsPath:    cfg.Metrics.Path,
		MetricsHandler: metricsHandler,
		OpenAPI:        a.OpenAPI,
		Version:        opts.Version,
		Logger:         a.Logger,
	})

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return nil
}

// OpenAPIRoutes converts configured gateway routes to OpenAPI routes.
func OpenAPIRoutes(routes []config.RouteConfig) []openapi.Route {
	out := make([]openapi.Route, 0, len(routes))
	for _, r := range routes {
		out = append(out, openapi.Route{
			Method:   r.Method,
			Path:     r.Path,
			Summary:  r.Summary,
			Body:     r.Body,
			Query:    r.Query,
			Response: r.Response,
		})
	}
	return out
}

// NewRPCServer returns a JSON-RPC tool server backed by reg.
func NewRPCServer(reg *registry.Registry, m *metrics.Collector, logger zerolog.Logger) (*rpc.Server, error) {
	srv := rpc.NewServer(reg.Resolver, logger)
	if err := rpc.RegisterSchemaTools(srv, reg, m); err != nil {
		return nil, err
	}
	return srv, nil
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a server
// error, then shuts down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext is Run with an explicit lifetime.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.Config.WatchFile(); err != nil {
		a.Logger.Debug().Err(err).Msg("config file watching disabled")
	} else {
		a.Config.WatchSignals()
		a.Logger.Debug().Strs("reloadable", config.ReloadableFields()).Msg("config hot reload enabled")
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Int("schemas", len(a.Registry.List())).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.Logger.Info().Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var shutdownErr error
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
			shutdownErr = err
		}
	}

	a.Registry.Stop()
	a.Config.Stop()

	if a.upstream != nil {
		a.upstream.Close()
	}

	a.Logger.Info().Msg("shutdown complete")
	return shutdownErr
}

// NewLogger builds the process logger from the logging section and sets the
// global level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Schemas    SchemasConfig    `yaml:"schemas"`
	Validation ValidationConfig `yaml:"validation"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Routes     []RouteConfig    `yaml:"routes"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	OpenAPI    OpenAPIConfig    `yaml:"openapi"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SchemasConfig configures where schema documents are loaded from.
type SchemasConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"` // Reload when files in Dir change
}

// ValidationConfig configures how request data is checked.
type ValidationConfig struct {
	ShortCircuit bool  `yaml:"short_circuit"` // Stop at the first error
	CoerceQuery  *bool `yaml:"coerce_query"`  // Coerce query strings before validating (default: true)
	CoerceBody   bool  `yaml:"coerce_body"`   // Coerce JSON bodies before validating
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// Check upstream responses against the route's response schema and log mismatches
	CheckResponses bool `yaml:"check_responses"`
}

// QueryCoercion reports whether query strings are coerced.
func (v ValidationConfig) QueryCoercion() bool {
	return v.CoerceQuery == nil || *v.CoerceQuery
}

// UpstreamConfig configures the service validated requests are forwarded to.
type UpstreamConfig struct {
	URL             string        `yaml:"url"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// RouteConfig binds a gateway route to registered schemas.
// Body, Query and Response name schemas in the registry.
type RouteConfig struct {
	Method   string `yaml:"method"`
	Path     string `yaml:"path"`
	Summary  string `yaml:"summary,omitempty"`
	Body     string `yaml:"body,omitempty"`
	Query    string `yaml:"query,omitempty"`
	Response string `yaml:"response,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// OpenAPIConfig configures the generated OpenAPI document and Swagger UI.
type OpenAPIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	SCHEMAGATE_SERVER_HOST             - Server host (default: 0.0.0.0)
//	SCHEMAGATE_SERVER_PORT             - Server port (default: 8080)
//	SCHEMAGATE_SCHEMAS_DIR             - Schema directory (default: schemas)
//	SCHEMAGATE_SCHEMAS_WATCH           - Reload schemas on change (default: false)
//	SCHEMAGATE_VALIDATION_SHORT_CIRCUIT - Stop at first error (default: false)
//	SCHEMAGATE_VALIDATION_COERCE_QUERY - Coerce query strings (default: true)
//	SCHEMAGATE_VALIDATION_MAX_BODY     - Body size limit in bytes (default: 1048576)
//	SCHEMAGATE_UPSTREAM_URL            - Upstream for gateway routes
//	SCHEMAGATE_LOG_LEVEL               - Log level: debug, info, warn, error (default: info)
//	SCHEMAGATE_LOG_FORMAT              - Log format: json or console (default: json)
//	SCHEMAGATE_METRICS_ENABLED         - Enable /metrics endpoint (default: false)
//	SCHEMAGATE_OPENAPI_ENABLED         - Enable OpenAPI/Swagger (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies SCHEMAGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("SCHEMAGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SCHEMAGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SCHEMAGATE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("SCHEMAGATE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Schemas
	if v := os.Getenv("SCHEMAGATE_SCHEMAS_DIR"); v != "" {
		cfg.Schemas.Dir = v
	}
	if v := os.Getenv("SCHEMAGATE_SCHEMAS_WATCH"); v != "" {
		cfg.Schemas.Watch = parseBool(v)
	}

	// Validation
	if v := os.Getenv("SCHEMAGATE_VALIDATION_SHORT_CIRCUIT"); v != "" {
		cfg.Validation.ShortCircuit = parseBool(v)
	}
	if v := os.Getenv("SCHEMAGATE_VALIDATION_COERCE_QUERY"); v != "" {
		b := parseBool(v)
		cfg.Validation.CoerceQuery = &b
	}
	if v := os.Getenv("SCHEMAGATE_VALIDATION_COERCE_BODY"); v != "" {
		cfg.Validation.CoerceBody = parseBool(v)
	}
	if v := os.Getenv("SCHEMAGATE_VALIDATION_MAX_BODY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Validation.MaxBodyBytes = n
		}
	}

	// Upstream
	if v := os.Getenv("SCHEMAGATE_UPSTREAM_URL"); v != "" {
		cfg.Upstream.URL = v
	}
	if v := os.Getenv("SCHEMAGATE_UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Upstream.Timeout = d
		}
	}

	// Logging configuration
	if v := os.Getenv("SCHEMAGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCHEMAGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("SCHEMAGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("SCHEMAGATE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// OpenAPI configuration
	if v := os.Getenv("SCHEMAGATE_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Schemas.Dir == "" {
		cfg.Schemas.Dir = "schemas"
	}

	if cfg.Validation.MaxBodyBytes == 0 {
		cfg.Validation.MaxBodyBytes = 1 << 20
	}

	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 30 * time.Second
	}

	for i := range cfg.Routes {
		cfg.Routes[i].Method = strings.ToUpper(cfg.Routes[i].Method)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.OpenAPI.Title == "" {
		cfg.OpenAPI.Title = "schemagate"
	}
	if cfg.OpenAPI.Version == "" {
		cfg.OpenAPI.Version = "1.0.0"
	}
}

var validMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodPatch: true, http.MethodDelete: true,
}

// reservedPrefixes are served by schemagate itself and cannot be gateway
// routes.
var reservedPrefixes = []string{
	"/schemas", "/merge", "/health", "/version", "/docs", "/openapi.json",
}

// IsReservedPath reports whether path belongs to a built-in endpoint.
// metricsPath is the configured metrics endpoint.
func IsReservedPath(path, metricsPath string) bool {
	if path == metricsPath {
		return true
	}
	for _, prefix := range reservedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Validation.MaxBodyBytes < 0 {
		return fmt.Errorf("validation.max_body_bytes must not be negative")
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	if len(cfg.Routes) > 0 && cfg.Upstream.URL == "" {
		return fmt.Errorf("upstream.url is required when routes are configured")
	}

	seen := make(map[string]bool)
	for i, route := range cfg.Routes {
		if !validMethods[route.Method] {
			return fmt.Errorf("routes[%d].method %q is not supported", i, route.Method)
		}
		if !strings.HasPrefix(route.Path, "/") {
			return fmt.Errorf("routes[%d].path must start with '/'", i)
		}
		if IsReservedPath(route.Path, cfg.Metrics.Path) {
			return fmt.Errorf("routes[%d].path %s collides with a built-in endpoint", i, route.Path)
		}
		if route.Method == http.MethodGet && route.Body != "" {
			return fmt.Errorf("routes[%d]: GET routes cannot declare a body schema", i)
		}
		key := route.Method + " " + route.Path
		if seen[key] {
			return fmt.Errorf("routes[%d]: duplicate route %s", i, key)
		}
		seen[key] = true
	}

	return nil
}

// SchemaNames returns every schema name referenced by the routes.
func (c *Config) SchemaNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range c.Routes {
		for _, n := range []string{r.Body, r.Query, r.Response} {
			if n != "" && !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

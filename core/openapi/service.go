package openapi

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/core/schema"
)

// SchemaSource provides the schemas a document is generated from.
// *registry.Registry satisfies it.
type SchemaSource interface {
	Resolver() *schema.Resolver
	Revision() string
}

// Service generates OpenAPI documents and caches them until the schema
// source changes revision.
type Service struct {
	source SchemaSource
	routes []Route
	info   Info
	ids    *OperationIDs
	logger zerolog.Logger

	cache atomic.Pointer[cachedSpec]
	mu    sync.Mutex // Protects cache generation
}

type cachedSpec struct {
	spec        *Spec
	revision    string
	generatedAt time.Time
}

// ServiceConfig contains configuration for the OpenAPI service.
type ServiceConfig struct {
	Source SchemaSource
	Routes []Route
	Info   Info
	Logger zerolog.Logger
}

// NewService creates a new OpenAPI service.
func NewService(cfg ServiceConfig) *Service {
	info := cfg.Info
	if info.Title == "" {
		info.Title = "schemagate"
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}
	return &Service{
		source: cfg.Source,
		routes: cfg.Routes,
		info:   info,
		ids:    NewOperationIDs(),
		logger: cfg.Logger,
	}
}

// Spec returns the document for the current schemas, listing baseURL as
// the server when it is not empty.
func (s *Service) Spec(baseURL string) (*Spec, error) {
	revision := s.source.Revision()

	if cached := s.cache.Load(); cached != nil && cached.revision == revision {
		return withServer(cached.spec, baseURL), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring lock
	if cached := s.cache.Load(); cached != nil && cached.revision == revision {
		return withServer(cached.spec, baseURL), nil
	}

	g := NewGenerator(s.source.Resolver(), s.ids)
	g.SetInfo(s.info)
	spec, err := g.Generate(s.routes)
	if err != nil {
		s.logger.Error().Err(err).Str("revision", revision).Msg("openapi generation failed")
		return nil, err
	}

	s.cache.Store(&cachedSpec{spec: spec, revision: revision, generatedAt: time.Now()})
	s.logger.Debug().
		Str("revision", revision).
		Int("paths", len(spec.Paths)).
		Int("schemas", len(spec.Components.Schemas)).
		Msg("openapi document generated")

	return withServer(spec, baseURL), nil
}

// InvalidateCache forces the next Spec call to regenerate the document.
func (s *Service) InvalidateCache() {
	s.cache.Store(nil)
	s.logger.Debug().Msg("OpenAPI cache invalidated")
}

// withServer returns a shallow copy of spec listing only baseURL.
func withServer(spec *Spec, baseURL string) *Spec {
	out := *spec
	out.Servers = nil
	if baseURL != "" {
		out.Servers = []Server{{URL: baseURL}}
	}
	return &out
}

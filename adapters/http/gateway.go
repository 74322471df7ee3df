package http

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/pkg/jsonapi"
)

// Forwarder sends validated requests upstream. *UpstreamClient implements it.
type Forwarder interface {
	Forward(ctx context.Context, req UpstreamRequest) (UpstreamResponse, error)
}

// Gateway forwards requests on configured routes once they pass schema
// validation.
type Gateway struct {
	upstream  Forwarder
	validator *Validator
	settings  func() config.ValidationConfig
	logger    zerolog.Logger
}

// NewGateway creates a gateway.
func NewGateway(upstream Forwarder, validator *Validator, settings func() config.ValidationConfig, logger zerolog.Logger) *Gateway {
	if settings == nil {
		settings = func() config.ValidationConfig { return config.ValidationConfig{} }
	}
	return &Gateway{
		upstream:  upstream,
		validator: validator,
		settings:  settings,
		logger:    logger,
	}
}

// Mount registers every route on r. The query is checked before the body.
func (g *Gateway) Mount(r chi.Router, routes []config.RouteConfig) {
	for _, route := range routes {
		g.logger.Debug().
			Str("method", route.Method).
			Str("path", route.Path).
			Str("body", route.Body).
			Str("query", route.Query).
			Msg("mounting gateway route")
		r.Method(route.Method, route.Path, g.Handler(route))
	}
}

// Handler returns the validating handler chain for one route.
func (g *Gateway) Handler(route config.RouteConfig) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.forward(w, r, route)
	})
	if route.Body != "" {
		h = g.validator.ValidateBody(route.Body)(h)
	}
	if route.Query != "" {
		h = g.validator.ValidateQuery(route.Query)(h)
	}
	return h
}

func (g *Gateway) forward(w http.ResponseWriter, r *http.Request, route config.RouteConfig) {
	ctx := r.Context()

	var body []byte
	if r.Body != nil {
		var err error
		if body, err = io.ReadAll(r.Body); err != nil {
			jsonapi.WriteBadRequest(w, "Failed to read request body")
			return
		}
	}

	resp, err := g.upstream.Forward(ctx, UpstreamRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		Headers:   r.Header.Clone(),
		Body:      body,
		RemoteIP:  remoteIP(r),
		RequestID: middleware.GetReqID(ctx),
	})
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(ctx)).
			Msg("upstream request failed")
		jsonapi.WriteError(w, jsonapi.ErrBadGateway(""))
		return
	}

	if route.Response != "" && g.settings().CheckResponses {
		g.checkResponse(r, route, resp)
	}

	for k, v := range resp.Headers {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			g.logger.Error().Err(err).Msg("failed to write response body")
		}
	}
}

// checkResponse validates successful upstream responses against the
// route's response schema. Mismatches are logged, never blocked.
func (g *Gateway) checkResponse(r *http.Request, route config.RouteConfig, resp UpstreamResponse) {
	if resp.Status < 200 || resp.Status >= 300 || len(resp.Body) == 0 {
		return
	}

	warn := func() *zerolog.Event {
		return g.logger.Warn().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("schema", route.Response).
			Str("request_id", middleware.GetReqID(r.Context()))
	}

	var value any
	if err := json.Unmarshal(resp.Body, &value); err != nil {
		warn().Err(err).Msg("upstream response is not JSON")
		return
	}

	_, res, err := g.validator.Check(route.Response, value, false)
	if err != nil {
		warn().Err(err).Msg("response schema error")
		return
	}
	if !res.Valid {
		warn().
			Int("errors", len(res.Errors)).
			Str("detail", res.Error()).
			Msg("upstream response does not match schema")
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

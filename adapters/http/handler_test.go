package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	apihttp "github.com/artpar/schemagate/adapters/http"
	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/core/openapi"
	"github.com/artpar/schemagate/core/registry"
	"github.com/artpar/schemagate/core/schema"
	"github.com/artpar/schemagate/pkg/jsonapi"
)

const userSchema = `
$id: user
type: object
properties:
  name:
    type: string
    minLength: 2
  age:
    type: integer
    minimum: 0
  tags:
    type: array
    items:
      type: string
required: [name, age]
`

const searchSchema = `
$id: search
type: object
properties:
  q:
    type: string
  limit:
    type: integer
    maximum: 100
  tag:
    type: array
    items:
      type: string
required: [q]
`

const brokenSchema = `
$id: broken
type: object
not:
  type: string
`

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(zerolog.Nop())
	for name, src := range map[string]string{
		"user":   userSchema,
		"search": searchSchema,
		"broken": brokenSchema,
	} {
		doc, err := schema.Parse([]byte(src), name)
		if err != nil {
			t.Fatalf("Parse(%s) error: %v", name, err)
		}
		doc.Source = name + ".yaml"
		if err := reg.Register(doc); err != nil {
			t.Fatalf("Register(%s) error: %v", name, err)
		}
	}
	return reg
}

type testServer struct {
	router   chi.Router
	registry *registry.Registry
	metrics  *metrics.Collector
}

func newTestServer(t *testing.T, mutate func(*apihttp.RouterConfig)) *testServer {
	t.Helper()
	reg := newTestRegistry(t)
	promReg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(promReg)

	cfg := apihttp.RouterConfig{
		Store: reg,
		Settings: func() config.ValidationConfig {
			return config.ValidationConfig{MaxBodyBytes: 1 << 20}
		},
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
		OpenAPI: openapi.NewService(openapi.ServiceConfig{
			Source: reg,
			Logger: zerolog.Nop(),
		}),
		Version: "1.2.3",
		Logger:  zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return &testServer{router: apihttp.NewRouter(cfg), registry: reg, metrics: m}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeDocument(t *testing.T, rec *httptest.ResponseRecorder) jsonapi.Document {
	t.Helper()
	var doc jsonapi.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON:API document %q: %v", rec.Body.String(), err)
	}
	return doc
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do("GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", rec.Code)
	}

	rec = s.do("GET", "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/health/ready status = %d, want 200", rec.Code)
	}
	var resp apihttp.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Schemas != 3 || resp.Revision != s.registry.Revision() {
		t.Errorf("readiness = %+v, want 3 schemas at current revision", resp)
	}
}

type downUpstream struct{}

func (downUpstream) Forward(ctx context.Context, req apihttp.UpstreamRequest) (apihttp.UpstreamResponse, error) {
	return apihttp.UpstreamResponse{}, errors.New("connection refused")
}

func (downUpstream) HealthCheck(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestHealth_UpstreamUnreachable(t *testing.T) {
	s := newTestServer(t, func(cfg *apihttp.RouterConfig) {
		cfg.Upstream = downUpstream{}
	})

	rec := s.do("GET", "/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/health/ready status = %d, want 503", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != jsonapi.ContentType {
		t.Errorf("Content-Type = %s, want %s", ct, jsonapi.ContentType)
	}
	doc := decodeDocument(t, rec)
	if len(doc.Errors) != 1 || doc.Errors[0].Code != "service_unavailable" || doc.Errors[0].Detail != "connection refused" {
		t.Errorf("errors = %+v, want one service_unavailable", doc.Errors)
	}
	if doc.Meta["upstream"] != "unreachable" || doc.Meta["schemas"] != float64(3) {
		t.Errorf("meta = %v", doc.Meta)
	}
}

func TestVersion(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do("GET", "/version", "")

	var resp apihttp.VersionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(apihttp.VersionResponse{Version: "1.2.3", Service: "schemagate"}, resp); diff != "" {
		t.Errorf("version mismatch (-want +got):\n%s", diff)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do("GET", "/nowhere", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != jsonapi.ContentType {
		t.Errorf("Content-Type = %q, want %q", ct, jsonapi.ContentType)
	}
}

func TestSchemas_List(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do("GET", "/schemas", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}

	doc := decodeDocument(t, rec)
	data, ok := doc.Data.([]any)
	if !ok {
		t.Fatalf("data = %T, want array", doc.Data)
	}
	var ids []string
	for _, item := range data {
		ids = append(ids, item.(map[string]any)["id"].(string))
	}
	if diff := cmp.Diff([]string{"broken", "search", "user"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if doc.Meta["revision"] != s.registry.Revision() {
		t.Errorf("meta revision = %v", doc.Meta["revision"])
	}
}

func TestSchemas_Get(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do("GET", "/schemas/user", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["type"] != "object" || doc["$id"] != "user" {
		t.Errorf("schema = %v", doc)
	}

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	req := httptest.NewRequest("GET", "/schemas/user", nil)
	req.Header.Set("If-None-Match", etag)
	cached := httptest.NewRecorder()
	s.router.ServeHTTP(cached, req)
	if cached.Code != http.StatusNotModified {
		t.Errorf("conditional GET status = %d, want 304", cached.Code)
	}

	if rec := s.do("GET", "/schemas/ghost", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown schema status = %d, want 404", rec.Code)
	}
}

func TestSchemas_Validate(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name      string
		body      string
		wantValid bool
		wantErrs  int
	}{
		{"valid", `{"name":"ada","age":36}`, true, 0},
		{"two errors", `{"name":"a","age":"old"}`, false, 2},
		{"missing required", `{"name":"ada"}`, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do("POST", "/schemas/user/validate", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
			}
			var resp apihttp.CheckResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Valid != tt.wantValid || len(resp.Errors) != tt.wantErrs {
				t.Errorf("valid=%v errors=%d, want valid=%v errors=%d", resp.Valid, len(resp.Errors), tt.wantValid, tt.wantErrs)
			}
		})
	}
}

func TestSchemas_ValidateErrors(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := s.do("POST", "/schemas/user/validate", `{"name":`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want 400", rec.Code)
	}
	if rec := s.do("POST", "/schemas/ghost/validate", `{}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown schema status = %d, want 404", rec.Code)
	}

	rec := s.do("POST", "/schemas/broken/validate", `{}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unsupported keyword status = %d, want 500", rec.Code)
	}
	doc := decodeDocument(t, rec)
	if len(doc.Errors) != 1 || doc.Errors[0].Code != "schema_error" {
		t.Errorf("errors = %+v, want one schema_error", doc.Errors)
	}
}

func TestSchemas_Coerce(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do("POST", "/schemas/user/coerce", `{"name":"ada","age":"36","tags":"[\"x\"]"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}
	var resp apihttp.CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Valid {
		t.Errorf("coerced value should be valid, errors: %v", resp.Errors)
	}
	want := map[string]any{"name": "ada", "age": float64(36), "tags": []any{"x"}}
	if diff := cmp.Diff(want, resp.Value); diff != "" {
		t.Errorf("coerced value mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemas_Template(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		path string
		want any
	}{
		{"/schemas/user/template", map[string]any{"name": "", "age": float64(0)}},
		{"/schemas/user/template?optional=true", map[string]any{"name": "", "age": float64(0), "tags": []any{}}},
	}
	for _, tt := range tests {
		rec := s.do("GET", tt.path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", tt.path, rec.Code)
		}
		var got any
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", tt.path, diff)
		}
	}
}

func TestMerge(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do("POST", "/merge", `{"allOf":[{"type":"object","required":["a"]},{"required":["b"],"minProperties":1}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got["allOf"]; ok {
		t.Errorf("allOf should be merged away: %v", got)
	}
	if got["type"] != "object" {
		t.Errorf("type = %v, want object", got["type"])
	}

	rec = s.do("POST", "/merge", `{"allOf":[{"type":"string"},{"type":"number"}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("incompatible status = %d, want 422", rec.Code)
	}
	doc := decodeDocument(t, rec)
	if len(doc.Errors) != 1 || doc.Errors[0].Code != "incompatible_schemas" {
		t.Errorf("errors = %+v", doc.Errors)
	}
}

func TestOpenAPI(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do("GET", "/openapi.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}
	var spec map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if spec["openapi"] != "3.1.0" {
		t.Errorf("openapi = %v", spec["openapi"])
	}
	servers := spec["servers"].([]any)
	if servers[0].(map[string]any)["url"] != "http://example.com" {
		t.Errorf("servers = %v", servers)
	}
	schemas := spec["components"].(map[string]any)["schemas"].(map[string]any)
	if _, ok := schemas["user"]; !ok {
		t.Error("user schema missing from components")
	}

	rec = s.do("GET", "/docs/doc.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("swagger doc.json status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"3.1.0"`) {
		t.Errorf("swagger doc.json should serve the generated document, got %s", rec.Body)
	}
}

func TestOpenAPIDisabled(t *testing.T) {
	s := newTestServer(t, func(cfg *apihttp.RouterConfig) { cfg.OpenAPI = nil })
	if rec := s.do("GET", "/openapi.json", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when disabled", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	s.do("POST", "/schemas/user/validate", `{"name":"a","age":1}`)

	rec := s.do("GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`schemagate_requests_total{method="POST",path="/schemas/:name/validate",status="2xx"} 1`,
		`schemagate_validations_total{result="invalid",schema="user"} 1`,
		`schemagate_validation_errors_total{keyword="minLength"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

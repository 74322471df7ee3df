package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "github.com/artpar/schemagate/adapters/http"
	"github.com/artpar/schemagate/adapters/metrics"
)

func TestNewUpstreamClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     apihttp.UpstreamConfig
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: apihttp.UpstreamConfig{
				BaseURL:         "https://api.example.com",
				Timeout:         30 * time.Second,
				MaxIdleConns:    50,
				IdleConnTimeout: 60 * time.Second,
			},
		},
		{
			name: "minimal config with defaults",
			cfg:  apihttp.UpstreamConfig{BaseURL: "https://api.example.com"},
		},
		{
			name:    "invalid URL",
			cfg:     apihttp.UpstreamConfig{BaseURL: "://invalid-url"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := apihttp.NewUpstreamClient(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			client.Close()
		})
	}
}

func TestUpstreamClient_Forward(t *testing.T) {
	var gotPath, gotQuery, gotBody, gotFor, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotFor = r.Header.Get("X-Forwarded-For")
		gotID = r.Header.Get("X-Request-ID")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Custom-Header", "custom-value")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	client, err := apihttp.NewUpstreamClient(apihttp.UpstreamConfig{
		BaseURL: server.URL + "/v1",
		Timeout: 5 * time.Second,
		Metrics: metrics.NewWithRegistry(reg),
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	resp, err := client.Forward(context.Background(), apihttp.UpstreamRequest{
		Method:    "POST",
		Path:      "/users",
		Query:     "dry_run=true",
		Headers:   http.Header{"Content-Type": {"application/json"}},
		Body:      []byte(`{"name":"ada"}`),
		RemoteIP:  "192.168.1.1",
		RequestID: "req-123",
	})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if resp.Status != http.StatusCreated {
		t.Errorf("Status = %d, want 201", resp.Status)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Errorf("Body = %s", resp.Body)
	}
	if resp.Headers.Get("X-Custom-Header") != "custom-value" {
		t.Error("custom response header not copied")
	}
	if gotPath != "/v1/users" {
		t.Errorf("upstream path = %s, want /v1/users", gotPath)
	}
	if gotQuery != "dry_run=true" {
		t.Errorf("upstream query = %s", gotQuery)
	}
	if gotBody != `{"name":"ada"}` {
		t.Errorf("upstream body = %s", gotBody)
	}
	if gotFor != "192.168.1.1" {
		t.Errorf("X-Forwarded-For = %s", gotFor)
	}
	if gotID != "req-123" {
		t.Errorf("X-Request-ID = %s", gotID)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "schemagate_upstream_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Error("upstream duration not recorded")
	}
}

func TestUpstreamClient_Forward_SkipsHopByHopHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Keep-Alive", "timeout=5")
		w.Header().Set("Upgrade", "h2c")
		w.Header().Set("X-Custom", "should-be-kept")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := apihttp.NewUpstreamClient(apihttp.UpstreamConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	resp, err := client.Forward(context.Background(), apihttp.UpstreamRequest{Method: "GET", Path: "/"})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if resp.Headers.Get("Keep-Alive") != "" {
		t.Error("Keep-Alive header should be filtered")
	}
	if resp.Headers.Get("Upgrade") != "" {
		t.Error("Upgrade header should be filtered")
	}
	if resp.Headers.Get("X-Custom") != "should-be-kept" {
		t.Error("X-Custom header should be kept")
	}
}

func TestUpstreamClient_Forward_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	reg := prometheus.NewRegistry()
	client, err := apihttp.NewUpstreamClient(apihttp.UpstreamConfig{
		BaseURL: url,
		Timeout: time.Second,
		Metrics: metrics.NewWithRegistry(reg),
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	if _, err := client.Forward(context.Background(), apihttp.UpstreamRequest{Method: "GET", Path: "/"}); err == nil {
		t.Fatal("expected error for closed upstream")
	}
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck should fail for closed upstream")
	}
}

func TestUpstreamClient_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := apihttp.NewUpstreamClient(apihttp.UpstreamConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck error: %v (any response means reachable)", err)
	}
}

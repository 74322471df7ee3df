package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/schemagate/adapters/metrics"
)

// maxUpstreamBody caps buffered upstream responses.
const maxUpstreamBody = 50 << 20

// UpstreamRequest is a validated request on its way to the upstream.
type UpstreamRequest struct {
	Method    string
	Path      string
	Query     string
	Headers   http.Header
	Body      []byte
	RemoteIP  string
	RequestID string
}

// UpstreamResponse is a buffered upstream response.
type UpstreamResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
	Latency time.Duration
}

// UpstreamClient forwards validated requests to the upstream service.
type UpstreamClient struct {
	client  *http.Client
	baseURL *url.URL
	metrics *metrics.Collector
}

// UpstreamConfig contains configuration for the upstream client.
type UpstreamConfig struct {
	BaseURL         string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	Metrics         *metrics.Collector
}

// NewUpstreamClient creates a new upstream HTTP client.
func NewUpstreamClient(cfg UpstreamConfig) (*UpstreamClient, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 100
	}

	idleConnTimeout := cfg.IdleConnTimeout
	if idleConnTimeout == 0 {
		idleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConns,
		IdleConnTimeout:     idleConnTimeout,
	}

	return &UpstreamClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL: baseURL,
		metrics: cfg.Metrics,
	}, nil
}

// Forward sends a request to the upstream and returns the buffered response.
func (u *UpstreamClient) Forward(ctx context.Context, req UpstreamRequest) (UpstreamResponse, error) {
	start := time.Now()

	if u.metrics != nil {
		u.metrics.UpstreamInFlight.Inc()
		defer u.metrics.UpstreamInFlight.Dec()
	}

	upstreamURL := u.baseURL.ResolveReference(&url.URL{
		Path:     strings.TrimSuffix(u.baseURL.Path, "/") + req.Path,
		RawQuery: req.Query,
	})

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, upstreamURL.String(), body)
	if err != nil {
		return UpstreamResponse{}, fmt.Errorf("create request: %w", err)
	}

	copyHeaders(httpReq.Header, req.Headers)
	if len(req.Body) > 0 {
		// The body may have been rewritten by coercion.
		httpReq.Header.Del("Content-Length")
		httpReq.ContentLength = int64(len(req.Body))
	}

	if req.RemoteIP != "" {
		httpReq.Header.Set("X-Forwarded-For", req.RemoteIP)
	}
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
	}

	resp, err := u.client.Do(httpReq)
	if err != nil {
		u.countError(err)
		return UpstreamResponse{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		u.countError(err)
		return UpstreamResponse{}, fmt.Errorf("read response: %w", err)
	}

	headers := make(http.Header, len(resp.Header))
	copyHeaders(headers, resp.Header)

	latency := time.Since(start)
	if u.metrics != nil {
		u.metrics.UpstreamDuration.
			WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).
			Observe(latency.Seconds())
	}

	return UpstreamResponse{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    respBody,
		Latency: latency,
	}, nil
}

// HealthCheck verifies the upstream is reachable.
func (u *UpstreamClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.baseURL.String(), nil)
	if err != nil {
		return err
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	// Any response (even 404) means upstream is reachable
	return nil
}

// Close closes idle upstream connections.
func (u *UpstreamClient) Close() error {
	u.client.CloseIdleConnections()
	return nil
}

func (u *UpstreamClient) countError(err error) {
	if u.metrics == nil {
		return
	}
	kind := "connection"
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		kind = "canceled"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		kind = "timeout"
	}
	u.metrics.UpstreamErrors.WithLabelValues(kind).Inc()
}

// hopByHop lists headers that apply to a single connection.
var hopByHop = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

func copyHeaders(dst, src http.Header) {
	for k, v := range src {
		if hopByHop[http.CanonicalHeaderKey(k)] {
			continue
		}
		dst[k] = append([]string(nil), v...)
	}
}

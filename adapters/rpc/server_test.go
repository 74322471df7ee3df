package rpc_test

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.lsp.dev/jsonrpc2"

	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/adapters/rpc"
	"github.com/artpar/schemagate/core/registry"
	"github.com/artpar/schemagate/core/schema"
)

const userSchema = `
$id: user
type: object
properties:
  name:
    type: string
    minLength: 1
  age:
    type: integer
    minimum: 18
  nick:
    type: string
required: [name, age]
`

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(zerolog.Nop())
	doc, err := schema.Parse([]byte(userSchema), "user")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if err := reg.Register(doc); err != nil {
		t.Fatalf("Register error = %v", err)
	}
	return reg
}

// dial connects a client to srv over an in-memory pipe.
func dial(t *testing.T, srv *rpc.Server) jsonrpc2.Conn {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	serverSide, clientSide := net.Pipe()
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, serverSide) }()

	client := jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide))
	client.Go(ctx, jsonrpc2.MethodNotFoundHandler)

	t.Cleanup(func() {
		client.Close()
		cancel()
		select {
		case <-served:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return client
}

func newServer(t *testing.T) (*rpc.Server, *prometheus.Registry) {
	t.Helper()
	reg := newRegistry(t)
	promReg := prometheus.NewRegistry()
	srv := rpc.NewServer(reg.Resolver, zerolog.Nop())
	if err := rpc.RegisterSchemaTools(srv, reg, metrics.NewWithRegistry(promReg)); err != nil {
		t.Fatalf("RegisterSchemaTools error = %v", err)
	}
	return srv, promReg
}

func callTool(t *testing.T, conn jsonrpc2.Conn, name string, args map[string]any, result any) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := conn.Call(ctx, rpc.MethodToolsCall, rpc.CallParams{Name: name, Arguments: args}, result)
	return err
}

func errorCode(t *testing.T, err error) jsonrpc2.Code {
	t.Helper()
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error %v is not a *jsonrpc2.Error", err)
	}
	return rpcErr.Code
}

func TestServer_Register(t *testing.T) {
	srv := rpc.NewServer(nil, zerolog.Nop())
	noop := func(context.Context, map[string]any) (any, error) { return nil, nil }

	if err := srv.Register(rpc.Tool{Name: "a", Call: noop}); err != nil {
		t.Fatalf("Register error = %v", err)
	}
	tests := []struct {
		name string
		tool rpc.Tool
	}{
		{"duplicate", rpc.Tool{Name: "a", Call: noop}},
		{"no name", rpc.Tool{Call: noop}},
		{"no call", rpc.Tool{Name: "b"}},
		{"non-object input", rpc.Tool{Name: "c", Call: noop, InputSchema: schema.String()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := srv.Register(tt.tool); err == nil {
				t.Error("Register() expected error")
			}
		})
	}
}

func TestServer_ToolsList(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	var result rpc.ListResult
	if _, err := conn.Call(context.Background(), rpc.MethodToolsList, nil, &result); err != nil {
		t.Fatalf("Call error = %v", err)
	}

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		if tool.InputSchema == nil {
			t.Errorf("tool %s has no input schema", tool.Name)
		}
	}
	want := []string{"coerce", "list_schemas", "merge", "template", "validate"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("tool names mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_UnknownMethod(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	_, err := conn.Call(context.Background(), "schemas/drop", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := errorCode(t, err); got != jsonrpc2.MethodNotFound {
		t.Errorf("code = %d, want %d", got, jsonrpc2.MethodNotFound)
	}
}

func TestServer_Validate(t *testing.T) {
	srv, promReg := newServer(t)
	conn := dial(t, srv)

	var ok rpc.CheckResult
	err := callTool(t, conn, "validate", map[string]any{
		"schema": "user",
		"value":  map[string]any{"name": "ada", "age": 36},
	}, &ok)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !ok.Valid || len(ok.Errors) != 0 {
		t.Errorf("result = %+v, want valid", ok)
	}

	var bad rpc.CheckResult
	err = callTool(t, conn, "validate", map[string]any{
		"schema": "user",
		"value":  map[string]any{"name": "", "age": "x"},
	}, &bad)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if bad.Valid {
		t.Fatal("expected invalid result")
	}
	var locations []string
	for _, e := range bad.Errors {
		locations = append(locations, e.InstanceLocation)
	}
	if diff := cmp.Diff([]string{"/age", "/name"}, locations); diff != "" {
		t.Errorf("instance locations mismatch (-want +got):\n%s", diff)
	}

	families, err := promReg.Gather()
	if err != nil {
		t.Fatalf("Gather error = %v", err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() == "schemagate_validations_total" {
			found = true
		}
	}
	if !found {
		t.Error("validation metrics not recorded")
	}
}

func TestServer_ValidateShortCircuit(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	var res rpc.CheckResult
	err := callTool(t, conn, "validate", map[string]any{
		"schema":        "user",
		"value":         map[string]any{"name": "", "age": "x"},
		"short_circuit": true,
	}, &res)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if len(res.Errors) != 1 {
		t.Errorf("len(Errors) = %d, want 1", len(res.Errors))
	}
}

func TestServer_Coerce(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	var res rpc.CheckResult
	err := callTool(t, conn, "coerce", map[string]any{
		"schema": "user",
		"value":  map[string]any{"name": 42, "age": "21"},
	}, &res)
	if err != nil {
		t.Fatalf("coerce error = %v", err)
	}
	if !res.Valid {
		t.Fatalf("coerced value should be valid, errors = %+v", res.Errors)
	}
	want := map[string]any{"name": "42", "age": float64(21)}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Errorf("coerced value mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Template(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	var got map[string]any
	if err := callTool(t, conn, "template", map[string]any{"schema": "user"}, &got); err != nil {
		t.Fatalf("template error = %v", err)
	}
	want := map[string]any{"name": "", "age": float64(18)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("template mismatch (-want +got):\n%s", diff)
	}

	var full map[string]any
	if err := callTool(t, conn, "template", map[string]any{"schema": "user", "optional": true}, &full); err != nil {
		t.Fatalf("template error = %v", err)
	}
	if _, ok := full["nick"]; !ok {
		t.Error("optional template should include nick")
	}
}

func TestServer_ListSchemas(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	var got struct {
		Schemas []string `json:"schemas"`
	}
	if err := callTool(t, conn, "list_schemas", nil, &got); err != nil {
		t.Fatalf("list_schemas error = %v", err)
	}
	if diff := cmp.Diff([]string{"user"}, got.Schemas); diff != "" {
		t.Errorf("schemas mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Merge(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	var got map[string]any
	err := callTool(t, conn, "merge", map[string]any{
		"document": map[string]any{"allOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"minLength": 2},
		}},
	}, &got)
	if err != nil {
		t.Fatalf("merge error = %v", err)
	}
	want := map[string]any{"type": "string", "minLength": float64(2)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged mismatch (-want +got):\n%s", diff)
	}

	err = callTool(t, conn, "merge", map[string]any{
		"document": map[string]any{"allOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "integer"},
		}},
	}, nil)
	if err == nil {
		t.Fatal("expected error for incompatible branches")
	}
	if got := errorCode(t, err); got != jsonrpc2.InvalidParams {
		t.Errorf("code = %d, want %d", got, jsonrpc2.InvalidParams)
	}
}

func TestServer_CallErrors(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv)

	tests := []struct {
		name        string
		tool        string
		args        map[string]any
		wantCode    jsonrpc2.Code
		wantMessage string
	}{
		{
			name:        "unknown tool",
			tool:        "drop",
			wantCode:    jsonrpc2.InvalidParams,
			wantMessage: `unknown tool "drop"`,
		},
		{
			name:        "missing arguments",
			tool:        "validate",
			wantCode:    jsonrpc2.InvalidParams,
			wantMessage: "invalid arguments for validate",
		},
		{
			name:        "wrong argument type",
			tool:        "template",
			args:        map[string]any{"schema": "user", "optional": "yes"},
			wantCode:    jsonrpc2.InvalidParams,
			wantMessage: "invalid arguments for template",
		},
		{
			name:        "unknown schema",
			tool:        "validate",
			args:        map[string]any{"schema": "order", "value": 1},
			wantCode:    jsonrpc2.InvalidParams,
			wantMessage: `schema "order" not found`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := callTool(t, conn, tt.tool, tt.args, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errorCode(t, err); got != tt.wantCode {
				t.Errorf("code = %d, want %d", got, tt.wantCode)
			}
			if !strings.Contains(err.Error(), tt.wantMessage) {
				t.Errorf("error %q does not contain %q", err, tt.wantMessage)
			}
		})
	}
}

func TestServer_ToolFailure(t *testing.T) {
	srv := rpc.NewServer(nil, zerolog.Nop())
	err := srv.Register(rpc.Tool{
		Name: "boom",
		Call: func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("exploded")
		},
	})
	if err != nil {
		t.Fatalf("Register error = %v", err)
	}
	conn := dial(t, srv)

	err = callTool(t, conn, "boom", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := errorCode(t, err); got != jsonrpc2.InternalError {
		t.Errorf("code = %d, want %d", got, jsonrpc2.InternalError)
	}
}

func TestServer_ServeListener(t *testing.T) {
	srv, _ := newServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.ServeListener(ctx, ln) }()

	nc, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial error = %v", err)
	}
	client := jsonrpc2.NewConn(jsonrpc2.NewStream(nc))
	client.Go(ctx, jsonrpc2.MethodNotFoundHandler)

	var result rpc.ListResult
	if _, err := client.Call(ctx, rpc.MethodToolsList, nil, &result); err != nil {
		t.Fatalf("Call error = %v", err)
	}
	if len(result.Tools) == 0 {
		t.Error("expected tools over tcp")
	}

	client.Close()
	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("ServeListener error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("ServeListener did not stop")
	}
}

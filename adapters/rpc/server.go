// Package rpc exposes schema-checked tools over JSON-RPC 2.0.
//
// Two methods are served: tools/list describes every tool with its input
// schema, and tools/call validates the arguments against that schema before
// the tool runs.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"go.lsp.dev/jsonrpc2"

	"github.com/artpar/schemagate/core/schema"
)

// Method names.
const (
	MethodToolsList = "tools/list"
	MethodToolsCall = "tools/call"
)

// Tool is a callable whose arguments must satisfy InputSchema.
type Tool struct {
	Name        string
	Description string
	InputSchema *schema.Node
	Call        func(ctx context.Context, args map[string]any) (any, error)
}

// ToolInfo describes a tool in a tools/list result.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"inputSchema"`
}

// ListResult is the tools/list result.
type ListResult struct {
	Tools []ToolInfo `json:"tools"`
}

// CallParams are the tools/call parameters.
type CallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Server dispatches JSON-RPC requests to registered tools.
type Server struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	resolver func() *schema.Resolver
	logger   zerolog.Logger
}

// NewServer creates a server. resolver supplies the definitions tool input
// schemas may reference; it may be nil.
func NewServer(resolver func() *schema.Resolver, logger zerolog.Logger) *Server {
	return &Server{
		tools:    make(map[string]Tool),
		resolver: resolver,
		logger:   logger,
	}
}

// Register adds a tool. Names must be unique and the input schema must be
// an object schema.
func (s *Server) Register(tool Tool) error {
	if tool.Name == "" {
		return errors.New("tool name is required")
	}
	if tool.Call == nil {
		return fmt.Errorf("tool %s: call function is required", tool.Name)
	}
	if tool.InputSchema == nil {
		tool.InputSchema = schema.Object()
	}
	if tool.InputSchema.Kind() != schema.KindObject {
		return fmt.Errorf("tool %s: input schema must be an object, got %s", tool.Name, tool.InputSchema.Kind())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name)
	}
	s.tools[tool.Name] = tool
	return nil
}

// Tools returns the registered tools sorted by name.
func (s *Server) Tools() []ToolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		infos = append(infos, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema.ToJSON(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Handler returns the jsonrpc2 handler for the server.
func (s *Server) Handler() jsonrpc2.Handler {
	return jsonrpc2.ReplyHandler(func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case MethodToolsList:
			return reply(ctx, ListResult{Tools: s.Tools()}, nil)
		case MethodToolsCall:
			result, err := s.call(ctx, req.Params())
			return reply(ctx, result, err)
		default:
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
	})
}

// ServeStream implements jsonrpc2.StreamServer.
func (s *Server) ServeStream(ctx context.Context, conn jsonrpc2.Conn) error {
	conn.Go(ctx, s.Handler())
	select {
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
		return ctx.Err()
	case <-conn.Done():
	}
	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Serve runs the server over a single header-framed stream such as stdio
// until the stream ends or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	return s.ServeStream(ctx, jsonrpc2.NewConn(jsonrpc2.NewStream(rwc)))
}

// ListenAndServe accepts TCP connections on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves connections accepted from ln. ln is closed when ctx
// is cancelled or serving fails.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		ln.Close()
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("json-rpc server listening")
	err := jsonrpc2.Serve(ctx, ln, s, 0)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) call(ctx context.Context, raw json.RawMessage) (any, error) {
	var params CallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "invalid tools/call params: %v", err)
	}

	s.mu.RLock()
	tool, ok := s.tools[params.Name]
	s.mu.RUnlock()
	if !ok {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "unknown tool %q", params.Name)
	}

	args := params.Arguments
	if args == nil {
		args = map[string]any{}
	}

	var opts []schema.CallOption
	if s.resolver != nil {
		opts = append(opts, schema.WithResolver(s.resolver()))
	}
	res, err := tool.InputSchema.Validate(args, opts...)
	if err != nil {
		s.logger.Error().Err(err).Str("tool", tool.Name).Msg("tool input schema error")
		return nil, jsonrpc2.Errorf(jsonrpc2.InternalError, "tool %s: %v", tool.Name, err)
	}
	if !res.Valid {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "invalid arguments for %s: %s", tool.Name, res.Error())
	}

	result, err := tool.Call(ctx, args)
	if err != nil {
		s.logger.Debug().Err(err).Str("tool", tool.Name).Msg("tool call failed")
		return nil, toRPCError(err)
	}
	return result, nil
}

// toRPCError maps tool errors to JSON-RPC errors. Schema configuration
// problems are internal errors; coded errors pass through.
func toRPCError(err error) error {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
}

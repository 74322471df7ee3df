package rpc

import (
	"context"
	"errors"
	"time"

	"go.lsp.dev/jsonrpc2"

	"github.com/artpar/schemagate/adapters/metrics"
	"github.com/artpar/schemagate/core/merge"
	"github.com/artpar/schemagate/core/registry"
	"github.com/artpar/schemagate/core/schema"
)

// Store is the read side of the schema registry.
type Store interface {
	Get(name string) (registry.Entry, bool)
	List() []registry.Entry
	Resolver() *schema.Resolver
}

// CheckResult is returned by the validate and coerce tools.
type CheckResult struct {
	Valid  bool                 `json:"valid"`
	Errors []schema.ErrorDetail `json:"errors,omitempty"`
	Value  any                  `json:"value,omitempty"`
}

// RegisterSchemaTools registers the tools backed by a schema registry:
// list_schemas, validate, coerce, template and merge.
func RegisterSchemaTools(s *Server, store Store, m *metrics.Collector) error {
	named := schema.String(schema.MinLength(1), schema.Description("registered schema name"))

	tools := []Tool{
		{
			Name:        "list_schemas",
			Description: "List registered schema names",
			InputSchema: schema.Object(),
			Call: func(ctx context.Context, _ map[string]any) (any, error) {
				entries := store.List()
				names := make([]string, len(entries))
				for i, e := range entries {
					names[i] = e.Name
				}
				return map[string]any{"schemas": names}, nil
			},
		},
		{
			Name:        "validate",
			Description: "Validate a value against a registered schema",
			InputSchema: schema.Object(
				schema.Property("schema", named),
				schema.Property("value", schema.Any()),
				schema.Property("short_circuit", schema.Boolean().Optional()),
			),
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				return check(store, m, args, false)
			},
		},
		{
			Name:        "coerce",
			Description: "Coerce a value to a registered schema's shape, then validate it",
			InputSchema: schema.Object(
				schema.Property("schema", named),
				schema.Property("value", schema.Any()),
				schema.Property("short_circuit", schema.Boolean().Optional()),
			),
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				return check(store, m, args, true)
			},
		},
		{
			Name:        "template",
			Description: "Generate a value shaped like a registered schema",
			InputSchema: schema.Object(
				schema.Property("schema", named),
				schema.Property("optional", schema.Boolean().Optional()),
			),
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				entry, err := lookup(store, args)
				if err != nil {
					return nil, err
				}
				opts := []schema.CallOption{schema.WithResolver(store.Resolver())}
				if optional, _ := args["optional"].(bool); optional {
					opts = append(opts, schema.WithOptionalFields())
				}
				return entry.Node.Template(opts...), nil
			},
		},
		{
			Name:        "merge",
			Description: "Collapse the allOf branches of a schema document",
			InputSchema: schema.Object(
				schema.Property("document", schema.Any()),
				schema.Property("shallow", schema.Boolean().Optional()),
			),
			Call: func(ctx context.Context, args map[string]any) (any, error) {
				var opts []merge.Option
				if shallow, _ := args["shallow"].(bool); shallow {
					opts = append(opts, merge.Shallow())
				}
				merged, err := merge.AllOf(args["document"], opts...)
				if err != nil {
					var incompatible *merge.IncompatibleError
					if errors.As(err, &incompatible) {
						return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err)
					}
					return nil, err
				}
				return merged, nil
			},
		},
	}

	for _, t := range tools {
		if err := s.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func lookup(store Store, args map[string]any) (registry.Entry, error) {
	name, _ := args["schema"].(string)
	entry, ok := store.Get(name)
	if !ok {
		return registry.Entry{}, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "schema %q not found", name)
	}
	return entry, nil
}

func check(store Store, m *metrics.Collector, args map[string]any, coerce bool) (any, error) {
	entry, err := lookup(store, args)
	if err != nil {
		return nil, err
	}
	resolver := store.Resolver()
	value := args["value"]

	if coerce {
		value = entry.Node.Coerce(value, schema.WithResolver(resolver))
		m.ObserveCoercion(entry.Name)
	}

	opts := []schema.CallOption{schema.WithResolver(resolver)}
	if sc, _ := args["short_circuit"].(bool); sc {
		opts = append(opts, schema.WithShortCircuit())
	}

	start := time.Now()
	res, err := entry.Node.Validate(value, opts...)
	if err != nil {
		return nil, err
	}
	m.ObserveValidation(entry.Name, res, time.Since(start))

	out := CheckResult{Valid: res.Valid, Errors: res.Errors}
	if coerce {
		out.Value = value
	}
	return out, nil
}

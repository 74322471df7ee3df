// Package openapi generates OpenAPI 3.1 documents from registered schemas
// and the routes that use them.
package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/artpar/schemagate/core/schema"
)

// Spec represents an OpenAPI 3.1 document.
type Spec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
	Tags       []Tag               `json:"tags,omitempty"`
}

// Info provides API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server represents a server URL.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem contains operations for a path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Patch  *Operation `json:"patch,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

// Operation represents an API operation.
type Operation struct {
	Tags        []string            `json:"tags,omitempty"`
	Summary     string              `json:"summary,omitempty"`
	Description string              `json:"description,omitempty"`
	OperationID string              `json:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

// Parameter represents an API parameter. Schema holds a JSON Schema
// document as produced by schema.Node.ToJSON.
type Parameter struct {
	Name        string `json:"name"`
	In          string `json:"in"` // path, query, header
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Schema      any    `json:"schema,omitempty"`
}

// RequestBody represents a request body.
type RequestBody struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content"`
}

// Response represents an API response.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// MediaType represents a media type.
type MediaType struct {
	Schema  any `json:"schema,omitempty"`
	Example any `json:"example,omitempty"`
}

// Components contains reusable schemas keyed by registered name.
type Components struct {
	Schemas map[string]any `json:"schemas,omitempty"`
}

// Tag groups operations.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Route is an HTTP route whose body, query and response are described by
// registered schemas. Schema fields hold registry names and may be empty.
type Route struct {
	Method      string
	Path        string
	Summary     string
	Description string
	Tags        []string
	Body        string
	Query       string
	Response    string
}

const componentPrefix = "#/components/schemas/"

// errorDocument describes the JSON:API error documents returned for
// rejected requests.
var errorDocument = map[string]any{
	"type":     "object",
	"required": []any{"errors"},
	"properties": map[string]any{
		"errors": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"status": map[string]any{"type": "string"},
					"code":   map[string]any{"type": "string"},
					"title":  map[string]any{"type": "string"},
					"detail": map[string]any{"type": "string"},
					"source": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"pointer":   map[string]any{"type": "string"},
							"parameter": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	},
}

// Generator builds OpenAPI documents from a resolver's schemas.
type Generator struct {
	resolver *schema.Resolver
	info     Info
	servers  []Server
	ids      *OperationIDs
}

// NewGenerator creates a generator over the schemas of resolver. Operation
// ids are taken from ids, a fresh cache is used when ids is nil.
func NewGenerator(resolver *schema.Resolver, ids *OperationIDs) *Generator {
	if ids == nil {
		ids = NewOperationIDs()
	}
	return &Generator{
		resolver: resolver,
		info:     Info{Title: "schemagate", Version: "1.0.0"},
		ids:      ids,
	}
}

// SetInfo sets the API metadata.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// AddServer adds a server URL.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{URL: url, Description: description})
}

// Generate builds the document. Every registered schema becomes a
// component; routes referencing unknown schemas are an error.
func (g *Generator) Generate(routes []Route) (*Spec, error) {
	spec := &Spec{
		OpenAPI:    "3.1.0",
		Info:       g.info,
		Servers:    g.servers,
		Paths:      make(map[string]PathItem),
		Components: Components{Schemas: make(map[string]any)},
	}

	for _, name := range g.resolver.Names() {
		node, err := g.lookup(name)
		if err != nil {
			return nil, err
		}
		spec.Components.Schemas[name] = rewriteRefs(node.ToJSON())
	}

	tags := make(map[string]bool)
	for _, r := range routes {
		op, err := g.operation(r)
		if err != nil {
			return nil, fmt.Errorf("route %s %s: %w", r.Method, r.Path, err)
		}
		for _, t := range op.Tags {
			tags[t] = true
		}
		path := openAPIPath(r.Path)
		item := spec.Paths[path]
		switch strings.ToUpper(r.Method) {
		case http.MethodGet:
			item.Get = op
		case http.MethodPost:
			item.Post = op
		case http.MethodPut:
			item.Put = op
		case http.MethodPatch:
			item.Patch = op
		case http.MethodDelete:
			item.Delete = op
		default:
			return nil, fmt.Errorf("route %s %s: unsupported method", r.Method, r.Path)
		}
		spec.Paths[path] = item
	}

	for name := range tags {
		spec.Tags = append(spec.Tags, Tag{Name: name})
	}
	sort.Slice(spec.Tags, func(i, j int) bool { return spec.Tags[i].Name < spec.Tags[j].Name })

	return spec, nil
}

func (g *Generator) operation(r Route) (*Operation, error) {
	method := strings.ToUpper(r.Method)
	op := &Operation{
		Tags:        r.Tags,
		Summary:     r.Summary,
		Description: r.Description,
		OperationID: g.ids.Get(method, r.Path),
		Responses: map[string]Response{
			"400": {
				Description: "Request failed schema validation",
				Content:     map[string]MediaType{"application/vnd.api+json": {Schema: errorDocument}},
			},
			"502": {Description: "Upstream error"},
		},
	}
	if op.Summary == "" {
		op.Summary = method + " " + r.Path
	}
	if len(op.Tags) == 0 {
		op.Tags = []string{defaultTag(r.Path)}
	}

	for _, p := range extractBraceParams(r.Path) {
		op.Parameters = append(op.Parameters, Parameter{
			Name:     p,
			In:       "path",
			Required: true,
			Schema:   map[string]any{"type": "string"},
		})
	}

	if r.Query != "" {
		params, err := g.queryParameters(r.Query)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		op.Parameters = append(op.Parameters, params...)
	}

	if r.Body != "" {
		node, err := g.lookup(r.Body)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		op.RequestBody = &RequestBody{
			Required: true,
			Content: map[string]MediaType{
				"application/json": {
					Schema:  map[string]any{"$ref": componentPrefix + r.Body},
					Example: node.Template(schema.WithResolver(g.resolver)),
				},
			},
		}
		op.Responses["413"] = Response{Description: "Request body too large"}
	}

	ok := Response{Description: "Upstream response"}
	if r.Response != "" {
		node, err := g.lookup(r.Response)
		if err != nil {
			return nil, fmt.Errorf("response: %w", err)
		}
		ok.Content = map[string]MediaType{
			"application/json": {
				Schema:  map[string]any{"$ref": componentPrefix + r.Response},
				Example: node.Template(schema.WithResolver(g.resolver)),
			},
		}
	}
	op.Responses["200"] = ok

	return op, nil
}

// queryParameters expands an object schema into one parameter per property.
func (g *Generator) queryParameters(name string) ([]Parameter, error) {
	node, err := g.lookup(name)
	if err != nil {
		return nil, err
	}
	for node.Kind() == schema.KindRef {
		if node, err = g.resolver.Lookup(node.RefPointer()); err != nil {
			return nil, err
		}
	}
	if node.Kind() != schema.KindObject {
		return nil, fmt.Errorf("schema %q is %s, query schemas must be objects", name, node.Kind())
	}

	required := make(map[string]bool)
	for _, r := range node.Required() {
		required[r] = true
	}
	var params []Parameter
	for _, prop := range node.PropertyNames() {
		child, _ := node.Property(prop)
		params = append(params, Parameter{
			Name:        prop,
			In:          "query",
			Description: child.Description(),
			Required:    required[prop],
			Schema:      rewriteRefs(child.ToJSON()),
		})
	}
	return params, nil
}

func (g *Generator) lookup(name string) (*schema.Node, error) {
	return g.resolver.Lookup("#/$defs/" + name)
}

// rewriteRefs points local definition references at components.
func rewriteRefs(doc any) any {
	switch v := doc.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			if k == "$ref" {
				if ref, ok := child.(string); ok {
					out[k] = componentRef(ref)
					continue
				}
			}
			out[k] = rewriteRefs(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = rewriteRefs(child)
		}
		return out
	default:
		return v
	}
}

func componentRef(ref string) string {
	for _, prefix := range []string{"#/$defs/", "#/definitions/"} {
		if name, ok := strings.CutPrefix(ref, prefix); ok {
			return componentPrefix + name
		}
	}
	return ref
}

// extractBraceParams extracts parameter names from {param} syntax.
func extractBraceParams(path string) []string {
	var params []string
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			return params
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			return params
		}
		name := path[start+1 : start+end]
		// chi allows {name:regexp}
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[:i]
		}
		params = append(params, name)
		path = path[start+end+1:]
	}
}

// openAPIPath drops chi regexp constraints: /users/{id:[0-9]+} -> /users/{id}.
func openAPIPath(path string) string {
	for _, p := range extractBraceParams(path) {
		start := strings.Index(path, "{"+p+":")
		if start < 0 {
			continue
		}
		end := strings.IndexByte(path[start:], '}')
		path = path[:start] + "{" + p + "}" + path[start+end+1:]
	}
	return path
}

func defaultTag(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if seg != "" && !strings.HasPrefix(seg, "{") {
			return seg
		}
	}
	return "default"
}

// ToJSON returns the document as indented JSON.
func (spec *Spec) ToJSON() ([]byte, error) {
	return json.MarshalIndent(spec, "", "  ")
}

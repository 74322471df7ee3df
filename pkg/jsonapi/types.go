// Package jsonapi writes JSON:API (https://jsonapi.org) documents: schema
// collections and error responses.
package jsonapi

// ContentType is the JSON:API media type.
const ContentType = "application/vnd.api+json"

// Document is a top-level JSON:API document. It carries data or errors,
// never both.
type Document struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
	Meta   Meta    `json:"meta,omitempty"`
}

// Resource is a JSON:API resource object.
type Resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Links      *ResourceLinks `json:"links,omitempty"`
}

// ResourceLinks holds a resource's self link.
type ResourceLinks struct {
	Self string `json:"self,omitempty"`
}

// Error is a JSON:API error object.
type Error struct {
	Status string       `json:"status"`
	Code   string       `json:"code"`
	Title  string       `json:"title"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
	Meta   Meta         `json:"meta,omitempty"`
}

// ErrorSource locates the part of the request an error refers to.
// Pointer is a JSON Pointer into the body.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
	Header    string `json:"header,omitempty"`
}

// Meta holds non-standard members.
type Meta map[string]any

// ResourceBuilder assembles a Resource.
type ResourceBuilder struct {
	r Resource
}

// NewResource starts a resource of the given type and id.
func NewResource(typ, id string) *ResourceBuilder {
	return &ResourceBuilder{r: Resource{Type: typ, ID: id, Attributes: map[string]any{}}}
}

// Attr sets an attribute.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	b.r.Attributes[key] = value
	return b
}

// Link sets the self link.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.r.Links = &ResourceLinks{Self: self}
	return b
}

func (b *ResourceBuilder) Build() Resource { return b.r }

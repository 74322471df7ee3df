package schema

import (
	"regexp"
	"slices"
)

// ValidateFunc replaces the built-in validation of a node. Locations in the
// returned Result are relative to the node.
type ValidateFunc func(value any, opts Options) (Result, error)

// CoerceFunc replaces the built-in coercion of a node.
type CoerceFunc func(value any) any

// TemplateFunc replaces the built-in template generation of a node.
type TemplateFunc func(opts Options) any

// Node is an immutable schema. Use the builder functions or FromSchema to
// create one.
type Node struct {
	kind     Kind
	optional bool
	allow    bool // KindBool only

	id       string
	types    []string
	typeList bool // type was written as an array

	constVal   any
	hasConst   bool
	enum       []any
	hasEnum    bool
	defaultVal any
	hasDefault bool

	minLength *int
	maxLength *int
	pattern   *pattern

	multipleOf       *float64
	maximum          *float64
	exclusiveMaximum *float64
	minimum          *float64
	exclusiveMinimum *float64

	properties    []property
	required      []string
	patternProps  []patternProperty
	additional    *Node
	propertyNames *Node
	minProperties *int
	maxProperties *int

	prefixItems []*Node
	items       *Node
	contains    *Node
	minContains *int
	maxContains *int
	minItems    *int
	maxItems    *int
	uniqueItems *bool

	anyOf []*Node
	oneOf []*Node
	allOf []*Node
	ref   string

	extra map[string]any

	validateFn ValidateFunc
	coerceFn   CoerceFunc
	templateFn TemplateFunc

	err error // first error raised by an option
}

type property struct {
	name string
	node *Node
	// implied marks a placeholder for a required name that had no
	// property schema. It is never serialized and never exempts a key
	// from additionalProperties.
	implied bool
}

type patternProperty struct {
	pattern *pattern
	node    *Node
}

type pattern struct {
	source string
	re     *regexp.Regexp
}

// Kind returns the variant of the node.
func (n *Node) Kind() Kind { return n.kind }

// IsOptional reports whether the node is an optional object property.
func (n *Node) IsOptional() bool { return n.optional }

// ID returns the $id of the node, or "".
func (n *Node) ID() string { return n.id }

// Types returns the declared JSON types.
func (n *Node) Types() []string { return slices.Clone(n.types) }

// Required returns the required property names in declaration order.
func (n *Node) Required() []string { return slices.Clone(n.required) }

// Property returns the named property schema.
func (n *Node) Property(name string) (*Node, bool) {
	for _, p := range n.properties {
		if p.name == name {
			return p.node, true
		}
	}
	return nil, false
}

// PropertyNames returns the declared property names in order.
func (n *Node) PropertyNames() []string {
	names := make([]string, len(n.properties))
	for i, p := range n.properties {
		names[i] = p.name
	}
	return names
}

// Items returns the items schema of an array node.
func (n *Node) Items() *Node { return n.items }

// Branches returns the subschemas of an anyOf, oneOf or allOf node.
func (n *Node) Branches() []*Node {
	switch n.kind {
	case KindAnyOf:
		return slices.Clone(n.anyOf)
	case KindOneOf:
		return slices.Clone(n.oneOf)
	case KindAllOf:
		return slices.Clone(n.allOf)
	}
	return nil
}

// RefPointer returns the pointer of a ref node.
func (n *Node) RefPointer() string { return n.ref }

// Default returns the default value, if any.
func (n *Node) Default() (any, bool) { return cloneValue(n.defaultVal), n.hasDefault }

// Keyword returns a pass-through keyword carried by the node.
func (n *Node) Keyword(name string) (any, bool) {
	v, ok := n.extra[name]
	return v, ok
}

// Description returns the description annotation.
func (n *Node) Description() string {
	s, _ := n.extra["description"].(string)
	return s
}

// Optional returns a copy of n marked as an optional property.
func (n *Node) Optional() *Node {
	c := *n
	c.optional = true
	return &c
}

// WithID returns a copy of n with the given $id.
func (n *Node) WithID(id string) *Node {
	c := *n
	c.id = id
	return &c
}

func (n *Node) setExtra(name string, v any) {
	if n.extra == nil {
		n.extra = make(map[string]any)
	}
	n.extra[name] = v
}

func (n *Node) fail(err error) {
	if n.err == nil {
		n.err = err
	}
}

// finalize checks the node and derives computed state. It runs once, after
// all options have been applied.
func (n *Node) finalize(path []string) error {
	if n.err != nil {
		return n.err
	}
	if n.pattern != nil {
		if err := n.pattern.compile(); err != nil {
			return schemaError(ErrInvalidKeyword, "pattern", path, "%v", err)
		}
	}
	seen := make(map[string]bool, len(n.properties))
	n.required = n.required[:0:0]
	for _, p := range n.properties {
		if p.node == nil {
			return schemaError(ErrInvalidKeyword, "properties", appendPath(path, "properties", p.name), "nil schema")
		}
		if seen[p.name] {
			return schemaError(ErrInvalidKeyword, "properties", appendPath(path, "properties"), "duplicate property %q", p.name)
		}
		seen[p.name] = true
		if !p.node.optional {
			n.required = append(n.required, p.name)
		}
	}
	for _, pp := range n.patternProps {
		if pp.node == nil {
			return schemaError(ErrInvalidKeyword, "patternProperties", appendPath(path, "patternProperties", pp.pattern.source), "nil schema")
		}
		if err := pp.pattern.compile(); err != nil {
			return schemaError(ErrInvalidKeyword, "patternProperties", path, "%v", err)
		}
	}
	for i, child := range n.prefixItems {
		if child == nil {
			return schemaError(ErrInvalidKeyword, "prefixItems", appendPath(path, "prefixItems"), "nil schema at index %d", i)
		}
	}
	for _, group := range []struct {
		name     string
		branches []*Node
	}{{"anyOf", n.anyOf}, {"oneOf", n.oneOf}, {"allOf", n.allOf}} {
		for i, b := range group.branches {
			if b == nil {
				return schemaError(ErrInvalidKeyword, group.name, path, "nil schema at index %d", i)
			}
		}
	}
	if n.kind == KindAnyOf && len(n.anyOf) == 0 ||
		n.kind == KindOneOf && len(n.oneOf) == 0 ||
		n.kind == KindAllOf && len(n.allOf) == 0 {
		return schemaError(ErrInvalidKeyword, n.kind.String(), path, "at least one schema is required")
	}
	if n.hasEnum && len(n.enum) == 0 {
		return schemaError(ErrInvalidKeyword, "enum", path, "must not be empty")
	}
	if n.multipleOf != nil && *n.multipleOf <= 0 {
		return schemaError(ErrInvalidKeyword, "multipleOf", path, "must be greater than 0")
	}
	return nil
}

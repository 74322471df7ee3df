package schema

import (
	"fmt"
	"sort"
)

// Resolver maps $defs pointers to schemas. It is immutable and safe for
// concurrent use.
type Resolver struct {
	defs map[string]*Node
}

// NewResolver indexes defs by their $id. Every def must have a unique id.
func NewResolver(defs ...*Node) (*Resolver, error) {
	r := &Resolver{defs: make(map[string]*Node, len(defs))}
	for _, d := range defs {
		if d == nil || d.id == "" {
			return nil, schemaError(ErrMissingID, "$defs", nil, "every definition needs an $id")
		}
		if _, dup := r.defs[d.id]; dup {
			return nil, schemaError(ErrInvalidKeyword, "$defs", nil, "duplicate definition %q", d.id)
		}
		r.defs[d.id] = d
	}
	return r, nil
}

// NewNamedResolver indexes defs by the given names, which take precedence
// over any $id.
func NewNamedResolver(defs map[string]*Node) (*Resolver, error) {
	r := &Resolver{defs: make(map[string]*Node, len(defs))}
	for name, d := range defs {
		if d == nil {
			return nil, schemaError(ErrInvalidKeyword, "$defs", []string{"$defs", name}, "nil schema")
		}
		r.defs[name] = d
	}
	return r, nil
}

// Extend returns a new resolver holding the defs of r and other. Names
// defined by both are an error.
func (r *Resolver) Extend(other *Resolver) (*Resolver, error) {
	out := &Resolver{defs: make(map[string]*Node, r.Len()+other.Len())}
	for _, src := range []*Resolver{r, other} {
		if src == nil {
			continue
		}
		for name, d := range src.defs {
			if _, dup := out.defs[name]; dup {
				return nil, schemaError(ErrInvalidKeyword, "$defs", nil, "duplicate definition %q", name)
			}
			out.defs[name] = d
		}
	}
	return out, nil
}

// Len returns the number of definitions.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.defs)
}

// Names returns the definition names in sorted order.
func (r *Resolver) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the schema addressed by a "#/$defs/<name>" or
// "#/definitions/<name>" pointer. The result may itself be a ref.
func (r *Resolver) Lookup(ptr string) (*Node, error) {
	name, err := defName(ptr)
	if err != nil {
		return nil, err
	}
	if r != nil {
		if d, ok := r.defs[name]; ok {
			return d, nil
		}
	}
	return nil, schemaError(ErrRefNotFound, "$ref", nil, "%s", ptr)
}

// Document renders the definitions as {"$defs": {...}}.
func (r *Resolver) Document() map[string]any {
	defs := make(map[string]any, r.Len())
	if r != nil {
		for name, d := range r.defs {
			defs[name] = d.ToJSON()
		}
	}
	return map[string]any{"$defs": defs}
}

func defName(ptr string) (string, error) {
	segs, err := ParsePointer(ptr)
	if err != nil {
		return "", schemaError(ErrRefNotFound, "$ref", nil, "%v", err)
	}
	if len(segs) != 2 || segs[0] != "$defs" && segs[0] != "definitions" {
		return "", schemaError(ErrRefNotFound, "$ref", nil, "only #/$defs/<name> and #/definitions/<name> are supported, got %s", ptr)
	}
	return segs[1], nil
}

// refCache memoizes resolution for the duration of one call.
type refCache struct {
	resolver *Resolver
	nodes    map[string]*Node
}

func newRefCache(r *Resolver) *refCache {
	return &refCache{resolver: r, nodes: make(map[string]*Node)}
}

// resolve follows a chain of refs to a concrete schema. A pointer seen
// twice on the same chain is a cycle.
func (c *refCache) resolve(ptr string) (*Node, error) {
	if n, ok := c.nodes[ptr]; ok {
		return n, nil
	}
	if c.resolver == nil {
		return nil, schemaError(ErrRefNotFound, "$ref", nil, "no resolver configured for %s", ptr)
	}
	seen := map[string]bool{}
	cur := ptr
	for {
		if seen[cur] {
			return nil, schemaError(ErrRefCycle, "$ref", nil, "%s", chain(seen, cur))
		}
		seen[cur] = true
		target, err := c.resolver.Lookup(cur)
		if err != nil {
			return nil, err
		}
		if target.kind != KindRef || target.validateFn != nil {
			c.nodes[ptr] = target
			return target, nil
		}
		cur = target.ref
	}
}

func chain(seen map[string]bool, last string) string {
	ptrs := make([]string, 0, len(seen))
	for p := range seen {
		ptrs = append(ptrs, p)
	}
	sort.Strings(ptrs)
	return fmt.Sprintf("%v revisits %s", ptrs, last)
}

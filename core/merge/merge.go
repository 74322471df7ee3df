// Package merge flattens allOf in plain JSON Schema documents.
//
// Documents are the generic values produced by encoding/json: map[string]any
// objects, []any arrays, and bool schemas. Inputs are never modified.
package merge

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrIncompatible matches every *IncompatibleError.
var ErrIncompatible = errors.New("incompatible schemas")

// IncompatibleError reports two values of a keyword that have no common
// ground, such as disjoint types.
type IncompatibleError struct {
	Keyword string
	Left    any
	Right   any
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("cannot merge %s: %v and %v have no overlap", e.Keyword, e.Left, e.Right)
}

func (e *IncompatibleError) Is(target error) bool {
	return target == ErrIncompatible
}

type options struct {
	deep bool
}

// Option configures AllOf.
type Option func(*options)

// Shallow merges only the allOf at the root of the document.
func Shallow() Option {
	return func(o *options) { o.deep = false }
}

// AllOf returns doc with allOf merged into its parent. By default nested
// subschemas are flattened first, innermost allOf first. A false branch
// makes the whole result false.
func AllOf(doc any, opts ...Option) (any, error) {
	o := options{deep: true}
	for _, opt := range opts {
		opt(&o)
	}
	return mergeAllOf(doc, o)
}

func mergeAllOf(doc any, o options) (any, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return clone(doc), nil
	}
	if o.deep {
		var err error
		if m, err = flattenChildren(m, o); err != nil {
			return nil, err
		}
	}
	raw, has := m["allOf"]
	if !has {
		return clone(m), nil
	}
	branches, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("allOf must be an array, got %T", raw)
	}

	var merged any = true
	for i, b := range branches {
		if o.deep {
			var err error
			if b, err = mergeAllOf(b, o); err != nil {
				return nil, fmt.Errorf("allOf/%d: %w", i, err)
			}
		}
		var err error
		if merged, err = Schemas(merged, b); err != nil {
			return nil, fmt.Errorf("allOf/%d: %w", i, err)
		}
		if merged == false {
			return false, nil
		}
	}

	siblings := make(map[string]any, len(m))
	for k, v := range m {
		if k != "allOf" {
			siblings[k] = v
		}
	}
	if len(siblings) == 0 {
		return merged, nil
	}
	return Schemas(merged, siblings)
}

// subschemaMaps, subschemaSingles and subschemaLists name the keywords
// whose values hold schemas.
var (
	subschemaMaps    = []string{"properties", "patternProperties", "$defs", "definitions", "dependentSchemas"}
	subschemaSingles = []string{"items", "additionalProperties", "propertyNames", "contains", "not", "if", "then", "else", "unevaluatedProperties", "unevaluatedItems"}
	subschemaLists   = []string{"prefixItems", "anyOf", "oneOf"}
)

// flattenChildren returns a copy of m whose subschemas have had their allOf
// merged.
func flattenChildren(m map[string]any, o options) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range subschemaMaps {
		children, ok := out[k].(map[string]any)
		if !ok {
			continue
		}
		flat := make(map[string]any, len(children))
		for name, child := range children {
			c, err := mergeAllOf(child, o)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", k, name, err)
			}
			flat[name] = c
		}
		out[k] = flat
	}
	for _, k := range subschemaSingles {
		child, ok := out[k]
		if !ok {
			continue
		}
		c, err := mergeAllOf(child, o)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = c
	}
	for _, k := range subschemaLists {
		children, ok := out[k].([]any)
		if !ok {
			continue
		}
		flat := make([]any, len(children))
		for i, child := range children {
			c, err := mergeAllOf(child, o)
			if err != nil {
				return nil, fmt.Errorf("%s/%d: %w", k, i, err)
			}
			flat[i] = c
		}
		out[k] = flat
	}
	return out, nil
}

// Schemas merges two schema documents into one that accepts only values
// both accept, as far as the keywords allow.
func Schemas(a, b any) (any, error) {
	if a == false || b == false {
		return false, nil
	}
	if a == true {
		return clone(b), nil
	}
	if b == true {
		return clone(a), nil
	}
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if !aok || !bok {
		return clone(b), nil
	}
	return mergeObjects(am, bm)
}

func mergeObjects(a, b map[string]any) (map[string]any, error) {
	out := clone(a).(map[string]any)
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		av, has := out[k]
		if !has {
			out[k] = clone(b[k])
			continue
		}
		v, err := mergeKeyword(k, av, b[k])
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func mergeKeyword(k string, a, b any) (any, error) {
	switch k {
	case "type":
		return intersectTypes(a, b)
	case "enum":
		return intersectEnum(a, b)
	case "required":
		return union(a, b), nil
	case "properties", "patternProperties", "$defs", "definitions", "dependentSchemas":
		return mergeSchemaMaps(k, a, b)
	case "maximum", "exclusiveMaximum", "maxLength", "maxItems", "maxProperties", "maxContains":
		return pickNumber(k, a, b, math.Min)
	case "minimum", "exclusiveMinimum", "minLength", "minItems", "minProperties", "minContains":
		return pickNumber(k, a, b, math.Max)
	}
	if aa, ok := a.([]any); ok {
		if ba, ok := b.([]any); ok {
			return union(aa, ba), nil
		}
	}
	if am, ok := a.(map[string]any); ok {
		if bm, ok := b.(map[string]any); ok {
			return mergeObjects(am, bm)
		}
	}
	return clone(b), nil
}

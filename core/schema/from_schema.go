package schema

import (
	"strings"
)

// FromSchema lifts a plain JSON Schema document, as decoded by
// encoding/json or yaml.v3, into a Node.
//
// Properties not listed in required become optional. Names listed in
// required without a property schema get an unconstrained placeholder so the
// requirement survives; ToJSON leaves it out. Keywords this package does not model are carried
// through and fail at validation time if they affect validation.
func FromSchema(doc any) (*Node, error) {
	if _, ok := doc.(bool); ok {
		return nil, schemaError(ErrNotImplemented, "", nil, "boolean schema at the document root")
	}
	return fromSchema(normalize(doc), nil)
}

// FromDocument is FromSchema for documents that carry their definitions in
// a root $defs or definitions map. It returns the root schema and a
// resolver over the definitions.
func FromDocument(doc any) (*Node, *Resolver, error) {
	m, ok := normalize(doc).(map[string]any)
	if !ok {
		n, err := FromSchema(doc)
		return n, nil, err
	}
	root := make(map[string]any, len(m))
	defs := make(map[string]*Node)
	for k, v := range m {
		if k != "$defs" && k != "definitions" {
			root[k] = v
			continue
		}
		raw, ok := v.(map[string]any)
		if !ok {
			return nil, nil, schemaError(ErrInvalidKeyword, k, nil, "must be an object")
		}
		for _, name := range sortedKeys(raw) {
			if _, dup := defs[name]; dup {
				return nil, nil, schemaError(ErrInvalidKeyword, k, []string{k, name}, "defined in both $defs and definitions")
			}
			d, err := fromChild(raw[name], []string{k, name})
			if err != nil {
				return nil, nil, err
			}
			defs[name] = d
		}
	}
	resolver, err := NewNamedResolver(defs)
	if err != nil {
		return nil, nil, err
	}
	n, err := fromSchema(root, nil)
	if err != nil {
		return nil, nil, err
	}
	return n, resolver, nil
}

func fromChild(doc any, path []string) (*Node, error) {
	if b, ok := doc.(bool); ok {
		if b {
			return True(), nil
		}
		return False(), nil
	}
	return fromSchema(doc, path)
}

func fromSchema(doc any, path []string) (*Node, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, schemaError(ErrInvalidKeyword, "", path, "schema must be an object or boolean, got %T", doc)
	}
	n, err := classify(m, path)
	if err != nil {
		return nil, err
	}
	for _, k := range sortedKeys(m) {
		if err := n.setKeyword(k, m[k], path); err != nil {
			return nil, err
		}
	}
	if err := n.setProperties(m, path); err != nil {
		return nil, err
	}
	if err := n.finalize(path); err != nil {
		return nil, err
	}
	return n, nil
}

// classify picks the node kind: type first, then combinators, $ref, const
// and enum. Documents with only annotations are unconstrained.
func classify(m map[string]any, path []string) (*Node, error) {
	if raw, ok := m["type"]; ok {
		types, list, err := parseTypes(raw, path)
		if err != nil {
			return nil, err
		}
		if len(types) > 1 {
			return &Node{kind: KindAny, types: types, typeList: true}, nil
		}
		if types[0] == "null" && len(path) == 0 {
			return nil, schemaError(ErrNotImplemented, "type", path, "a null schema cannot be the document root")
		}
		kind, _ := kindForType(types[0])
		return &Node{kind: kind, types: types, typeList: list}, nil
	}
	for _, c := range []struct {
		key  string
		kind Kind
	}{{"anyOf", KindAnyOf}, {"oneOf", KindOneOf}, {"allOf", KindAllOf}, {"$ref", KindRef}, {"const", KindLiteral}, {"enum", KindAny}} {
		if _, ok := m[c.key]; ok {
			return &Node{kind: c.kind}, nil
		}
	}
	for k := range m {
		if !isAnnotation(k) {
			return nil, schemaError(ErrNotImplemented, k, path, "schemas without a type must use anyOf, oneOf, allOf, $ref, const or enum")
		}
	}
	return &Node{kind: KindAny}, nil
}

var annotations = map[string]bool{
	"$id": true, "$schema": true, "$comment": true, "$anchor": true,
	"title": true, "description": true, "default": true, "examples": true,
	"deprecated": true, "readOnly": true, "writeOnly": true, "format": true,
	"contentMediaType": true, "contentEncoding": true,
}

func isAnnotation(k string) bool {
	return annotations[k] || strings.HasPrefix(k, "x-")
}

func parseTypes(raw any, path []string) ([]string, bool, error) {
	var names []any
	list := false
	switch t := raw.(type) {
	case string:
		names = []any{t}
	case []any:
		names, list = t, true
	default:
		return nil, false, schemaError(ErrInvalidKeyword, "type", path, "must be a string or an array of strings")
	}
	if len(names) == 0 {
		return nil, false, schemaError(ErrInvalidKeyword, "type", path, "must not be empty")
	}
	types := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, v := range names {
		s, ok := v.(string)
		if !ok {
			return nil, false, schemaError(ErrInvalidKeyword, "type", path, "must be a string or an array of strings")
		}
		if _, known := kindForType(s); !known {
			return nil, false, schemaError(ErrInvalidKeyword, "type", path, "unknown type %q", s)
		}
		if !seen[s] {
			seen[s] = true
			types = append(types, s)
		}
	}
	return types, list, nil
}

// setKeyword stores one keyword of a decoded document. properties and
// required are handled together by setProperties.
func (n *Node) setKeyword(k string, v any, path []string) error {
	var err error
	switch k {
	case "type", "properties", "required":
		return nil
	case "$id":
		n.id, err = stringKeyword(k, v, path)
	case "$ref":
		if n.kind != KindRef {
			n.setExtra(k, v)
			return nil
		}
		n.ref, err = stringKeyword(k, v, path)
	case "const":
		n.constVal, n.hasConst = v, true
	case "enum":
		arr, ok := v.([]any)
		if !ok {
			return schemaError(ErrInvalidKeyword, k, path, "must be an array")
		}
		n.enum, n.hasEnum = arr, true
	case "default":
		n.defaultVal, n.hasDefault = v, true
	case "minLength":
		n.minLength, err = countKeyword(k, v, path)
	case "maxLength":
		n.maxLength, err = countKeyword(k, v, path)
	case "minProperties":
		n.minProperties, err = countKeyword(k, v, path)
	case "maxProperties":
		n.maxProperties, err = countKeyword(k, v, path)
	case "minItems":
		n.minItems, err = countKeyword(k, v, path)
	case "maxItems":
		n.maxItems, err = countKeyword(k, v, path)
	case "minContains":
		n.minContains, err = countKeyword(k, v, path)
	case "maxContains":
		n.maxContains, err = countKeyword(k, v, path)
	case "pattern":
		var s string
		if s, err = stringKeyword(k, v, path); err == nil {
			n.pattern = &pattern{source: s}
		}
	case "multipleOf":
		n.multipleOf, err = numberKeyword(k, v, path)
	case "maximum":
		n.maximum, err = numberKeyword(k, v, path)
	case "exclusiveMaximum":
		n.exclusiveMaximum, err = numberKeyword(k, v, path)
	case "minimum":
		n.minimum, err = numberKeyword(k, v, path)
	case "exclusiveMinimum":
		n.exclusiveMinimum, err = numberKeyword(k, v, path)
	case "uniqueItems":
		b, ok := v.(bool)
		if !ok {
			return schemaError(ErrInvalidKeyword, k, path, "must be a boolean")
		}
		n.uniqueItems = &b
	case "patternProperties":
		raw, ok := v.(map[string]any)
		if !ok {
			return schemaError(ErrInvalidKeyword, k, path, "must be an object")
		}
		for _, re := range sortedKeys(raw) {
			child, err := fromChild(raw[re], appendPath(path, k, re))
			if err != nil {
				return err
			}
			n.patternProps = append(n.patternProps, patternProperty{pattern: &pattern{source: re}, node: child})
		}
	case "additionalProperties":
		n.additional, err = schemaKeyword(k, v, path)
	case "propertyNames":
		n.propertyNames, err = schemaKeyword(k, v, path)
	case "items":
		n.items, err = schemaKeyword(k, v, path)
	case "contains":
		n.contains, err = schemaKeyword(k, v, path)
	case "prefixItems":
		n.prefixItems, err = schemaListKeyword(k, v, path)
	case "anyOf":
		n.anyOf, err = schemaListKeyword(k, v, path)
	case "oneOf":
		n.oneOf, err = schemaListKeyword(k, v, path)
	case "allOf":
		n.allOf, err = schemaListKeyword(k, v, path)
	default:
		n.setExtra(k, v)
	}
	return err
}

func (n *Node) setProperties(m map[string]any, path []string) error {
	props := map[string]any{}
	if raw, ok := m["properties"]; ok {
		if props, ok = raw.(map[string]any); !ok {
			return schemaError(ErrInvalidKeyword, "properties", path, "must be an object")
		}
	}
	var required []string
	requiredSet := map[string]bool{}
	if raw, ok := m["required"]; ok {
		arr, ok := raw.([]any)
		if !ok {
			return schemaError(ErrInvalidKeyword, "required", path, "must be an array of strings")
		}
		for _, v := range arr {
			name, ok := v.(string)
			if !ok {
				return schemaError(ErrInvalidKeyword, "required", path, "must be an array of strings")
			}
			if !requiredSet[name] {
				requiredSet[name] = true
				required = append(required, name)
			}
		}
	}
	for _, name := range required {
		raw, ok := props[name]
		if !ok {
			n.properties = append(n.properties, property{name: name, node: Any(), implied: true})
			continue
		}
		child, err := fromChild(raw, appendPath(path, "properties", name))
		if err != nil {
			return err
		}
		n.properties = append(n.properties, property{name: name, node: child})
	}
	for _, name := range sortedKeys(props) {
		if requiredSet[name] {
			continue
		}
		child, err := fromChild(props[name], appendPath(path, "properties", name))
		if err != nil {
			return err
		}
		n.properties = append(n.properties, property{name: name, node: child.Optional()})
	}
	return nil
}

func stringKeyword(k string, v any, path []string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", schemaError(ErrInvalidKeyword, k, path, "must be a string")
	}
	return s, nil
}

func numberKeyword(k string, v any, path []string) (*float64, error) {
	f, ok := toFloat64(v)
	if !ok {
		return nil, schemaError(ErrInvalidKeyword, k, path, "must be a number")
	}
	return &f, nil
}

func countKeyword(k string, v any, path []string) (*int, error) {
	f, ok := toFloat64(v)
	if !ok || !isInteger(f) || f < 0 {
		return nil, schemaError(ErrInvalidKeyword, k, path, "must be a non-negative integer")
	}
	i := int(f)
	return &i, nil
}

func schemaKeyword(k string, v any, path []string) (*Node, error) {
	switch v.(type) {
	case bool, map[string]any:
		return fromChild(v, appendPath(path, k))
	}
	return nil, schemaError(ErrInvalidKeyword, k, path, "must be a schema, got %T", v)
}

func schemaListKeyword(k string, v any, path []string) ([]*Node, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, schemaError(ErrInvalidKeyword, k, path, "must be an array of schemas")
	}
	out := make([]*Node, len(arr))
	for i, raw := range arr {
		child, err := fromChild(raw, appendPath(path, k, itoa(i)))
		if err != nil {
			return nil, err
		}
		out[i] = child
	}
	return out, nil
}

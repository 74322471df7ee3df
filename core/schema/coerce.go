package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Coerce converts a loosely typed value, such as a query string parameter,
// into the shape the schema describes. Values that cannot be converted are
// returned unchanged so that validation reports them. Coerce never fails.
func (n *Node) Coerce(value any, opts ...CallOption) any {
	o := newOptions(opts)
	return coerceNode(n, value, newRefCache(o.Resolver))
}

func coerceNode(n *Node, value any, refs *refCache) any {
	if n.coerceFn != nil {
		return n.coerceFn(value)
	}
	switch n.kind {
	case KindString:
		return coerceString(value)
	case KindNumber:
		return coerceNumber(value, false)
	case KindInteger:
		return coerceNumber(value, true)
	case KindBoolean:
		return truthy(value)
	case KindArray:
		return coerceArray(n, value, refs)
	case KindObject:
		return coerceObject(n, value, refs)
	case KindRef:
		target, err := refs.resolve(n.ref)
		if err != nil {
			return value
		}
		return coerceNode(target, value, refs)
	}
	return value
}

func coerceString(value any) any {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	}
	if f, ok := toFloat64(value); ok {
		return formatNumber(f)
	}
	return value
}

func coerceNumber(value any, integer bool) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return value
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return value
	}
	if integer {
		return math.Trunc(f)
	}
	return f
}

// truthy follows the usual scripting truthiness rules: nil, false, zero,
// NaN and the empty string are false.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	}
	if f, ok := toFloat64(value); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// ParseBoolString reads "true", "1", "yes" and "on" as true, case
// insensitively. Use it with OverrideCoerce where truthiness is too loose.
func ParseBoolString(value any) any {
	s, ok := value.(string)
	if !ok {
		return truthy(value)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off", "":
		return false
	}
	return value
}

func coerceArray(n *Node, value any, refs *refCache) any {
	arr, ok := asArray(value)
	if !ok {
		s, isString := value.(string)
		if !isString {
			return nil
		}
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return nil
		}
		if arr, ok = parsed.([]any); !ok {
			return nil
		}
	}
	out := make([]any, len(arr))
	for i, el := range arr {
		child := n.items
		if i < len(n.prefixItems) {
			child = n.prefixItems[i]
		}
		if child == nil {
			out[i] = el
			continue
		}
		out[i] = coerceNode(child, el, refs)
	}
	return out
}

func coerceObject(n *Node, value any, refs *refCache) any {
	obj, ok := asObject(value)
	if !ok {
		s, isString := value.(string)
		if !isString {
			return value
		}
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return value
		}
		if obj, ok = parsed.(map[string]any); !ok {
			return value
		}
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	for _, p := range n.properties {
		if v, has := out[p.name]; has {
			out[p.name] = coerceNode(p.node, v, refs)
		}
	}
	return out
}

package merge

import (
	"encoding/json"
	"fmt"
)

func typeSet(v any) ([]string, bool) {
	switch t := v.(type) {
	case string:
		return []string{t}, true
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			s, ok := el.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// intersectTypes keeps the types both sides allow. integer is a subset of
// number, so number and integer meet at integer.
func intersectTypes(a, b any) (any, error) {
	left, lok := typeSet(a)
	right, rok := typeSet(b)
	if !lok || !rok {
		return nil, fmt.Errorf("type must be a string or an array of strings")
	}
	has := func(set []string, t string) bool {
		for _, s := range set {
			if s == t {
				return true
			}
		}
		return false
	}
	var out []string
	add := func(t string) {
		if !has(out, t) {
			out = append(out, t)
		}
	}
	for _, t := range left {
		switch {
		case has(right, t):
			add(t)
		case t == "number" && has(right, "integer"):
			add("integer")
		case t == "integer" && has(right, "number"):
			add("integer")
		}
	}
	switch len(out) {
	case 0:
		return nil, &IncompatibleError{Keyword: "type", Left: a, Right: b}
	case 1:
		return out[0], nil
	}
	list := make([]any, len(out))
	for i, t := range out {
		list[i] = t
	}
	return list, nil
}

func intersectEnum(a, b any) (any, error) {
	left, lok := a.([]any)
	right, rok := b.([]any)
	if !lok || !rok {
		return nil, fmt.Errorf("enum must be an array")
	}
	want := make(map[string]bool, len(right))
	for _, v := range right {
		want[key(v)] = true
	}
	out := []any{}
	for _, v := range left {
		if want[key(v)] {
			out = append(out, clone(v))
		}
	}
	if len(out) == 0 {
		return nil, &IncompatibleError{Keyword: "enum", Left: a, Right: b}
	}
	return out, nil
}

// union concatenates two arrays, dropping values already present.
func union(a, b any) any {
	left, _ := a.([]any)
	right, _ := b.([]any)
	seen := make(map[string]bool, len(left)+len(right))
	out := make([]any, 0, len(left)+len(right))
	for _, list := range [][]any{left, right} {
		for _, v := range list {
			k := key(v)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, clone(v))
		}
	}
	return out
}

func mergeSchemaMaps(k string, a, b any) (any, error) {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if !aok || !bok {
		return nil, fmt.Errorf("%s must be an object", k)
	}
	out := clone(am).(map[string]any)
	for name, bv := range bm {
		av, has := out[name]
		if !has {
			out[name] = clone(bv)
			continue
		}
		merged, err := Schemas(av, bv)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", k, name, err)
		}
		out[name] = merged
	}
	return out, nil
}

// pickNumber keeps whichever bound pick selects, preserving its original
// representation.
func pickNumber(k string, a, b any, pick func(x, y float64) float64) (any, error) {
	x, xok := number(a)
	y, yok := number(b)
	if !xok || !yok {
		return nil, fmt.Errorf("%s must be a number", k)
	}
	if pick(x, y) == x {
		return a, nil
	}
	return b, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// key renders v canonically for equality checks. encoding/json sorts map
// keys, and numbers of any Go type render the same.
func key(v any) string {
	if f, ok := number(v); ok {
		v = f
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(b)
}

func clone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, el := range x {
			out[k] = clone(el)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = clone(el)
		}
		return out
	}
	return v
}

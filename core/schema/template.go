package schema

import "math"

// maxTemplateDepth bounds ref expansion for self-referencing schemas.
const maxTemplateDepth = 32

// Template generates a value that matches the schema's shape: the default
// if one is set, otherwise the const, otherwise a zero value for the kind.
// Optional properties are left out unless WithOptionalFields is given.
func (n *Node) Template(opts ...CallOption) any {
	o := newOptions(opts)
	return templateNode(n, o, newRefCache(o.Resolver), 0)
}

func templateNode(n *Node, o Options, refs *refCache, depth int) any {
	if n.templateFn != nil {
		return n.templateFn(o)
	}
	if n.hasDefault {
		return cloneValue(n.defaultVal)
	}
	if n.hasConst {
		return cloneValue(n.constVal)
	}
	switch n.kind {
	case KindString:
		return ""
	case KindNumber:
		return numberTemplate(n, false)
	case KindInteger:
		return numberTemplate(n, true)
	case KindBoolean:
		return false
	case KindArray:
		return []any{}
	case KindObject:
		out := make(map[string]any, len(n.properties))
		for _, p := range n.properties {
			if p.node.optional && !o.WithOptional {
				continue
			}
			out[p.name] = templateNode(p.node, o, refs, depth)
		}
		return out
	case KindAnyOf:
		return templateNode(n.anyOf[0], o, refs, depth)
	case KindOneOf:
		return templateNode(n.oneOf[0], o, refs, depth)
	case KindAllOf:
		return allOfTemplate(n, o, refs, depth)
	case KindRef:
		if depth >= maxTemplateDepth {
			return nil
		}
		target, err := refs.resolve(n.ref)
		if err != nil {
			return nil
		}
		return templateNode(target, o, refs, depth+1)
	}
	return nil
}

func numberTemplate(n *Node, integer bool) float64 {
	switch {
	case n.minimum != nil:
		if integer {
			return math.Ceil(*n.minimum)
		}
		return *n.minimum
	case n.exclusiveMinimum != nil:
		return math.Floor(*n.exclusiveMinimum) + 1
	}
	return 0
}

// allOfTemplate merges the object templates of all branches. A branch that
// does not produce an object replaces what came before it.
func allOfTemplate(n *Node, o Options, refs *refCache, depth int) any {
	var out any
	for _, b := range n.allOf {
		t := templateNode(b, o, refs, depth)
		tm, isMap := t.(map[string]any)
		om, outIsMap := out.(map[string]any)
		switch {
		case isMap && outIsMap:
			for k, v := range tm {
				om[k] = v
			}
		case t != nil || out == nil:
			out = t
		}
	}
	return out
}

package schema

import (
	"strings"
)

// keyword is one entry of the ordered keyword table.
type keyword struct {
	name     string
	group    string // "" applies to every type
	present  func(n *Node) bool
	validate func(n *Node, value any, st *state) (Result, error)
}

func (k *keyword) appliesTo(types []string) bool {
	if k.group == "" || len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == k.group || k.group == "number" && t == "integer" {
			return true
		}
	}
	return false
}

// keywordTable lists every supported keyword in evaluation order. It is
// filled in init because validators recurse through dispatch.
var keywordTable []keyword

func init() {
	keywordTable = []keyword{
		{"type", "", func(n *Node) bool { return len(n.types) > 0 }, validateType},
		{"const", "", func(n *Node) bool { return n.hasConst }, validateConst},
		{"enum", "", func(n *Node) bool { return n.hasEnum }, validateEnum},

		{"minLength", "string", func(n *Node) bool { return n.minLength != nil }, validateMinLength},
		{"maxLength", "string", func(n *Node) bool { return n.maxLength != nil }, validateMaxLength},
		{"pattern", "string", func(n *Node) bool { return n.pattern != nil }, validatePattern},

		{"multipleOf", "number", func(n *Node) bool { return n.multipleOf != nil }, validateMultipleOf},
		{"maximum", "number", func(n *Node) bool { return n.maximum != nil }, validateMaximum},
		{"exclusiveMaximum", "number", func(n *Node) bool { return n.exclusiveMaximum != nil }, validateExclusiveMaximum},
		{"minimum", "number", func(n *Node) bool { return n.minimum != nil }, validateMinimum},
		{"exclusiveMinimum", "number", func(n *Node) bool { return n.exclusiveMinimum != nil }, validateExclusiveMinimum},

		{"required", "object", func(n *Node) bool { return len(n.required) > 0 }, validateRequired},
		{"minProperties", "object", func(n *Node) bool { return n.minProperties != nil }, validateMinProperties},
		{"maxProperties", "object", func(n *Node) bool { return n.maxProperties != nil }, validateMaxProperties},
		{"properties", "object", func(n *Node) bool { return n.hasDeclaredProperties() }, validateProperties},
		{"patternProperties", "object", func(n *Node) bool { return len(n.patternProps) > 0 }, validatePatternProperties},
		{"additionalProperties", "object", func(n *Node) bool { return n.additional != nil }, validateAdditionalProperties},
		{"propertyNames", "object", func(n *Node) bool { return n.propertyNames != nil }, validatePropertyNames},

		{"prefixItems", "array", func(n *Node) bool { return len(n.prefixItems) > 0 }, validatePrefixItems},
		{"items", "array", func(n *Node) bool { return n.items != nil }, validateItems},
		{"minItems", "array", func(n *Node) bool { return n.minItems != nil }, validateMinItems},
		{"maxItems", "array", func(n *Node) bool { return n.maxItems != nil }, validateMaxItems},
		{"uniqueItems", "array", func(n *Node) bool { return n.uniqueItems != nil && *n.uniqueItems }, validateUniqueItems},
		{"contains", "array", func(n *Node) bool { return n.contains != nil }, validateContains},

		{"allOf", "", func(n *Node) bool { return len(n.allOf) > 0 }, validateAllOf},
		{"anyOf", "", func(n *Node) bool { return len(n.anyOf) > 0 }, validateAnyOf},
		{"oneOf", "", func(n *Node) bool { return len(n.oneOf) > 0 }, validateOneOf},
	}
}

func validateType(n *Node, value any, st *state) (Result, error) {
	for _, t := range n.types {
		if hasType(value, t) {
			return validResult(), nil
		}
	}
	return st.fail("type", value, "Expected %s", strings.Join(n.types, " or ")), nil
}

func hasType(v any, t string) bool {
	switch t {
	case "null":
		return v == nil
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		_, ok := toFloat64(v)
		return ok
	case "integer":
		f, ok := toFloat64(v)
		return ok && isInteger(f)
	case "array":
		_, ok := asArray(v)
		return ok
	case "object":
		_, ok := asObject(v)
		return ok
	}
	return false
}

func validateConst(n *Node, value any, st *state) (Result, error) {
	if equalValues(n.constVal, value) {
		return validResult(), nil
	}
	return st.fail("const", value, "Expected value to equal %s", canonical(n.constVal)), nil
}

func validateEnum(n *Node, value any, st *state) (Result, error) {
	want := canonical(value)
	options := make([]string, len(n.enum))
	for i, e := range n.enum {
		options[i] = canonical(e)
		if options[i] == want {
			return validResult(), nil
		}
	}
	return st.fail("enum", value, "Expected value to be one of %s", strings.Join(options, ", ")), nil
}

func validateAllOf(n *Node, value any, st *state) (Result, error) {
	res := validResult()
	for i, b := range n.allOf {
		r, err := validateNode(b, value, st.at([]string{"allOf", itoa(i)}))
		if err != nil {
			return Result{}, err
		}
		res.Merge(r)
		if !res.Valid && st.opts.ShortCircuit {
			return res, nil
		}
	}
	return res, nil
}

func validateAnyOf(n *Node, value any, st *state) (Result, error) {
	probe := st.probe()
	for i, b := range n.anyOf {
		r, err := validateNode(b, value, probe.at([]string{"anyOf", itoa(i)}))
		if err != nil {
			return Result{}, err
		}
		if r.Valid {
			return validResult(), nil
		}
	}
	return st.fail("anyOf", value, "Expected value to match at least one schema in anyOf"), nil
}

func validateOneOf(n *Node, value any, st *state) (Result, error) {
	probe := st.probe()
	matched := 0
	for i, b := range n.oneOf {
		r, err := validateNode(b, value, probe.at([]string{"oneOf", itoa(i)}))
		if err != nil {
			return Result{}, err
		}
		if r.Valid {
			matched++
		}
	}
	if matched == 1 {
		return validResult(), nil
	}
	return st.fail("oneOf", value, "Expected value to match exactly one schema in oneOf, matched %d", matched), nil
}

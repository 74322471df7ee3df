package schema

import "strings"

func validateRequired(n *Node, value any, st *state) (Result, error) {
	obj, ok := asObject(value)
	if !ok {
		return Result{}, errInvalidType
	}
	for _, name := range n.required {
		v, has := obj[name]
		if !has || isFunc(v) {
			return st.fail("required", value, "Expected object with required properties %s", strings.Join(n.required, ", ")), nil
		}
	}
	return validResult(), nil
}

func validateMinProperties(n *Node, value any, st *state) (Result, error) {
	obj, ok := asObject(value)
	if !ok {
		return Result{}, errInvalidType
	}
	if len(obj) < *n.minProperties {
		return st.fail("minProperties", value, "Expected object with at least %d properties", *n.minProperties), nil
	}
	return validResult(), nil
}

func validateMaxProperties(n *Node, value any, st *state) (Result, error) {
	obj, ok := asObject(value)
	if !ok {
		return Result{}, errInvalidType
	}
	if len(obj) > *n.maxProperties {
		return st.fail("maxProperties", value, "Expected object with at most %d properties", *n.maxProperties), nil
	}
	return validResult(), nil
}

func validateProperties(n *Node, value any, st *state) (Result, error) {
	obj, ok := asObject(value)
	if !ok {
		return Result{}, errInvalidType
	}
	res := validResult()
	for _, p := range n.properties {
		v, has := obj[p.name]
		if !has || p.implied {
			continue
		}
		r, err := validateNode(p.node, v, st.at([]string{"properties", p.name}, p.name))
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

func validatePatternProperties(n *Node, value any, st *state) (Result, error) {
	obj, ok := asObject(value)
	if !ok {
		return Result{}, errInvalidType
	}
	res := validResult()
	for _, k := range sortedKeys(obj) {
		for _, pp := range n.patternProps {
			if !pp.pattern.re.MatchString(k) {
				continue
			}
			r, err := validateNode(pp.node, obj[k], st.at([]string{"patternProperties", pp.pattern.source}, k))
			if err != nil {
				return Result{}, err
			}
			res.Merge(r)
			if !res.Valid && st.opts.ShortCircuit {
				return res, nil
			}
		}
	}
	return res, nil
}

func validateAdditionalProperties(n *Node, value any, st *state) (Result, error) {
	obj, ok := asObject(value)
	if !ok {
		return Result{}, errInvalidType
	}
	res := validResult()
	for _, k := range sortedKeys(obj) {
		if n.declares(k) {
			continue
		}
		r, err := validateNode(n.additional, obj[k], st.at([]string{"additionalProperties"}, k))
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

func (n *Node) hasDeclaredProperties() bool {
	for _, p := range n.properties {
		if !p.implied {
			return true
		}
	}
	return false
}

// declares reports whether name is covered by properties or
// patternProperties.
func (n *Node) declares(name string) bool {
	for _, p := range n.properties {
		if p.name == name && !p.implied {
			return true
		}
	}
	for _, pp := range n.patternProps {
		if pp.pattern.re.MatchString(name) {
			return true
		}
	}
	return false
}

func validatePropertyNames(n *Node, value any, st *state) (Result, error) {
	obj, ok := asObject(value)
	if !ok {
		return Result{}, errInvalidType
	}
	res := validResult()
	for _, k := range sortedKeys(obj) {
		r, err := validateNode(n.propertyNames, k, st.at([]string{"propertyNames"}, k))
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

package schema

import "strconv"

func itoa(i int) string { return strconv.Itoa(i) }

func validatePrefixItems(n *Node, value any, st *state) (Result, error) {
	arr, ok := asArray(value)
	if !ok {
		return Result{}, errInvalidType
	}
	res := validResult()
	for i, child := range n.prefixItems {
		if i >= len(arr) {
			break
		}
		r, err := validateNode(child, arr[i], st.item([]string{"prefixItems", itoa(i)}, i))
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

func validateItems(n *Node, value any, st *state) (Result, error) {
	arr, ok := asArray(value)
	if !ok {
		return Result{}, errInvalidType
	}
	res := validResult()
	for i := len(n.prefixItems); i < len(arr); i++ {
		r, err := validateNode(n.items, arr[i], st.item([]string{"items"}, i))
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

func validateMinItems(n *Node, value any, st *state) (Result, error) {
	arr, ok := asArray(value)
	if !ok {
		return Result{}, errInvalidType
	}
	if len(arr) < *n.minItems {
		return st.fail("minItems", value, "Expected array with at least %d items", *n.minItems), nil
	}
	return validResult(), nil
}

func validateMaxItems(n *Node, value any, st *state) (Result, error) {
	arr, ok := asArray(value)
	if !ok {
		return Result{}, errInvalidType
	}
	if len(arr) > *n.maxItems {
		return st.fail("maxItems", value, "Expected array with at most %d items", *n.maxItems), nil
	}
	return validResult(), nil
}

func validateUniqueItems(n *Node, value any, st *state) (Result, error) {
	arr, ok := asArray(value)
	if !ok {
		return Result{}, errInvalidType
	}
	seen := make(map[string]struct{}, len(arr))
	for _, el := range arr {
		key := canonical(el)
		if _, dup := seen[key]; dup {
			return st.fail("uniqueItems", value, "Expected array with unique items"), nil
		}
		seen[key] = struct{}{}
	}
	return validResult(), nil
}

// validateContains counts matching elements against minContains (default
// 1) and maxContains.
func validateContains(n *Node, value any, st *state) (Result, error) {
	arr, ok := asArray(value)
	if !ok {
		return Result{}, errInvalidType
	}
	probe := st.probe()
	matched := 0
	for i, el := range arr {
		r, err := validateNode(n.contains, el, probe.item([]string{"contains"}, i))
		if err != nil {
			return Result{}, err
		}
		if r.Valid {
			matched++
		}
	}
	atLeast, kw := 1, "contains"
	if n.minContains != nil {
		atLeast, kw = *n.minContains, "minContains"
	}
	if matched < atLeast {
		return st.fail(kw, value, "Expected array to contain at least %d matching items", atLeast), nil
	}
	if n.maxContains != nil && matched > *n.maxContains {
		return st.fail("maxContains", value, "Expected array to contain at most %d matching items", *n.maxContains), nil
	}
	return validResult(), nil
}

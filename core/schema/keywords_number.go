package schema

import "math"

// multipleOfEpsilon absorbs binary floating point error in quotients such
// as 0.3 / 0.1.
const multipleOfEpsilon = 2.220446049250313e-16

func validateMultipleOf(n *Node, value any, st *state) (Result, error) {
	v, ok := toFloat64(value)
	if !ok {
		return Result{}, errInvalidType
	}
	m := *n.multipleOf
	q := v / m
	if math.IsInf(q, 0) || math.IsNaN(q) || math.Abs(q-math.Round(q)) > multipleOfEpsilon*math.Max(1, math.Abs(q)) {
		return st.fail("multipleOf", value, "Expected number to be a multiple of %s", formatNumber(m)), nil
	}
	return validResult(), nil
}

func validateMaximum(n *Node, value any, st *state) (Result, error) {
	v, ok := toFloat64(value)
	if !ok {
		return Result{}, errInvalidType
	}
	if v > *n.maximum {
		return st.fail("maximum", value, "Expected number less than or equal to %s", formatNumber(*n.maximum)), nil
	}
	return validResult(), nil
}

func validateExclusiveMaximum(n *Node, value any, st *state) (Result, error) {
	v, ok := toFloat64(value)
	if !ok {
		return Result{}, errInvalidType
	}
	if v >= *n.exclusiveMaximum {
		return st.fail("exclusiveMaximum", value, "Expected number less than %s", formatNumber(*n.exclusiveMaximum)), nil
	}
	return validResult(), nil
}

func validateMinimum(n *Node, value any, st *state) (Result, error) {
	v, ok := toFloat64(value)
	if !ok {
		return Result{}, errInvalidType
	}
	if v < *n.minimum {
		return st.fail("minimum", value, "Expected number greater than or equal to %s", formatNumber(*n.minimum)), nil
	}
	return validResult(), nil
}

func validateExclusiveMinimum(n *Node, value any, st *state) (Result, error) {
	v, ok := toFloat64(value)
	if !ok {
		return Result{}, errInvalidType
	}
	if v <= *n.exclusiveMinimum {
		return st.fail("exclusiveMinimum", value, "Expected number greater than %s", formatNumber(*n.exclusiveMinimum)), nil
	}
	return validResult(), nil
}

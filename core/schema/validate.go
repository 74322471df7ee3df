package schema

import (
	"errors"
	"fmt"
	"strconv"
)

// maxRefDepth bounds nested ref resolution within a single call.
const maxRefDepth = 512

// state is the per-call validation state. Copies share the ref cache.
type state struct {
	opts     Options
	kwPath   []string
	instPath []string
	refs     *refCache
	depth    int
}

func newState(opts Options) *state {
	return &state{opts: opts, refs: newRefCache(opts.Resolver)}
}

func (st *state) at(kw []string, inst ...string) *state {
	c := *st
	c.kwPath = appendPath(st.kwPath, kw...)
	if len(inst) > 0 {
		c.instPath = appendPath(st.instPath, inst...)
	}
	return &c
}

func (st *state) item(kw []string, index int) *state {
	return st.at(kw, strconv.Itoa(index))
}

// probe returns a state for subschema checks whose errors are discarded.
func (st *state) probe() *state {
	c := *st
	c.opts.ShortCircuit = true
	return &c
}

// fail builds a single-error result for keyword at the current location.
// An empty keyword reports at the current keyword path.
func (st *state) fail(keyword string, value any, format string, args ...any) Result {
	kw := st.kwPath
	if keyword != "" {
		kw = appendPath(kw, keyword)
	}
	var r Result
	r.AddError(ErrorDetail{
		KeywordLocation:  Pointer(kw...),
		InstanceLocation: Pointer(st.instPath...),
		Message:          fmt.Sprintf(format, args...),
		Data:             value,
	})
	return r
}

// Validate checks value against the schema. The error is non-nil only for
// schema configuration problems.
func (n *Node) Validate(value any, opts ...CallOption) (Result, error) {
	o := newOptions(opts)
	if o.Coerce {
		value = coerceNode(n, value, newRefCache(o.Resolver))
	}
	res, err := validateNode(n, value, newState(o))
	if err != nil {
		return Result{}, err
	}
	if o.ShortCircuit && len(res.Errors) > 1 {
		res.Errors = res.Errors[:1]
	}
	return res, nil
}

func validateNode(n *Node, value any, st *state) (Result, error) {
	if n.validateFn != nil {
		res, err := n.validateFn(value, st.opts)
		if err != nil {
			return Result{}, err
		}
		return res.rebase(Pointer(st.kwPath...), Pointer(st.instPath...)), nil
	}
	switch n.kind {
	case KindBool:
		if n.allow {
			return validResult(), nil
		}
		return st.fail("", value, "Always fails"), nil
	case KindRef:
		if st.depth >= maxRefDepth {
			return Result{}, schemaError(ErrRefCycle, "$ref", st.kwPath, "maximum reference depth %d exceeded", maxRefDepth)
		}
		target, err := st.refs.resolve(n.ref)
		if err != nil {
			return Result{}, wrapRefError(err, st.kwPath)
		}
		next := st.at([]string{"$ref"})
		next.depth++
		return validateNode(target, value, next)
	}
	return dispatch(n, value, st)
}

// dispatch runs the keywords of n in order. Keywords that apply to a type
// other than the value's raise errInvalidType; with an explicit type that is
// ignored, without one it becomes a type failure.
func dispatch(n *Node, value any, st *state) (Result, error) {
	if err := checkSupported(n, st.kwPath); err != nil {
		return Result{}, err
	}
	res := validResult()
	implicitType := false
	for i := range keywordTable {
		kw := &keywordTable[i]
		if !kw.present(n) || !kw.appliesTo(n.types) {
			continue
		}
		r, err := kw.validate(n, value, st)
		if errors.Is(err, errInvalidType) {
			if len(n.types) > 0 || implicitType {
				continue
			}
			implicitType = true
			r = st.fail("type", value, "Expected %s", kw.group)
		} else if err != nil {
			return Result{}, err
		}
		if r.Valid {
			continue
		}
		res.Merge(r)
		if st.opts.ShortCircuit {
			res.Errors = res.Errors[:1]
			return res, nil
		}
	}
	return res, nil
}

// unsupportedKeywords fail validation when present on a node.
var unsupportedKeywords = []string{
	"dependentRequired", "dependentSchemas",
	"if", "then", "else", "not",
	"unevaluatedProperties", "unevaluatedItems",
	"$ref", "$defs", "definitions",
}

func checkSupported(n *Node, path []string) error {
	if len(n.extra) == 0 {
		return nil
	}
	for _, k := range unsupportedKeywords {
		if _, ok := n.extra[k]; ok {
			return schemaError(ErrUnsupportedKeyword, k, path, "keyword is not supported by this validator")
		}
	}
	return nil
}

func wrapRefError(err error, path []string) error {
	var se *SchemaError
	if errors.As(err, &se) {
		if se.Path == "" {
			c := *se
			c.Path = Pointer(path...)
			return &c
		}
		return se
	}
	return schemaError(ErrRefNotFound, "$ref", path, "%v", err)
}

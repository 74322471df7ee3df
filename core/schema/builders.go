package schema

// Builders panic with a *SchemaError when an option is invalid, the same
// way regexp.MustCompile does. Use FromSchema to build from untrusted input.

func newNode(kind Kind, types []string, opts []Option) (*Node, error) {
	n := &Node{kind: kind, types: types}
	for _, opt := range opts {
		opt(n)
	}
	if err := n.finalize(nil); err != nil {
		return nil, err
	}
	return n, nil
}

func mustNode(kind Kind, types []string, opts []Option) *Node {
	n, err := newNode(kind, types, opts)
	if err != nil {
		panic(err)
	}
	return n
}

// String builds a string schema.
func String(opts ...Option) *Node {
	return mustNode(KindString, []string{"string"}, opts)
}

// Number builds a number schema.
func Number(opts ...Option) *Node {
	return mustNode(KindNumber, []string{"number"}, opts)
}

// Integer builds an integer schema.
func Integer(opts ...Option) *Node {
	return mustNode(KindInteger, []string{"integer"}, opts)
}

// Boolean builds a boolean schema.
func Boolean(opts ...Option) *Node {
	return mustNode(KindBoolean, []string{"boolean"}, opts)
}

// Null builds a schema that accepts only null.
func Null(opts ...Option) *Node {
	return mustNode(KindNull, []string{"null"}, opts)
}

// Any builds a schema with no type restriction.
func Any(opts ...Option) *Node {
	return mustNode(KindAny, nil, opts)
}

// Literal builds a schema that accepts exactly v.
func Literal(v any, opts ...Option) *Node {
	return mustNode(KindLiteral, nil, append([]Option{Const(v)}, opts...))
}

// Object builds an object schema. Declare properties with Property.
func Object(opts ...Option) *Node {
	return mustNode(KindObject, []string{"object"}, opts)
}

// Array builds an array schema whose elements match items. A nil items
// accepts any element.
func Array(items *Node, opts ...Option) *Node {
	if items != nil {
		opts = append([]Option{Items(items)}, opts...)
	}
	return mustNode(KindArray, []string{"array"}, opts)
}

// AnyOf builds a schema that matches when at least one branch matches.
func AnyOf(branches []*Node, opts ...Option) *Node {
	return mustNode(KindAnyOf, nil, append([]Option{func(n *Node) { n.anyOf = branches }}, opts...))
}

// OneOf builds a schema that matches when exactly one branch matches.
func OneOf(branches []*Node, opts ...Option) *Node {
	return mustNode(KindOneOf, nil, append([]Option{func(n *Node) { n.oneOf = branches }}, opts...))
}

// AllOf builds a schema that matches when every branch matches.
func AllOf(branches []*Node, opts ...Option) *Node {
	return mustNode(KindAllOf, nil, append([]Option{func(n *Node) { n.allOf = branches }}, opts...))
}

// Ref builds a reference to target, which must carry an $id.
func Ref(target *Node, opts ...Option) *Node {
	if target == nil || target.id == "" {
		panic(schemaError(ErrMissingID, "$ref", nil, "ref target must declare an $id"))
	}
	return RefTo(defsPointer(target.id), opts...)
}

// RefTo builds a reference to a JSON Pointer such as "#/$defs/user".
func RefTo(ptr string, opts ...Option) *Node {
	return mustNode(KindRef, nil, append([]Option{func(n *Node) { n.ref = ptr }}, opts...))
}

var (
	trueNode  = &Node{kind: KindBool, allow: true}
	falseNode = &Node{kind: KindBool, allow: false}
)

// True returns the schema that accepts every value.
func True() *Node { return trueNode }

// False returns the schema that rejects every value.
func False() *Node { return falseNode }

func defsPointer(id string) string {
	return "#" + Pointer("$defs", id)
}

package schema

// Kind identifies the built-in variant of a Node.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindNumber
	KindInteger
	KindBoolean
	KindObject
	KindArray
	KindNull
	KindLiteral
	KindAnyOf
	KindOneOf
	KindAllOf
	KindRef
	KindBool // boolean schema, true or false
)

var kindNames = [...]string{
	KindAny:     "any",
	KindString:  "string",
	KindNumber:  "number",
	KindInteger: "integer",
	KindBoolean: "boolean",
	KindObject:  "object",
	KindArray:   "array",
	KindNull:    "null",
	KindLiteral: "literal",
	KindAnyOf:   "anyOf",
	KindOneOf:   "oneOf",
	KindAllOf:   "allOf",
	KindRef:     "ref",
	KindBool:    "bool",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// kindForType maps a JSON Schema type name to its Kind.
func kindForType(t string) (Kind, bool) {
	switch t {
	case "string":
		return KindString, true
	case "number":
		return KindNumber, true
	case "integer":
		return KindInteger, true
	case "boolean":
		return KindBoolean, true
	case "object":
		return KindObject, true
	case "array":
		return KindArray, true
	case "null":
		return KindNull, true
	}
	return KindAny, false
}

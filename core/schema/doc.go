/*
Package schema builds, validates and transforms JSON Schema (draft 2020-12)
documents.

A schema is an immutable tree of *Node values. Nodes are created with the
builder functions in this package or lifted from a plain JSON document with
FromSchema. Every node can validate a value, coerce a loosely typed value
into shape, generate a template value, and render itself back into a JSON
Schema document.

# Building Schemas

	user := schema.Object(
		schema.ID("user"),
		schema.Property("name", schema.String(schema.MinLength(1))),
		schema.Property("age", schema.Integer(schema.Minimum(0)).Optional()),
		schema.AdditionalProperties(schema.False()),
	)

Properties are required unless wrapped with Optional. The required list of
an object is always derived from its properties.

# Validation

	res, err := user.Validate(value)

The error return is reserved for schema configuration problems such as an
unsupported keyword or an unresolvable $ref. Data failures are reported in
the Result, each with a JSON Pointer to the failing keyword and the failing
instance location:

	{"keywordLocation": "/properties/name/minLength", "instanceLocation": "/name", ...}

Keywords are evaluated in a fixed order:

	type, const, enum,
	minLength, maxLength, pattern,
	multipleOf, maximum, exclusiveMaximum, minimum, exclusiveMinimum,
	required, minProperties, maxProperties, properties, patternProperties,
	additionalProperties, propertyNames,
	prefixItems, items, minItems, maxItems, uniqueItems, contains,
	allOf, anyOf, oneOf

WithShortCircuit stops at the first failure. WithCoercion coerces the value
before validating it.

# Unsupported Keywords

The following keywords are carried through ToJSON but fail validation with
ErrUnsupportedKeyword: dependentRequired, dependentSchemas, if, then, else,
not, unevaluatedProperties, unevaluatedItems, an inline $ref next to other
keywords, and nested $defs or definitions.

# References

Ref nodes point at schemas by $id. They are resolved through a Resolver:

	address := schema.Object(schema.ID("address"), ...)
	resolver, _ := schema.NewResolver(address)
	person := schema.Object(schema.Property("home", schema.Ref(address)))
	res, err := person.Validate(value, schema.WithResolver(resolver))

Resolution results are cached per call. A chain of references that returns
to a pointer it has already visited fails with ErrRefCycle.
*/
package schema

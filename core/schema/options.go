package schema

// Option sets a keyword on a node under construction.
type Option func(*Node)

// ID sets $id. Nodes with an id can be targets of Ref.
func ID(id string) Option {
	return func(n *Node) { n.id = id }
}

// Description sets the description annotation.
func Description(s string) Option {
	return Keyword("description", s)
}

// Title sets the title annotation.
func Title(s string) Option {
	return Keyword("title", s)
}

// Format sets the format annotation. Formats are not asserted.
func Format(s string) Option {
	return Keyword("format", s)
}

// Examples sets the examples annotation.
func Examples(values ...any) Option {
	return Keyword("examples", values)
}

// Keyword carries an arbitrary keyword through to ToJSON. Unsupported
// keywords set this way fail at validation time.
func Keyword(name string, value any) Option {
	return func(n *Node) {
		if isTypedKeyword(name) {
			n.fail(schemaError(ErrInvalidKeyword, name, nil, "use the dedicated option"))
			return
		}
		n.setExtra(name, value)
	}
}

// Const restricts the value to v.
func Const(v any) Option {
	return func(n *Node) {
		n.constVal = normalize(v)
		n.hasConst = true
	}
}

// Enum restricts the value to one of values.
func Enum(values ...any) Option {
	return func(n *Node) {
		n.enum = make([]any, len(values))
		for i, v := range values {
			n.enum[i] = normalize(v)
		}
		n.hasEnum = true
	}
}

// Default sets the default value used by Template.
func Default(v any) Option {
	return func(n *Node) {
		n.defaultVal = normalize(v)
		n.hasDefault = true
	}
}

func MinLength(v int) Option {
	return func(n *Node) { n.minLength = nonNegative(n, "minLength", v) }
}

func MaxLength(v int) Option {
	return func(n *Node) { n.maxLength = nonNegative(n, "maxLength", v) }
}

// Pattern sets a regular expression the string must match. The source may
// be written as /body/flags; the i, m and s flags are honored.
func Pattern(source string) Option {
	return func(n *Node) { n.pattern = &pattern{source: source} }
}

func MultipleOf(v float64) Option {
	return func(n *Node) { n.multipleOf = &v }
}

func Maximum(v float64) Option {
	return func(n *Node) { n.maximum = &v }
}

func ExclusiveMaximum(v float64) Option {
	return func(n *Node) { n.exclusiveMaximum = &v }
}

func Minimum(v float64) Option {
	return func(n *Node) { n.minimum = &v }
}

func ExclusiveMinimum(v float64) Option {
	return func(n *Node) { n.exclusiveMinimum = &v }
}

// Property declares an object property. Properties are required unless
// the node was made Optional. Declaration order is preserved.
func Property(name string, node *Node) Option {
	return func(n *Node) {
		n.properties = append(n.properties, property{name: name, node: node})
	}
}

// PatternProperty applies node to every property whose name matches re.
func PatternProperty(re string, node *Node) Option {
	return func(n *Node) {
		n.patternProps = append(n.patternProps, patternProperty{pattern: &pattern{source: re}, node: node})
	}
}

// AdditionalProperties applies node to properties matched by neither
// Property nor PatternProperty. Pass False() to forbid them.
func AdditionalProperties(node *Node) Option {
	return func(n *Node) { n.additional = node }
}

// PropertyNames validates every property name against node.
func PropertyNames(node *Node) Option {
	return func(n *Node) { n.propertyNames = node }
}

func MinProperties(v int) Option {
	return func(n *Node) { n.minProperties = nonNegative(n, "minProperties", v) }
}

func MaxProperties(v int) Option {
	return func(n *Node) { n.maxProperties = nonNegative(n, "maxProperties", v) }
}

// Items sets the schema for array elements after any prefix items.
func Items(node *Node) Option {
	return func(n *Node) { n.items = node }
}

// PrefixItems sets positional schemas for the leading array elements.
func PrefixItems(nodes ...*Node) Option {
	return func(n *Node) { n.prefixItems = nodes }
}

// Contains requires at least one element, or MinContains elements, to
// match node.
func Contains(node *Node) Option {
	return func(n *Node) { n.contains = node }
}

func MinContains(v int) Option {
	return func(n *Node) { n.minContains = nonNegative(n, "minContains", v) }
}

func MaxContains(v int) Option {
	return func(n *Node) { n.maxContains = nonNegative(n, "maxContains", v) }
}

func MinItems(v int) Option {
	return func(n *Node) { n.minItems = nonNegative(n, "minItems", v) }
}

func MaxItems(v int) Option {
	return func(n *Node) { n.maxItems = nonNegative(n, "maxItems", v) }
}

func UniqueItems(v bool) Option {
	return func(n *Node) { n.uniqueItems = &v }
}

// OverrideValidate replaces the built-in validation of the node.
func OverrideValidate(fn ValidateFunc) Option {
	return func(n *Node) { n.validateFn = fn }
}

// OverrideCoerce replaces the built-in coercion of the node.
func OverrideCoerce(fn CoerceFunc) Option {
	return func(n *Node) { n.coerceFn = fn }
}

// OverrideTemplate replaces the built-in template generation of the node.
func OverrideTemplate(fn TemplateFunc) Option {
	return func(n *Node) { n.templateFn = fn }
}

func nonNegative(n *Node, keyword string, v int) *int {
	if v < 0 {
		n.fail(schemaError(ErrInvalidKeyword, keyword, nil, "must be non-negative, got %d", v))
		return nil
	}
	return &v
}

// typedKeywords are stored in dedicated fields rather than the pass-through
// map.
var typedKeywords = map[string]bool{
	"$id": true, "type": true, "const": true, "enum": true, "default": true,
	"minLength": true, "maxLength": true, "pattern": true,
	"multipleOf": true, "maximum": true, "exclusiveMaximum": true, "minimum": true, "exclusiveMinimum": true,
	"properties": true, "required": true, "patternProperties": true, "additionalProperties": true,
	"propertyNames": true, "minProperties": true, "maxProperties": true,
	"prefixItems": true, "items": true, "contains": true, "minContains": true, "maxContains": true,
	"minItems": true, "maxItems": true, "uniqueItems": true,
	"anyOf": true, "oneOf": true, "allOf": true,
}

func isTypedKeyword(name string) bool {
	return typedKeywords[name]
}

// Options controls Validate, Coerce and Template.
type Options struct {
	ShortCircuit bool
	Coerce       bool
	WithOptional bool
	Resolver     *Resolver
}

// CallOption configures a single Validate, Coerce or Template call.
type CallOption func(*Options)

// WithShortCircuit stops validation at the first failure.
func WithShortCircuit() CallOption {
	return func(o *Options) { o.ShortCircuit = true }
}

// WithCoercion coerces the value before validating it.
func WithCoercion() CallOption {
	return func(o *Options) { o.Coerce = true }
}

// WithOptionalFields includes optional properties in templates.
func WithOptionalFields() CallOption {
	return func(o *Options) { o.WithOptional = true }
}

// WithResolver sets the resolver used for Ref nodes.
func WithResolver(r *Resolver) CallOption {
	return func(o *Options) { o.Resolver = r }
}

func newOptions(opts []CallOption) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTemplate(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		opts []CallOption
		want any
	}{
		{"string", String(), nil, ""},
		{"number", Number(), nil, 0.0},
		{"number minimum", Number(Minimum(2.5)), nil, 2.5},
		{"number exclusive minimum", Number(ExclusiveMinimum(2.5)), nil, 3.0},
		{"integer minimum rounds up", Integer(Minimum(1.2)), nil, 2.0},
		{"integer exclusive minimum", Integer(ExclusiveMinimum(5)), nil, 6.0},
		{"boolean", Boolean(), nil, false},
		{"array", Array(String()), nil, []any{}},
		{"literal", Literal("fixed"), nil, "fixed"},
		{"const", String(Const("c")), nil, "c"},
		{"default beats const", String(Const("c"), Default("d")), nil, "d"},
		{"null", Null(), nil, nil},
		{"any", Any(), nil, nil},
		{"anyOf uses first branch", AnyOf([]*Node{Integer(), String()}), nil, 0.0},
		{"oneOf uses first branch", OneOf([]*Node{String(), Integer()}), nil, ""},
		{
			"allOf merges objects",
			AllOf([]*Node{Object(Property("a", String())), Object(Property("b", Boolean()))}),
			nil,
			map[string]any{"a": "", "b": false},
		},
		{
			"object skips optional",
			Object(
				Property("name", String()),
				Property("age", Integer(Minimum(18))),
				Property("nick", String().Optional()),
				Property("active", Boolean(Default(true))),
			),
			nil,
			map[string]any{"name": "", "age": 18.0, "active": true},
		},
		{
			"object with optional fields",
			Object(Property("name", String()), Property("nick", String().Optional())),
			[]CallOption{WithOptionalFields()},
			map[string]any{"name": "", "nick": ""},
		},
		{
			"override",
			String(OverrideTemplate(func(Options) any { return "generated" })),
			nil,
			"generated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.node.Template(tt.opts...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Template() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTemplate_ValidatesAgainstSchema(t *testing.T) {
	nodes := []*Node{
		Object(
			Property("name", String()),
			Property("age", Integer(Minimum(18), Maximum(99))),
			Property("tags", Array(String())),
			Property("kind", Literal("user")),
			Property("role", String(Enum("admin", "member"), Default("member"))),
			Property("meta", Object(Property("n", Number(ExclusiveMinimum(0))))),
		),
		AllOf([]*Node{Object(Property("a", String())), Object(Property("b", Integer()))}),
	}
	for _, n := range nodes {
		tmpl := n.Template()
		res := mustValidate(t, n, tmpl)
		if !res.Valid {
			t.Errorf("template %v does not validate: %v", tmpl, res.Errors)
		}
	}
}

func TestTemplate_DefaultIsCopied(t *testing.T) {
	node := Array(String(), Default([]any{"a"}))
	first := node.Template().([]any)
	first[0] = "changed"
	second := node.Template().([]any)
	if second[0] != "a" {
		t.Errorf("default was modified through a template: %v", second)
	}
}

func TestTemplate_Ref(t *testing.T) {
	addr := Object(ID("address"), Property("city", String(Default("Berlin"))))
	r, err := NewResolver(addr)
	if err != nil {
		t.Fatalf("NewResolver error = %v", err)
	}
	node := Object(Property("home", Ref(addr)))

	got := node.Template(WithResolver(r))
	want := map[string]any{"home": map[string]any{"city": "Berlin"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Template() mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplate_SelfReferenceTerminates(t *testing.T) {
	node := Object(ID("node"), Property("next", RefTo("#/$defs/node")))
	r, err := NewResolver(node)
	if err != nil {
		t.Fatalf("NewResolver error = %v", err)
	}
	if got := node.Template(WithResolver(r)); got == nil {
		t.Error("Template() = nil, want nested objects")
	}
}

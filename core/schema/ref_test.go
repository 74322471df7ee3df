package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRef_Validate(t *testing.T) {
	address := Object(ID("address"), Property("city", String()))
	r, err := NewResolver(address)
	if err != nil {
		t.Fatalf("NewResolver error = %v", err)
	}
	person := Object(Property("home", Ref(address)))

	res := mustValidate(t, person, map[string]any{"home": map[string]any{"city": 1}}, WithResolver(r))
	want := []ErrorDetail{detail("/properties/home/$ref/properties/city/type", "/home/city", "Expected string")}
	if diff := cmp.Diff(want, res.Errors, ignoreData); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}

	if res := mustValidate(t, person, map[string]any{"home": map[string]any{"city": "Oslo"}}, WithResolver(r)); !res.Valid {
		t.Errorf("Valid = false: %v", res.Errors)
	}
}

func TestRef_Recursive(t *testing.T) {
	tree := Object(
		ID("tree"),
		Property("value", Integer()),
		Property("children", Array(RefTo("#/$defs/tree")).Optional()),
	)
	r, err := NewResolver(tree)
	if err != nil {
		t.Fatalf("NewResolver error = %v", err)
	}

	value := map[string]any{
		"value": 1,
		"children": []any{
			map[string]any{"value": 2},
			map[string]any{"value": "three"},
		},
	}
	res := mustValidate(t, tree, value, WithResolver(r))
	want := []ErrorDetail{detail("/properties/children/items/$ref/properties/value/type", "/children/1/value", "Expected integer")}
	if diff := cmp.Diff(want, res.Errors, ignoreData); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
}

func TestRef_Errors(t *testing.T) {
	a := RefTo("#/$defs/b", ID("a"))
	b := RefTo("#/$defs/a", ID("b"))
	cyclic, err := NewResolver(a, b)
	if err != nil {
		t.Fatalf("NewResolver error = %v", err)
	}
	empty, err := NewResolver()
	if err != nil {
		t.Fatalf("NewResolver error = %v", err)
	}

	tests := []struct {
		name string
		node *Node
		opts []CallOption
		want error
	}{
		{"no resolver", RefTo("#/$defs/x"), nil, ErrRefNotFound},
		{"missing definition", RefTo("#/$defs/x"), []CallOption{WithResolver(empty)}, ErrRefNotFound},
		{"unsupported pointer", RefTo("#/properties/x"), []CallOption{WithResolver(empty)}, ErrRefNotFound},
		{"cycle", RefTo("#/$defs/a"), []CallOption{WithResolver(cyclic)}, ErrRefCycle},
		{"nested cycle", Object(Property("p", RefTo("#/$defs/a"))), []CallOption{WithResolver(cyclic)}, ErrRefCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.node.Validate(map[string]any{"p": 1}, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRef_ChainResolves(t *testing.T) {
	target := String(ID("target"), MinLength(2))
	alias := RefTo("#/$defs/target", ID("alias"))
	r, err := NewResolver(target, alias)
	if err != nil {
		t.Fatalf("NewResolver error = %v", err)
	}
	res := mustValidate(t, RefTo("#/definitions/alias"), "x", WithResolver(r))
	if res.Valid {
		t.Fatal("Valid = true, want minLength failure")
	}
	if got := res.Errors[0].KeywordLocation; got != "/$ref/minLength" {
		t.Errorf("KeywordLocation = %q, want /$ref/minLength", got)
	}
}

func TestNewResolver_Errors(t *testing.T) {
	if _, err := NewResolver(String()); !errors.Is(err, ErrMissingID) {
		t.Errorf("error = %v, want ErrMissingID", err)
	}
	if _, err := NewResolver(String(ID("a")), Integer(ID("a"))); !errors.Is(err, ErrInvalidKeyword) {
		t.Errorf("error = %v, want ErrInvalidKeyword for duplicate id", err)
	}
}

func TestResolver_Document(t *testing.T) {
	r, err := NewResolver(String(ID("name")), Integer(ID("age"), Minimum(0)))
	if err != nil {
		t.Fatalf("NewResolver error = %v", err)
	}
	want := map[string]any{
		"$defs": map[string]any{
			"name": map[string]any{"$id": "name", "type": "string"},
			"age":  map[string]any{"$id": "age", "type": "integer", "minimum": 0.0},
		},
	}
	if diff := cmp.Diff(want, r.Document()); diff != "" {
		t.Errorf("Document() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"age", "name"}, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_Extend(t *testing.T) {
	a, _ := NewResolver(String(ID("a")))
	b, _ := NewResolver(String(ID("b")))
	ab, err := a.Extend(b)
	if err != nil {
		t.Fatalf("Extend error = %v", err)
	}
	if ab.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ab.Len())
	}
	if _, err := ab.Extend(a); err == nil {
		t.Error("Extend with duplicate names succeeded")
	}
}

func TestFromDocument(t *testing.T) {
	doc := map[string]any{
		"$defs": map[string]any{
			"positive": map[string]any{"type": "integer", "minimum": 1},
		},
		"type":       "object",
		"properties": map[string]any{"n": map[string]any{"$ref": "#/$defs/positive"}},
		"required":   []any{"n"},
	}
	root, defs, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument error = %v", err)
	}

	res := mustValidate(t, root, map[string]any{"n": 0}, WithResolver(defs))
	want := []ErrorDetail{detail("/properties/n/$ref/minimum", "/n", "Expected number greater than or equal to 1")}
	if diff := cmp.Diff(want, res.Errors, ignoreData); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
	if _, ok := root.Keyword("$defs"); ok {
		t.Error("root still carries $defs")
	}
}

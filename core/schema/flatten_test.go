package schema

import (
	"errors"
	"testing"

	"github.com/artpar/schemagate/core/merge"
	"github.com/google/go-cmp/cmp"
)

func TestFlatten(t *testing.T) {
	node := AllOf([]*Node{
		Object(Property("a", String(MinLength(1)))),
		Object(Property("b", Integer()), Property("a", String(MaxLength(5)))),
	})

	flat, err := Flatten(node)
	if err != nil {
		t.Fatalf("Flatten error = %v", err)
	}
	if flat.Kind() != KindObject {
		t.Fatalf("Kind() = %v, want object", flat.Kind())
	}
	if diff := cmp.Diff([]string{"a", "b"}, flat.Required()); diff != "" {
		t.Errorf("Required() mismatch (-want +got):\n%s", diff)
	}

	samples := []any{
		map[string]any{"a": "x", "b": 1},
		map[string]any{"a": "", "b": 1},
		map[string]any{"a": "toolong", "b": 1},
		map[string]any{"a": "x"},
		"not an object",
	}
	for _, s := range samples {
		want := mustValidate(t, node, s).Valid
		if got := mustValidate(t, flat, s).Valid; got != want {
			t.Errorf("Valid(%v) = %t after flatten, want %t", s, got, want)
		}
	}
}

func TestFlatten_Incompatible(t *testing.T) {
	_, err := Flatten(AllOf([]*Node{String(), Integer()}))
	if !errors.Is(err, merge.ErrIncompatible) {
		t.Errorf("Flatten error = %v, want merge.ErrIncompatible", err)
	}
}

func TestFlatten_FalseBranch(t *testing.T) {
	flat, err := Flatten(AllOf([]*Node{String(), False()}))
	if err != nil {
		t.Fatalf("Flatten error = %v", err)
	}
	if flat != False() {
		t.Errorf("Flatten = %v, want False()", flat.ToJSON())
	}
}

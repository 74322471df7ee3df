package schema

import (
	"fmt"

	"github.com/artpar/schemagate/core/merge"
)

// Flatten returns an equivalent schema with every allOf merged into its
// parent. Override functions do not survive flattening.
func Flatten(n *Node) (*Node, error) {
	doc, err := merge.AllOf(n.ToJSON())
	if err != nil {
		return nil, fmt.Errorf("flatten allOf: %w", err)
	}
	if b, ok := doc.(bool); ok {
		if b {
			return True(), nil
		}
		return False(), nil
	}
	return FromSchema(doc)
}

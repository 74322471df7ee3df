package schema

import (
	"encoding/json"
	"fmt"
)

// ToJSON renders the schema as a plain JSON Schema document: a
// map[string]any, or a bool for boolean schemas. Override functions are not
// representable and are dropped.
func (n *Node) ToJSON() any {
	if n.kind == KindBool {
		return n.allow
	}
	doc := make(map[string]any, len(n.extra)+4)
	for k, v := range n.extra {
		doc[k] = cloneValue(v)
	}
	if n.id != "" {
		doc["$id"] = n.id
	}
	switch {
	case len(n.types) == 1 && !n.typeList:
		doc["type"] = n.types[0]
	case len(n.types) > 0:
		doc["type"] = stringsToAny(n.types)
	}
	if n.kind == KindRef {
		doc["$ref"] = n.ref
	}
	if n.hasConst {
		doc["const"] = cloneValue(n.constVal)
	}
	if n.hasEnum {
		doc["enum"] = cloneValue(n.enum)
	}
	if n.hasDefault {
		doc["default"] = cloneValue(n.defaultVal)
	}

	putInt(doc, "minLength", n.minLength)
	putInt(doc, "maxLength", n.maxLength)
	if n.pattern != nil {
		doc["pattern"] = n.pattern.source
	}

	putFloat(doc, "multipleOf", n.multipleOf)
	putFloat(doc, "maximum", n.maximum)
	putFloat(doc, "exclusiveMaximum", n.exclusiveMaximum)
	putFloat(doc, "minimum", n.minimum)
	putFloat(doc, "exclusiveMinimum", n.exclusiveMinimum)

	if n.hasDeclaredProperties() {
		props := make(map[string]any, len(n.properties))
		for _, p := range n.properties {
			if !p.implied {
				props[p.name] = p.node.ToJSON()
			}
		}
		doc["properties"] = props
	}
	if len(n.required) > 0 {
		doc["required"] = stringsToAny(n.required)
	}
	if len(n.patternProps) > 0 {
		pp := make(map[string]any, len(n.patternProps))
		for _, p := range n.patternProps {
			pp[p.pattern.source] = p.node.ToJSON()
		}
		doc["patternProperties"] = pp
	}
	putNode(doc, "additionalProperties", n.additional)
	putNode(doc, "propertyNames", n.propertyNames)
	putInt(doc, "minProperties", n.minProperties)
	putInt(doc, "maxProperties", n.maxProperties)

	putNodes(doc, "prefixItems", n.prefixItems)
	putNode(doc, "items", n.items)
	putNode(doc, "contains", n.contains)
	putInt(doc, "minContains", n.minContains)
	putInt(doc, "maxContains", n.maxContains)
	putInt(doc, "minItems", n.minItems)
	putInt(doc, "maxItems", n.maxItems)
	if n.uniqueItems != nil {
		doc["uniqueItems"] = *n.uniqueItems
	}

	putNodes(doc, "anyOf", n.anyOf)
	putNodes(doc, "oneOf", n.oneOf)
	putNodes(doc, "allOf", n.allOf)
	return doc
}

// MarshalJSON encodes the ToJSON document.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.ToJSON())
}

// UnmarshalJSON decodes a JSON Schema document with FromSchema.
func (n *Node) UnmarshalJSON(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	parsed, err := FromSchema(doc)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

func putInt(doc map[string]any, key string, v *int) {
	if v != nil {
		doc[key] = *v
	}
}

func putFloat(doc map[string]any, key string, v *float64) {
	if v != nil {
		doc[key] = *v
	}
}

func putNode(doc map[string]any, key string, child *Node) {
	if child != nil {
		doc[key] = child.ToJSON()
	}
}

func putNodes(doc map[string]any, key string, children []*Node) {
	if len(children) == 0 {
		return
	}
	out := make([]any, len(children))
	for i, c := range children {
		out[i] = c.ToJSON()
	}
	doc[key] = out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

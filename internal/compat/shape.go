// Package compat structurally compares two minor versions of a schema for
// backward/forward compatibility.
package compat

import (
	"sort"

	"github.com/spf13/cast"
)

// Prop is the normalized view of one schema property.
type Prop struct {
	Type       string
	Format     string
	Default    any
	HasDefault bool
	Required   bool
}

// Shape is the normalized property map of an object schema. Compatibility
// rules run over Shapes, not raw documents, so they are testable in
// isolation from JSON Schema specifics.
type Shape struct {
	Props                map[string]Prop
	AdditionalProperties bool // true unless the schema states false
}

// NormalizeShape builds a Shape from a decoded schema document. When the
// document nests its object definition under allOf, the first object part
// wins (mirrors how composed schemas are authored in practice).
func NormalizeShape(doc any) Shape {
	m := effectiveObjectSchema(doc)
	shape := Shape{Props: make(map[string]Prop), AdditionalProperties: true}
	if m == nil {
		return shape
	}

	required := make(map[string]bool)
	if reqs, ok := m["required"].([]any); ok {
		for _, r := range reqs {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	if props, ok := m["properties"].(map[string]any); ok {
		for name, raw := range props {
			p := Prop{Required: required[name]}
			if pm, ok := raw.(map[string]any); ok {
				p.Type = cast.ToString(pm["type"])
				p.Format = cast.ToString(pm["format"])
				if d, ok := pm["default"]; ok {
					p.Default = d
					p.HasDefault = true
				}
			}
			shape.Props[name] = p
		}
	}

	if ap, ok := m["additionalProperties"].(bool); ok {
		shape.AdditionalProperties = ap
	}
	return shape
}

// EffectiveObjectSchema exposes the allOf unwrapping so callers that walk
// raw schema documents (nested object recursion) see the same object part
// the shape normalizer does.
func EffectiveObjectSchema(doc any) map[string]any {
	return effectiveObjectSchema(doc)
}

// effectiveObjectSchema unwraps a schema document to the part holding
// properties/required, looking inside a top-level allOf when needed.
func effectiveObjectSchema(doc any) map[string]any {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	if _, hasProps := m["properties"].(map[string]any); hasProps {
		return m
	}
	if _, hasReq := m["required"].([]any); hasReq {
		return m
	}
	if parts, ok := m["allOf"].([]any); ok {
		for _, part := range parts {
			pm, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if _, hasProps := pm["properties"].(map[string]any); hasProps {
				return pm
			}
			if _, hasReq := pm["required"].([]any); hasReq {
				return pm
			}
		}
	}
	return m
}

// names returns the sorted property names, for deterministic diff output.
func (s Shape) names() []string {
	out := make([]string, 0, len(s.Props))
	for name := range s.Props {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Package cast converts an instance from the schema minor version it was
// written under to another minor version of the same schema lineage.
//
// Casting is fail-closed: the source schema must be resolvable, the pair
// must be backward compatible in the casting direction, every required
// target property must end up populated, and the transformed instance must
// validate against the full target schema before it is returned.
package cast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/gts/internal/apperr"
	"github.com/starford/gts/internal/compat"
	"github.com/starford/gts/internal/entity"
	"github.com/starford/gts/internal/gtsid"
	"github.com/starford/gts/internal/store"
	"github.com/starford/gts/internal/validator"
)

// Direction reports whether the cast moved to a newer minor, an older one,
// or stayed on the same version.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionNone Direction = "none"
)

// Result describes a completed cast.
type Result struct {
	From            string         `json:"from"`
	To              string         `json:"to"`
	Direction       Direction      `json:"direction"`
	Added           []string       `json:"added,omitempty"`   // properties filled from target defaults
	Removed         []string       `json:"removed,omitempty"` // source-only properties dropped
	FullyCompatible bool           `json:"fullyCompatible"`
	Entity          *entity.Entity `json:"-"`
	Content         any            `json:"content"`
}

// Cast transforms the stored instance to conform to the target schema.
func Cast(st *store.Store, instanceID, targetSchemaID string, pol compat.Policy) (*Result, error) {
	inst, ok := st.Get(instanceID)
	if !ok {
		return nil, fmt.Errorf("cast: instance %s: %w", instanceID, apperr.ErrNotFound)
	}
	if inst.IsSchema {
		return nil, fmt.Errorf("cast: %s is a schema, not an instance: %w", instanceID, apperr.ErrIncompatibleCast)
	}
	if inst.SchemaID == "" {
		return nil, fmt.Errorf("cast: instance %s declares no schema: %w", instanceID, apperr.ErrIncompatibleCast)
	}

	src, ok := st.Get(inst.SchemaID)
	if !ok {
		return nil, fmt.Errorf("cast: source schema %s not loaded: %w", inst.SchemaID, apperr.ErrIncompatibleCast)
	}
	tgt, ok := st.Get(targetSchemaID)
	if !ok {
		return nil, fmt.Errorf("cast: target schema %s: %w", targetSchemaID, apperr.ErrNotFound)
	}
	if !tgt.IsSchema {
		return nil, fmt.Errorf("cast: %s is not a schema: %w", targetSchemaID, apperr.ErrIncompatibleCast)
	}

	check, err := compat.Check(src, tgt, pol)
	if err != nil {
		return nil, err
	}
	// Data written under the source must remain valid under the target.
	if !check.Backward {
		return nil, fmt.Errorf("cast: %s -> %s: %s: %w",
			inst.SchemaID, targetSchemaID, describeDiffs(check.Diffs), apperr.ErrIncompatibleCast)
	}

	res := &Result{
		From:            inst.SchemaID,
		To:              targetSchemaID,
		Direction:       direction(src.ID, tgt.ID),
		FullyCompatible: check.Full,
	}

	content, err := transformObject(inst.Content, tgt.Content, "", res, topLevelKeep(inst))
	if err != nil {
		return nil, err
	}

	if inst.SchemaIDField != "" {
		if m, ok := content.(map[string]any); ok {
			m[inst.SchemaIDField] = targetSchemaID
		}
	}

	violations, err := validateAgainst(content, tgt.Content)
	if err != nil {
		return nil, fmt.Errorf("cast: validate result: %w", err)
	}
	if len(violations) > 0 {
		return nil, fmt.Errorf("cast: result fails target schema (%s): %w",
			violations[0].Message, apperr.ErrIncompatibleCast)
	}

	out, err := entity.New(content, st.Config())
	if err != nil {
		return nil, fmt.Errorf("cast: rebuild entity: %w", err)
	}
	res.Entity = out
	res.Content = content
	return res, nil
}

// topLevelKeep lists instance bookkeeping fields that survive a cast even
// when the target schema does not declare them.
func topLevelKeep(inst *entity.Entity) map[string]bool {
	keep := make(map[string]bool)
	if inst.IDField != "" {
		keep[inst.IDField] = true
	}
	if inst.SchemaIDField != "" {
		keep[inst.SchemaIDField] = true
	}
	return keep
}

// transformObject rebuilds value so it conforms to schemaDoc: declared
// properties are carried over (recursing into nested objects and arrays of
// objects), undeclared properties are dropped, and missing properties with
// declared defaults are filled in. A required property with no value and no
// default fails with ErrMissingDefault.
func transformObject(value, schemaDoc any, path string, res *Result, keep map[string]bool) (any, error) {
	src, ok := value.(map[string]any)
	if !ok {
		return value, nil
	}
	schema := compat.EffectiveObjectSchema(schemaDoc)
	props, _ := schema["properties"].(map[string]any)
	if props == nil {
		return value, nil
	}

	required := make(map[string]bool)
	if reqs, ok := schema["required"].([]any); ok {
		for _, r := range reqs {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	out := make(map[string]any, len(src))
	for _, name := range sortedKeys(src) {
		propSchema, declared := props[name]
		if !declared {
			if keep[name] {
				out[name] = src[name]
			} else {
				res.Removed = append(res.Removed, joinPath(path, name))
			}
			continue
		}
		converted, err := transformProp(src[name], propSchema, joinPath(path, name), res)
		if err != nil {
			return nil, err
		}
		out[name] = converted
	}

	for _, name := range sortedKeys(props) {
		if _, present := out[name]; present {
			continue
		}
		pm, _ := props[name].(map[string]any)
		def, hasDefault := defaultOf(pm)
		switch {
		case hasDefault:
			out[name] = def
			res.Added = append(res.Added, joinPath(path, name))
		case required[name]:
			return nil, fmt.Errorf("cast: required property %q has no value and no default: %w",
				joinPath(path, name), apperr.ErrMissingDefault)
		}
	}
	return out, nil
}

// transformProp recurses into object-typed properties and arrays of
// objects; anything else passes through unchanged.
func transformProp(value, propSchema any, path string, res *Result) (any, error) {
	pm, ok := propSchema.(map[string]any)
	if !ok {
		return value, nil
	}
	switch pm["type"] {
	case "object":
		return transformObject(value, pm, path, res, nil)
	case "array":
		items, ok := pm["items"].(map[string]any)
		if !ok || items["type"] != "object" {
			return value, nil
		}
		list, ok := value.([]any)
		if !ok {
			return value, nil
		}
		out := make([]any, len(list))
		for i, item := range list {
			converted, err := transformObject(item, items, fmt.Sprintf("%s[%d]", path, i), res, nil)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	}
	return value, nil
}

func defaultOf(pm map[string]any) (any, bool) {
	if pm == nil {
		return nil, false
	}
	d, ok := pm["default"]
	return d, ok
}

func validateAgainst(content, schemaDoc any) ([]validator.Violation, error) {
	return validator.NewJSONSchema().Validate(content, schemaDoc)
}

func direction(from, to *gtsid.ID) Direction {
	if from == nil || to == nil || from.Minor == to.Minor {
		return DirectionNone
	}
	if to.Minor > from.Minor {
		return DirectionUp
	}
	return DirectionDown
}

func describeDiffs(diffs []compat.Diff) string {
	parts := make([]string, 0, len(diffs))
	for _, d := range diffs {
		parts = append(parts, fmt.Sprintf("%s %s", d.Kind, d.Property))
	}
	return strings.Join(parts, "; ")
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

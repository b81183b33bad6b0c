// Package validator wraps a JSON Schema structural validator behind the
// narrow contract the store depends on. The core treats it as opaque: it
// routes documents in and violations out.
package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/starford/gts/internal/gtsid"
)

// Violation is one structural validation failure, reported verbatim.
type Violation struct {
	InstancePath string `json:"instancePath"`
	SchemaPath   string `json:"schemaPath"`
	Message      string `json:"message"`
}

// Validator checks an instance document against a schema document.
type Validator interface {
	Validate(instance, schema any) ([]Violation, error)
}

// JSONSchema is the default Validator, backed by santhosh-tekuri/jsonschema.
type JSONSchema struct{}

// NewJSONSchema returns the default JSON Schema validator.
func NewJSONSchema() *JSONSchema { return &JSONSchema{} }

// Validate compiles the schema and validates the instance against it. A nil
// violation slice means the instance conforms.
func (v *JSONSchema) Validate(instance, schema any) ([]Violation, error) {
	doc := sanitizeSchema(schema)
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("validator: marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	const resource = "inline://schema.json"
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("validator: add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("validator: compile schema: %w", err)
	}

	err = compiled.Validate(instance)
	if err == nil {
		return nil, nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, fmt.Errorf("validator: validate: %w", err)
	}
	return flatten(ve), nil
}

// sanitizeSchema strips "$schema"/"$id" values that hold GTS identifiers:
// they are artifact names for the store, not JSON Schema dialect URIs, and
// would break compilation.
func sanitizeSchema(schema any) any {
	m, ok := schema.(map[string]any)
	if !ok {
		return schema
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k == "$schema" || k == "$id" {
			if s, ok := v.(string); ok && (strings.HasPrefix(s, gtsid.Prefix) || strings.HasPrefix(s, "gts://")) {
				continue
			}
		}
		out[k] = v
	}
	return out
}

// flatten collects leaf causes of a validation error tree.
func flatten(ve *jsonschema.ValidationError) []Violation {
	if len(ve.Causes) == 0 {
		return []Violation{{
			InstancePath: ve.InstanceLocation,
			SchemaPath:   ve.KeywordLocation,
			Message:      ve.Message,
		}}
	}
	var out []Violation
	for _, c := range ve.Causes {
		out = append(out, flatten(c)...)
	}
	return out
}

var _ Validator = (*JSONSchema)(nil)

package compat

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/gts/internal/apperr"
	"github.com/starford/gts/internal/entity"
)

func schemaEntity(t *testing.T, raw string) *entity.Entity {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}
	e, err := entity.New(doc, entity.DefaultConfig())
	if err != nil {
		t.Fatalf("build entity: %v", err)
	}
	if e.ID == nil {
		t.Fatal("schema entity has no identifier")
	}
	return e
}

func TestCheckAddedOptionalFullyCompatible(t *testing.T) {
	old := schemaEntity(t, `{
		"$id": "gts.x.core.events.event.v1.0~",
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"]
	}`)
	new := schemaEntity(t, `{
		"$id": "gts.x.core.events.event.v1.1~",
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"note": {"type": "string"}
		},
		"required": ["name"]
	}`)

	res, err := Check(old, new, DefaultPolicy())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Backward || !res.Forward || !res.Full {
		t.Fatalf("expected fully compatible, got %+v", res)
	}
	if len(res.Diffs) != 1 || res.Diffs[0].Kind != DiffAddedOptional {
		t.Fatalf("expected single added_optional diff, got %+v", res.Diffs)
	}
}

func TestCheckMajorMismatch(t *testing.T) {
	old := schemaEntity(t, `{"$id": "gts.x.core.events.event.v1.0~", "type": "object"}`)
	new := schemaEntity(t, `{"$id": "gts.x.core.events.event.v2.0~", "type": "object"}`)

	_, err := Check(old, new, DefaultPolicy())
	if !errors.Is(err, apperr.ErrIncompatibleMajor) {
		t.Fatalf("expected ErrIncompatibleMajor, got %v", err)
	}
}

func TestCheckDifferentType(t *testing.T) {
	old := schemaEntity(t, `{"$id": "gts.x.core.events.event.v1.0~", "type": "object"}`)
	new := schemaEntity(t, `{"$id": "gts.x.core.events.audit.v1.0~", "type": "object"}`)

	_, err := Check(old, new, DefaultPolicy())
	if !errors.Is(err, apperr.ErrIncompatibleMajor) {
		t.Fatalf("expected ErrIncompatibleMajor for unrelated types, got %v", err)
	}
}

func TestCompareBecameRequired(t *testing.T) {
	old := Shape{Props: map[string]Prop{
		"tag": {Type: "string"},
	}, AdditionalProperties: true}
	new := Shape{Props: map[string]Prop{
		"tag": {Type: "string", Required: true},
	}, AdditionalProperties: true}

	res := Compare(old, new, DefaultPolicy())
	if res.Backward {
		t.Fatal("required without default must break backward compatibility")
	}
	if !res.Forward {
		t.Fatal("forward compatibility should survive a tightened requirement")
	}

	// A default rescues old data that omits the property.
	new.Props["tag"] = Prop{Type: "string", Required: true, HasDefault: true, Default: "none"}
	res = Compare(old, new, DefaultPolicy())
	if !res.Backward {
		t.Fatal("required with default should stay backward compatible")
	}
}

func TestCompareRemovedRequired(t *testing.T) {
	old := Shape{Props: map[string]Prop{
		"name": {Type: "string", Required: true},
	}, AdditionalProperties: true}
	new := Shape{Props: map[string]Prop{}, AdditionalProperties: true}

	res := Compare(old, new, DefaultPolicy())
	if !res.Backward {
		t.Fatal("removing a property keeps old data valid under an open schema")
	}
	if res.Forward {
		t.Fatal("old readers requiring the property break forward compatibility")
	}
}

func TestCompareRemovedUnderClosedSchema(t *testing.T) {
	old := Shape{Props: map[string]Prop{
		"extra": {Type: "string"},
	}, AdditionalProperties: true}
	new := Shape{Props: map[string]Prop{}, AdditionalProperties: false}

	res := Compare(old, new, DefaultPolicy())
	if res.Backward {
		t.Fatal("closed schema rejects old data still carrying the property")
	}
	if !res.Forward {
		t.Fatal("forward compatibility should survive an optional removal")
	}
}

func TestCompareNumericWidening(t *testing.T) {
	old := Shape{Props: map[string]Prop{
		"count": {Type: "integer", Required: true},
	}, AdditionalProperties: true}
	new := Shape{Props: map[string]Prop{
		"count": {Type: "number", Required: true},
	}, AdditionalProperties: true}

	res := Compare(old, new, DefaultPolicy())
	if !res.Backward || res.Forward {
		t.Fatalf("integer->number should be backward-only, got %+v", res)
	}

	res = Compare(new, old, DefaultPolicy())
	if res.Backward || !res.Forward {
		t.Fatalf("number->integer should be forward-only, got %+v", res)
	}

	strict := Policy{NumericWidening: false}
	res = Compare(old, new, strict)
	if res.Backward || res.Forward {
		t.Fatalf("type change under strict policy must break both, got %+v", res)
	}
}

func TestCompareTypeChangedBreaksBoth(t *testing.T) {
	old := Shape{Props: map[string]Prop{
		"value": {Type: "string"},
	}, AdditionalProperties: true}
	new := Shape{Props: map[string]Prop{
		"value": {Type: "boolean"},
	}, AdditionalProperties: true}

	res := Compare(old, new, DefaultPolicy())
	if res.Backward || res.Forward || res.Full {
		t.Fatalf("string->boolean must break both directions, got %+v", res)
	}
	if len(res.Diffs) != 1 || res.Diffs[0].Kind != DiffTypeChanged {
		t.Fatalf("expected type_changed diff, got %+v", res.Diffs)
	}
}

func TestNormalizeShapeAllOf(t *testing.T) {
	var doc map[string]any
	raw := `{
		"allOf": [{
			"type": "object",
			"properties": {"id": {"type": "string", "default": "x"}},
			"required": ["id"],
			"additionalProperties": false
		}]
	}`
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	shape := NormalizeShape(doc)
	if shape.AdditionalProperties {
		t.Fatal("additionalProperties: false not honored through allOf")
	}
	p, ok := shape.Props["id"]
	if !ok || !p.Required || !p.HasDefault || p.Default != "x" {
		t.Fatalf("unexpected prop: %+v", p)
	}
}

package entity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/gts/internal/apperr"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return v
}

func TestNew_ExtractsIdentifier(t *testing.T) {
	content := decode(t, `{
		"gtsId": "gts.x.core.events.event.v1.0~user1",
		"status": "active"
	}`)
	e, err := New(content, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == nil || e.ID.String() != "gts.x.core.events.event.v1.0~user1" {
		t.Fatalf("ID = %v", e.ID)
	}
	if e.IDField != "gtsId" {
		t.Errorf("IDField = %q, want gtsId", e.IDField)
	}
	if e.IsSchema {
		t.Error("IsSchema = true, want false")
	}
	// Schema id falls back to the identifier's own schema prefix.
	if e.SchemaID != "gts.x.core.events.event.v1.0~" {
		t.Errorf("SchemaID = %q", e.SchemaID)
	}
}

func TestNew_SchemaDetection(t *testing.T) {
	content := decode(t, `{
		"$id": "gts.x.core.events.event.v1.0~",
		"$schema": "https://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {"status": {"type": "string"}}
	}`)
	e, err := New(content, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.IsSchema {
		t.Error("IsSchema = false, want true")
	}
	// The $schema URL is recorded verbatim; graph building filters it.
	if e.SchemaID != "https://json-schema.org/draft-07/schema#" {
		t.Errorf("SchemaID = %q", e.SchemaID)
	}
}

func TestNew_SchemaReferenceIsNotASchema(t *testing.T) {
	// An instance declaring its schema through $schema stays an instance.
	content := decode(t, `{
		"$id": "gts.x.core.events.event.v1.0~acme.audit.login.v1",
		"$schema": "gts.x.core.events.event.v1.0~",
		"name": "login"
	}`)
	e, err := New(content, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.IsSchema {
		t.Error("IsSchema = true, want false")
	}
	if e.SchemaID != "gts.x.core.events.event.v1.0~" || e.SchemaIDField != "$schema" {
		t.Errorf("SchemaID = %q (field %q)", e.SchemaID, e.SchemaIDField)
	}
}

func TestNew_SchemaFormIDWithoutDialect(t *testing.T) {
	// A schema needs no $schema dialect URL; its own id suffices.
	e, err := New(decode(t, `{
		"$id": "gts.x.core.events.event.v1.0~",
		"type": "object"
	}`), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.IsSchema {
		t.Error("IsSchema = false, want true")
	}
}

func TestNew_NoIdentifier(t *testing.T) {
	e, err := New(decode(t, `{"status": "active"}`), Config{})
	if err != nil {
		t.Fatalf("absence of an identifier must not be an error: %v", err)
	}
	if e.ID != nil {
		t.Errorf("ID = %v, want nil", e.ID)
	}
}

func TestNew_MalformedIdentifier(t *testing.T) {
	e, err := New(decode(t, `{"gtsId": "gts..bad.v1~"}`), Config{})
	if !errors.Is(err, apperr.ErrMalformedID) {
		t.Fatalf("err = %v, want ErrMalformedID", err)
	}
	if e == nil || e.ID != nil {
		t.Error("entity should be returned id-less")
	}
}

func TestNew_CollectsRefs(t *testing.T) {
	content := decode(t, `{
		"gtsId": "gts.x.core.events.event.v1.0~a",
		"parent": "gts.x.core.events.event.v1.0~b",
		"nested": {"links": ["gts.x.core.events.event.v1.0~c"]}
	}`)
	e, err := New(content, Config{})
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]string, len(e.Refs))
	for _, r := range e.Refs {
		got[r.ID] = r.SourcePath
	}
	if got["gts.x.core.events.event.v1.0~b"] != "parent" {
		t.Errorf("refs = %v", e.Refs)
	}
	if got["gts.x.core.events.event.v1.0~c"] != "nested.links[0]" {
		t.Errorf("refs = %v", e.Refs)
	}
}

func TestResolvePath(t *testing.T) {
	content := decode(t, `{
		"gtsId": "gts.x.core.events.event.v1.0~a",
		"spec": {"timeout": 30, "tags": ["a", "b"]}
	}`)
	e, _ := New(content, Config{})

	cases := []struct {
		path string
		want any
	}{
		{"spec.timeout", float64(30)},
		{"spec.tags[1]", "b"},
		{"spec/tags/0", "a"},
	}
	for _, tc := range cases {
		res := e.ResolvePath(tc.path)
		if !res.Resolved {
			t.Errorf("ResolvePath(%q) failed: %v", tc.path, res.Err)
			continue
		}
		if res.Value != tc.want {
			t.Errorf("ResolvePath(%q) = %v, want %v", tc.path, res.Value, tc.want)
		}
	}
}

func TestResolvePath_NotFound(t *testing.T) {
	e, _ := New(decode(t, `{"spec": {"timeout": 30}}`), Config{})
	res := e.ResolvePath("spec.retries")
	if res.Resolved {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, apperr.ErrPathNotFound) {
		t.Errorf("err = %v, want ErrPathNotFound", res.Err)
	}
	if len(res.AvailableFields) == 0 || res.AvailableFields[0] != "timeout" {
		t.Errorf("available fields = %v", res.AvailableFields)
	}
}

func TestResolvePath_TypeMismatch(t *testing.T) {
	e, _ := New(decode(t, `{"spec": {"timeout": 30}}`), Config{})

	res := e.ResolvePath("spec.timeout.nested")
	if resolvedOrWrongKind(res, apperr.ErrPathTypeMismatch) {
		t.Errorf("descending into scalar: %v", res.Err)
	}

	res = e.ResolvePath("spec[0]")
	if resolvedOrWrongKind(res, apperr.ErrPathTypeMismatch) {
		t.Errorf("index into object: %v", res.Err)
	}
}

func resolvedOrWrongKind(res Resolution, want error) bool {
	return res.Resolved || !errors.Is(res.Err, want)
}

func TestResolvePath_IndexOutOfRange(t *testing.T) {
	e, _ := New(decode(t, `{"tags": ["a"]}`), Config{})
	res := e.ResolvePath("tags[3]")
	if res.Resolved || !errors.Is(res.Err, apperr.ErrPathNotFound) {
		t.Errorf("err = %v, want ErrPathNotFound", res.Err)
	}
}

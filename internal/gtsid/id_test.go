package gtsid

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/gts/internal/apperr"
)

func TestParse_SchemaIdentifier(t *testing.T) {
	id, err := Parse("gts.x.core.events.event.v1.0~")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Vendor != "x" {
		t.Errorf("vendor = %q, want %q", id.Vendor, "x")
	}
	if id.Package != "core" {
		t.Errorf("package = %q, want %q", id.Package, "core")
	}
	if len(id.Namespace) != 1 || id.Namespace[0] != "events" {
		t.Errorf("namespace = %v, want [events]", id.Namespace)
	}
	if id.Type != "event" {
		t.Errorf("type = %q, want %q", id.Type, "event")
	}
	if id.Major != 1 || id.Minor != 0 {
		t.Errorf("version = v%d.%d, want v1.0", id.Major, id.Minor)
	}
	if !id.IsSchema() {
		t.Error("IsSchema() = false, want true")
	}
}

func TestParse_NoMinor(t *testing.T) {
	id, err := Parse("gts.x.core.events.event.v1~")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Major != 1 || id.Minor != -1 {
		t.Errorf("version = v%d minor %d, want v1 minor -1", id.Major, id.Minor)
	}
}

func TestParse_MultiNamespace(t *testing.T) {
	id, err := Parse("gts.acme.billing.invoices.line.items.item.v2.3~")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(id.Namespace) != 3 {
		t.Fatalf("namespace = %v, want 3 components", id.Namespace)
	}
	if id.Type != "item" {
		t.Errorf("type = %q, want %q", id.Type, "item")
	}
}

func TestParse_InstanceQualifier(t *testing.T) {
	id, err := Parse("gts.x.core.events.event.v1.0~user-created.v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.IsSchema() {
		t.Error("IsSchema() = true, want false")
	}
	if len(id.Quals) != 1 {
		t.Fatalf("quals = %v, want 1", id.Quals)
	}
	q := id.Quals[0]
	if len(q.Names) != 1 || q.Names[0] != "user-created" || q.Major != 1 {
		t.Errorf("qual = %+v", q)
	}
	if got := id.SchemaID(); got != "gts.x.core.events.event.v1.0~" {
		t.Errorf("SchemaID() = %q", got)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"no prefix", "x.core.events.event.v1~"},
		{"empty segment", "gts..core.v1~"},
		{"missing tilde", "gts.x.core.events.event.v1.0"},
		{"non numeric major", "gts.x.core.events.event.vx~"},
		{"missing version", "gts.x.core.events.event~"},
		{"too few segments", "gts.x.core.v1~"},
		{"bad characters", "gts.x.co re.events.event.v1~"},
		{"double tilde", "gts.x.core.events.event.v1~~"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.in); !errors.Is(err, apperr.ErrMalformedID) {
				t.Errorf("Parse(%q) err = %v, want ErrMalformedID", tc.in, err)
			}
			if IsValid(tc.in) {
				t.Errorf("IsValid(%q) = true, want false", tc.in)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		"gts.x.core.events.event.v1.0~",
		"gts.x.core.events.event.v1~",
		"gts.acme.billing.invoices.invoice.v2.3~line-item.v1",
		"gts.a.b.c.d.v0~instance",
		"gts.a.b.c.d.v10.25~sub.v2.1~",
	}
	for _, in := range inputs {
		id, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if id.String() != in {
			t.Errorf("String() = %q, want %q", id.String(), in)
		}
		again, err := Parse(id.String())
		if err != nil {
			t.Fatalf("re-Parse(%q): %v", id.String(), err)
		}
		if !id.Equal(again) {
			t.Errorf("round-trip not equal for %q", in)
		}
	}
}

func TestSegments_Order(t *testing.T) {
	id, err := Parse("gts.x.core.events.event.v1.0~user.v2")
	if err != nil {
		t.Fatal(err)
	}
	segs := id.Segments()
	kinds := make([]string, len(segs))
	for i, s := range segs {
		kinds[i] = s.Kind
	}
	want := []string{"vendor", "package", "namespace", "type", "major", "minor", "qualifier"}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("segment %d kind = %q, want %q", i, kinds[i], want[i])
		}
	}
	if segs[len(segs)-1].Value != "user.v2" {
		t.Errorf("qualifier value = %q, want %q", segs[len(segs)-1].Value, "user.v2")
	}
}

func TestSplitAttr(t *testing.T) {
	id, path, err := SplitAttr("gts.a.b.c.d.v1~x@spec.timeout")
	if err != nil {
		t.Fatal(err)
	}
	if id != "gts.a.b.c.d.v1~x" || path != "spec.timeout" {
		t.Errorf("got %q / %q", id, path)
	}

	if _, _, err := SplitAttr("gts.a.b.c.d.v1~x@"); err == nil {
		t.Error("expected error for empty attribute path")
	}

	if _, _, err := SplitAttr("gts.a.b.c.d.v1~x"); !errors.Is(err, apperr.ErrMalformedID) {
		t.Errorf("bare identifier: err = %v, want ErrMalformedID", err)
	}
}

func TestUUID_Deterministic(t *testing.T) {
	if got := Namespace.String(); got != "63b06280-5dd6-517d-abc6-5a2127e843c3" {
		t.Fatalf("Namespace = %s", got)
	}
	vectors := map[string]string{
		"gts.x.core.events.event.v1.0~":                       "32d041ca-fef8-511c-8820-6af272c08eb4",
		"gts.x.core.events.event.v1~":                         "154302ad-df5c-56e6-97d4-f87c5faca44b",
		"gts.acme.billing.invoices.invoice.v2.3~line-item.v1": "90aa8d14-e618-5232-994e-a184893a1991",
	}
	for in, want := range vectors {
		id, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got := id.UUID().String(); got != want {
			t.Errorf("UUID(%q) = %s, want %s", in, got, want)
		}
		if id.UUID() != id.UUID() {
			t.Errorf("UUID(%q) not stable across calls", in)
		}
	}
}

func TestID_JSONRoundTrip(t *testing.T) {
	id, err := Parse("gts.acme.billing.invoices.invoice.v2.3~line-item.v1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	raw, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != `"gts.acme.billing.invoices.invoice.v2.3~line-item.v1"` {
		t.Errorf("marshal = %s", raw)
	}

	var back ID
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(id) {
		t.Errorf("round trip mismatch: %s", back)
	}

	if err := json.Unmarshal([]byte(`"nope"`), &back); err == nil {
		t.Error("expected error for malformed identifier")
	}
}

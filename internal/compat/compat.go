package compat

import (
	"fmt"

	"github.com/starford/gts/internal/apperr"
	"github.com/starford/gts/internal/entity"
	"github.com/starford/gts/internal/gtsid"
)

// DiffKind classifies one structural difference between two schema versions.
type DiffKind string

const (
	DiffAddedOptional   DiffKind = "added_optional"
	DiffAddedRequired   DiffKind = "added_required"
	DiffRemovedOptional DiffKind = "removed_optional"
	DiffRemovedRequired DiffKind = "removed_required"
	DiffRemovedClosed   DiffKind = "removed_under_closed_schema"
	DiffBecameRequired  DiffKind = "became_required"
	DiffBecameOptional  DiffKind = "became_optional"
	DiffTypeChanged     DiffKind = "type_changed"
)

// Diff is one typed structural difference justifying a compatibility
// verdict.
type Diff struct {
	Kind     DiffKind `json:"kind"`
	Property string   `json:"property"`
	Detail   string   `json:"detail,omitempty"`
}

// Result carries the three independent compatibility verdicts plus the
// diffs that justify any false value. Full is symmetric; Backward and
// Forward individually are not.
type Result struct {
	Backward bool   `json:"backwardCompatible"`
	Forward  bool   `json:"forwardCompatible"`
	Full     bool   `json:"fullyCompatible"`
	Diffs    []Diff `json:"diffs"`
}

// Policy makes the boundary rules for type changes explicit and
// configurable rather than a fixed law.
type Policy struct {
	// NumericWidening treats integer -> number as readable in the widening
	// direction instead of a hard break both ways.
	NumericWidening bool `yaml:"numeric_widening"`
}

// DefaultPolicy allows numeric widening.
func DefaultPolicy() Policy { return Policy{NumericWidening: true} }

// Check structurally compares two minor-version schemas. Both identifiers
// must name schemas sharing vendor/package/namespace/type and major
// version; differing majors fail with ErrIncompatibleMajor rather than a
// silent false verdict.
func Check(old, new *entity.Entity, pol Policy) (Result, error) {
	if old.ID == nil || new.ID == nil {
		return Result{}, fmt.Errorf("compat: both schemas must carry identifiers: %w", apperr.ErrMalformedID)
	}
	if err := sameLineage(*old.ID, *new.ID); err != nil {
		return Result{}, err
	}

	oldShape := NormalizeShape(old.Content)
	newShape := NormalizeShape(new.Content)
	return Compare(oldShape, newShape, pol), nil
}

// sameLineage verifies two schema ids differ at most in minor version.
func sameLineage(a, b gtsid.ID) error {
	if a.Vendor != b.Vendor || a.Package != b.Package || a.Type != b.Type ||
		len(a.Namespace) != len(b.Namespace) {
		return fmt.Errorf("compat: %s and %s name different types: %w", a, b, apperr.ErrIncompatibleMajor)
	}
	for i := range a.Namespace {
		if a.Namespace[i] != b.Namespace[i] {
			return fmt.Errorf("compat: %s and %s name different types: %w", a, b, apperr.ErrIncompatibleMajor)
		}
	}
	if a.Major != b.Major {
		return fmt.Errorf("compat: major versions differ (v%d vs v%d): %w", a.Major, b.Major, apperr.ErrIncompatibleMajor)
	}
	return nil
}

// Compare applies the compatibility rules to two normalized shapes.
//
// Backward: data written under old validates under new — required
// properties survive, nothing became required without a default, no type
// narrowed against old data.
//
// Forward: a reader of old consumes data written under new — new additions
// are optional, nothing old readers require disappeared, no type widened
// under the old reader.
func Compare(oldShape, newShape Shape, pol Policy) Result {
	res := Result{Backward: true, Forward: true}
	flag := func(backward, forward bool, d Diff) {
		if !backward {
			res.Backward = false
		}
		if !forward {
			res.Forward = false
		}
		res.Diffs = append(res.Diffs, d)
	}

	for _, name := range oldShape.names() {
		op := oldShape.Props[name]
		np, exists := newShape.Props[name]
		if !exists {
			switch {
			case op.Required:
				// Old readers still require it; data written under new
				// will not carry it.
				flag(true, false, Diff{Kind: DiffRemovedRequired, Property: name})
			case !newShape.AdditionalProperties:
				// Old data still carries the property and the new schema
				// rejects unknown properties.
				flag(false, true, Diff{Kind: DiffRemovedClosed, Property: name})
			default:
				res.Diffs = append(res.Diffs, Diff{Kind: DiffRemovedOptional, Property: name})
			}
			continue
		}

		if op.Type != np.Type && op.Type != "" && np.Type != "" {
			backOK, fwdOK := typeChangeCompat(op.Type, np.Type, pol)
			flag(backOK, fwdOK, Diff{
				Kind:     DiffTypeChanged,
				Property: name,
				Detail:   fmt.Sprintf("type: %s -> %s", op.Type, np.Type),
			})
		}

		switch {
		case !op.Required && np.Required:
			// Old data may omit the property; only a default rescues it.
			flag(np.HasDefault, true, Diff{Kind: DiffBecameRequired, Property: name})
		case op.Required && !np.Required:
			// Data written under new may omit a property old readers need.
			flag(true, false, Diff{Kind: DiffBecameOptional, Property: name})
		}
	}

	for _, name := range newShape.names() {
		if _, exists := oldShape.Props[name]; exists {
			continue
		}
		np := newShape.Props[name]
		if np.Required {
			flag(np.HasDefault, false, Diff{Kind: DiffAddedRequired, Property: name})
		} else {
			res.Diffs = append(res.Diffs, Diff{Kind: DiffAddedOptional, Property: name})
		}
	}

	res.Full = res.Backward && res.Forward
	return res
}

// typeChangeCompat reports (backwardOK, forwardOK) for a property whose
// declared type changed from oldType to newType.
func typeChangeCompat(oldType, newType string, pol Policy) (bool, bool) {
	if pol.NumericWidening {
		if oldType == "integer" && newType == "number" {
			return true, false // old integers validate under number
		}
		if oldType == "number" && newType == "integer" {
			return false, true // new integers still validate under number
		}
	}
	return false, false
}

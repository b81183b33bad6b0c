package store

import (
	"fmt"

	"github.com/starford/gts/internal/apperr"
	"github.com/starford/gts/internal/validator"
)

// ValidationError reports the structural violations of one instance, tagged
// with the instance and schema identifiers involved.
type ValidationError struct {
	InstanceID string                `json:"instanceId"`
	SchemaID   string                `json:"schemaId"`
	Violations []validator.Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("store: instance %s violates schema %s (%d violations)",
		e.InstanceID, e.SchemaID, len(e.Violations))
}

// ValidateInstance resolves the instance's declared schema and delegates
// structural checking to the validator collaborator. A nil return means the
// instance conforms; structural failures return a *ValidationError.
func (s *Store) ValidateInstance(instanceID string) error {
	inst, ok := s.Get(instanceID)
	if !ok {
		return fmt.Errorf("store: instance %s: %w", instanceID, apperr.ErrNotFound)
	}
	if inst.SchemaID == "" {
		return fmt.Errorf("store: instance %s declares no schema: %w", instanceID, apperr.ErrNotFound)
	}
	schema, ok := s.Get(inst.SchemaID)
	if !ok {
		return fmt.Errorf("store: schema %s: %w", inst.SchemaID, apperr.ErrNotFound)
	}

	violations, err := s.validator.Validate(inst.Content, schema.Content)
	if err != nil {
		return fmt.Errorf("store: validate %s: %w", instanceID, err)
	}
	if len(violations) > 0 {
		return &ValidationError{
			InstanceID: instanceID,
			SchemaID:   inst.SchemaID,
			Violations: violations,
		}
	}
	return nil
}

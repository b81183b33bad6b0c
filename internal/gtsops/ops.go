// Package gtsops is the operations facade: every identifier, store,
// compatibility, cast, and query operation exposed over the CLI and the MCP
// server goes through an Ops, which owns the loaded store and swaps it
// atomically on reload.
package gtsops

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/gts/internal/apperr"
	"github.com/starford/gts/internal/cast"
	"github.com/starford/gts/internal/compat"
	"github.com/starford/gts/internal/entity"
	"github.com/starford/gts/internal/gtsid"
	"github.com/starford/gts/internal/query"
	"github.com/starford/gts/internal/storage"
	"github.com/starford/gts/internal/store"
)

// Ops bundles the loaded store with the policies that parameterize the
// operations over it. Reads take the read lock; Reload swaps the store
// under the write lock.
type Ops struct {
	mu     sync.RWMutex
	st     *store.Store
	src    storage.Source
	cfg    entity.Config
	pol    compat.Policy
	logger *slog.Logger
}

// New loads the source and returns an operations facade over it.
func New(src storage.Source, cfg entity.Config, pol compat.Policy, logger *slog.Logger) (*Ops, error) {
	st, err := store.Load(src, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("gtsops: initial load: %w", err)
	}
	return &Ops{st: st, src: src, cfg: cfg, pol: pol, logger: logger}, nil
}

// NewFromPaths builds a filesystem source over the given roots and loads it.
func NewFromPaths(paths []string, cfg entity.Config, pol compat.Policy, logger *slog.Logger) (*Ops, error) {
	src, err := storage.NewFS(paths...)
	if err != nil {
		return nil, fmt.Errorf("gtsops: %w", err)
	}
	return New(src, cfg, pol, logger)
}

// Reload rebuilds the store from the source and swaps it in. Readers keep
// whatever snapshot they already hold.
func (o *Ops) Reload() error {
	st, err := store.Load(o.src, o.cfg, o.logger)
	if err != nil {
		return fmt.Errorf("gtsops: reload: %w", err)
	}
	o.mu.Lock()
	o.st = st
	o.mu.Unlock()
	return nil
}

// Store returns the current store snapshot.
func (o *Ops) Store() *store.Store {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.st
}

// Source returns the artifact source the facade reloads from.
func (o *Ops) Source() storage.Source { return o.src }

// IDReport is the outcome of validating one identifier string.
type IDReport struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateID checks an identifier against the grammar. It needs no store.
func ValidateID(raw string) IDReport {
	if _, err := gtsid.Parse(raw); err != nil {
		return IDReport{ID: raw, Valid: false, Error: err.Error()}
	}
	return IDReport{ID: raw, Valid: true}
}

// ParseReport is the structured decomposition of one identifier.
type ParseReport struct {
	ID        string          `json:"id"`
	Vendor    string          `json:"vendor"`
	Package   string          `json:"package"`
	Namespace []string        `json:"namespace,omitempty"`
	Type      string          `json:"type"`
	Major     int             `json:"major"`
	Minor     *int            `json:"minor,omitempty"`
	IsSchema  bool            `json:"isSchema"`
	SchemaID  string          `json:"schemaId,omitempty"`
	UUID      string          `json:"uuid"`
	Segments  []gtsid.Segment `json:"segments"`
}

// ParseID decomposes an identifier into its named segments.
func ParseID(raw string) (ParseReport, error) {
	id, err := gtsid.Parse(raw)
	if err != nil {
		return ParseReport{}, err
	}
	rep := ParseReport{
		ID:        id.String(),
		Vendor:    id.Vendor,
		Package:   id.Package,
		Namespace: id.Namespace,
		Type:      id.Type,
		Major:     id.Major,
		IsSchema:  id.IsSchema(),
		SchemaID:  id.SchemaID(),
		UUID:      id.UUID().String(),
		Segments:  id.Segments(),
	}
	if id.Minor >= 0 {
		minor := id.Minor
		rep.Minor = &minor
	}
	return rep, nil
}

// MatchReport is the outcome of matching one identifier against a pattern.
type MatchReport struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
	Match   bool   `json:"match"`
}

// WildcardMatch reports whether the identifier matches the pattern.
func WildcardMatch(rawID, rawPattern string) (MatchReport, error) {
	id, err := gtsid.Parse(rawID)
	if err != nil {
		return MatchReport{}, err
	}
	p, err := gtsid.ParsePattern(rawPattern)
	if err != nil {
		return MatchReport{}, err
	}
	return MatchReport{ID: rawID, Pattern: rawPattern, Match: id.Matches(p)}, nil
}

// UUID derives the deterministic UUID of an identifier.
func UUID(raw string) (string, error) {
	id, err := gtsid.Parse(raw)
	if err != nil {
		return "", err
	}
	return id.UUID().String(), nil
}

// ValidationReport is the outcome of validating a stored instance against
// its declared schema.
type ValidationReport struct {
	InstanceID string                 `json:"instanceId"`
	Valid      bool                   `json:"valid"`
	Failure    *store.ValidationError `json:"failure,omitempty"`
}

// ValidateInstance validates a stored instance against its declared schema.
// Structural violations come back in the report; a missing instance or
// schema is an error.
func (o *Ops) ValidateInstance(instanceID string) (ValidationReport, error) {
	err := o.Store().ValidateInstance(instanceID)
	if err == nil {
		return ValidationReport{InstanceID: instanceID, Valid: true}, nil
	}
	var ve *store.ValidationError
	if errors.As(err, &ve) {
		return ValidationReport{InstanceID: instanceID, Valid: false, Failure: ve}, nil
	}
	return ValidationReport{}, err
}

// SchemaGraph builds the reference graph rooted at the given identifier.
func (o *Ops) SchemaGraph(rootID string) (*store.SchemaGraph, error) {
	if _, err := gtsid.Parse(rootID); err != nil {
		return nil, err
	}
	return o.Store().BuildSchemaGraph(rootID), nil
}

// Compatibility structurally compares two stored schemas.
func (o *Ops) Compatibility(oldID, newID string) (compat.Result, error) {
	st := o.Store()
	older, ok := st.Get(oldID)
	if !ok {
		return compat.Result{}, fmt.Errorf("gtsops: schema %s: %w", oldID, apperr.ErrNotFound)
	}
	newer, ok := st.Get(newID)
	if !ok {
		return compat.Result{}, fmt.Errorf("gtsops: schema %s: %w", newID, apperr.ErrNotFound)
	}
	return compat.Check(older, newer, o.pol)
}

// Cast converts a stored instance to another minor version of its schema.
func (o *Ops) Cast(instanceID, targetSchemaID string) (*cast.Result, error) {
	return cast.Cast(o.Store(), instanceID, targetSchemaID, o.pol)
}

// Query parses and runs a pattern-plus-predicates query.
func (o *Ops) Query(raw string) (query.Result, error) {
	return query.Run(o.Store(), raw)
}

// Attr resolves an "<id>@<path>" reference to the value inside the entity's
// content. Resolution failures are data, not errors.
func (o *Ops) Attr(ref string) entity.Resolution {
	id, path, err := gtsid.SplitAttr(ref)
	if err != nil {
		return entity.Failure(ref, "", err)
	}
	e, ok := o.Store().Get(id)
	if !ok {
		return entity.Failure(id, path, fmt.Errorf("gtsops: entity %s: %w", id, apperr.ErrNotFound))
	}
	return e.ResolvePath(path)
}

// Get returns the entity with the exact identifier.
func (o *Ops) Get(id string) (*entity.Entity, error) {
	e, ok := o.Store().Get(id)
	if !ok {
		return nil, fmt.Errorf("gtsops: entity %s: %w", id, apperr.ErrNotFound)
	}
	return e, nil
}

// Find returns every entity matching the pattern, in insertion order.
func (o *Ops) Find(rawPattern string) ([]*entity.Entity, error) {
	p, err := gtsid.ParsePattern(rawPattern)
	if err != nil {
		return nil, err
	}
	return o.Store().Find(p), nil
}

// LoadErrors returns the per-artifact failures of the current snapshot.
func (o *Ops) LoadErrors() []store.LoadError {
	return o.Store().LoadErrors()
}

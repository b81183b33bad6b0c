// Package store indexes loaded entities by identifier, builds their
// reference-dependency graph, and routes instances to schema validation.
//
// A Store is read-mostly: once Load returns, concurrent Get/Find/graph/query
// reads are safe without locking. Reloading means building a fresh Store and
// swapping it under the caller's own synchronization; any SchemaGraph or
// compatibility result obtained from the old Store is invalidated by the
// swap.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/gts/internal/entity"
	"github.com/starford/gts/internal/gtsid"
	"github.com/starford/gts/internal/storage"
	"github.com/starford/gts/internal/validator"
)

// LoadError records one artifact that failed to load. Loading is
// partial-failure tolerant: errors are collected, not fatal.
type LoadError struct {
	Location string `json:"location"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
}

// Store holds all loaded entities, indexed by identifier in insertion order.
type Store struct {
	byID      map[string]*entity.Entity
	order     []string
	all       []*entity.Entity // includes entities without identifiers
	errs      []LoadError
	cfg       entity.Config
	validator validator.Validator
}

// New returns an empty store with the given entity extraction config.
func New(cfg entity.Config) *Store {
	return &Store{
		byID:      make(map[string]*entity.Entity),
		cfg:       cfg,
		validator: validator.NewJSONSchema(),
	}
}

// SetValidator replaces the structural validator collaborator.
func (s *Store) SetValidator(v validator.Validator) { s.validator = v }

// Config returns the entity extraction config the store was loaded with.
func (s *Store) Config() entity.Config { return s.cfg }

// Load reads every artifact the source exposes and indexes the resulting
// entities. One bad artifact never aborts the load: read failures, JSON
// decode failures, and malformed identifiers are recorded as LoadErrors and
// skipped.
func Load(src storage.Source, cfg entity.Config, logger *slog.Logger) (*Store, error) {
	s := New(cfg)

	locs, err := src.List()
	if err != nil {
		return nil, fmt.Errorf("store: list artifacts: %w", err)
	}

	for _, loc := range locs {
		data, err := src.Read(loc.Path)
		if err != nil {
			s.recordError(loc.Path, err, logger)
			continue
		}
		var content any
		if err := json.Unmarshal(data, &content); err != nil {
			s.recordError(loc.Path, fmt.Errorf("store: decode: %w", err), logger)
			continue
		}

		// A file may hold a single document or an array of documents.
		if items, ok := content.([]any); ok {
			for i, item := range items {
				s.addArtifact(item, fmt.Sprintf("%s#%d", loc.Path, i), logger)
			}
		} else {
			s.addArtifact(content, loc.Path, logger)
		}
	}

	logger.Info("store: loaded",
		slog.Int("entities", len(s.all)),
		slog.Int("indexed", len(s.order)),
		slog.Int("errors", len(s.errs)))
	return s, nil
}

func (s *Store) addArtifact(content any, label string, logger *slog.Logger) {
	e, err := entity.New(content, s.cfg)
	if err != nil {
		s.recordError(label, err, logger)
	}
	if e.Label == "" {
		e.Label = label
	}
	s.all = append(s.all, e)
	if e.ID != nil {
		id := e.ID.String()
		if _, dup := s.byID[id]; !dup {
			s.order = append(s.order, id)
		}
		s.byID[id] = e
	}
}

func (s *Store) recordError(location string, err error, logger *slog.Logger) {
	s.errs = append(s.errs, LoadError{Location: location, Err: err, Message: err.Error()})
	logger.Warn("store: artifact skipped",
		slog.String("location", location),
		slog.String("error", err.Error()))
}

// Register indexes an entity directly. The entity must carry an identifier.
func (s *Store) Register(e *entity.Entity) error {
	if e.ID == nil {
		return fmt.Errorf("store: entity has no identifier")
	}
	id := e.ID.String()
	if _, dup := s.byID[id]; !dup {
		s.order = append(s.order, id)
	}
	s.byID[id] = e
	s.all = append(s.all, e)
	return nil
}

// Get returns the entity with the exact identifier.
func (s *Store) Get(id string) (*entity.Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Find returns every indexed entity whose identifier matches the pattern,
// in insertion order.
func (s *Store) Find(p gtsid.Pattern) []*entity.Entity {
	var out []*entity.Entity
	for _, id := range s.order {
		e := s.byID[id]
		if e.ID.Matches(p) {
			out = append(out, e)
		}
	}
	return out
}

// All returns every loaded entity, including those without identifiers.
func (s *Store) All() []*entity.Entity { return s.all }

// LoadErrors returns the per-artifact failures recorded during Load.
func (s *Store) LoadErrors() []LoadError { return s.errs }

// Len returns the number of identifier-indexed entities.
func (s *Store) Len() int { return len(s.order) }

// Package entity wraps raw structured documents (schemas and instances),
// extracting their embedded GTS identifiers and references and resolving
// attribute paths through their content.
package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/gts/internal/gtsid"
)

// Ref is a GTS identifier (or $ref string) discovered inside an entity's
// content, paired with the attribute path it was found at.
type Ref struct {
	ID         string `json:"id"`
	SourcePath string `json:"sourcePath"`
}

// Entity is a loaded document. Immutable after construction except for
// Label, which the store assigns from the artifact location.
type Entity struct {
	Content       any       `json:"content"`
	ID            *gtsid.ID `json:"id,omitempty"` // nil when the document carries no identifier
	IsSchema      bool      `json:"isSchema"`
	SchemaID      string    `json:"schemaId,omitempty"`
	Label         string    `json:"label,omitempty"`
	Description   string    `json:"description,omitempty"`
	Refs          []Ref     `json:"refs,omitempty"`       // GTS identifiers referenced anywhere in the content
	SchemaRefs    []Ref     `json:"schemaRefs,omitempty"` // $ref strings (schemas only)
	IDField       string    `json:"idField,omitempty"`
	SchemaIDField string    `json:"schemaIdField,omitempty"`
}

// New builds an Entity from decoded document content. A document without an
// identifier is not an error; a document whose identifier field holds a
// malformed GTS string returns the entity (id-less) together with the parse
// error so loaders can record it without dropping the artifact.
func New(content any, cfg Config) (*Entity, error) {
	cfg = cfg.normalized()
	e := &Entity{Content: content}

	if m, ok := content.(map[string]any); ok {
		if d, ok := m["description"].(string); ok {
			e.Description = d
		}
	}

	idErr := e.extractID(cfg)
	e.extractSchemaID(cfg)
	e.IsSchema = declaresSchemaDialect(content) || (e.ID != nil && e.ID.IsSchema())

	e.Refs = collectGtsRefs(content)
	if e.IsSchema {
		e.SchemaRefs = collectSchemaRefs(content)
	}

	if e.ID != nil {
		e.Label = e.ID.String()
	}
	return e, idErr
}

// extractID probes the configured fields for a valid GTS identifier. When no
// field parses but one looks like a GTS id, the parse error is surfaced.
func (e *Entity) extractID(cfg Config) error {
	m, ok := e.Content.(map[string]any)
	if !ok {
		return nil
	}
	var firstErr error
	for _, f := range cfg.EntityIDFields {
		s, ok := m[f].(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		id, err := gtsid.Parse(s)
		if err == nil {
			e.ID = &id
			e.IDField = f
			return nil
		}
		if firstErr == nil && strings.HasPrefix(s, gtsid.Prefix) {
			firstErr = fmt.Errorf("entity: field %q: %w", f, err)
		}
	}
	return firstErr
}

// extractSchemaID probes the configured schema fields, preferring a valid
// GTS identifier, then any non-empty string (e.g. a json-schema.org URL,
// filtered later by the graph builder), then falls back to the entity id's
// own schema prefix.
func (e *Entity) extractSchemaID(cfg Config) {
	m, _ := e.Content.(map[string]any)
	if m != nil {
		for _, f := range cfg.SchemaIDFields {
			if s, ok := m[f].(string); ok && gtsid.IsValid(s) {
				e.SchemaID = s
				e.SchemaIDField = f
				return
			}
		}
		for _, f := range cfg.SchemaIDFields {
			if s, ok := m[f].(string); ok && strings.TrimSpace(s) != "" {
				e.SchemaID = s
				e.SchemaIDField = f
				return
			}
		}
	}
	if e.ID != nil {
		if e.ID.IsSchema() && len(e.ID.Quals) == 0 {
			return // a root schema has no enclosing schema
		}
		e.SchemaID = e.ID.SchemaID()
		e.SchemaIDField = e.IDField
	}
}

// declaresSchemaDialect reports whether the content's $schema names a schema
// dialect URL. A GTS identifier in $schema is a schema reference, not a
// dialect: it marks the document as an instance of that schema.
func declaresSchemaDialect(content any) bool {
	m, ok := content.(map[string]any)
	if !ok {
		return false
	}
	url, ok := m["$schema"].(string)
	if !ok {
		return false
	}
	return strings.HasPrefix(url, "http://json-schema.org/") ||
		strings.HasPrefix(url, "https://json-schema.org/") ||
		strings.HasPrefix(url, "gts://")
}

// collectGtsRefs walks the content and records every string value that is a
// valid GTS identifier, with the path it was found at. Duplicates (same id
// at the same path) collapse.
func collectGtsRefs(content any) []Ref {
	var found []Ref
	walkRefs(content, "", func(path string, s string) {
		if gtsid.IsValid(s) {
			found = append(found, Ref{ID: s, SourcePath: orRoot(path)})
		}
	})
	return dedupRefs(found)
}

// collectSchemaRefs records "$ref" string values with their paths.
func collectSchemaRefs(content any) []Ref {
	var found []Ref
	var walk func(node any, path string)
	walk = func(node any, path string) {
		switch v := node.(type) {
		case map[string]any:
			if s, ok := v["$ref"].(string); ok {
				found = append(found, Ref{ID: s, SourcePath: joinPath(path, "$ref")})
			}
			for _, k := range sortedKeys(v) {
				walk(v[k], joinPath(path, k))
			}
		case []any:
			for i, item := range v {
				walk(item, fmt.Sprintf("%s[%d]", path, i))
			}
		}
	}
	walk(content, "")
	return dedupRefs(found)
}

func walkRefs(node any, path string, fn func(path, s string)) {
	switch v := node.(type) {
	case string:
		fn(path, v)
	case map[string]any:
		for _, k := range sortedKeys(v) {
			walkRefs(v[k], joinPath(path, k), fn)
		}
	case []any:
		for i, item := range v {
			walkRefs(item, fmt.Sprintf("%s[%d]", path, i), fn)
		}
	}
}

// sortedKeys keeps walks deterministic so derived refs (and therefore the
// dependency graph) are stable for a fixed entity set.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func orRoot(path string) string {
	if path == "" {
		return "root"
	}
	return path
}

func dedupRefs(refs []Ref) []Ref {
	seen := make(map[string]struct{}, len(refs))
	out := refs[:0]
	for _, r := range refs {
		key := r.ID + "|" + r.SourcePath
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

package store

import (
	"strings"

	"github.com/starford/gts/internal/entity"
)

// Edge kinds.
const (
	EdgeRef    = "ref"    // a GTS identifier referenced in the content
	EdgeSchema = "schema" // the entity's declared schema
)

// Edge is a derived directed reference between two identifiers.
type Edge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	SourcePath string `json:"sourcePath,omitempty"`
	Kind       string `json:"kind"`
}

// Node classifies one identifier reached during traversal.
type Node struct {
	ID      string `json:"id"`
	Present bool   `json:"present"`
}

// SchemaGraph is the reference-reachability graph rooted at one identifier.
// Missing holds edges whose target entity is absent from the store; Cycles
// holds edges that close a reference loop. Both are data, never a traversal
// failure.
type SchemaGraph struct {
	Root    string          `json:"root"`
	Nodes   map[string]Node `json:"nodes"`
	Order   []string        `json:"order"` // first-visit order, deterministic
	Edges   []Edge          `json:"edges"`
	Missing []Edge          `json:"missing,omitempty"`
	Cycles  []Edge          `json:"cycles,omitempty"`
}

// BuildSchemaGraph traverses from rootID, following every reference found in
// each entity's content plus its declared schema. Each identifier is visited
// at most once, so reference cycles terminate; the closing edges are
// reported in Cycles. A missing target is recorded in Missing and traversal
// continues past it.
func (s *Store) BuildSchemaGraph(rootID string) *SchemaGraph {
	g := &SchemaGraph{Root: rootID, Nodes: make(map[string]Node)}
	s.visit(g, make(map[string]bool), rootID)
	return g
}

func (s *Store) visit(g *SchemaGraph, onPath map[string]bool, id string) {
	e, present := s.Get(id)
	g.Nodes[id] = Node{ID: id, Present: present}
	g.Order = append(g.Order, id)
	if !present {
		return
	}

	onPath[id] = true
	defer delete(onPath, id)

	for _, edge := range outgoing(e) {
		g.Edges = append(g.Edges, edge)
		if _, known := g.Nodes[edge.To]; !known {
			s.visit(g, onPath, edge.To)
		} else if onPath[edge.To] {
			g.Cycles = append(g.Cycles, edge)
		}
		if !g.Nodes[edge.To].Present {
			g.Missing = append(g.Missing, edge)
		}
	}
}

// outgoing derives the edges of one indexed entity: content references plus
// the declared schema. Self-references and json-schema.org dialect URLs are
// not graph edges.
func outgoing(e *entity.Entity) []Edge {
	id := e.ID.String()
	var out []Edge
	for _, r := range e.Refs {
		if r.ID == id || isDialectURL(r.ID) {
			continue
		}
		out = append(out, Edge{From: id, To: r.ID, SourcePath: r.SourcePath, Kind: EdgeRef})
	}
	if e.SchemaID != "" && e.SchemaID != id && !isDialectURL(e.SchemaID) {
		out = append(out, Edge{From: id, To: e.SchemaID, Kind: EdgeSchema})
	}
	return out
}

func isDialectURL(s string) bool {
	return strings.HasPrefix(s, "http://json-schema.org") ||
		strings.HasPrefix(s, "https://json-schema.org")
}

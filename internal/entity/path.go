package entity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/gts/internal/apperr"
)

// Resolution is the non-throwing result of navigating an attribute path
// through an entity's content. On failure Err wraps apperr.ErrPathNotFound
// or apperr.ErrPathTypeMismatch and AvailableFields lists the paths that
// exist under the node where resolution stopped.
type Resolution struct {
	ID              string   `json:"gts_id"`
	Path            string   `json:"path"`
	Value           any      `json:"value"`
	Resolved        bool     `json:"resolved"`
	Err             error    `json:"-"`
	Error           string   `json:"error,omitempty"`
	AvailableFields []string `json:"available_fields,omitempty"`
}

// ResolvePath navigates a dotted/bracketed attribute path ("a.b[2].c",
// '/'-separators accepted) through the entity's content.
func (e *Entity) ResolvePath(path string) Resolution {
	res := Resolution{Path: path}
	if e.ID != nil {
		res.ID = e.ID.String()
	}

	cur := e.Content
	for _, part := range splitPath(path) {
		switch node := cur.(type) {
		case []any:
			idx, err := listIndex(part)
			if err != nil {
				return res.fail(fmt.Errorf("entity: expected list index at segment %q: %w", part, apperr.ErrPathTypeMismatch), node)
			}
			if idx < 0 || idx >= len(node) {
				return res.fail(fmt.Errorf("entity: index out of range at segment %q: %w", part, apperr.ErrPathNotFound), node)
			}
			cur = node[idx]
		case map[string]any:
			if strings.HasPrefix(part, "[") {
				return res.fail(fmt.Errorf("entity: list index %q applied to object: %w", part, apperr.ErrPathTypeMismatch), node)
			}
			v, ok := node[part]
			if !ok {
				return res.fail(fmt.Errorf("entity: no field %q in %q: %w", part, path, apperr.ErrPathNotFound), node)
			}
			cur = v
		default:
			return res.fail(fmt.Errorf("entity: cannot descend into %T at segment %q: %w", cur, part, apperr.ErrPathTypeMismatch), cur)
		}
	}

	res.Value = cur
	res.Resolved = true
	return res
}

func (r Resolution) fail(err error, node any) Resolution {
	r.Err = err
	r.Error = err.Error()
	r.AvailableFields = availableFields(node)
	return r
}

// Failure builds a Resolution for errors raised before content navigation
// (unknown entity, missing selector).
func Failure(id, path string, err error) Resolution {
	return Resolution{ID: id, Path: path, Err: err, Error: err.Error()}
}

// splitPath normalizes '/' to '.', splits on dots, and breaks bracketed
// index runs into their own parts: "a.b[2].c" -> [a b [2] c].
func splitPath(path string) []string {
	norm := strings.ReplaceAll(path, "/", ".")
	var parts []string
	for _, seg := range strings.Split(norm, ".") {
		if seg == "" {
			continue
		}
		parts = append(parts, splitBrackets(seg)...)
	}
	return parts
}

func splitBrackets(seg string) []string {
	var out []string
	buf := strings.Builder{}
	for i := 0; i < len(seg); {
		if seg[i] != '[' {
			buf.WriteByte(seg[i])
			i++
			continue
		}
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
		j := strings.IndexByte(seg[i+1:], ']')
		if j < 0 {
			buf.WriteString(seg[i:])
			break
		}
		out = append(out, seg[i:i+j+2])
		i += j + 2
	}
	if buf.Len() > 0 {
		out = append(out, buf.String())
	}
	return out
}

// listIndex accepts both "[2]" and bare "2" forms.
func listIndex(part string) (int, error) {
	s := part
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	return strconv.Atoi(s)
}

// availableFields flattens every path reachable under node, for inclusion
// in failed resolutions.
func availableFields(node any) []string {
	var out []string
	var walk func(n any, prefix string)
	walk = func(n any, prefix string) {
		switch v := n.(type) {
		case map[string]any:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				p := k
				if prefix != "" {
					p = prefix + "." + k
				}
				out = append(out, p)
				walk(v[k], p)
			}
		case []any:
			for i, item := range v {
				p := fmt.Sprintf("%s[%d]", prefix, i)
				out = append(out, p)
				walk(item, p)
			}
		}
	}
	walk(node, "")
	return out
}

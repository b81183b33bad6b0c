// Package gtsid implements the GTS identifier grammar: parsing, formatting,
// wildcard pattern matching, and deterministic UUID derivation.
//
// The wire-level format is stable across implementations:
//
//	gts.<vendor>.<package>.<namespace...>.<type>.v<major>[.<minor>]~[<qualifier>]
//
// where segments are drawn from [A-Za-z0-9_-], the major version is a
// non-negative integer prefixed with 'v', and the optional minor version is a
// non-negative integer. Sub-artifacts chain further '~'-separated segments
// after the schema part (e.g. "...v1.0~user-created.v1").
package gtsid

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/gts/internal/apperr"
)

// Prefix is the mandatory leading token of every GTS identifier.
const Prefix = "gts."

// maxIDLen bounds identifier length to keep hashing and indexing cheap.
const maxIDLen = 1024

var (
	nameRe  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	majorRe = regexp.MustCompile(`^v\d+$`)
	digitRe = regexp.MustCompile(`^\d+$`)
)

// Qual is one '~'-separated sub-artifact segment following the schema part
// of an identifier. Its version components are -1 when absent.
type Qual struct {
	Names []string
	Major int
	Minor int
}

// ID is an immutable parsed GTS identifier. Construct via Parse; the zero
// value is not a valid identifier.
type ID struct {
	raw       string
	Vendor    string
	Package   string
	Namespace []string
	Type      string
	Major     int
	Minor     int // -1 when absent
	Quals     []Qual
}

// Segment is one named component of an identifier in declared order.
type Segment struct {
	Kind  string // vendor, package, namespace, type, major, minor, qualifier
	Value string
}

func malformed(text, cause string) error {
	return fmt.Errorf("gtsid: invalid identifier %q: %s: %w", text, cause, apperr.ErrMalformedID)
}

// Parse parses text into an ID. Any string either parses to a unique
// structured value or fails with a reason wrapping apperr.ErrMalformedID.
func Parse(text string) (ID, error) {
	raw := strings.TrimSpace(text)
	if !strings.HasPrefix(raw, Prefix) {
		return ID{}, malformed(text, "does not start with "+strconv.Quote(Prefix))
	}
	if len(raw) > maxIDLen {
		return ID{}, malformed(text, "too long")
	}

	body := raw[len(Prefix):]
	parts := strings.Split(body, "~")
	if len(parts) < 2 {
		return ID{}, malformed(text, "missing '~' qualifier")
	}
	// A trailing '~' (schema form) produces one empty final part; any other
	// empty part is an empty segment.
	last := len(parts) - 1
	for i, p := range parts {
		if p == "" && !(i == last && i > 0) {
			return ID{}, malformed(text, fmt.Sprintf("segment #%d is empty", i+1))
		}
	}
	if parts[last] == "" {
		parts = parts[:last]
	}

	id := ID{raw: raw, Minor: -1}
	if err := id.parseRoot(text, parts[0]); err != nil {
		return ID{}, err
	}
	for _, p := range parts[1:] {
		q, err := parseQual(text, p)
		if err != nil {
			return ID{}, err
		}
		id.Quals = append(id.Quals, q)
	}
	return id, nil
}

// parseRoot parses the absolute (first) segment: vendor, package, one or
// more namespace components, type, and version.
func (id *ID) parseRoot(text, seg string) error {
	tokens := strings.Split(seg, ".")
	n := len(tokens)
	if n < 5 {
		return malformed(text, "expected vendor.package.namespace.type.vN")
	}

	names := tokens
	if digitRe.MatchString(tokens[n-1]) {
		if !majorRe.MatchString(tokens[n-2]) {
			return malformed(text, "major version must be 'v' followed by an integer")
		}
		id.Minor, _ = strconv.Atoi(tokens[n-1])
		id.Major, _ = strconv.Atoi(tokens[n-2][1:])
		names = tokens[:n-2]
	} else {
		if !majorRe.MatchString(tokens[n-1]) {
			return malformed(text, "major version must be 'v' followed by an integer")
		}
		id.Major, _ = strconv.Atoi(tokens[n-1][1:])
		names = tokens[:n-1]
	}

	if len(names) < 4 {
		return malformed(text, "expected vendor.package.namespace.type before version")
	}
	for _, t := range names {
		if !nameRe.MatchString(t) {
			return malformed(text, fmt.Sprintf("segment %q has disallowed characters", t))
		}
	}
	id.Vendor = names[0]
	id.Package = names[1]
	id.Namespace = names[2 : len(names)-1]
	id.Type = names[len(names)-1]
	return nil
}

// parseQual parses one sub-artifact segment. A trailing version token pair
// ("v2" or "v2.3") is recognized only when preceded by at least one name.
func parseQual(text, seg string) (Qual, error) {
	tokens := strings.Split(seg, ".")
	q := Qual{Major: -1, Minor: -1}

	n := len(tokens)
	switch {
	case n >= 3 && digitRe.MatchString(tokens[n-1]) && majorRe.MatchString(tokens[n-2]):
		q.Minor, _ = strconv.Atoi(tokens[n-1])
		q.Major, _ = strconv.Atoi(tokens[n-2][1:])
		q.Names = tokens[:n-2]
	case n >= 2 && majorRe.MatchString(tokens[n-1]):
		q.Major, _ = strconv.Atoi(tokens[n-1][1:])
		q.Names = tokens[:n-1]
	default:
		q.Names = tokens
	}

	for _, t := range q.Names {
		if !nameRe.MatchString(t) {
			return Qual{}, malformed(text, fmt.Sprintf("segment %q has disallowed characters", t))
		}
	}
	return q, nil
}

// IsValid reports whether text is a well-formed GTS identifier. It never
// fails; any grammar violation yields false.
func IsValid(text string) bool {
	_, err := Parse(text)
	return err == nil
}

// String returns the canonical text form. Parse(id.String()) == id.
func (id ID) String() string { return id.raw }

// Equal reports exact segment-by-segment equality, including versions.
func (id ID) Equal(other ID) bool { return id.raw == other.raw }

// MarshalJSON encodes the identifier as its textual form.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.raw)
}

// UnmarshalJSON parses the identifier from its textual form.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsSchema reports whether the identifier names a schema (trailing '~')
// rather than a concrete instance or sub-artifact.
func (id ID) IsSchema() bool { return strings.HasSuffix(id.raw, "~") }

// SchemaID returns the identifier of the enclosing schema: everything up to
// and including the '~' that precedes the final segment. Empty when the
// identifier has no parent (a root schema).
func (id ID) SchemaID() string {
	s := id.raw
	if id.IsSchema() {
		s = s[:len(s)-1]
	}
	i := strings.LastIndex(s, "~")
	if i < 0 {
		return ""
	}
	return id.raw[:i+1]
}

// Segments returns every named component in declared order.
func (id ID) Segments() []Segment {
	out := []Segment{
		{Kind: "vendor", Value: id.Vendor},
		{Kind: "package", Value: id.Package},
	}
	for _, ns := range id.Namespace {
		out = append(out, Segment{Kind: "namespace", Value: ns})
	}
	out = append(out, Segment{Kind: "type", Value: id.Type})
	out = append(out, Segment{Kind: "major", Value: strconv.Itoa(id.Major)})
	if id.Minor >= 0 {
		out = append(out, Segment{Kind: "minor", Value: strconv.Itoa(id.Minor)})
	}
	for _, q := range id.Quals {
		v := strings.Join(q.Names, ".")
		if q.Major >= 0 {
			v += ".v" + strconv.Itoa(q.Major)
			if q.Minor >= 0 {
				v += "." + strconv.Itoa(q.Minor)
			}
		}
		out = append(out, Segment{Kind: "qualifier", Value: v})
	}
	return out
}

// SplitAttr splits an "id@attribute.path" form into the identifier text and
// the attribute path. The '@' selector and a non-empty path are required.
func SplitAttr(s string) (string, string, error) {
	i := strings.Index(s, "@")
	if i < 0 {
		return "", "", fmt.Errorf("gtsid: attribute selector requires an '@path': %w", apperr.ErrMalformedID)
	}
	id, path := s[:i], s[i+1:]
	if path == "" {
		return "", "", fmt.Errorf("gtsid: attribute selector requires a path after '@': %w", apperr.ErrMalformedID)
	}
	return id, path, nil
}

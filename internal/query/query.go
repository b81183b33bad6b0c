// Package query filters stored entities with a pattern plus optional
// attribute predicates: <pattern>[<path><op><literal>, ...].
package query

import (
	"fmt"
	"strconv"
	"strings"

	spfcast "github.com/spf13/cast"

	"github.com/starford/gts/internal/apperr"
	"github.com/starford/gts/internal/entity"
	"github.com/starford/gts/internal/gtsid"
	"github.com/starford/gts/internal/store"
)

// Op is a predicate comparison operator.
type Op string

const (
	OpEq       Op = "="
	OpNe       Op = "!="
	OpGt       Op = ">"
	OpGe       Op = ">="
	OpLt       Op = "<"
	OpLe       Op = "<="
	OpContains Op = "~"
)

// ops in longest-first order so ">=" is not read as ">" followed by "=".
var ops = []Op{OpNe, OpGe, OpLe, OpEq, OpGt, OpLt, OpContains}

// Predicate compares the value at an attribute path against a literal.
type Predicate struct {
	Path    string `json:"path"`
	Op      Op     `json:"op"`
	Literal string `json:"literal"`
}

// Expression is a parsed query: an identifier pattern plus zero or more
// predicates, all of which must hold.
type Expression struct {
	Raw        string
	Pattern    gtsid.Pattern
	Predicates []Predicate
}

// Result is the outcome of executing an expression against a store.
type Result struct {
	Count    int              `json:"count"`
	Entities []*entity.Entity `json:"entities"`
}

// Parse splits a query into its pattern and bracketed predicate list.
func Parse(raw string) (Expression, error) {
	expr := Expression{Raw: raw}

	patternPart := raw
	if i := strings.IndexByte(raw, '['); i >= 0 {
		if !strings.HasSuffix(raw, "]") {
			return expr, fmt.Errorf("query: unterminated predicate list in %q: %w", raw, apperr.ErrMalformedQuery)
		}
		patternPart = raw[:i]
		preds, err := parsePredicates(raw[i+1 : len(raw)-1])
		if err != nil {
			return expr, err
		}
		expr.Predicates = preds
	}

	p, err := gtsid.ParsePattern(patternPart)
	if err != nil {
		return expr, fmt.Errorf("query: pattern %q: %w", patternPart, err)
	}
	expr.Pattern = p
	return expr, nil
}

func parsePredicates(s string) ([]Predicate, error) {
	var preds []Predicate
	for _, part := range splitTop(s) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pred, err := parsePredicate(part)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return preds, nil
}

func parsePredicate(s string) (Predicate, error) {
	for _, op := range ops {
		i := strings.Index(s, string(op))
		if i <= 0 {
			continue
		}
		path := strings.TrimSpace(s[:i])
		lit := strings.TrimSpace(s[i+len(op):])
		if path == "" || lit == "" {
			break
		}
		return Predicate{Path: path, Op: op, Literal: unquote(lit)}, nil
	}
	return Predicate{}, fmt.Errorf("query: unparsable predicate %q: %w", s, apperr.ErrMalformedQuery)
}

// splitTop splits on commas that are not inside single or double quotes.
func splitTop(s string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Execute matches the expression against every indexed entity. An entity
// whose attribute path does not resolve simply does not match; resolution
// failures never abort a query.
func Execute(st *store.Store, expr Expression) Result {
	matched := st.Find(expr.Pattern)
	if len(expr.Predicates) == 0 {
		return Result{Count: len(matched), Entities: matched}
	}

	var out []*entity.Entity
	for _, e := range matched {
		if satisfiesAll(e, expr.Predicates) {
			out = append(out, e)
		}
	}
	return Result{Count: len(out), Entities: out}
}

// Run parses and executes in one step.
func Run(st *store.Store, raw string) (Result, error) {
	expr, err := Parse(raw)
	if err != nil {
		return Result{}, err
	}
	return Execute(st, expr), nil
}

func satisfiesAll(e *entity.Entity, preds []Predicate) bool {
	for _, p := range preds {
		res := e.ResolvePath(p.Path)
		if !res.Resolved {
			return false
		}
		if !compare(res.Value, p.Op, p.Literal) {
			return false
		}
	}
	return true
}

// compare coerces both sides numerically when possible, falling back to
// string comparison.
func compare(value any, op Op, literal string) bool {
	valStr := spfcast.ToString(value)

	valNum, verr := spfcast.ToFloat64E(value)
	litNum, lerr := strconv.ParseFloat(literal, 64)
	numeric := verr == nil && lerr == nil
	if _, isBool := value.(bool); isBool {
		numeric = false
	}

	switch op {
	case OpEq:
		if numeric {
			return valNum == litNum
		}
		return valStr == literal
	case OpNe:
		if numeric {
			return valNum != litNum
		}
		return valStr != literal
	case OpGt:
		if numeric {
			return valNum > litNum
		}
		return valStr > literal
	case OpGe:
		if numeric {
			return valNum >= litNum
		}
		return valStr >= literal
	case OpLt:
		if numeric {
			return valNum < litNum
		}
		return valStr < literal
	case OpLe:
		if numeric {
			return valNum <= litNum
		}
		return valStr <= literal
	case OpContains:
		return strings.Contains(valStr, literal)
	}
	return false
}

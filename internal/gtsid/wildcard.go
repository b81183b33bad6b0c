package gtsid

import (
	"fmt"
	"strings"

	"github.com/starford/gts/internal/apperr"
)

// Pattern is a parsed wildcard pattern. A '*' token matches exactly one
// segment; a trailing '*' matches any remaining suffix of segments; the
// version wildcard form "...vN~*" matches any minor version under the fixed
// major N. A pattern without wildcards is an exact identifier compare.
type Pattern struct {
	raw    string
	exact  bool
	tokens []string
}

func malformedPattern(text, cause string) error {
	return fmt.Errorf("gtsid: invalid pattern %q: %s: %w", text, cause, apperr.ErrMalformedPattern)
}

// ParsePattern validates a wildcard pattern. Wildcard tokens may stand only
// where a whole segment would; a '*' embedded in a segment's character run
// is a MalformedPattern error.
func ParsePattern(text string) (Pattern, error) {
	raw := strings.TrimSpace(text)
	if !strings.HasPrefix(raw, Prefix) {
		return Pattern{}, malformedPattern(text, "does not start with "+Prefix)
	}

	if !strings.Contains(raw, "*") {
		if _, err := Parse(raw); err != nil {
			return Pattern{}, malformedPattern(text, "not a valid identifier")
		}
		return Pattern{raw: raw, exact: true}, nil
	}

	// The "~*" suffix is the version wildcard: normalize it to the base
	// tokens plus a trailing multi-segment '*'.
	body := raw
	if strings.HasSuffix(body, "~*") {
		body = strings.TrimSuffix(body, "~*")
		if strings.Contains(body, "*") {
			return Pattern{}, malformedPattern(text, "only one '*' is allowed with the '~*' form")
		}
		toks, err := tokenize(body)
		if err != nil {
			return Pattern{}, malformedPattern(text, err.Error())
		}
		if len(toks) == 0 || !majorRe.MatchString(toks[len(toks)-1]) {
			return Pattern{}, malformedPattern(text, "'~*' must follow a major version")
		}
		if err := checkPatternTokens(toks[1:]); err != nil {
			return Pattern{}, malformedPattern(text, err.Error())
		}
		return Pattern{raw: raw, tokens: append(toks, "*")}, nil
	}

	toks, err := tokenize(body)
	if err != nil {
		return Pattern{}, malformedPattern(text, err.Error())
	}
	if len(toks) == 0 || toks[0] != "gts" {
		return Pattern{}, malformedPattern(text, "does not start with "+Prefix)
	}
	for _, t := range toks[1:] {
		if t == "*" {
			continue
		}
		if err := checkPatternToken(t); err != nil {
			return Pattern{}, malformedPattern(text, err.Error())
		}
	}
	return Pattern{raw: raw, tokens: toks}, nil
}

// String returns the pattern's original text.
func (p Pattern) String() string { return p.raw }

// Matches reports whether the identifier matches the pattern. Matching is
// case-sensitive and total: literal tokens must be exactly equal.
func (id ID) Matches(p Pattern) bool {
	if p.exact {
		return id.raw == p.raw
	}
	cand, err := tokenize(id.raw)
	if err != nil {
		return false
	}
	for i, pt := range p.tokens {
		if pt == "*" && i == len(p.tokens)-1 {
			return true // trailing wildcard consumes any remaining segments
		}
		if i >= len(cand) {
			return false
		}
		if pt == "*" {
			continue
		}
		if pt != cand[i] {
			return false
		}
	}
	return len(cand) == len(p.tokens)
}

// tokenize splits identifier-shaped text into comparable tokens, emitting
// the '~' marker as its own token. "gts.a.b.v1.0~c" becomes
// [gts a b v1 0 ~ c].
func tokenize(s string) ([]string, error) {
	expanded := strings.ReplaceAll(s, "~", ".~.")
	parts := strings.Split(expanded, ".")
	out := make([]string, 0, len(parts))
	for i, t := range parts {
		if t == "" {
			// A trailing '~' legitimately leaves one empty tail token.
			if i == len(parts)-1 && strings.HasSuffix(s, "~") {
				continue
			}
			return nil, fmt.Errorf("empty segment")
		}
		out = append(out, t)
	}
	return out, nil
}

func checkPatternToken(t string) error {
	if t == "~" || nameRe.MatchString(t) {
		return nil
	}
	return fmt.Errorf("segment %q has disallowed characters", t)
}

func checkPatternTokens(toks []string) error {
	for _, t := range toks {
		if err := checkPatternToken(t); err != nil {
			return err
		}
	}
	return nil
}

// Package apperr defines the sentinel errors shared across GTS packages.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrMalformedID       = errors.New("malformed identifier")
	ErrMalformedPattern  = errors.New("malformed pattern")
	ErrMalformedQuery    = errors.New("malformed query")
	ErrPathNotFound      = errors.New("path not found")
	ErrPathTypeMismatch  = errors.New("path type mismatch")
	ErrIncompatibleMajor = errors.New("incompatible major version")
	ErrIncompatibleCast  = errors.New("incompatible cast")
	ErrMissingDefault    = errors.New("missing default")
)

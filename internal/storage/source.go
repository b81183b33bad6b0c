// Package storage defines the artifact source abstraction the store loads
// entities from.
package storage

import "time"

// Location is metadata for one discoverable artifact.
type Location struct {
	Path      string // absolute path of the artifact
	Checksum  string
	UpdatedAt time.Time
}

// Source is the interface for artifact enumeration and retrieval. Read
// failures are per-artifact: callers record them and continue.
type Source interface {
	// List returns metadata for every artifact the source exposes.
	List() ([]Location, error)
	// Read returns the raw bytes of the artifact at path.
	Read(path string) ([]byte, error)
}

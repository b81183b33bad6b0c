package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/gts/internal/checksum"
)

// artifact file extensions the walker recognizes.
var validExtensions = map[string]struct{}{
	".json":  {},
	".jsonc": {},
	".gts":   {},
}

// directories skipped during discovery.
var excludeDirs = map[string]struct{}{
	"node_modules": {},
	"dist":         {},
	"build":        {},
}

// FS implements Source over one or more file-system roots (files or
// directories).
type FS struct {
	roots []string // absolute paths
}

// NewFS creates an FS source for the given roots. Every root must exist.
func NewFS(roots ...string) (*FS, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("storage: at least one root is required")
	}
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("storage: resolve root: %w", err)
		}
		if _, err := os.Stat(a); err != nil {
			return nil, fmt.Errorf("storage: stat root: %w", err)
		}
		abs = append(abs, a)
	}
	return &FS{roots: abs}, nil
}

// Roots returns the absolute root paths (for watchers).
func (f *FS) Roots() []string { return f.roots }

// IsArtifact reports whether the path carries one of the recognized
// artifact extensions.
func IsArtifact(path string) bool {
	_, ok := validExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// List walks every root and returns metadata for each artifact file,
// deduplicated across overlapping roots, in walk order.
func (f *FS) List() ([]Location, error) {
	seen := make(map[string]struct{})
	var out []Location

	for _, root := range f.roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("storage: stat %s: %w", root, err)
		}
		if !info.IsDir() {
			loc, err := f.describe(root)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[root]; !dup {
				seen[root] = struct{}{}
				out = append(out, loc)
			}
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if _, skip := excludeDirs[d.Name()]; skip && p != root {
					return filepath.SkipDir
				}
				return nil
			}
			ext := strings.ToLower(filepath.Ext(d.Name()))
			if _, ok := validExtensions[ext]; !ok {
				return nil
			}
			if _, dup := seen[p]; dup {
				return nil
			}
			loc, err := f.describe(p)
			if err != nil {
				return err
			}
			seen[p] = struct{}{}
			out = append(out, loc)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", root, err)
		}
	}
	return out, nil
}

func (f *FS) describe(path string) (Location, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Location{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Location{}, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return Location{Path: path, Checksum: checksum.Sum(data), UpdatedAt: info.ModTime()}, nil
}

// Read returns the raw bytes of an artifact. The path must be under one of
// the configured roots.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if !f.underRoot(abs) {
		return nil, fmt.Errorf("storage: path escapes source roots: %s", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

func (f *FS) underRoot(abs string) bool {
	for _, root := range f.roots {
		if abs == root || strings.HasPrefix(abs, root+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// Verify *FS satisfies Source at compile time.
var _ Source = (*FS)(nil)

// Package testutil provides shared test helpers for building artifact
// sources and loaded stores.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/gts/internal/entity"
	"github.com/starford/gts/internal/storage"
	"github.com/starford/gts/internal/store"
)

// Logger returns a slog.Logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestSource writes the given files (name -> JSON content) into a temp
// directory and returns an FS source over it.
func TestSource(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	src, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, src
}

// TestStore loads a store from the given files with the default entity
// config.
func TestStore(t *testing.T, files map[string]string) *store.Store {
	t.Helper()
	_, src := TestSource(t, files)
	st, err := store.Load(src, entity.DefaultConfig(), Logger())
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	return st
}

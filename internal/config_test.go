package internal

import (
	"os"
	"path/filepath"
	"testing"

	pkgconfig "github.com/starford/gts/pkg/config"
)

func TestSourcesConfig_RequiresPaths(t *testing.T) {
	cfg := SourcesConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty source paths should fail validation")
	}

	cfg.Paths = []string{"./artifacts"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("non-empty source paths should pass: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if len(cfg.Entity.EntityIDFields) == 0 || len(cfg.Entity.SchemaIDFields) == 0 {
		t.Error("default config should carry field probe lists")
	}
	if !cfg.Compat.NumericWidening {
		t.Error("numeric widening should default to on")
	}
}

func TestFullConfig_SourcesValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sources.Paths = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch empty sources")
	}
}

func TestConfig_LoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
app:
  log_level: DEBUG
sources:
  paths:
    - ./schemas
    - ./instances
  watch: true
entity:
  entity_id_fields: ["$id", "id"]
compat:
  numeric_widening: false
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Sources.Paths) != 2 || !cfg.Sources.Watch {
		t.Errorf("sources not loaded: %+v", cfg.Sources)
	}
	if len(cfg.Entity.EntityIDFields) != 2 {
		t.Errorf("entity fields not loaded: %+v", cfg.Entity)
	}
	// Schema id fields were not set in the file and keep their defaults.
	if len(cfg.Entity.SchemaIDFields) == 0 {
		t.Error("schema id fields should keep defaults")
	}
	if cfg.Compat.NumericWidening {
		t.Error("numeric_widening: false not honored")
	}
}

package internal

import (
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/gts/internal/compat"
	"github.com/starford/gts/internal/entity"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Sources SourcesConfig     `yaml:"sources"`
	Entity  entity.Config     `yaml:"entity"`
	Compat  compat.Policy     `yaml:"compat"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Sources.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return nil
}

// SourcesConfig names the artifact roots the registry loads schemas and
// instances from, and whether to watch them for changes.
type SourcesConfig struct {
	Paths []string `yaml:"paths"`
	Watch bool     `yaml:"watch"`
}

// Validate validates the sources configuration.
func (c *SourcesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Paths, validation.Required, validation.Length(1, 0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Sources: SourcesConfig{
			Paths: []string{"./artifacts"},
			Watch: false,
		},
		Entity: entity.DefaultConfig(),
		Compat: compat.DefaultPolicy(),
	}
}

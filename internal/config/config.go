// Package config loads the workspace configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from "30s"-style YAML
// strings.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the on-disk configuration. All fields have working defaults;
// the file only overrides them.
type Config struct {
	// DatabasePath locates the SQLite database.
	DatabasePath string `yaml:"database_path"`

	// DeviceID identifies this device in sync rounds and in the events it
	// records. When empty, the CLI uses "local".
	DeviceID string `yaml:"device_id"`

	// AspectDefinitions locates the CUE aspect-definition file. Empty
	// means no definitions are loaded.
	AspectDefinitions string `yaml:"aspect_definitions"`

	// MaxDepth bounds the hierarchy depth.
	MaxDepth int `yaml:"max_depth"`

	// MaxChildren bounds direct children per parent.
	MaxChildren int `yaml:"max_children"`

	// TransportTimeout bounds each transport call in a sync round.
	TransportTimeout Duration `yaml:"transport_timeout"`
}

// Defaults applied when the file omits a field.
const (
	DefaultMaxDepth         = 10
	DefaultMaxChildren      = 100
	DefaultTransportTimeout = 30 * time.Second
)

// Default returns the built-in configuration rooted at dir.
func Default(dir string) Config {
	return Config{
		DatabasePath:     filepath.Join(dir, "scopes.db"),
		MaxDepth:         DefaultMaxDepth,
		MaxChildren:      DefaultMaxChildren,
		TransportTimeout: Duration(DefaultTransportTimeout),
	}
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "scopes"), nil
}

// Load reads a YAML config file and fills unset fields with defaults
// relative to the file's directory. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.MaxChildren <= 0 {
		return fmt.Errorf("max_children must be positive, got %d", c.MaxChildren)
	}
	if c.TransportTimeout <= 0 {
		return fmt.Errorf("transport_timeout must be positive, got %s", c.TransportTimeout.Std())
	}
	return nil
}

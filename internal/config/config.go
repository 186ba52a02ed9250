// Package config handles TOML-based wall definitions. A definition is
// project-local data only: which videos to embed, where to render them, and
// how often to refresh.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"tokwall/internal/wall"
)

// DefaultPath is where the CLI looks for a wall definition when --config is
// not given.
const DefaultPath = "tokwall.toml"

// Duration wraps time.Duration so intervals read naturally in TOML, e.g.
// interval = "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML strings.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds one wall definition.
type Config struct {
	Title     string   `toml:"title"`
	Container string   `toml:"container"`
	Output    string   `toml:"output"`
	Interval  Duration `toml:"interval"`
	Timeout   Duration `toml:"timeout"`
	Throttle  float64  `toml:"throttle"`
	Videos    []string `toml:"videos"`
}

// Default returns the default wall definition.
func Default() *Config {
	return &Config{
		Title:     "TikTok wall",
		Container: "tiktok-wall",
		Output:    "wall.html",
		Interval:  0,
		Timeout:   Duration(wall.DefaultFetchTimeout),
		Throttle:  0,
	}
}

// Load reads a wall definition and merges it with defaults. A missing file
// is not an error: defaults are returned so flags and arguments alone can
// drive the tool.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the definition is renderable.
func (c *Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if _, ok := wall.NormalizeID(c.Container); !ok {
		return fmt.Errorf("container id cannot be empty")
	}
	if time.Duration(c.Interval) < 0 {
		return fmt.Errorf("interval cannot be negative")
	}
	if time.Duration(c.Timeout) < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.Throttle < 0 {
		return fmt.Errorf("throttle cannot be negative")
	}
	return nil
}

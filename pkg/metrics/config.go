package metrics

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Env maps environment variable names for metrics configuration.
type Env struct {
	Enabled string
	Path    string
}

// Config holds metrics endpoint configuration.
type Config struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	c.loadEnv(env)
	return c.validate()
}

// Merge applies values from the overlay configuration.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = overlay.Enabled
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
}

func (c *Config) loadDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env == nil {
		return
	}
	if v := os.Getenv(env.Enabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Enabled = enabled
		}
	}
	if v := os.Getenv(env.Path); v != "" {
		c.Path = v
	}
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("invalid metrics path %q: must begin with \"/\"", c.Path)
	}
	return nil
}

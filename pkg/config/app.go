package config

import (
	"fmt"
	"strings"
	"time"
)

// DevConfig contains development-mode settings.
type DevConfig struct {
	// Autoreload rebuilds the application when the config file or a
	// watched directory changes.
	Autoreload bool     `toml:"autoreload" yaml:"autoreload"`
	Watch      []string `toml:"watch" yaml:"watch"`
	Debounce   string   `toml:"debounce" yaml:"debounce"`
}

// DebounceDuration parses and returns the reload debounce window.
func (c *DevConfig) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(c.Debounce)
	return d
}

// Finalize applies defaults and validates the configuration.
func (c *DevConfig) Finalize() error {
	if c.Debounce == "" {
		c.Debounce = "300ms"
	}
	if _, err := time.ParseDuration(c.Debounce); err != nil {
		return fmt.Errorf("invalid debounce: %w", err)
	}
	return nil
}

// Merge applies values from the overlay configuration.
func (c *DevConfig) Merge(overlay *DevConfig) {
	c.Autoreload = overlay.Autoreload
	if overlay.Watch != nil {
		c.Watch = overlay.Watch
	}
	if overlay.Debounce != "" {
		c.Debounce = overlay.Debounce
	}
}

// TemplatesConfig points at an html/template set on disk.
type TemplatesConfig struct {
	Dir  string `toml:"dir" yaml:"dir"`
	Glob string `toml:"glob" yaml:"glob"`
}

// Enabled reports whether a template directory is configured.
func (c *TemplatesConfig) Enabled() bool { return c.Dir != "" }

// Finalize applies defaults.
func (c *TemplatesConfig) Finalize() error {
	if c.Dir != "" && c.Glob == "" {
		c.Glob = "*.html"
	}
	return nil
}

// Merge applies values from the overlay configuration.
func (c *TemplatesConfig) Merge(overlay *TemplatesConfig) {
	if overlay.Dir != "" {
		c.Dir = overlay.Dir
	}
	if overlay.Glob != "" {
		c.Glob = overlay.Glob
	}
}

// StaticConfig mounts a directory of files under a URL prefix.
type StaticConfig struct {
	Prefix string `toml:"prefix" yaml:"prefix"`
	Dir    string `toml:"dir" yaml:"dir"`
}

// Finalize validates the mount declaration.
func (c *StaticConfig) Finalize() error {
	if c.Prefix == "" || c.Dir == "" {
		return fmt.Errorf("static mount requires both prefix and dir")
	}
	if !strings.HasPrefix(c.Prefix, "/") {
		return fmt.Errorf("static prefix %q must begin with \"/\"", c.Prefix)
	}
	return nil
}

// Package config provides application configuration management with
// support for TOML and YAML files, environment variable overrides,
// and environment-specific configuration overlays.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/cilantro-web/cilantro/pkg/logging"
	"github.com/cilantro-web/cilantro/pkg/metrics"
	"github.com/cilantro-web/cilantro/pkg/middleware"
	"github.com/cilantro-web/cilantro/pkg/pagination"
)

const (
	// EnvAppEnv specifies the environment name for configuration overlays.
	EnvAppEnv = "CILANTRO_ENV"

	// EnvName overrides the application name.
	EnvName = "CILANTRO_NAME"
)

var loggingEnv = &logging.Env{
	Level:  "CILANTRO_LOG_LEVEL",
	Format: "CILANTRO_LOG_FORMAT",
}

var corsEnv = &middleware.CORSEnv{
	Enabled:          "CILANTRO_CORS_ENABLED",
	Origins:          "CILANTRO_CORS_ORIGINS",
	AllowedMethods:   "CILANTRO_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "CILANTRO_CORS_ALLOWED_HEADERS",
	AllowCredentials: "CILANTRO_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "CILANTRO_CORS_MAX_AGE",
}

var metricsEnv = &metrics.Env{
	Enabled: "CILANTRO_METRICS_ENABLED",
	Path:    "CILANTRO_METRICS_PATH",
}

// Config represents the root application configuration.
type Config struct {
	Name       string                `toml:"name" yaml:"name"`
	Server     ServerConfig          `toml:"server" yaml:"server"`
	Logging    logging.Config        `toml:"logging" yaml:"logging"`
	CORS       middleware.CORSConfig `toml:"cors" yaml:"cors"`
	Metrics    metrics.Config        `toml:"metrics" yaml:"metrics"`
	Pagination pagination.Config     `toml:"pagination" yaml:"pagination"`
	Dev        DevConfig             `toml:"dev" yaml:"dev"`
	Templates  TemplatesConfig       `toml:"templates" yaml:"templates"`
	Static     []StaticConfig        `toml:"static" yaml:"static"`
	Views      []ViewConfig          `toml:"views" yaml:"views"`
}

// Load reads the configuration file at path, applies any
// environment-specific overlay next to it, and finalizes the result.
// The decoder is chosen by file extension: .toml, .yaml, or .yml.
func Load(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	if overlay := overlayPath(path); overlay != "" {
		o, err := decodeFile(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize applies defaults, loads environment overrides, and
// validates every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logging.Finalize(loggingEnv); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Metrics.Finalize(metricsEnv); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Pagination.Finalize(); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.Dev.Finalize(); err != nil {
		return fmt.Errorf("dev: %w", err)
	}
	if err := c.Templates.Finalize(); err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	for i := range c.Static {
		if err := c.Static[i].Finalize(); err != nil {
			return fmt.Errorf("static[%d]: %w", i, err)
		}
	}

	return c.finalizeViews()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	c.Server.Merge(&overlay.Server)
	c.Logging.Merge(&overlay.Logging)
	c.CORS.Merge(&overlay.CORS)
	c.Metrics.Merge(&overlay.Metrics)
	c.Pagination.Merge(&overlay.Pagination)
	c.Dev.Merge(&overlay.Dev)
	c.Templates.Merge(&overlay.Templates)

	if overlay.Static != nil {
		c.Static = overlay.Static
	}
	if overlay.Views != nil {
		c.Views = overlay.Views
	}
}

func (c *Config) loadDefaults() {
	if c.Name == "" {
		c.Name = "cilantro"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvName); v != "" {
		c.Name = v
	}
}

func (c *Config) finalizeViews() error {
	names := map[string]bool{}
	for i := range c.Views {
		v := &c.Views[i]
		if err := v.Finalize(); err != nil {
			return fmt.Errorf("views[%d]: %w", i, err)
		}
		if names[v.Name] {
			return fmt.Errorf("views[%d]: duplicate view name %q", i, v.Name)
		}
		names[v.Name] = true
	}
	return nil
}

func decodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	return &cfg, nil
}

// overlayPath returns the environment-specific overlay next to path,
// when CILANTRO_ENV is set and the file exists: app.toml plus
// CILANTRO_ENV=staging resolves to app.staging.toml.
func overlayPath(path string) string {
	env := os.Getenv(EnvAppEnv)
	if env == "" {
		return ""
	}

	ext := filepath.Ext(path)
	candidate := strings.TrimSuffix(path, ext) + "." + env + ext
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/docker/go-units"
)

const (
	// EnvServerHost overrides the listen host.
	EnvServerHost = "CILANTRO_SERVER_HOST"

	// EnvServerPort overrides the listen port.
	EnvServerPort = "CILANTRO_SERVER_PORT"

	// EnvShutdownTimeout overrides the graceful shutdown timeout.
	EnvShutdownTimeout = "CILANTRO_SHUTDOWN_TIMEOUT"

	// EnvMaxBodySize overrides the request body size limit.
	EnvMaxBodySize = "CILANTRO_MAX_BODY_SIZE"
)

// ServerConfig contains HTTP server configuration. Timeouts are
// duration strings ("15s", "1m"); MaxBodySize is a human-readable
// size ("10MB") where "0" disables the limit.
type ServerConfig struct {
	Host            string `toml:"host" yaml:"host"`
	Port            int    `toml:"port" yaml:"port"`
	ReadTimeout     string `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     string `toml:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodySize     string `toml:"max_body_size" yaml:"max_body_size"`
	H2C             bool   `toml:"h2c" yaml:"h2c"`

	// RedirectTrailingSlash controls whether a request whose path
	// misses its registered form by one trailing slash is redirected
	// to the canonical path. Unset means enabled.
	RedirectTrailingSlash *bool `toml:"redirect_trailing_slash" yaml:"redirect_trailing_slash"`

	maxBodySizeVal int64
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReadTimeoutDuration parses and returns the read timeout.
func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	return d
}

// WriteTimeoutDuration parses and returns the write timeout.
func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// IdleTimeoutDuration parses and returns the idle timeout.
func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	return d
}

// ShutdownTimeoutDuration parses and returns the graceful shutdown timeout.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// MaxBodySizeBytes returns the body size limit in bytes; 0 means no limit.
func (c *ServerConfig) MaxBodySizeBytes() int64 {
	return c.maxBodySizeVal
}

// RedirectSlashEnabled reports whether trailing-slash redirects are on.
func (c *ServerConfig) RedirectSlashEnabled() bool {
	return c.RedirectTrailingSlash == nil || *c.RedirectTrailingSlash
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	if overlay.ReadTimeout != "" {
		c.ReadTimeout = overlay.ReadTimeout
	}
	if overlay.WriteTimeout != "" {
		c.WriteTimeout = overlay.WriteTimeout
	}
	if overlay.IdleTimeout != "" {
		c.IdleTimeout = overlay.IdleTimeout
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	c.H2C = overlay.H2C
	if overlay.RedirectTrailingSlash != nil {
		c.RedirectTrailingSlash = overlay.RedirectTrailingSlash
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "15s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "15s"
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "60s"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "10MB"
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv(EnvShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvMaxBodySize); v != "" {
		c.MaxBodySize = v
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	for name, value := range map[string]string{
		"read_timeout":     c.ReadTimeout,
		"write_timeout":    c.WriteTimeout,
		"idle_timeout":     c.IdleTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	size, err := units.FromHumanSize(c.MaxBodySize)
	if err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	if size < 0 {
		return fmt.Errorf("max_body_size must not be negative")
	}
	c.maxBodySizeVal = size

	return nil
}

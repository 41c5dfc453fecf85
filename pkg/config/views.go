package config

import (
	"fmt"
	"strings"
)

// ViewConfig declares a route served directly from configuration.
// Exactly one content source must be set: a literal text body
// (returns), a JSON object (json), a file on disk (file), or a
// redirect target (redirect).
type ViewConfig struct {
	Name        string            `toml:"name" yaml:"name"`
	Path        string            `toml:"path" yaml:"path"`
	Paths       []string          `toml:"paths" yaml:"paths"`
	Methods     []string          `toml:"methods" yaml:"methods"`
	Returns     string            `toml:"returns" yaml:"returns"`
	JSON        map[string]any    `toml:"json" yaml:"json"`
	File        string            `toml:"file" yaml:"file"`
	Redirect    string            `toml:"redirect" yaml:"redirect"`
	Status      int               `toml:"status" yaml:"status"`
	ContentType string            `toml:"content_type" yaml:"content_type"`
	Headers     map[string]string `toml:"headers" yaml:"headers"`
}

// AllPaths merges the singular and plural path declarations.
func (v *ViewConfig) AllPaths() []string {
	if v.Path == "" {
		return v.Paths
	}
	return append([]string{v.Path}, v.Paths...)
}

// Finalize applies defaults and validates the view declaration.
func (v *ViewConfig) Finalize() error {
	if v.Name == "" {
		return fmt.Errorf("view name required")
	}

	paths := v.AllPaths()
	if len(paths) == 0 {
		return fmt.Errorf("view %q: at least one path required", v.Name)
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("view %q: path %q must begin with \"/\"", v.Name, p)
		}
	}

	sources := 0
	if v.Returns != "" {
		sources++
	}
	if v.JSON != nil {
		sources++
	}
	if v.File != "" {
		sources++
	}
	if v.Redirect != "" {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("view %q: exactly one of returns, json, file, or redirect required", v.Name)
	}

	if len(v.Methods) == 0 {
		v.Methods = []string{"GET"}
	}
	for i, m := range v.Methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" {
			return fmt.Errorf("view %q: empty method", v.Name)
		}
		v.Methods[i] = m
	}

	if v.Redirect != "" {
		if v.Status == 0 {
			v.Status = 302
		}
		if v.Status < 300 || v.Status > 399 {
			return fmt.Errorf("view %q: redirect status %d must be 3xx", v.Name, v.Status)
		}
		return nil
	}

	if v.Status == 0 {
		v.Status = 200
	}
	if v.Status < 100 || v.Status > 599 {
		return fmt.Errorf("view %q: invalid status %d", v.Name, v.Status)
	}
	return nil
}

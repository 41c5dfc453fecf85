package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cilantro-web/cilantro/internal/version"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute("version")
	if err != nil {
		t.Fatalf("execute version: %v", err)
	}
	if got := strings.TrimSpace(out); got != version.Get() {
		t.Errorf("output = %q, want %q", got, version.Get())
	}
}

func TestValidateCmd(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		path := writeConfig(t, `
name = "demo"

[logging]
level = "error"

[[views]]
name = "health"
path = "/health"
json = { status = "ok" }
`)
		out, err := execute("validate", "-c", path)
		if err != nil {
			t.Fatalf("execute validate: %v", err)
		}
		if !strings.Contains(out, "valid") || !strings.Contains(out, "1 views") {
			t.Errorf("output = %q, want valid with view count", out)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		path := writeConfig(t, `
[[views]]
name = "broken"
path = "/x"
`)
		if _, err := execute("validate", "-c", path); err == nil {
			t.Error("execute validate: error = nil, want content source error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := execute("validate", "-c", filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("execute validate: error = nil, want read error")
		}
	})
}

func TestRoutesCmd(t *testing.T) {
	path := writeConfig(t, `
name = "demo"

[logging]
level = "error"

[[views]]
name = "health"
path = "/health"
json = { status = "ok" }

[[views]]
name = "legal"
path = "/legal"
returns = "ok"
methods = ["GET", "POST"]
`)

	out, err := execute("routes", "-c", path)
	if err != nil {
		t.Fatalf("execute routes: %v", err)
	}
	for _, want := range []string{"METHOD", "/health", "/legal", "health", "legal", "POST"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	for _, name := range []string{"serve", "routes", "validate", "version"} {
		if _, _, err := root.Find([]string{name}); err != nil {
			t.Errorf("find %s subcommand: %v", name, err)
		}
	}
}

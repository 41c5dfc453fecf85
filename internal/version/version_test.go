package version

import "testing"

func TestGet_UsesStampedVersion(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "v9.9.9"
	if got := Get(); got != "v9.9.9" {
		t.Errorf("Get() = %q, want %q", got, "v9.9.9")
	}
}

func TestGet_NeverEmpty(t *testing.T) {
	if got := Get(); got == "" {
		t.Error("Get() = empty string")
	}
}

// Package version exposes the build version for the CLI.
package version

import "runtime/debug"

// Version is stamped at build time:
//
//	go build -ldflags "-X github.com/cilantro-web/cilantro/internal/version.Version=v1.2.3"
var Version = "dev"

// Get returns the stamped version, falling back to module build info for
// go-install builds.
func Get() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

package version //nolint:revive // package name intentionally matches build-info convention

import (
	"fmt"
	"runtime/debug"
)

// Build information, set with -ldflags "-X github.com/pitabwire/messageformat/version.Version=...".
//
//nolint:gochecknoglobals //version information is set at build time
var (
	Repository = "github.com/pitabwire/messageformat"
	Version    string
	Commit     string
	Date       string
)

// String describes the running build, falling back to module build info
// when no version was stamped in.
func String() string {
	v := Version
	if v == "" {
		v = "devel"
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
			v = info.Main.Version
		}
	}

	out := fmt.Sprintf("%s %s", Repository, v)
	if Commit != "" {
		out += " (" + Commit
		if Date != "" {
			out += ", " + Date
		}
		out += ")"
	}
	return out
}

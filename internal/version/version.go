// Package version holds build information for stagewise.
package version

import (
	"runtime/debug"
	"strings"
)

// Overridden at build time:
// go build -ldflags "-X stagewise/internal/version.Version=0.3.0 -X stagewise/internal/version.Commit=abc123"
var (
	Version   = "0.1.0-dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// readBuildInfo is swapped in tests
var readBuildInfo = debug.ReadBuildInfo

// Revision returns Commit, falling back to the VCS revision the Go
// toolchain embedded in the binary
func Revision() string {
	if Commit != "unknown" {
		return Commit
	}
	info, ok := readBuildInfo()
	if !ok {
		return Commit
	}
	rev, dirty := "", false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return Commit
	}
	if dirty {
		rev += "-dirty"
	}
	return rev
}

// Info returns "version (short commit)", or just the version when the
// commit is unknown
func Info() string {
	rev := Revision()
	if rev == "unknown" || len(rev) <= 7 {
		return Version
	}
	return Version + " (" + rev[:7] + ")"
}

// Full returns complete version information
func Full() string {
	var b strings.Builder
	b.WriteString("stagewise version " + Version + "\n")
	b.WriteString("Commit: " + Revision() + "\n")
	b.WriteString("Built: " + BuildDate)
	return b.String()
}

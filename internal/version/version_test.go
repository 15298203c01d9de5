package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withBuild(t *testing.T, version, commit string, settings ...debug.BuildSetting) {
	t.Helper()
	origVersion, origCommit, origRead := Version, Commit, readBuildInfo
	t.Cleanup(func() {
		Version, Commit, readBuildInfo = origVersion, origCommit, origRead
	})
	Version, Commit = version, commit
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		if settings == nil {
			return nil, false
		}
		return &debug.BuildInfo{Settings: settings}, true
	}
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name     string
		commit   string
		settings []debug.BuildSetting
		want     string
	}{
		{name: "unknown commit", commit: "unknown", want: "1.0.0"},
		{name: "short commit", commit: "abc", want: "1.0.0"},
		{name: "exactly 7 chars", commit: "1234567", want: "1.0.0"},
		{name: "full hash", commit: "abc1234567890", want: "1.0.0 (abc1234)"},
		{
			name:     "embedded vcs revision",
			commit:   "unknown",
			settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fedcba9876543210"}},
			want:     "1.0.0 (fedcba9)",
		},
		{
			name:     "build info without vcs",
			commit:   "unknown",
			settings: []debug.BuildSetting{{Key: "GOOS", Value: "linux"}},
			want:     "1.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuild(t, "1.0.0", tt.commit, tt.settings...)
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRevision_Dirty(t *testing.T) {
	withBuild(t, "1.0.0", "unknown",
		debug.BuildSetting{Key: "vcs.revision", Value: "fedcba9876543210"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"})
	if got := Revision(); got != "fedcba9876543210-dirty" {
		t.Errorf("Revision() = %q", got)
	}
}

func TestFull(t *testing.T) {
	withBuild(t, "2.1.0", "abc1234567890")
	full := Full()
	for _, want := range []string{"stagewise version 2.1.0", "Commit: abc1234567890", "Built: "} {
		if !strings.Contains(full, want) {
			t.Errorf("Full() = %q, missing %q", full, want)
		}
	}
}

// Package testutil provides golden-file helpers for tests.
package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// updateGolden rewrites golden files instead of comparing.
// Use: go test ./internal/output -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated
func ShouldUpdate() bool {
	return *updateGolden
}

// GoldenPath returns testdata/<name>.golden relative to the test's package
func GoldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

// CompareGolden compares got against testdata/<name>.golden, failing with a
// line diff on mismatch. With -update the file is rewritten instead.
func CompareGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	path := GoldenPath(name)

	if ShouldUpdate() {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create testdata directory: %v", err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test -run %s -update",
				path, got, t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(got, expected) {
		t.Fatalf("Golden mismatch for %s:\n%s\nRun with -update to refresh:\n  go test -run %s -update",
			name, LineDiff(string(expected), string(got)), t.Name())
	}
}

// LineDiff lists the lines that differ between want and got, with their
// 1-based line numbers. Equal lines are omitted.
func LineDiff(want, got string) string {
	wantLines := strings.Split(want, "\n")
	gotLines := strings.Split(got, "\n")
	n := len(wantLines)
	if len(gotLines) > n {
		n = len(gotLines)
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		var w, g string
		hasW, hasG := i < len(wantLines), i < len(gotLines)
		if hasW {
			w = wantLines[i]
		}
		if hasG {
			g = gotLines[i]
		}
		if hasW && hasG && w == g {
			continue
		}
		if hasW {
			fmt.Fprintf(&b, "%4d - %s\n", i+1, w)
		}
		if hasG {
			fmt.Fprintf(&b, "%4d + %s\n", i+1, g)
		}
	}
	return b.String()
}

//go:build !cgo

package symbols

import (
	"context"
	"errors"
)

// errNoCGO is returned when tree-sitter parsing is unavailable due to missing CGO.
var errNoCGO = errors.New("symbol parsing requires CGO (tree-sitter)")

// TreeSitterAvailable reports whether tree-sitter parsing is compiled in.
func TreeSitterAvailable() bool {
	return false
}

func treeSitterSupports(Language) bool {
	return false
}

func parseDecls(context.Context, Language, []string) ([]Symbol, error) {
	return nil, errNoCGO
}

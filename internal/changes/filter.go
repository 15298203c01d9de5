package changes

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"stagewise/internal/errors"
)

// Matcher matches repo-relative paths against ignore globs.
//
// Patterns use '/' as separator: "*" stays within one path element and "**"
// crosses elements. A pattern without a slash also matches the base name
// ("*.lock" ignores lock files anywhere), and a trailing slash ignores a
// directory tree ("vendor/").
type Matcher struct {
	patterns []string
	globs    []glob.Glob
	baseOnly []bool
}

// NewMatcher compiles the ignore patterns
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for i, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		expr := p
		if strings.HasSuffix(expr, "/") {
			expr += "**"
		}
		g, err := glob.Compile(expr, '/')
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("ignorePatterns[%d]", i),
				fmt.Sprintf("invalid glob %q: %v", p, err))
		}
		m.patterns = append(m.patterns, p)
		m.globs = append(m.globs, g)
		m.baseOnly = append(m.baseOnly, !strings.Contains(strings.TrimSuffix(p, "/"), "/"))
	}
	return m, nil
}

// Match reports whether path is ignored
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return false
	}
	for i, g := range m.globs {
		if g.Match(path) {
			return true
		}
		if m.baseOnly[i] {
			if g.Match(Base(path)) {
				return true
			}
			// "vendor/" should also catch nested vendor trees
			if strings.HasSuffix(m.patterns[i], "/") && containsDir(path, strings.TrimSuffix(m.patterns[i], "/")) {
				return true
			}
		}
	}
	return false
}

// Len returns the number of compiled patterns
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.globs)
}

// Filter splits changes into kept and ignored paths, preserving order
func Filter(changes []GitChange, m *Matcher) (kept []GitChange, ignored []string) {
	kept = make([]GitChange, 0, len(changes))
	for _, c := range changes {
		if m.Match(c.Path) {
			ignored = append(ignored, c.Path)
			continue
		}
		kept = append(kept, c)
	}
	return kept, ignored
}

func containsDir(path, dir string) bool {
	parts := strings.Split(Dir(path), "/")
	for _, p := range parts {
		if p == dir {
			return true
		}
	}
	return false
}

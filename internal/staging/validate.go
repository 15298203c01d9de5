package staging

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"stagewise/internal/errors"
)

// Validate checks the plan against the change-set it was built from:
// the boundaries partition paths exactly, ids are unique, every dependency
// names another planned boundary, the dependency graph is acyclic, commit
// order is topological and orders run 1..n. Every violation is reported;
// the result is an INVARIANT_VIOLATION error wrapping them all.
func Validate(s StagingStrategy, paths []string) error {
	var result error

	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}
	owner := make(map[string]string)
	ids := make(map[string]bool, len(s.Commits))

	for i, c := range s.Commits {
		b := c.Boundary
		if c.Order != i+1 {
			result = multierror.Append(result, fmt.Errorf("commit %d has order %d", i+1, c.Order))
		}
		if b.ID == "" {
			result = multierror.Append(result, fmt.Errorf("commit %d has no boundary id", i+1))
		} else if ids[b.ID] {
			result = multierror.Append(result, fmt.Errorf("boundary id %s appears twice", b.ID))
		}
		ids[b.ID] = true
		if len(b.Members) == 0 {
			result = multierror.Append(result, fmt.Errorf("boundary %s is empty", b.ID))
		}
		for _, path := range b.Paths() {
			if prev, ok := owner[path]; ok {
				result = multierror.Append(result, fmt.Errorf("file %s is in boundaries %s and %s", path, prev, b.ID))
				continue
			}
			owner[path] = b.ID
			if !want[path] {
				result = multierror.Append(result, fmt.Errorf("file %s is not in the change-set", path))
			}
		}
	}
	for _, p := range paths {
		if _, ok := owner[p]; !ok {
			result = multierror.Append(result, fmt.Errorf("file %s is not in any boundary", p))
		}
	}

	for _, c := range s.Commits {
		for _, dep := range c.Boundary.Dependencies {
			switch {
			case dep == c.Boundary.ID:
				result = multierror.Append(result, fmt.Errorf("boundary %s depends on itself", dep))
			case !ids[dep]:
				result = multierror.Append(result, fmt.Errorf("boundary %s depends on unknown boundary %s", c.Boundary.ID, dep))
			}
		}
	}

	g := s.DependencyGraph()
	if cycle := g.FindCycle(); cycle != nil {
		result = multierror.Append(result, fmt.Errorf("dependency cycle through %d boundaries starting at %s", len(cycle), cycle[0].From))
	}
	order := make([]string, len(s.Commits))
	for i, c := range s.Commits {
		order[i] = c.Boundary.ID
	}
	for _, e := range g.Violations(order) {
		result = multierror.Append(result, fmt.Errorf("boundary %s is ordered before its dependency %s", e.To, e.From))
	}

	if s.TotalFiles != len(owner) {
		result = multierror.Append(result, fmt.Errorf("totalFiles is %d but boundaries hold %d files", s.TotalFiles, len(owner)))
	}

	if result != nil {
		return errors.NewInvariantError(result)
	}
	return nil
}

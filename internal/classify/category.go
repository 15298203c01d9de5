// Package classify labels a single file change with the intent it most
// likely carries: a feature, a fix, a refactor, a dependency bump and so on.
package classify

// Category is the semantic intent of a change
type Category string

const (
	FeatureAddition        Category = "feature-addition"
	BugFix                 Category = "bug-fix"
	Refactor               Category = "refactor"
	BreakingChange         Category = "breaking-change"
	PerformanceImprovement Category = "performance-improvement"
	SecurityFix            Category = "security-fix"
	Documentation          Category = "documentation"
	Testing                Category = "testing"
	Configuration          Category = "configuration"
	DependencyUpdate       Category = "dependency-update"
	Deployment             Category = "deployment"
	APIChange              Category = "api-change"
)

// severityOrder lists categories from most to least severe
var severityOrder = []Category{
	BreakingChange,
	SecurityFix,
	APIChange,
	FeatureAddition,
	BugFix,
	Refactor,
	PerformanceImprovement,
	Testing,
	Configuration,
	DependencyUpdate,
	Deployment,
	Documentation,
}

var severityRank = func() map[Category]int {
	m := make(map[Category]int, len(severityOrder))
	for i, c := range severityOrder {
		m[c] = i
	}
	return m
}()

// All returns every category, most severe first
func All() []Category {
	out := make([]Category, len(severityOrder))
	copy(out, severityOrder)
	return out
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	_, ok := severityRank[c]
	return ok
}

// Rank is the position in the severity order; 0 is the most severe.
// Unknown categories rank last.
func (c Category) Rank() int {
	if r, ok := severityRank[c]; ok {
		return r
	}
	return len(severityOrder)
}

// MoreSevere returns the more severe of a and b, a on ties
func MoreSevere(a, b Category) Category {
	if b.Rank() < a.Rank() {
		return b
	}
	return a
}

// IsCompanion reports whether c usually accompanies other work rather than
// standing alone: tests and docs.
func (c Category) IsCompanion() bool {
	return c == Testing || c == Documentation
}

// ConventionalType maps a category to a conventional-commit type
func (c Category) ConventionalType() string {
	switch c {
	case FeatureAddition, APIChange, BreakingChange:
		return "feat"
	case BugFix, SecurityFix:
		return "fix"
	case Refactor:
		return "refactor"
	case PerformanceImprovement:
		return "perf"
	case Documentation:
		return "docs"
	case Testing:
		return "test"
	case DependencyUpdate:
		return "build"
	case Deployment:
		return "ci"
	case Configuration:
		return "chore"
	default:
		return "chore"
	}
}

var suggestedActions = map[Category][]string{
	FeatureAddition:        {"add tests covering the new behavior", "update user-facing documentation"},
	BugFix:                 {"add a regression test", "reference the issue in the commit message"},
	Refactor:               {"confirm behavior is unchanged by running the test suite"},
	BreakingChange:         {"document the migration path", "bump the major version", "notify API consumers"},
	PerformanceImprovement: {"include benchmark results in the commit body"},
	SecurityFix:            {"review with a security owner", "consider a security advisory"},
	Documentation:          {"check links and code samples"},
	Testing:                {"run the affected test suites"},
	Configuration:          {"verify configuration in every environment"},
	DependencyUpdate:       {"review the upstream changelog", "commit manifest and lock file together"},
	Deployment:             {"validate the pipeline on a branch before merging"},
	APIChange:              {"update API documentation and client SDKs", "check backwards compatibility"},
}

// SuggestedActions returns the fixed follow-up actions for c
func SuggestedActions(c Category) []string {
	actions := suggestedActions[c]
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

package staging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagewise/internal/boundary"
	"stagewise/internal/changes"
	"stagewise/internal/classify"
	"stagewise/internal/impact"
)

func member(path string, cat classify.Category, ins int) boundary.Member {
	return boundary.Member{
		Change:     changes.GitChange{Path: path, ChangeType: changes.Modified, Insertions: ins, Deletions: 1},
		Category:   cat,
		Confidence: 0.8,
		Risk:       impact.RiskLow,
	}
}

func bnd(members ...boundary.Member) boundary.CommitBoundary {
	return boundary.Describe(members, boundary.DefaultOptions())
}

func after(b boundary.CommitBoundary, deps ...boundary.CommitBoundary) boundary.CommitBoundary {
	for _, d := range deps {
		b.Dependencies = append(b.Dependencies, d.ID)
	}
	return b
}

// fixture: tests depend on feature; docs stand alone
func fixture() (feature, tests, docs boundary.CommitBoundary) {
	feature = bnd(member("src/auth.ts", classify.FeatureAddition, 10))
	tests = after(bnd(member("test/auth.test.ts", classify.Testing, 10)), feature)
	docs = bnd(member("docs/guide.md", classify.Documentation, 10))
	return
}

func TestPlan_DependencyOrder(t *testing.T) {
	feature, tests, docs := fixture()

	s, err := NewPlanner(Options{MaxBoundarySize: 8}, nil).Plan(Input{
		Boundaries: []boundary.CommitBoundary{tests, feature, docs},
	})
	require.NoError(t, err)
	require.Len(t, s.Commits, 3)

	assert.Equal(t, feature.ID, s.Commits[0].Boundary.ID)
	assert.Equal(t, docs.ID, s.Commits[1].Boundary.ID)
	assert.Equal(t, tests.ID, s.Commits[2].Boundary.ID)
	for i, c := range s.Commits {
		assert.Equal(t, i+1, c.Order)
	}
	assert.Equal(t, Progressive, s.Strategy)
	assert.Equal(t, 3, s.TotalFiles)
	assert.Equal(t, impact.RiskLow, s.OverallRisk)
	assert.NotNil(t, s.Warnings)
	assert.Empty(t, s.Warnings)

	assert.NoError(t, Validate(s, []string{"src/auth.ts", "test/auth.test.ts", "docs/guide.md"}))
}

func TestPlan_PriorityBreaksTies(t *testing.T) {
	low := bnd(member("a/x.go", classify.Refactor, 5))
	high := bnd(member("b/y.go", classify.FeatureAddition, 5))
	high.Priority = boundary.PriorityHigh

	s, err := NewPlanner(Options{}, nil).Plan(Input{Boundaries: []boundary.CommitBoundary{low, high}})
	require.NoError(t, err)
	assert.Equal(t, high.ID, s.Commits[0].Boundary.ID)
	assert.Equal(t, low.ID, s.Commits[1].Boundary.ID)
	assert.Equal(t, Parallel, s.Strategy)
}

func TestPlan_Sequential(t *testing.T) {
	feature, tests, _ := fixture()
	s, err := NewPlanner(Options{}, nil).Plan(Input{Boundaries: []boundary.CommitBoundary{feature, tests}})
	require.NoError(t, err)
	assert.Equal(t, Sequential, s.Strategy)
}

func TestPlan_CommitMetadata(t *testing.T) {
	feature, tests, _ := fixture()
	s, err := NewPlanner(Options{}, nil).Plan(Input{Boundaries: []boundary.CommitBoundary{feature, tests}})
	require.NoError(t, err)

	first := s.Commits[0]
	assert.Equal(t, "feat", first.Message.Type)
	assert.Equal(t, feature.Theme, first.Message.Title)
	assert.Equal(t, "- src/auth.ts (+10/-1)", first.Message.Body)
	assert.False(t, first.Message.Breaking)
	assert.Contains(t, first.Rationale, "Independent")
	assert.Equal(t, EstimateTime(feature.EstimatedComplexity, 1), first.EstimatedTime)

	second := s.Commits[1]
	assert.Equal(t, "test", second.Message.Type)
	assert.Contains(t, second.Rationale, "Follows 1 prerequisite")
}

func TestPlan_Warnings(t *testing.T) {
	forced := bnd(
		member("a/one.go", classify.Refactor, 5),
		member("a/two.go", classify.Refactor, 5),
		member("a/three.go", classify.Refactor, 5),
	)
	forced.Forced = true

	s, err := NewPlanner(Options{MaxBoundarySize: 2, ComplexityThreshold: 0.5}, nil).Plan(Input{
		Boundaries:    []boundary.CommitBoundary{forced},
		CycleWarnings: []string{"cycle warning"},
		BuildWarnings: []string{"build warning"},
	})
	require.NoError(t, err)
	require.Len(t, s.Warnings, 4)
	assert.Contains(t, s.Warnings[0], "forced")
	assert.Contains(t, s.Warnings[0], "maximum of 2")
	assert.Equal(t, "cycle warning", s.Warnings[1])
	assert.Contains(t, s.Warnings[2], "consider splitting")
	assert.Equal(t, "build warning", s.Warnings[3])
}

func TestPlan_DoesNotAliasInput(t *testing.T) {
	feature, tests, _ := fixture()
	in := []boundary.CommitBoundary{feature, tests}
	s, err := NewPlanner(Options{}, nil).Plan(Input{Boundaries: in})
	require.NoError(t, err)

	s.Commits[1].Boundary.Dependencies[0] = "changed"
	s.Commits[0].Boundary.Members[0].Change.Path = "changed"
	assert.Equal(t, feature.ID, in[1].Dependencies[0])
	assert.Equal(t, "src/auth.ts", in[0].Members[0].Change.Path)
}

func TestEstimateTime(t *testing.T) {
	assert.Equal(t, 2, EstimateTime(0, 0))
	assert.Equal(t, 5, EstimateTime(2.1, 1))
	assert.Equal(t, 17, EstimateTime(10, 10))
}

func TestRestabilize(t *testing.T) {
	feature, tests, docs := fixture()
	commits := []PlannedCommit{
		{Boundary: tests},
		{Boundary: docs},
		{Boundary: feature},
	}
	out, err := Restabilize(commits)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, docs.ID, out[0].Boundary.ID)
	assert.Equal(t, feature.ID, out[1].Boundary.ID)
	assert.Equal(t, tests.ID, out[2].Boundary.ID)
}

func TestNormalize(t *testing.T) {
	feature, tests, _ := fixture()
	feature.Members[0].Risk = impact.RiskHigh
	s := StagingStrategy{Commits: []PlannedCommit{
		{Order: 7, Boundary: feature, Risk: impact.RiskHigh},
		{Order: 3, Boundary: tests, Risk: impact.RiskLow},
	}}
	out := s.Normalize()
	assert.Equal(t, 1, out.Commits[0].Order)
	assert.Equal(t, 2, out.Commits[1].Order)
	assert.Equal(t, impact.RiskHigh, out.OverallRisk)
	assert.Equal(t, 2, out.TotalFiles)
	assert.Equal(t, Sequential, out.Strategy)
	assert.NotNil(t, out.Warnings)
	// the input keeps its numbering
	assert.Equal(t, 7, s.Commits[0].Order)
}

func TestMessageSkeletonHeader(t *testing.T) {
	m := MessageSkeleton{Type: "feat", Scope: "authentication", Title: "add login", Breaking: true}
	assert.Equal(t, "feat(authentication)!: add login", m.Header())

	m = MessageSkeleton{Type: "docs", Title: "readme"}
	assert.Equal(t, "docs: readme", m.Header())
}

func TestStagingStrategyHelpers(t *testing.T) {
	feature, tests, _ := fixture()
	s, err := NewPlanner(Options{}, nil).Plan(Input{Boundaries: []boundary.CommitBoundary{feature, tests}})
	require.NoError(t, err)

	assert.Equal(t, 1, s.IndexOf(tests.ID))
	assert.Equal(t, -1, s.IndexOf("missing"))
	assert.Equal(t, []string{"src/auth.ts", "test/auth.test.ts"}, s.Paths())

	c := s.Clone()
	c.Commits[0].Boundary.Members[0].Change.Path = "x"
	c.Warnings = append(c.Warnings, "w")
	assert.Equal(t, "src/auth.ts", s.Commits[0].Boundary.Members[0].Change.Path)
	assert.Empty(t, s.Warnings)
}

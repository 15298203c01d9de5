package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagewise/internal/boundary"
	"stagewise/internal/changes"
	"stagewise/internal/classify"
	"stagewise/internal/config"
	"stagewise/internal/errors"
	"stagewise/internal/staging"
)

// authFeature is +80/-4 in a security-sensitive module, introducing login
func authFeature() changes.GitChange {
	added := []string{
		"export function login(user: string, pin: string): Session {",
		"  const session = createSession(user);",
		"  return session;",
		"}",
	}
	for i := len(added); i < 80; i++ {
		added = append(added, fmt.Sprintf("  const field%d = user.length + %d;", i, i))
	}
	removed := []string{"// placeholder one", "// placeholder two", "// placeholder three", "// placeholder four"}
	return changes.NewChange("src/auth.ts", changes.Modified, added, removed)
}

// authTest is +40/-0
func authTest() changes.GitChange {
	added := []string{"import { login } from '../src/auth';", "describe('login', () => {"}
	for i := len(added); i < 39; i++ {
		added = append(added, fmt.Sprintf("  it('case %d', () => expect(login('u', '%d')).toBeDefined());", i, i))
	}
	added = append(added, "});")
	return changes.NewChange("test/auth.test.ts", changes.Added, added, nil)
}

func readme() changes.GitChange {
	return changes.NewChange("README.md", changes.Modified, []string{"## Usage", "Run the tool from the repo root."}, nil)
}

func manifestBump() changes.GitChange {
	return changes.NewChange("package.json", changes.Modified,
		[]string{`    "react": "^18.3.0",`},
		[]string{`    "react": "^18.2.0",`})
}

func button() changes.GitChange {
	return changes.NewChange("src/ui/Button.tsx", changes.Added, []string{"export const Button = () => <button />;"}, nil)
}

func newEngine(t *testing.T, mutate func(*Options)) *Engine {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts, nil)
	require.NoError(t, err)
	return e
}

func commitWith(t *testing.T, s staging.StagingStrategy, path string) staging.PlannedCommit {
	t.Helper()
	for _, c := range s.Commits {
		if c.Boundary.Contains(path) {
			return c
		}
	}
	t.Fatalf("no commit contains %s", path)
	return staging.PlannedCommit{}
}

func assertInvariants(t *testing.T, s staging.StagingStrategy, cs []changes.GitChange) {
	t.Helper()
	assert.ElementsMatch(t, changes.Paths(cs), s.Paths())
	g := s.DependencyGraph()
	assert.True(t, g.IsAcyclic())
	order := make([]string, len(s.Commits))
	for i, c := range s.Commits {
		order[i] = c.Boundary.ID
	}
	assert.Empty(t, g.Violations(order))
	assert.NoError(t, staging.Validate(s, changes.Paths(cs)))
}

func TestPlan_AuthFeatureWithTests(t *testing.T) {
	cs := []changes.GitChange{authFeature(), authTest()}
	require.Equal(t, 80, cs[0].Insertions)
	require.Equal(t, 4, cs[0].Deletions)
	require.Equal(t, 40, cs[1].Insertions)

	s, err := newEngine(t, nil).Plan(context.Background(), cs)
	require.NoError(t, err)
	assertInvariants(t, s, cs)

	require.Len(t, s.Commits, 1)
	b := s.Commits[0].Boundary
	assert.Equal(t, []string{"src/auth.ts", "test/auth.test.ts"}, b.Paths())
	assert.Contains(t, b.Theme, "authentication")
	assert.Equal(t, classify.FeatureAddition, b.Category)
	assert.Equal(t, boundary.PriorityHigh, b.Priority)
	assert.Equal(t, staging.Parallel, s.Strategy)
	assert.Equal(t, "feat", s.Commits[0].Message.Type)
}

func TestPlan_Readme(t *testing.T) {
	cs := []changes.GitChange{readme()}
	s, err := newEngine(t, nil).Plan(context.Background(), cs)
	require.NoError(t, err)
	assertInvariants(t, s, cs)

	require.Len(t, s.Commits, 1)
	b := s.Commits[0].Boundary
	assert.Equal(t, classify.Documentation, b.Category)
	assert.Equal(t, boundary.PriorityLow, b.Priority)
	assert.Empty(t, b.Dependencies)
	assert.Equal(t, staging.Parallel, s.Strategy)
	assert.Equal(t, 1, s.TotalFiles)
}

func TestPlan_UnrelatedChanges(t *testing.T) {
	cs := []changes.GitChange{manifestBump(), button()}
	s, err := newEngine(t, nil).Plan(context.Background(), cs)
	require.NoError(t, err)
	assertInvariants(t, s, cs)

	require.Len(t, s.Commits, 2)
	assert.Equal(t, classify.DependencyUpdate, commitWith(t, s, "package.json").Boundary.Category)
	assert.Equal(t, classify.FeatureAddition, commitWith(t, s, "src/ui/Button.tsx").Boundary.Category)
	for _, c := range s.Commits {
		assert.Empty(t, c.Boundary.Dependencies)
	}
	assert.Equal(t, staging.Parallel, s.Strategy)
}

func TestPlan_TestsFollowFeatureWhenSplit(t *testing.T) {
	cs := []changes.GitChange{authTest(), authFeature()}
	s, err := newEngine(t, func(o *Options) { o.MaxBoundarySize = 1 }).Plan(context.Background(), cs)
	require.NoError(t, err)
	assertInvariants(t, s, cs)

	require.Len(t, s.Commits, 2)
	feature, tests := s.Commits[0].Boundary, s.Commits[1].Boundary
	assert.Equal(t, []string{"src/auth.ts"}, feature.Paths())
	assert.Equal(t, []string{feature.ID}, tests.Dependencies)
	assert.Equal(t, staging.Sequential, s.Strategy)
}

func TestPlan_SizeBound(t *testing.T) {
	cs := []changes.GitChange{
		changes.NewChange("alpha/one.go", changes.Modified, []string{"var apple = 1"}, nil),
		changes.NewChange("beta/two.py", changes.Modified, []string{"banana = 2"}, nil),
		changes.NewChange("gamma/three.rb", changes.Modified, []string{"cherry = 3"}, nil),
		changes.NewChange("delta/four.java", changes.Modified, []string{"int durian = 4;"}, nil),
		changes.NewChange("epsilon/five.c", changes.Modified, []string{"int elder = 5;"}, nil),
	}
	s, err := newEngine(t, func(o *Options) { o.MaxBoundarySize = 2 }).Plan(context.Background(), cs)
	require.NoError(t, err)
	assertInvariants(t, s, cs)

	assert.GreaterOrEqual(t, len(s.Commits), 3)
	for _, c := range s.Commits {
		assert.LessOrEqual(t, c.Boundary.FileCount(), 2)
	}
}

func TestPlan_EmptyInput(t *testing.T) {
	e := newEngine(t, func(o *Options) { o.IgnorePatterns = []string{"*.md"} })

	s, err := e.Plan(context.Background(), nil)
	assert.True(t, errors.HasCode(err, errors.EmptyInput))
	assert.Empty(t, s.Commits)

	_, err = e.Plan(context.Background(), []changes.GitChange{readme()})
	assert.True(t, errors.HasCode(err, errors.EmptyInput))
}

func TestPlan_InvalidChanges(t *testing.T) {
	cs := []changes.GitChange{readme(), readme()}
	s, err := newEngine(t, nil).Plan(context.Background(), cs)
	assert.True(t, errors.HasCode(err, errors.ValidationError))
	assert.Empty(t, s.Commits)
}

func TestPlan_SizeGuard(t *testing.T) {
	cs := []changes.GitChange{authFeature(), authTest(), readme()}
	s, err := newEngine(t, func(o *Options) { o.SizeGuard = 2 }).Plan(context.Background(), cs)
	require.NoError(t, err)
	assertInvariants(t, s, cs)

	require.NotEmpty(t, s.Warnings)
	assert.Contains(t, s.Warnings[0], "size guard of 2")
	// path-only test pairing still groups the feature with its test
	assert.Equal(t, commitWith(t, s, "src/auth.ts").Boundary.ID, commitWith(t, s, "test/auth.test.ts").Boundary.ID)
}

func TestPlan_Deterministic(t *testing.T) {
	cs := []changes.GitChange{authFeature(), manifestBump(), readme(), button(), authTest(),
		changes.NewChange("yarn.lock", changes.Modified, []string{"react@^18.3.0:"}, nil),
		changes.NewChange(".github/workflows/ci.yml", changes.Modified, []string{"    runs-on: ubuntu-latest"}, nil),
	}
	e := newEngine(t, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var docs [][]byte
	for range 3 {
		s, err := e.Plan(context.Background(), cs)
		require.NoError(t, err)
		assertInvariants(t, s, cs)
		raw, err := json.Marshal(staging.NewDocument(s, now))
		require.NoError(t, err)
		docs = append(docs, raw)
	}
	assert.Equal(t, string(docs[0]), string(docs[1]))
	assert.Equal(t, string(docs[0]), string(docs[2]))
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		field  string
	}{
		{"max below min", func(o *Options) { o.MinBoundarySize = 3; o.MaxBoundarySize = 2 }, "maxBoundarySize"},
		{"zero min", func(o *Options) { o.MinBoundarySize = 0 }, "minBoundarySize"},
		{"complexity above scale", func(o *Options) { o.ComplexityThreshold = 11 }, "complexityThreshold"},
		{"edge threshold", func(o *Options) { o.EdgeThreshold = 0 }, "edgeThreshold"},
		{"size guard", func(o *Options) { o.SizeGuard = 0 }, "sizeGuard"},
		{"empty pattern", func(o *Options) { o.IgnorePatterns = []string{""} }, "ignorePatterns[0]"},
		{"weights", func(o *Options) { o.Weights.Fallback = 0.9 }, "weights.fallback"},
		{"bad glob", func(o *Options) { o.IgnorePatterns = []string{"[abc"} }, "ignorePatterns[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			e, err := New(opts, nil)
			require.Error(t, err)
			assert.Nil(t, e)
			assert.True(t, errors.HasCode(err, errors.ValidationError))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestDefaultOptionsAreValid(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Equal(t, 1, DefaultOptions().MinBoundarySize)
	assert.Equal(t, 8, DefaultOptions().MaxBoundarySize)
	assert.Equal(t, 500, DefaultOptions().SizeGuard)
}

func TestOptionsFromConfigMatchesDefaults(t *testing.T) {
	assert.Equal(t, DefaultOptions(), OptionsFromConfig(config.DefaultConfig()))

	cfg := config.DefaultConfig()
	cfg.Boundaries.MaxSize = 3
	cfg.IgnorePatterns = []string{"vendor/"}
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 3, opts.MaxBoundarySize)
	assert.Equal(t, []string{"vendor/"}, opts.IgnorePatterns)
}

package relations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagewise/internal/changes"
	"stagewise/internal/symbols"
)

func newTestAnalyzer(opts Options) *Analyzer {
	return NewAnalyzer(opts, symbols.NewExtractor(nil).PatternOnly(), nil)
}

func find(rels []FileRelationship, a, b string, t Type) (FileRelationship, bool) {
	for _, r := range rels {
		if r.Type == t && r.Involves(a) && r.Involves(b) {
			return r, true
		}
	}
	return FileRelationship{}, false
}

func TestAnalyze_TestPairAndImport(t *testing.T) {
	cs := []changes.GitChange{
		changes.NewChange("src/auth.ts", changes.Modified, []string{
			"export function login(user: string, pin: string): Session {",
			"  return createSession(user);",
			"}",
		}, nil),
		changes.NewChange("test/auth.test.ts", changes.Added, []string{
			"import { login } from '../src/auth';",
			"test('login works', () => {",
			"  expect(login('a', 'b')).toBeTruthy();",
			"});",
		}, nil),
	}

	rels, err := newTestAnalyzer(Options{}).Analyze(context.Background(), cs)
	require.NoError(t, err)

	tp, ok := find(rels, "src/auth.ts", "test/auth.test.ts", TestPair)
	require.True(t, ok)
	assert.Equal(t, 0.9, tp.Strength)
	assert.Equal(t, "src/auth.ts", tp.FileA)
	assert.Equal(t, "test/auth.test.ts", tp.FileB)

	imp, ok := find(rels, "src/auth.ts", "test/auth.test.ts", Import)
	require.True(t, ok)
	assert.Equal(t, 0.9, imp.Strength)
	assert.Contains(t, imp.Evidence, "../src/auth")
}

func TestAnalyze_GoPackageImport(t *testing.T) {
	cs := []changes.GitChange{
		changes.NewChange("internal/store/store.go", changes.Modified, []string{"func (s *Store) Put(k string) {}"}, nil),
		changes.NewChange("cmd/app/main.go", changes.Modified, []string{`	"example.com/app/internal/store"`}, nil),
	}
	rels, err := newTestAnalyzer(Options{}).Analyze(context.Background(), cs)
	require.NoError(t, err)

	r, ok := find(rels, "internal/store/store.go", "cmd/app/main.go", Import)
	require.True(t, ok)
	assert.Equal(t, 0.9, r.Strength)
	assert.Equal(t, "cmd/app/main.go", r.FileA)
}

func TestAnalyze_SymbolMentionAndSharedFunction(t *testing.T) {
	cs := []changes.GitChange{
		changes.NewChange("src/token.ts", changes.Modified, []string{
			"export function validateToken(t: string): boolean {",
			"  return t.length > 0;",
			"}",
		}, nil),
		changes.NewChange("src/guard.ts", changes.Modified, []string{
			"  if (!validateToken(req.token)) {",
			"    deny(req);",
			"  }",
		}, nil),
	}
	rels, err := newTestAnalyzer(Options{}).Analyze(context.Background(), cs)
	require.NoError(t, err)

	imp, ok := find(rels, "src/token.ts", "src/guard.ts", Import)
	require.True(t, ok)
	assert.Equal(t, 0.55, imp.Strength)
	assert.Contains(t, imp.Evidence, "validateToken")

	shared, ok := find(rels, "src/token.ts", "src/guard.ts", SharedFunction)
	require.True(t, ok)
	assert.Equal(t, 0.65, shared.Strength)

	sim, ok := find(rels, "src/token.ts", "src/guard.ts", SimilarChanges)
	require.True(t, ok)
	assert.InDelta(t, 0.474, sim.Strength, 0.001)

	// type order within a pair is fixed
	require.Len(t, rels, 3)
	assert.Equal(t, []Type{Import, SimilarChanges, SharedFunction}, []Type{rels[0].Type, rels[1].Type, rels[2].Type})
}

func TestAnalyze_SimilarChanges(t *testing.T) {
	lines := []string{"total := computeTotal(items)", "return total"}
	cs := []changes.GitChange{
		changes.NewChange("pkg/a.go", changes.Modified, lines, nil),
		changes.NewChange("pkg/b.go", changes.Modified, lines, nil),
	}
	rels, err := newTestAnalyzer(Options{}).Analyze(context.Background(), cs)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, SimilarChanges, rels[0].Type)
	assert.Equal(t, 1.0, rels[0].Strength)

	// raising the threshold above 1 suppresses it
	rels, err = newTestAnalyzer(Options{SimilarityThreshold: 1.01}).Analyze(context.Background(), cs)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestAnalyze_ConfigRelated(t *testing.T) {
	cs := []changes.GitChange{
		changes.NewChange("package.json", changes.Modified, []string{`"react": "^18.3.0",`}, nil),
		changes.NewChange("package-lock.json", changes.Modified, []string{`"version": "18.3.0",`}, nil),
		changes.NewChange("config/app.yaml", changes.Modified, []string{"port: 8080"}, nil),
		changes.NewChange("config/db.yaml", changes.Modified, []string{"pool: 5"}, nil),
		changes.NewChange("deploy/values.yaml", changes.Modified, []string{"replicas: 2"}, nil),
		changes.NewChange("web/tsconfig.json", changes.Modified, []string{`"strict": true`}, nil),
	}
	rels, err := newTestAnalyzer(Options{Degraded: true}).Analyze(context.Background(), cs)
	require.NoError(t, err)

	r, ok := find(rels, "package.json", "package-lock.json", ConfigRelated)
	require.True(t, ok)
	assert.Equal(t, 0.95, r.Strength)

	r, ok = find(rels, "config/app.yaml", "config/db.yaml", ConfigRelated)
	require.True(t, ok)
	assert.Equal(t, 0.6, r.Strength)

	r, ok = find(rels, "config/app.yaml", "web/tsconfig.json", ConfigRelated)
	assert.False(t, ok)

	r, ok = find(rels, "package.json", "web/tsconfig.json", ConfigRelated)
	require.True(t, ok)
	assert.Equal(t, 0.45, r.Strength)
	assert.Contains(t, r.Evidence, "node")
}

func TestAnalyze_ConfigAndSourceSameDir(t *testing.T) {
	cs := []changes.GitChange{
		changes.NewChange("svc/settings.yaml", changes.Modified, []string{"timeout: 5"}, nil),
		changes.NewChange("svc/server.go", changes.Modified, []string{"x := 1"}, nil),
		changes.NewChange("other/handler.go", changes.Modified, []string{"y := 2"}, nil),
	}
	rels, err := newTestAnalyzer(Options{Degraded: true}).Analyze(context.Background(), cs)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, 0.3, rels[0].Strength)
	assert.Equal(t, "svc/server.go", rels[0].FileA)
}

func TestAnalyze_DegradedSkipsContent(t *testing.T) {
	lines := []string{"total := computeTotal(items)"}
	cs := []changes.GitChange{
		changes.NewChange("pkg/a.go", changes.Modified, lines, nil),
		changes.NewChange("pkg/b.go", changes.Modified, lines, nil),
		changes.NewChange("pkg/a_test.go", changes.Modified, lines, nil),
	}
	rels, err := newTestAnalyzer(Options{Degraded: true}).Analyze(context.Background(), cs)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, TestPair, rels[0].Type)
	assert.Equal(t, 0.95, rels[0].Strength)
}

func TestAnalyze_TestPairPrefix(t *testing.T) {
	cs := []changes.GitChange{
		{Path: "src/session_store.py", ChangeType: changes.Modified, Insertions: 1},
		{Path: "tests/test_session.py", ChangeType: changes.Modified, Insertions: 1},
	}
	rels, err := newTestAnalyzer(Options{}).Analyze(context.Background(), cs)
	require.NoError(t, err)
	r, ok := find(rels, "src/session_store.py", "tests/test_session.py", TestPair)
	require.True(t, ok)
	assert.Equal(t, 0.6, r.Strength)
}

func TestAnalyze_DeterministicAcrossWorkers(t *testing.T) {
	var cs []changes.GitChange
	for _, p := range []string{"a/x.go", "a/x_test.go", "b/y.ts", "b/y.test.ts", "go.mod", "go.sum", "c/z.py", "README.md"} {
		cs = append(cs, changes.NewChange(p, changes.Modified, []string{"value := compute(input)"}, nil))
	}

	one, err := newTestAnalyzer(Options{Workers: 1}).Analyze(context.Background(), cs)
	require.NoError(t, err)
	many, err := newTestAnalyzer(Options{Workers: 8}).Analyze(context.Background(), cs)
	require.NoError(t, err)
	assert.Equal(t, one, many)

	for _, r := range one {
		assert.Less(t, r.FileA, r.FileB)
		assert.GreaterOrEqual(t, r.Strength, 0.0)
		assert.LessOrEqual(t, r.Strength, 1.0)
	}
}

func TestAnalyze_SmallInputs(t *testing.T) {
	a := newTestAnalyzer(Options{})
	rels, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rels)

	rels, err = a.Analyze(context.Background(), []changes.GitChange{{Path: "a.go", ChangeType: changes.Added}})
	require.NoError(t, err)
	assert.NotNil(t, rels)
	assert.Empty(t, rels)
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cs := []changes.GitChange{{Path: "a.go", ChangeType: changes.Added}, {Path: "b.go", ChangeType: changes.Added}}
	_, err := newTestAnalyzer(Options{}).Analyze(ctx, cs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPairOffset(t *testing.T) {
	n := 5
	idx := 0
	for i := 0; i < n-1; i++ {
		assert.Equal(t, idx, pairOffset(i, n))
		idx += n - i - 1
	}
	assert.Equal(t, n*(n-1)/2, idx)
}

func TestMaxStrengths(t *testing.T) {
	m := MaxStrengths([]FileRelationship{
		{FileA: "a", FileB: "b", Type: SimilarChanges, Strength: 0.4},
		{FileA: "a", FileB: "b", Type: TestPair, Strength: 0.9},
		{FileA: "a", FileB: "c", Type: Import, Strength: 0.55},
	})
	assert.Equal(t, 0.9, m[[2]string{"a", "b"}])
	assert.Equal(t, 0.55, m[[2]string{"a", "c"}])
}

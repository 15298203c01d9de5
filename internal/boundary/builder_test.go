package boundary

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagewise/internal/changes"
	"stagewise/internal/classify"
	"stagewise/internal/errors"
	"stagewise/internal/impact"
	"stagewise/internal/relations"
)

type fileSpec struct {
	path     string
	category classify.Category
	conf     float64
	ins, del int
	critical bool
}

func inputs(specs ...fileSpec) ([]changes.GitChange, []classify.Analysis, []impact.Assessment) {
	cs := make([]changes.GitChange, len(specs))
	as := make([]classify.Analysis, len(specs))
	im := make([]impact.Assessment, len(specs))
	for i, s := range specs {
		cs[i] = changes.GitChange{Path: s.path, ChangeType: changes.Modified, Insertions: s.ins, Deletions: s.del}
		as[i] = classify.Analysis{Path: s.path, Category: s.category, Confidence: s.conf}
		level := impact.RiskLow
		if s.critical {
			level = impact.RiskHigh
		}
		im[i] = impact.Assessment{Path: s.path, Level: level, Critical: s.critical}
	}
	return cs, as, im
}

func rel(a, b string, t relations.Type, s float64) relations.FileRelationship {
	if b < a {
		a, b = b, a
	}
	return relations.FileRelationship{FileA: a, FileB: b, Type: t, Strength: s}
}

func TestBuild_TestPairJoinsFeature(t *testing.T) {
	cs, as, im := inputs(
		fileSpec{path: "src/auth.ts", category: classify.FeatureAddition, conf: 0.75, ins: 80, del: 4, critical: true},
		fileSpec{path: "test/auth.test.ts", category: classify.Testing, conf: 0.95, ins: 40},
	)
	rels := []relations.FileRelationship{rel("src/auth.ts", "test/auth.test.ts", relations.TestPair, 0.9)}

	res, err := NewBuilder(Options{MinBoundarySize: 1, MaxBoundarySize: 8}, nil).Build(cs, as, im, rels)
	require.NoError(t, err)
	require.Len(t, res.Boundaries, 1)

	b := res.Boundaries[0]
	assert.Equal(t, []string{"src/auth.ts", "test/auth.test.ts"}, b.Paths())
	assert.Equal(t, classify.FeatureAddition, b.Category)
	assert.Equal(t, "feature-addition: authentication", b.Theme)
	assert.Contains(t, b.Theme, "authentication")
	assert.Equal(t, PriorityHigh, b.Priority)
	assert.Equal(t, BoundaryID([]string{"test/auth.test.ts", "src/auth.ts"}), b.ID)
	assert.Contains(t, b.Reasoning, "test_pair")
	assert.Empty(t, b.Dependencies)
	assert.NotNil(t, b.Dependencies)
	assert.False(t, b.Forced)
	assert.Empty(t, res.Warnings)
}

func TestBuild_SizeBound(t *testing.T) {
	var specs []fileSpec
	for i := 0; i < 5; i++ {
		specs = append(specs, fileSpec{path: fmt.Sprintf("pkg%d/file%d.go", i, i), category: classify.Refactor, conf: 0.5, ins: 1})
	}
	cs, as, im := inputs(specs...)

	// unrelated
	res, err := NewBuilder(Options{MaxBoundarySize: 2}, nil).Build(cs, as, im, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(res.Boundaries), 3)

	// fully related
	var rels []relations.FileRelationship
	for i := 0; i < 5; i++ {
		for j := i + 1; j < 5; j++ {
			rels = append(rels, rel(cs[i].Path, cs[j].Path, relations.SimilarChanges, 0.9))
		}
	}
	res, err = NewBuilder(Options{MaxBoundarySize: 2}, nil).Build(cs, as, im, rels)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(res.Boundaries), 3)
	for _, b := range res.Boundaries {
		assert.LessOrEqual(t, b.FileCount(), 2)
		assert.False(t, b.Forced)
	}

	// force ignores the cap
	res, err = NewBuilder(Options{MaxBoundarySize: 2, Force: true}, nil).Build(cs, as, im, rels)
	require.NoError(t, err)
	require.Len(t, res.Boundaries, 1)
	assert.True(t, res.Boundaries[0].Forced)
}

func TestBuild_PartitionAndOrder(t *testing.T) {
	cs, as, im := inputs(
		fileSpec{path: "a/one.go", category: classify.Refactor, conf: 0.6, ins: 3},
		fileSpec{path: "b/two.go", category: classify.Refactor, conf: 0.6, ins: 3},
		fileSpec{path: "a/one_test.go", category: classify.Testing, conf: 0.95, ins: 3},
		fileSpec{path: "c/three.go", category: classify.BugFix, conf: 0.7, ins: 3},
	)
	rels := []relations.FileRelationship{
		rel("a/one.go", "a/one_test.go", relations.TestPair, 0.95),
		rel("b/two.go", "c/three.go", relations.SimilarChanges, 0.2), // below the edge threshold
	}
	res, err := NewBuilder(Options{}, nil).Build(cs, as, im, rels)
	require.NoError(t, err)
	require.Len(t, res.Boundaries, 3)
	assert.Equal(t, []string{"a/one.go", "a/one_test.go"}, res.Boundaries[0].Paths())
	assert.Equal(t, []string{"b/two.go"}, res.Boundaries[1].Paths())
	assert.Equal(t, []string{"c/three.go"}, res.Boundaries[2].Paths())

	seen := map[string]int{}
	for _, b := range res.Boundaries {
		for _, p := range b.Paths() {
			seen[p]++
		}
	}
	assert.Len(t, seen, 4)
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}
}

func TestBuild_MinSize(t *testing.T) {
	cs, as, im := inputs(
		fileSpec{path: "src/a/x.go", category: classify.Refactor, conf: 0.6, ins: 1},
		fileSpec{path: "docs/z.md", category: classify.Documentation, conf: 0.95, ins: 1},
		fileSpec{path: "src/a/y.go", category: classify.Refactor, conf: 0.6, ins: 1},
	)

	// room for everyone: x joins y on directory prefix, then z joins them
	res, err := NewBuilder(Options{MinBoundarySize: 2, MaxBoundarySize: 8}, nil).Build(cs, as, im, nil)
	require.NoError(t, err)
	require.Len(t, res.Boundaries, 1)
	assert.Equal(t, []string{"src/a/x.go", "docs/z.md", "src/a/y.go"}, res.Boundaries[0].Paths())
	assert.Contains(t, res.Boundaries[0].Reasoning, "minimum")
	assert.Empty(t, res.Warnings)

	// max 2 leaves the doc stranded and reported
	res, err = NewBuilder(Options{MinBoundarySize: 2, MaxBoundarySize: 2}, nil).Build(cs, as, im, nil)
	require.NoError(t, err)
	require.Len(t, res.Boundaries, 2)
	assert.Equal(t, []string{"src/a/x.go", "src/a/y.go"}, res.Boundaries[0].Paths())
	assert.Equal(t, []string{"docs/z.md"}, res.Boundaries[1].Paths())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "docs/z.md")
}

func TestBuild_MinSizePrefersStrongestRelation(t *testing.T) {
	cs, as, im := inputs(
		fileSpec{path: "web/button.tsx", category: classify.FeatureAddition, conf: 0.8, ins: 5},
		fileSpec{path: "api/handler.go", category: classify.FeatureAddition, conf: 0.8, ins: 5},
		fileSpec{path: "api/routes.go", category: classify.FeatureAddition, conf: 0.8, ins: 5},
		fileSpec{path: "web/style.css", category: classify.Refactor, conf: 0.5, ins: 5},
	)
	rels := []relations.FileRelationship{
		rel("api/handler.go", "api/routes.go", relations.Import, 0.9),
		rel("web/button.tsx", "web/style.css", relations.SimilarChanges, 0.25),
		rel("api/routes.go", "web/style.css", relations.SimilarChanges, 0.1),
	}
	res, err := NewBuilder(Options{MinBoundarySize: 2}, nil).Build(cs, as, im, rels)
	require.NoError(t, err)
	require.Len(t, res.Boundaries, 2)
	assert.Equal(t, []string{"web/button.tsx", "web/style.css"}, res.Boundaries[0].Paths())
	assert.Equal(t, []string{"api/handler.go", "api/routes.go"}, res.Boundaries[1].Paths())
}

func TestBuild_SingleFile(t *testing.T) {
	cs, as, im := inputs(fileSpec{path: "README.md", category: classify.Documentation, conf: 0.95, ins: 3})
	res, err := NewBuilder(Options{MinBoundarySize: 4}, nil).Build(cs, as, im, nil)
	require.NoError(t, err)
	require.Len(t, res.Boundaries, 1)
	b := res.Boundaries[0]
	assert.Equal(t, classify.Documentation, b.Category)
	assert.Equal(t, PriorityLow, b.Priority)
	assert.Equal(t, "documentation: readme", b.Theme)
	assert.Empty(t, res.Warnings)
}

func TestBuild_Deterministic(t *testing.T) {
	cs, as, im := inputs(
		fileSpec{path: "a/x.go", category: classify.Refactor, conf: 0.6, ins: 1},
		fileSpec{path: "a/y.go", category: classify.Refactor, conf: 0.6, ins: 1},
		fileSpec{path: "a/z.go", category: classify.Refactor, conf: 0.6, ins: 1},
	)
	rels := []relations.FileRelationship{
		rel("a/x.go", "a/y.go", relations.SimilarChanges, 0.5),
		rel("a/y.go", "a/z.go", relations.SimilarChanges, 0.5),
		rel("a/x.go", "a/z.go", relations.SimilarChanges, 0.5),
	}
	first, err := NewBuilder(Options{MaxBoundarySize: 2}, nil).Build(cs, as, im, rels)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := NewBuilder(Options{MaxBoundarySize: 2}, nil).Build(cs, as, im, rels)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	// equal weights resolve in pair order: (x,y) first
	assert.Equal(t, []string{"a/x.go", "a/y.go"}, first.Boundaries[0].Paths())
}

func TestBuild_MismatchedInputs(t *testing.T) {
	cs, as, im := inputs(fileSpec{path: "a.go", category: classify.Refactor, conf: 0.5})
	_, err := NewBuilder(Options{}, nil).Build(cs, as[:0], im, nil)
	assert.True(t, errors.HasCode(err, errors.InternalError))
}

func TestMajorityCategory(t *testing.T) {
	m := func(c classify.Category, conf float64) Member { return Member{Category: c, Confidence: conf} }

	// companion votes are halved next to other work
	assert.Equal(t, classify.FeatureAddition, majorityCategory([]Member{
		m(classify.FeatureAddition, 0.6), m(classify.Testing, 0.95),
	}, 0.5))
	// but count in full when alone
	assert.Equal(t, classify.Testing, majorityCategory([]Member{
		m(classify.Testing, 0.6), m(classify.Documentation, 0.5),
	}, 0.5))
	// ties go to the more severe
	assert.Equal(t, classify.BugFix, majorityCategory([]Member{
		m(classify.Refactor, 0.6), m(classify.BugFix, 0.6),
	}, 0.5))
}

func TestTopicOf(t *testing.T) {
	mem := func(paths ...string) []Member {
		out := make([]Member, len(paths))
		for i, p := range paths {
			out[i] = Member{Change: changes.GitChange{Path: p}}
		}
		return out
	}
	tests := []struct {
		name     string
		category classify.Category
		paths    []string
		want     string
	}{
		{"shared directory", classify.Refactor, []string{"src/db/conn.go", "src/db/pool.go"}, "database"},
		{"shared stem", classify.FeatureAddition, []string{"src/auth.ts", "test/auth.test.ts"}, "authentication"},
		{"stem beats single directory", classify.FeatureAddition, []string{"src/Button.tsx", "src/ui/Button.test.tsx"}, "button"},
		{"noise only", classify.Refactor, []string{"src/index.ts"}, "project"},
		{"directory restating category", classify.Configuration, []string{"config/app.yaml", "config/db.yaml"}, "project"},
		{"docs directory skipped", classify.Documentation, []string{"docs/api/guide.md", "docs/api/intro.md"}, "api"},
		{"directory beats stem on tie", classify.Configuration, []string{"alpha/one.yaml"}, "alpha"},
		{"unshared stems skipped", classify.Refactor, []string{"billing/one.go", "billing/two.go"}, "billing"},
		{"category word skipped", classify.SecurityFix, []string{"sec/token.go", "sec/token_test.go"}, "token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := topicOf(mem(tt.paths...), tt.category)
			assert.Equal(t, tt.want, got)
			assert.NotEqual(t, string(tt.category), got)
		})
	}
}

func TestPriority(t *testing.T) {
	var specs []fileSpec
	for i := 0; i < 6; i++ {
		specs = append(specs, fileSpec{path: fmt.Sprintf("f%d.go", i), category: classify.Refactor, conf: 0.5, ins: 1})
	}
	cs, as, im := inputs(specs...)
	members := make([]Member, len(cs))
	for i := range cs {
		members[i] = NewMember(cs[i], as[i], im[i])
	}
	opts := DefaultOptions()

	assert.Equal(t, PriorityMedium, priorityOf(members, opts))
	assert.Equal(t, PriorityLow, priorityOf(members[:5], opts))

	big := members[0]
	big.Change.Insertions = 201
	assert.Equal(t, PriorityMedium, priorityOf([]Member{big}, opts))

	crit := members[0]
	crit.Critical = true
	assert.Equal(t, PriorityHigh, priorityOf([]Member{crit}, opts))

	assert.Equal(t, PriorityHigh, MaxPriority(PriorityLow, PriorityHigh))
	assert.Equal(t, PriorityMedium, MaxPriority(PriorityMedium, PriorityLow))
}

func TestEstimateComplexity(t *testing.T) {
	assert.Equal(t, 6.1, EstimateComplexity(2, 124, true))
	assert.Equal(t, 0.5, EstimateComplexity(1, 0, false))
	assert.Equal(t, 10.0, EstimateComplexity(30, 10000, true))
	assert.Equal(t, 0.0, EstimateComplexity(0, 0, false))
}

func TestBoundaryID(t *testing.T) {
	a := BoundaryID([]string{"b.go", "a.go"})
	assert.Equal(t, a, BoundaryID([]string{"a.go", "b.go"}))
	assert.NotEqual(t, a, BoundaryID([]string{"a.go"}))

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())
}

func TestClone(t *testing.T) {
	b := Describe([]Member{{Change: changes.NewChange("a.go", changes.Added, []string{"x"}, nil)}}, DefaultOptions())
	b.Dependencies = []string{"dep"}
	c := b.Clone()
	c.Dependencies[0] = "other"
	c.Members[0].Change.Hunks[0].Lines[0].Content = "y"
	assert.Equal(t, "dep", b.Dependencies[0])
	assert.Equal(t, "x", b.Members[0].Change.Hunks[0].Lines[0].Content)
}

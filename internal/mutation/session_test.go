package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagewise/internal/errors"
)

func TestParseOperation(t *testing.T) {
	tests := []struct {
		in   string
		want Operation
	}{
		{"merge:1,2", MergeOp{A: "1", B: "2"}},
		{"split:abc:src/a.go,src/b.go", SplitOp{Ref: "abc", First: []string{"src/a.go", "src/b.go"}}},
		{"reorder:3:1", ReorderOp{Ref: "3", Position: 1}},
		{"reorder:3:1:force", ReorderOp{Ref: "3", Position: 1, Override: true}},
		{"relabel:2:title=add login: flow", RelabelOp{Ref: "2", Field: "title", Value: "add login: flow"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			op, err := ParseOperation(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, op)
			assert.Equal(t, tt.in, op.String())
		})
	}
}

func TestParseOperation_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"merge",
		"merge:1",
		"split:1",
		"reorder:1",
		"reorder:1:x",
		"reorder:1:2:now",
		"relabel:1:title",
		"squash:1,2",
	} {
		_, err := ParseOperation(in)
		assert.True(t, errors.HasCode(err, errors.OperationError), in)
	}
}

func TestSession(t *testing.T) {
	f := newFixture(t)
	s := NewSession(newService(), f.plan)

	require.NoError(t, s.Apply(MergeOp{A: "2", B: "3"}))
	require.Len(t, s.Current().Commits, 2)

	require.NoError(t, s.Apply(RelabelOp{Ref: "2", Field: FieldTitle, Value: "docs and tests"}))
	assert.Equal(t, "docs and tests", s.Current().Commits[1].Message.Title)

	// a rejected operation leaves the session where it was
	err := s.Apply(ReorderOp{Ref: "2", Position: 1})
	assert.True(t, errors.HasCode(err, errors.OperationError))
	assert.Len(t, s.Applied(), 2)

	assert.True(t, s.Undo())
	assert.Equal(t, f.docs.Theme+" + "+f.tests.Theme, s.Current().Commits[1].Message.Title)
	assert.True(t, s.Undo())
	assert.Equal(t, f.plan, s.Current())
	assert.False(t, s.Undo())
	assert.Empty(t, s.Applied())
}

func TestSession_CurrentIsACopy(t *testing.T) {
	f := newFixture(t)
	s := NewSession(newService(), f.plan)

	cur := s.Current()
	cur.Commits[0].Boundary.Members[0].Change.Path = "changed"
	assert.Equal(t, "src/auth.ts", s.Current().Commits[0].Boundary.Members[0].Change.Path)
}

func TestSplitOp_RemainderFormsSecondHalf(t *testing.T) {
	f := newFixture(t)
	s := NewSession(newService(), f.plan)

	require.NoError(t, s.Apply(SplitOp{Ref: "1", First: []string{"src/session.ts"}}))
	cur := s.Current()
	require.Len(t, cur.Commits, 4)
	assert.Equal(t, []string{"src/session.ts"}, cur.Commits[0].Boundary.Paths())
	assert.Equal(t, []string{"src/auth.ts"}, cur.Commits[1].Boundary.Paths())

	err := s.Apply(SplitOp{Ref: "1", First: []string{"src/session.ts"}})
	assert.True(t, errors.HasCode(err, errors.InvalidSplit))
}

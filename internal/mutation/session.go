package mutation

import (
	"fmt"
	"strconv"
	"strings"

	"stagewise/internal/errors"
	"stagewise/internal/staging"
)

// Operation is a replayable edit. References are resolved against the
// snapshot the operation is applied to.
type Operation interface {
	Apply(svc *Service, s staging.StagingStrategy) (staging.StagingStrategy, error)
	String() string
}

// MergeOp merges two boundaries
type MergeOp struct {
	A, B string
}

func (op MergeOp) Apply(svc *Service, s staging.StagingStrategy) (staging.StagingStrategy, error) {
	a, err := Resolve(s, op.A)
	if err != nil {
		return s, err
	}
	b, err := Resolve(s, op.B)
	if err != nil {
		return s, err
	}
	return svc.Merge(s, a, b)
}

func (op MergeOp) String() string { return fmt.Sprintf("merge:%s,%s", op.A, op.B) }

// SplitOp moves First out of a boundary; the remaining files form the
// second half
type SplitOp struct {
	Ref   string
	First []string
}

func (op SplitOp) Apply(svc *Service, s staging.StagingStrategy) (staging.StagingStrategy, error) {
	id, err := Resolve(s, op.Ref)
	if err != nil {
		return s, err
	}
	b := s.Commits[s.IndexOf(id)].Boundary
	if b.FileCount() < 2 {
		return s, errors.NewInvalidSplitError(id, b.FileCount())
	}
	inFirst := make(map[string]bool, len(op.First))
	for _, p := range op.First {
		inFirst[p] = true
	}
	var second []string
	for _, p := range b.Paths() {
		if !inFirst[p] {
			second = append(second, p)
		}
	}
	return svc.Split(s, id, op.First, second)
}

func (op SplitOp) String() string {
	return fmt.Sprintf("split:%s:%s", op.Ref, strings.Join(op.First, ","))
}

// ReorderOp moves a boundary to a 1-based position
type ReorderOp struct {
	Ref      string
	Position int
	Override bool
}

func (op ReorderOp) Apply(svc *Service, s staging.StagingStrategy) (staging.StagingStrategy, error) {
	id, err := Resolve(s, op.Ref)
	if err != nil {
		return s, err
	}
	return svc.Reorder(s, id, op.Position-1, op.Override)
}

func (op ReorderOp) String() string {
	out := fmt.Sprintf("reorder:%s:%d", op.Ref, op.Position)
	if op.Override {
		out += ":force"
	}
	return out
}

// RelabelOp edits a message skeleton field
type RelabelOp struct {
	Ref, Field, Value string
}

func (op RelabelOp) Apply(svc *Service, s staging.StagingStrategy) (staging.StagingStrategy, error) {
	id, err := Resolve(s, op.Ref)
	if err != nil {
		return s, err
	}
	return svc.Relabel(s, id, op.Field, op.Value)
}

func (op RelabelOp) String() string {
	return fmt.Sprintf("relabel:%s:%s=%s", op.Ref, op.Field, op.Value)
}

// ParseOperation reads the textual form of an operation:
//
//	merge:<ref>,<ref>
//	split:<ref>:<file>[,<file>...]
//	reorder:<ref>:<position>[:force]
//	relabel:<ref>:<field>=<value>
func ParseOperation(text string) (Operation, error) {
	kind, rest, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok || rest == "" {
		return nil, errors.NewOperationError("parse", fmt.Sprintf("malformed operation %q", text))
	}
	switch kind {
	case "merge":
		a, b, ok := strings.Cut(rest, ",")
		if !ok || a == "" || b == "" {
			return nil, errors.NewOperationError("parse", "merge needs two references: merge:<ref>,<ref>")
		}
		return MergeOp{A: a, B: b}, nil
	case "split":
		ref, files, ok := strings.Cut(rest, ":")
		if !ok || ref == "" || files == "" {
			return nil, errors.NewOperationError("parse", "split needs a reference and files: split:<ref>:<file,...>")
		}
		return SplitOp{Ref: ref, First: strings.Split(files, ",")}, nil
	case "reorder":
		parts := strings.Split(rest, ":")
		if len(parts) < 2 || len(parts) > 3 || (len(parts) == 3 && parts[2] != "force") {
			return nil, errors.NewOperationError("parse", "reorder syntax is reorder:<ref>:<position>[:force]")
		}
		pos, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, errors.NewOperationError("parse", fmt.Sprintf("invalid position %q", parts[1]))
		}
		return ReorderOp{Ref: parts[0], Position: pos, Override: len(parts) == 3}, nil
	case "relabel":
		ref, assign, ok := strings.Cut(rest, ":")
		field, value, hasValue := strings.Cut(assign, "=")
		if !ok || ref == "" || !hasValue || field == "" {
			return nil, errors.NewOperationError("parse", "relabel syntax is relabel:<ref>:<field>=<value>")
		}
		return RelabelOp{Ref: ref, Field: field, Value: value}, nil
	default:
		return nil, errors.NewOperationError("parse", fmt.Sprintf("unknown operation %q", kind))
	}
}

// Session applies operations to a plan and keeps every prior snapshot so
// edits can be undone. A Session is not safe for concurrent use.
type Session struct {
	svc     *Service
	history []staging.StagingStrategy
	applied []Operation
}

// NewSession starts a session at initial
func NewSession(svc *Service, initial staging.StagingStrategy) *Session {
	return &Session{svc: svc, history: []staging.StagingStrategy{initial.Clone()}}
}

// Current returns a copy of the latest snapshot
func (s *Session) Current() staging.StagingStrategy {
	return s.history[len(s.history)-1].Clone()
}

// Apply runs op on the latest snapshot. A failed operation leaves the
// session unchanged.
func (s *Session) Apply(op Operation) error {
	next, err := op.Apply(s.svc, s.history[len(s.history)-1])
	if err != nil {
		return err
	}
	s.history = append(s.history, next)
	s.applied = append(s.applied, op)
	return nil
}

// Undo drops the latest snapshot. It reports false when nothing is left to undo.
func (s *Session) Undo() bool {
	if len(s.history) == 1 {
		return false
	}
	s.history = s.history[:len(s.history)-1]
	s.applied = s.applied[:len(s.applied)-1]
	return true
}

// Applied lists the operations behind the current snapshot
func (s *Session) Applied() []Operation {
	return append([]Operation(nil), s.applied...)
}

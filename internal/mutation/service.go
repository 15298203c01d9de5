// Package mutation edits staging plans: merge, split, reorder and relabel.
// Every edit returns a new snapshot that satisfies the same invariants as a
// freshly planned strategy; the input snapshot is never modified.
package mutation

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"stagewise/internal/boundary"
	"stagewise/internal/classify"
	"stagewise/internal/errors"
	"stagewise/internal/slogutil"
	"stagewise/internal/staging"
)

// Relabel fields
const (
	FieldTitle = "title"
	FieldBody  = "body"
	FieldType  = "type"
)

// Service applies edits to staging strategies
type Service struct {
	opts   boundary.Options
	logger *slog.Logger
}

// NewService creates a mutation service. opts supplies the size and
// priority thresholds used to describe split halves.
func NewService(opts boundary.Options, logger *slog.Logger) *Service {
	return &Service{opts: opts, logger: slogutil.OrDiscard(logger)}
}

// Resolve maps a boundary reference to an id. A reference is an exact id,
// a 1-based commit order, or an unambiguous id prefix.
func Resolve(s staging.StagingStrategy, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.NewOperationError("resolve", "empty boundary reference")
	}
	if s.IndexOf(ref) >= 0 {
		return ref, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(s.Commits) {
			return "", errors.NewOperationError("resolve",
				fmt.Sprintf("commit %d is out of range 1..%d", n, len(s.Commits)))
		}
		return s.Commits[n-1].Boundary.ID, nil
	}
	var match string
	for _, c := range s.Commits {
		if strings.HasPrefix(c.Boundary.ID, ref) {
			if match != "" {
				return "", errors.NewOperationError("resolve", fmt.Sprintf("reference %q is ambiguous", ref))
			}
			match = c.Boundary.ID
		}
	}
	if match == "" {
		return "", errors.NewOperationError("resolve", fmt.Sprintf("no boundary matches %q", ref))
	}
	return match, nil
}

// Merge combines two boundaries. The merged boundary takes the earlier
// position; anything that depended on either now depends on it. A result
// above the maximum boundary size is rejected unless Force is set.
func (svc *Service) Merge(s staging.StagingStrategy, idA, idB string) (staging.StagingStrategy, error) {
	ia, ib := s.IndexOf(idA), s.IndexOf(idB)
	switch {
	case ia < 0:
		return s, errors.NewOperationError("merge", fmt.Sprintf("unknown boundary %s", idA))
	case ib < 0:
		return s, errors.NewOperationError("merge", fmt.Sprintf("unknown boundary %s", idB))
	case ia == ib:
		return s, errors.NewOperationError("merge", "cannot merge a boundary with itself")
	}
	if ib < ia {
		ia, ib = ib, ia
	}

	out := s.Clone()
	a, b := out.Commits[ia].Boundary, out.Commits[ib].Boundary

	members := append(append([]boundary.Member{}, a.Members...), b.Members...)
	if len(members) > svc.maxSize() && !svc.opts.Force {
		return s, errors.NewOperationError("merge", fmt.Sprintf(
			"merged boundary would have %d files, above the maximum of %d (use --force to allow)",
			len(members), svc.maxSize()))
	}
	merged := boundary.CommitBoundary{
		ID:                  boundary.BoundaryID(pathsOf(members)),
		Members:             members,
		Theme:               a.Theme + " + " + b.Theme,
		Category:            classify.MoreSevere(a.Category, b.Category),
		Topic:               a.Topic,
		Priority:            boundary.MaxPriority(a.Priority, b.Priority),
		EstimatedComplexity: math.Max(a.EstimatedComplexity, b.EstimatedComplexity),
		Reasoning:           fmt.Sprintf("merged %q and %q", a.Theme, b.Theme),
		Forced:              len(members) > svc.maxSize(),
	}
	merged.Dependencies = unionDeps(a.Dependencies, b.Dependencies, a.ID, b.ID)

	commits := make([]staging.PlannedCommit, 0, len(out.Commits)-1)
	for i, c := range out.Commits {
		switch i {
		case ia:
			c.Boundary = merged
			c.Message = staging.NewMessageSkeleton(merged)
			c.Risk = merged.Risk()
			c.EstimatedTime = staging.EstimateTime(merged.EstimatedComplexity, merged.FileCount())
			c.Rationale = "Merged by request; " + merged.Reasoning
		case ib:
			continue
		default:
			c.Boundary.Dependencies = replaceDep(c.Boundary.Dependencies, map[string][]string{
				a.ID: {merged.ID},
				b.ID: {merged.ID},
			})
		}
		commits = append(commits, c)
	}

	commits, err := staging.Restabilize(commits)
	if err != nil {
		return s, errors.New(errors.OperationError, "merge: merging these boundaries creates a dependency cycle", err, nil).
			WithDetails(map[string]string{"operation": "merge"})
	}
	out.Commits = commits
	if merged.Forced {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"boundary %q has %d files, above the maximum of %d (merged)", merged.Theme, merged.FileCount(), svc.maxSize()))
	}
	return svc.finish("merge", s, out)
}

// Split divides a boundary into first and second, which must partition its
// files. Complexity and estimated time are shared in proportion to changed
// lines, or file counts when no lines changed.
func (svc *Service) Split(s staging.StagingStrategy, id string, first, second []string) (staging.StagingStrategy, error) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return s, errors.NewOperationError("split", fmt.Sprintf("unknown boundary %s", id))
	}
	parent := s.Commits[idx]
	if n := parent.Boundary.FileCount(); n < 2 {
		return s, errors.NewInvalidSplitError(id, n)
	}
	if err := checkPartition(parent.Boundary, first, second); err != nil {
		return s, err
	}

	out := s.Clone()
	parent = out.Commits[idx]
	halves := [2]boundary.CommitBoundary{
		svc.half(parent.Boundary, first),
		svc.half(parent.Boundary, second),
	}

	totalLines := parent.Boundary.ChangedLines()
	commits := make([]staging.PlannedCommit, 0, len(out.Commits)+1)
	for i, c := range out.Commits {
		if i != idx {
			c.Boundary.Dependencies = replaceDep(c.Boundary.Dependencies, map[string][]string{
				parent.Boundary.ID: {halves[0].ID, halves[1].ID},
			})
			commits = append(commits, c)
			continue
		}
		for _, h := range halves {
			share := float64(h.FileCount()) / float64(parent.Boundary.FileCount())
			if totalLines > 0 {
				share = float64(h.ChangedLines()) / float64(totalLines)
			}
			h.EstimatedComplexity = math.Round(parent.Boundary.EstimatedComplexity*share*10) / 10
			commits = append(commits, staging.PlannedCommit{
				Boundary:      h,
				Message:       staging.NewMessageSkeleton(h),
				Rationale:     fmt.Sprintf("Split from %q by request", parent.Boundary.Theme),
				Risk:          h.Risk(),
				EstimatedTime: int(math.Round(float64(parent.EstimatedTime) * share)),
			})
		}
	}

	commits, err := staging.Restabilize(commits)
	if err != nil {
		return s, errors.New(errors.InternalError, "split produced a dependency cycle", err, nil)
	}
	out.Commits = commits
	return svc.finish("split", s, out)
}

// Reorder moves a boundary to index (0-based). A move that puts a boundary
// ahead of one of its dependencies fails unless override is set; with
// override the violated dependencies are dropped and reported.
func (svc *Service) Reorder(s staging.StagingStrategy, id string, index int, override bool) (staging.StagingStrategy, error) {
	from := s.IndexOf(id)
	if from < 0 {
		return s, errors.NewOperationError("reorder", fmt.Sprintf("unknown boundary %s", id))
	}
	if index < 0 || index >= len(s.Commits) {
		return s, errors.NewOperationError("reorder",
			fmt.Sprintf("position %d is out of range 1..%d", index+1, len(s.Commits)))
	}

	out := s.Clone()
	moved := out.Commits[from]
	commits := append(out.Commits[:from:from], out.Commits[from+1:]...)
	commits = append(commits[:index], append([]staging.PlannedCommit{moved}, commits[index:]...)...)
	out.Commits = commits

	order := make([]string, len(commits))
	for i, c := range commits {
		order[i] = c.Boundary.ID
	}
	violated := out.DependencyGraph().Violations(order)
	if len(violated) > 0 && !override {
		e := violated[0]
		return s, errors.New(errors.OperationError,
			fmt.Sprintf("reorder: %s must stay after its dependency %s", themeOf(out, e.To), themeOf(out, e.From)),
			nil, errors.GetSuggestedFixes(errors.OperationError)).
			WithDetails(map[string]any{"operation": "reorder", "violations": len(violated)})
	}
	for _, e := range violated {
		i := out.IndexOf(e.To)
		out.Commits[i].Boundary.Dependencies = removeDep(out.Commits[i].Boundary.Dependencies, e.From)
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"reorder dropped the dependency of %s on %s", themeOf(out, e.To), themeOf(out, e.From)))
	}
	return svc.finish("reorder", s, out)
}

// Relabel edits the message skeleton of a boundary
func (svc *Service) Relabel(s staging.StagingStrategy, id, field, value string) (staging.StagingStrategy, error) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return s, errors.NewOperationError("relabel", fmt.Sprintf("unknown boundary %s", id))
	}
	out := s.Clone()
	msg := &out.Commits[idx].Message
	switch field {
	case FieldTitle:
		if strings.TrimSpace(value) == "" {
			return s, errors.NewOperationError("relabel", "title cannot be empty")
		}
		msg.Title = value
	case FieldBody:
		msg.Body = value
	case FieldType:
		if strings.TrimSpace(value) == "" || strings.ContainsAny(value, " :()!") {
			return s, errors.NewOperationError("relabel", fmt.Sprintf("invalid commit type %q", value))
		}
		msg.Type = value
	default:
		return s, errors.NewOperationError("relabel",
			fmt.Sprintf("unknown field %q (want %s, %s or %s)", field, FieldTitle, FieldBody, FieldType))
	}
	return svc.finish("relabel", s, out)
}

// finish normalizes out and checks it against the file set of orig
func (svc *Service) finish(op string, orig, out staging.StagingStrategy) (staging.StagingStrategy, error) {
	out = out.Normalize()
	if err := staging.Validate(out, orig.Paths()); err != nil {
		svc.logger.Warn("mutation rejected", "operation", op, "error", err)
		return orig, err
	}
	svc.logger.Debug("mutation applied", "operation", op, "commits", len(out.Commits))
	return out, nil
}

func (svc *Service) maxSize() int {
	if svc.opts.MaxBoundarySize > 0 {
		return svc.opts.MaxBoundarySize
	}
	return boundary.DefaultOptions().MaxBoundarySize
}

func (svc *Service) half(parent boundary.CommitBoundary, paths []string) boundary.CommitBoundary {
	keep := make(map[string]bool, len(paths))
	for _, p := range paths {
		keep[p] = true
	}
	var members []boundary.Member
	for _, m := range parent.Members {
		if keep[m.Change.Path] {
			members = append(members, m)
		}
	}
	h := boundary.Describe(members, svc.opts)
	h.Dependencies = append([]string{}, parent.Dependencies...)
	h.Reasoning = fmt.Sprintf("split from %q", parent.Theme)
	return h
}

func checkPartition(b boundary.CommitBoundary, first, second []string) error {
	if len(first) == 0 || len(second) == 0 {
		return errors.NewOperationError("split", "both halves need at least one file")
	}
	seen := make(map[string]bool, b.FileCount())
	for _, half := range [][]string{first, second} {
		for _, p := range half {
			if !b.Contains(p) {
				return errors.NewOperationError("split", fmt.Sprintf("%s is not in boundary %s", p, b.ID))
			}
			if seen[p] {
				return errors.NewOperationError("split", fmt.Sprintf("%s is listed twice", p))
			}
			seen[p] = true
		}
	}
	if len(seen) != b.FileCount() {
		return errors.NewOperationError("split",
			fmt.Sprintf("halves cover %d of %d files", len(seen), b.FileCount()))
	}
	return nil
}

func pathsOf(members []boundary.Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Change.Path
	}
	return out
}

// unionDeps merges dependency lists in order, dropping duplicates and the
// excluded ids
func unionDeps(a, b []string, exclude ...string) []string {
	skip := make(map[string]bool)
	for _, id := range exclude {
		skip[id] = true
	}
	out := []string{}
	for _, id := range append(append([]string{}, a...), b...) {
		if !skip[id] {
			out = append(out, id)
			skip[id] = true
		}
	}
	return out
}

// replaceDep substitutes dependency ids, keeping order and dropping duplicates
func replaceDep(deps []string, with map[string][]string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, id := range deps {
		ids, ok := with[id]
		if !ok {
			ids = []string{id}
		}
		for _, r := range ids {
			if !seen[r] {
				out = append(out, r)
				seen[r] = true
			}
		}
	}
	return out
}

func removeDep(deps []string, id string) []string {
	out := []string{}
	for _, d := range deps {
		if d != id {
			out = append(out, d)
		}
	}
	return out
}

func themeOf(s staging.StagingStrategy, id string) string {
	if i := s.IndexOf(id); i >= 0 {
		return fmt.Sprintf("%q", s.Commits[i].Boundary.Theme)
	}
	return id
}

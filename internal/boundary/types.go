// Package boundary clusters changed files into commit boundaries: disjoint
// file sets with a theme, priority and complexity estimate.
package boundary

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"stagewise/internal/changes"
	"stagewise/internal/classify"
	"stagewise/internal/impact"
)

// Priority of a boundary
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities: low 0, medium 1, high 2
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// MaxPriority returns the higher of two priorities
func MaxPriority(a, b Priority) Priority {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Member is one file of a boundary together with its per-file verdicts
type Member struct {
	Change     changes.GitChange `json:"change"`
	Category   classify.Category `json:"category"`
	Confidence float64           `json:"confidence"`
	Risk       impact.RiskLevel  `json:"risk"`
	Critical   bool              `json:"critical"`
	Breaking   bool              `json:"breaking"`
}

// NewMember joins a change with its classification and assessment
func NewMember(c changes.GitChange, a classify.Analysis, as impact.Assessment) Member {
	return Member{
		Change:     c,
		Category:   a.Category,
		Confidence: a.Confidence,
		Risk:       as.Level,
		Critical:   as.Critical,
		Breaking:   as.Breaking,
	}
}

// CommitBoundary is a proposed logical commit
type CommitBoundary struct {
	ID                  string            `json:"id"`
	Members             []Member          `json:"members"`
	Theme               string            `json:"theme"`
	Category            classify.Category `json:"category"`
	Topic               string            `json:"topic"`
	Priority            Priority          `json:"priority"`
	EstimatedComplexity float64           `json:"estimatedComplexity"` // 0-10
	Dependencies        []string          `json:"dependencies"`
	Reasoning           string            `json:"reasoning"`
	Forced              bool              `json:"forced,omitempty"` // exceeds max size via force
}

// Files returns the member changes in order
func (b CommitBoundary) Files() []changes.GitChange {
	out := make([]changes.GitChange, len(b.Members))
	for i, m := range b.Members {
		out[i] = m.Change
	}
	return out
}

// Paths returns the member paths in order
func (b CommitBoundary) Paths() []string {
	out := make([]string, len(b.Members))
	for i, m := range b.Members {
		out[i] = m.Change.Path
	}
	return out
}

// FileCount is the number of member files
func (b CommitBoundary) FileCount() int {
	return len(b.Members)
}

// ChangedLines totals insertions and deletions over members
func (b CommitBoundary) ChangedLines() int {
	total := 0
	for _, m := range b.Members {
		total += m.Change.ChangedLines()
	}
	return total
}

// Risk is the highest member risk level
func (b CommitBoundary) Risk() impact.RiskLevel {
	level := impact.RiskLow
	for _, m := range b.Members {
		level = impact.MaxLevel(level, m.Risk)
	}
	return level
}

// HasCritical reports whether any member is a critical file
func (b CommitBoundary) HasCritical() bool {
	for _, m := range b.Members {
		if m.Critical {
			return true
		}
	}
	return false
}

// Breaking reports whether any member breaks exported API
func (b CommitBoundary) Breaking() bool {
	for _, m := range b.Members {
		if m.Breaking {
			return true
		}
	}
	return false
}

// Contains reports whether path is a member
func (b CommitBoundary) Contains(path string) bool {
	for _, m := range b.Members {
		if m.Change.Path == path {
			return true
		}
	}
	return false
}

// DependsOn reports whether id is among the dependencies
func (b CommitBoundary) DependsOn(id string) bool {
	for _, d := range b.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (b CommitBoundary) Clone() CommitBoundary {
	out := b
	out.Members = make([]Member, len(b.Members))
	for i, m := range b.Members {
		out.Members[i] = m
		out.Members[i].Change = cloneChange(m.Change)
	}
	out.Dependencies = append([]string{}, b.Dependencies...)
	return out
}

func cloneChange(c changes.GitChange) changes.GitChange {
	if c.Hunks == nil {
		return c
	}
	hunks := make([]changes.DiffHunk, len(c.Hunks))
	for i, h := range c.Hunks {
		hunks[i] = h
		hunks[i].Lines = append([]changes.DiffLine(nil), h.Lines...)
	}
	c.Hunks = hunks
	return c
}

// boundaryNamespace scopes boundary ids
var boundaryNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("stagewise.boundary"))

// BoundaryID derives the deterministic id of a file set: a UUIDv5 over the
// sorted paths, independent of member order.
func BoundaryID(paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	return uuid.NewSHA1(boundaryNamespace, []byte(strings.Join(sorted, "\n"))).String()
}

// EstimateComplexity is clamp(0.5*files + 1.5*log10(1+lines) + 2*critical, 0, 10)
// rounded to one decimal.
func EstimateComplexity(files, lines int, critical bool) float64 {
	v := 0.5*float64(files) + 1.5*math.Log10(1+float64(lines))
	if critical {
		v += 2
	}
	v = math.Max(0, math.Min(10, v))
	return math.Round(v*10) / 10
}

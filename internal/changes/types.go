// Package changes holds the change-set model the planner works on: one
// GitChange per changed path, with its hunks and line counts.
package changes

import "strings"

// ChangeType is the git status of a changed path
type ChangeType string

const (
	Added    ChangeType = "added"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
	Renamed  ChangeType = "renamed"
)

// Valid reports whether t is one of the known change types
func (t ChangeType) Valid() bool {
	switch t {
	case Added, Modified, Deleted, Renamed:
		return true
	}
	return false
}

// LineKind tags a diff line
type LineKind string

const (
	LineAdded   LineKind = "added"
	LineRemoved LineKind = "removed"
	LineContext LineKind = "context"
)

// DiffLine is a single line of a hunk body, without its +/-/space marker
type DiffLine struct {
	Kind    LineKind `json:"kind"`
	Content string   `json:"content"`
}

// DiffHunk is one @@ section of a file diff
type DiffHunk struct {
	OldStart int        `json:"oldStart"`
	OldLines int        `json:"oldLines"`
	NewStart int        `json:"newStart"`
	NewLines int        `json:"newLines"`
	Section  string     `json:"section,omitempty"`
	Lines    []DiffLine `json:"lines"`
}

// GitChange is one changed path in the working tree
type GitChange struct {
	Path       string     `json:"path"`
	ChangeType ChangeType `json:"changeType"`
	Insertions int        `json:"insertions"`
	Deletions  int        `json:"deletions"`
	Hunks      []DiffHunk `json:"hunks,omitempty"`
	OldPath    string     `json:"oldPath,omitempty"`
	Binary     bool       `json:"binary,omitempty"`
}

// AddedLines returns the content of every added line, in order
func (c GitChange) AddedLines() []string {
	return c.linesOf(LineAdded)
}

// RemovedLines returns the content of every removed line, in order
func (c GitChange) RemovedLines() []string {
	return c.linesOf(LineRemoved)
}

func (c GitChange) linesOf(kind LineKind) []string {
	var out []string
	for _, h := range c.Hunks {
		for _, l := range h.Lines {
			if l.Kind == kind {
				out = append(out, l.Content)
			}
		}
	}
	return out
}

// ChangedLines is insertions plus deletions
func (c GitChange) ChangedLines() int {
	return c.Insertions + c.Deletions
}

// HasContent reports whether the hunks carry readable added or removed lines
func (c GitChange) HasContent() bool {
	if c.Binary {
		return false
	}
	for _, h := range c.Hunks {
		for _, l := range h.Lines {
			if l.Kind != LineContext {
				return true
			}
		}
	}
	return false
}

// NewChange builds a change with a single hunk from added and removed lines.
// Insertions and deletions are taken from the line counts. Used when a caller
// has line content but no unified diff, such as untracked files.
func NewChange(path string, changeType ChangeType, added, removed []string) GitChange {
	lines := make([]DiffLine, 0, len(added)+len(removed))
	for _, l := range removed {
		lines = append(lines, DiffLine{Kind: LineRemoved, Content: l})
	}
	for _, l := range added {
		lines = append(lines, DiffLine{Kind: LineAdded, Content: l})
	}

	change := GitChange{
		Path:       path,
		ChangeType: changeType,
		Insertions: len(added),
		Deletions:  len(removed),
	}
	if len(lines) > 0 {
		oldStart, newStart := 1, 1
		if len(removed) == 0 {
			oldStart = 0
		}
		if len(added) == 0 {
			newStart = 0
		}
		change.Hunks = []DiffHunk{{
			OldStart: oldStart,
			OldLines: len(removed),
			NewStart: newStart,
			NewLines: len(added),
			Lines:    lines,
		}}
	}
	return change
}

// Paths returns the paths of changes in input order
func Paths(changes []GitChange) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Path
	}
	return out
}

// Dir returns the slash-separated directory of path, "" for the repo root
func Dir(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// Base returns the last element of a slash-separated path
func Base(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

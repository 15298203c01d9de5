package changes

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// ParseUnifiedDiff parses `git diff` output into one GitChange per file
func ParseUnifiedDiff(diffContent []byte) ([]GitChange, error) {
	if len(strings.TrimSpace(string(diffContent))) == 0 {
		return []GitChange{}, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff(diffContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	result := make([]GitChange, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		change := parseFileDiff(fd)
		if change.Path == "" {
			continue
		}
		result = append(result, change)
	}
	return result, nil
}

// parseFileDiff converts a go-diff FileDiff to a GitChange
func parseFileDiff(fd *godiff.FileDiff) GitChange {
	oldPath := cleanPath(fd.OrigName)
	newPath := cleanPath(fd.NewName)

	var renameFrom, renameTo string
	isNew, isDeleted, binary := false, false, false
	for _, ext := range fd.Extended {
		switch {
		case strings.HasPrefix(ext, "new file mode"):
			isNew = true
		case strings.HasPrefix(ext, "deleted file mode"):
			isDeleted = true
		case strings.HasPrefix(ext, "rename from "):
			renameFrom = strings.TrimPrefix(ext, "rename from ")
		case strings.HasPrefix(ext, "rename to "):
			renameTo = strings.TrimPrefix(ext, "rename to ")
		case strings.HasPrefix(ext, "Binary files"), strings.HasPrefix(ext, "GIT binary patch"):
			binary = true
		}
	}

	if fd.OrigName == "/dev/null" || oldPath == "" {
		isNew = true
	}
	if fd.NewName == "/dev/null" || newPath == "" {
		isDeleted = true
	}
	if renameTo != "" {
		newPath = renameTo
	}
	if renameFrom != "" {
		oldPath = renameFrom
	}

	change := GitChange{
		Path:       newPath,
		ChangeType: Modified,
		Binary:     binary,
		Hunks:      make([]DiffHunk, 0, len(fd.Hunks)),
	}

	switch {
	case isDeleted:
		change.Path = oldPath
		change.ChangeType = Deleted
	case isNew:
		change.ChangeType = Added
	case oldPath != "" && newPath != "" && oldPath != newPath:
		change.ChangeType = Renamed
		change.OldPath = oldPath
	}

	for _, hunk := range fd.Hunks {
		h := parseHunk(hunk)
		for _, l := range h.Lines {
			switch l.Kind {
			case LineAdded:
				change.Insertions++
			case LineRemoved:
				change.Deletions++
			}
		}
		change.Hunks = append(change.Hunks, h)
	}

	return change
}

// parseHunk converts a go-diff Hunk, keeping line content without markers
func parseHunk(hunk *godiff.Hunk) DiffHunk {
	h := DiffHunk{
		OldStart: int(hunk.OrigStartLine),
		OldLines: int(hunk.OrigLines),
		NewStart: int(hunk.NewStartLine),
		NewLines: int(hunk.NewLines),
		Section:  hunk.Section,
	}

	body := strings.TrimSuffix(string(hunk.Body), "\n")
	if body == "" {
		return h
	}
	for _, line := range strings.Split(body, "\n") {
		if len(line) == 0 {
			h.Lines = append(h.Lines, DiffLine{Kind: LineContext})
			continue
		}
		switch line[0] {
		case '+':
			h.Lines = append(h.Lines, DiffLine{Kind: LineAdded, Content: line[1:]})
		case '-':
			h.Lines = append(h.Lines, DiffLine{Kind: LineRemoved, Content: line[1:]})
		case ' ':
			h.Lines = append(h.Lines, DiffLine{Kind: LineContext, Content: line[1:]})
		case '\\':
			// "\ No newline at end of file"
		}
	}
	return h
}

// cleanPath removes the a/ or b/ prefix from git diff paths
func cleanPath(path string) string {
	if path == "" || path == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

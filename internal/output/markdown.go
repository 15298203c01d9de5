package output

import (
	"fmt"
	"strings"

	"stagewise/internal/staging"
)

// Markdown renders doc as a Markdown report
func Markdown(doc staging.Document) string {
	var b strings.Builder
	if doc.Error != nil {
		writeMarkdownError(&b, doc.Error)
		return b.String()
	}

	b.WriteString("# Staging plan\n\n")
	if a := doc.Analysis; a != nil {
		b.WriteString("| Files | Commits | Strategy | Risk |\n")
		b.WriteString("|------:|--------:|----------|------|\n")
		fmt.Fprintf(&b, "| %d | %d | %s | %s |\n\n", a.TotalFiles, a.RecommendedCommits, a.Strategy, a.OverallRisk)
	}

	if len(doc.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range doc.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	for _, c := range doc.Commits {
		bd := c.Boundary
		fmt.Fprintf(&b, "## %d. `%s`\n\n", c.Order, c.SuggestedMessage.Header())
		fmt.Fprintf(&b, "- **Theme:** %s\n", bd.Theme)
		fmt.Fprintf(&b, "- **Category:** %s, priority %s, risk %s\n", bd.Category, bd.Priority, c.Risk)
		fmt.Fprintf(&b, "- **Complexity:** %s, about %d min\n", FormatFloat(bd.EstimatedComplexity), c.EstimatedTime)
		if len(bd.Dependencies) > 0 {
			fmt.Fprintf(&b, "- **Depends on:** %s\n", strings.Join(shortIDs(bd.Dependencies), ", "))
		}
		if bd.Forced {
			b.WriteString("- **Forced:** exceeds the size limit\n")
		}
		fmt.Fprintf(&b, "- **Why:** %s\n\n", c.Rationale)

		b.WriteString("| File | Change | + | - |\n")
		b.WriteString("|------|--------|--:|--:|\n")
		for _, f := range bd.Files {
			fmt.Fprintf(&b, "| `%s` | %s | %d | %d |\n", f.Path, f.ChangeType, f.Insertions, f.Deletions)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeMarkdownError(b *strings.Builder, e *staging.ErrorInfo) {
	b.WriteString("# Staging plan failed\n\n")
	fmt.Fprintf(b, "**%s**: %s\n", e.Code, e.Message)
	if len(e.SuggestedFixes) > 0 {
		b.WriteString("\n## Suggested fixes\n\n")
		for _, fix := range e.SuggestedFixes {
			line := fix.Description
			if fix.Command != "" {
				line = fmt.Sprintf("%s: `%s`", line, fix.Command)
			}
			fmt.Fprintf(b, "- %s\n", line)
		}
	}
}

// shortIDs truncates boundary ids for display
func shortIDs(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = shortID(id)
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

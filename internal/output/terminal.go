package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stagewise/internal/impact"
	"stagewise/internal/staging"
)

// Terminal renders documents for an interactive terminal. Colors degrade to
// plain text when the writer is not a TTY.
type Terminal struct {
	title   lipgloss.Style
	header  lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	risk    map[impact.RiskLevel]lipgloss.Style
}

// NewTerminal creates a renderer whose color profile matches w
func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("241")),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		risk: map[impact.RiskLevel]lipgloss.Style{
			impact.RiskHigh:   r.NewStyle().Foreground(lipgloss.Color("196")),
			impact.RiskMedium: r.NewStyle().Foreground(lipgloss.Color("226")),
			impact.RiskLow:    r.NewStyle().Foreground(lipgloss.Color("42")),
		},
	}
}

// Render formats doc
func (t *Terminal) Render(doc staging.Document) string {
	var b strings.Builder
	if e := doc.Error; e != nil {
		b.WriteString(t.failure.Render(fmt.Sprintf("Error [%s]: %s", e.Code, e.Message)))
		b.WriteString("\n")
		for _, fix := range e.SuggestedFixes {
			fmt.Fprintf(&b, "  - %s", fix.Description)
			if fix.Command != "" {
				b.WriteString(t.muted.Render(" $ " + fix.Command))
			}
			b.WriteString("\n")
		}
		return b.String()
	}

	if a := doc.Analysis; a != nil {
		b.WriteString(t.title.Render(fmt.Sprintf("Staging plan: %d files in %d commits (%s)",
			a.TotalFiles, a.RecommendedCommits, a.Strategy)))
		b.WriteString("\n")
		fmt.Fprintf(&b, "Overall risk: %s\n\n", t.riskText(a.OverallRisk))
	}

	for _, w := range doc.Warnings {
		b.WriteString(t.warning.Render("! " + w))
		b.WriteString("\n")
	}
	if len(doc.Warnings) > 0 {
		b.WriteString("\n")
	}

	for _, c := range doc.Commits {
		bd := c.Boundary
		b.WriteString(t.header.Render(fmt.Sprintf("%d. %s", c.Order, c.SuggestedMessage.Header())))
		b.WriteString("\n")
		meta := fmt.Sprintf("   %s  %s priority  ~%d min  id %s", bd.Category, bd.Priority, c.EstimatedTime, shortID(bd.ID))
		if len(bd.Dependencies) > 0 {
			meta += "  after " + strings.Join(shortIDs(bd.Dependencies), ", ")
		}
		b.WriteString(t.muted.Render(meta))
		fmt.Fprintf(&b, "  risk %s\n", t.riskText(c.Risk))
		for _, f := range bd.Files {
			fmt.Fprintf(&b, "   %-9s %s %s\n", f.ChangeType, f.Path, t.muted.Render(fmt.Sprintf("+%d/-%d", f.Insertions, f.Deletions)))
		}
		b.WriteString(t.muted.Render("   " + c.Rationale))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (t *Terminal) riskText(level impact.RiskLevel) string {
	if style, ok := t.risk[level]; ok {
		return style.Render(string(level))
	}
	return string(level)
}

package preview

import (
	"fmt"
	"strings"

	"docfill/internal/artifact"
	"docfill/internal/extractor"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Renderer formats an artifact for review.
type Renderer struct {
	// Plain disables colors and borders.
	Plain bool
}

// Render shows the generated text, or a unified diff against the existing
// documentation when the symbol already has some.
func (r *Renderer) Render(a artifact.Artifact, existing *extractor.Symbol) string {
	var sb strings.Builder
	sb.WriteString(r.style(headerStyle, fmt.Sprintf("%s › %s %s", a.Ref.Path, a.Ref.Kind, a.Ref.Symbol)))
	if a.Style != "" {
		sb.WriteString(r.style(dimStyle, "  ("+a.Style+")"))
	}
	sb.WriteString("\n")

	old := ""
	if existing != nil && existing.HasDocumentation {
		old = existing.ExistingDocumentation
	}
	unified, err := UnifiedDiff(old, a.Text)
	if err != nil || unified == "" {
		sb.WriteString(r.style(dimStyle, "no changes"))
		return sb.String()
	}

	var body strings.Builder
	for _, line := range strings.Split(strings.TrimRight(unified, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "@@"):
			body.WriteString(r.style(hunkStyle, line))
		case strings.HasPrefix(line, "+"):
			body.WriteString(r.style(addedStyle, line))
		case strings.HasPrefix(line, "-"):
			body.WriteString(r.style(removedStyle, line))
		default:
			body.WriteString(line)
		}
		body.WriteString("\n")
	}
	if r.Plain {
		sb.WriteString(body.String())
	} else {
		sb.WriteString(boxStyle.Render(strings.TrimRight(body.String(), "\n")))
		sb.WriteString("\n")
	}

	st := DiffStat(unified)
	sb.WriteString(r.style(dimStyle, fmt.Sprintf("+%d -%d ~%d", st.Added, st.Deleted, st.Changed)))
	return sb.String()
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.Plain {
		return text
	}
	return s.Render(text)
}

// UnifiedDiff diffs the existing documentation against the generated text.
func UnifiedDiff(existing, generated string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(existing),
		B:        splitLines(generated),
		FromFile: "existing",
		ToFile:   "generated",
		Context:  2,
	})
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(strings.TrimSuffix(s, "\n"))
}

// DiffStat counts added, changed and deleted lines of a unified diff.
func DiffStat(unified string) diff.Stat {
	fd, err := diff.ParseFileDiff([]byte(unified))
	if err != nil || fd == nil {
		return diff.Stat{}
	}
	return fd.Stat()
}

package main

import (
	"fmt"
	"sort"
	"strings"

	"docfill/internal/artifact"
	"docfill/internal/extractor"
	"docfill/internal/preview"
	"docfill/internal/report"
	"docfill/internal/session"
	"docfill/internal/style"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	cellStyle  = lipgloss.NewStyle().PaddingRight(2)
)

func printStyles(a style.Analysis) {
	if len(a.PerLanguage) == 0 {
		return
	}
	langs := make([]string, 0, len(a.PerLanguage))
	for lang := range a.PerLanguage {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	parts := make([]string, 0, len(langs))
	for _, lang := range langs {
		parts = append(parts, fmt.Sprintf("%s=%s (%.0f%%)", lang, a.PerLanguage[lang], a.Confidence[lang]*100))
	}
	fmt.Printf("🎨 Styles: %s\n", strings.Join(parts, ", "))
}

// printStatus renders one row per file with symbol and artifact counts.
func printStatus(st session.Status) {
	if len(st.Files) == 0 {
		return
	}
	header := []string{"FILE", "STATE", "SYMBOLS", "UNDOC", "PENDING", "APPROVED", "APPLIED", "BACKUPS"}
	rows := [][]string{header}
	for _, f := range st.Files {
		rows = append(rows, []string{
			f.Path,
			string(f.State),
			fmt.Sprint(f.Symbols),
			fmt.Sprint(f.Undocumented),
			fmt.Sprint(f.Pending),
			fmt.Sprint(f.Approved),
			fmt.Sprint(f.Applied),
			fmt.Sprint(f.Backups),
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	fmt.Println()
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cellStyle.Width(widths[i] + 2).Render(cell)
		}
		line := lipgloss.JoinHorizontal(lipgloss.Top, cells...)
		if r == 0 {
			line = titleStyle.Render(line)
		}
		fmt.Println(line)
	}
}

// printSummary lists issue counts by category with their remediation hints.
func printSummary(s report.Summary) {
	if s.Total == 0 {
		fmt.Println(okStyle.Render("✔ No issues"))
		return
	}
	fmt.Println()
	fmt.Println(warnStyle.Render(fmt.Sprintf("⚠️  %d issue(s), %d critical", s.Total, s.Critical)))
	for _, c := range s.Categories {
		fmt.Printf("   %s %d\n", titleStyle.Render(string(c.Category)), c.Count)
		if c.Hint != "" {
			fmt.Println(dimStyle.Render("     " + c.Hint))
		}
	}
}

func printFileResult(f session.FileResult) {
	switch {
	case f.Err != nil:
		fmt.Println(errorStyle.Render(fmt.Sprintf("✖ %s (%s): %v", f.Path, f.State, f.Err)))
	case f.Applied > 0:
		fmt.Println(okStyle.Render(fmt.Sprintf("✍️  %s: %d insertion(s)", f.Path, f.Applied)))
	}
}

// printPending renders every pending artifact without deciding on it.
func printPending(sess *session.Session) {
	r := &preview.Renderer{}
	for _, path := range pathsOf(sess.Status()) {
		symbols := extractor.Flatten(sess.Symbols(path))
		for _, a := range sess.Artifacts(path) {
			if a.Status != artifact.StatusPending || a.Empty() {
				continue
			}
			fmt.Println(r.Render(a, findSymbol(symbols, a.Ref)))
		}
	}
}

func findSymbol(symbols []extractor.Symbol, ref artifact.Ref) *extractor.Symbol {
	for i := range symbols {
		if symbols[i].QualifiedName() == ref.Symbol && symbols[i].Kind == ref.Kind {
			return &symbols[i]
		}
	}
	return nil
}

func pathsOf(st session.Status) []string {
	out := make([]string, 0, len(st.Files))
	for _, f := range st.Files {
		out = append(out, f.Path)
	}
	return out
}

func undocumented(symbols []extractor.Symbol) []extractor.Symbol {
	var out []extractor.Symbol
	for _, sym := range extractor.Flatten(symbols) {
		if !sym.HasDocumentation {
			out = append(out, sym)
		}
	}
	return out
}

package mutation

import (
	"bytes"
	"sort"
	"strings"

	"docfill/internal/report"
)

const pythonBodyIndent = "    "

// Render applies edits to src in one pass, ordered by descending anchor line
// so earlier insertions never shift later anchors. Outcomes are returned in
// input order; rejected edits leave src untouched at their location.
func Render(path string, src []byte, edits []Edit) ([]byte, []Outcome) {
	eol := "\n"
	if bytes.Contains(src, []byte("\r\n")) {
		eol = "\r\n"
	}
	lines := strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n")
	// A trailing newline produces a final empty element that is kept for the join.
	lineCount := len(lines)
	if lineCount > 0 && lines[lineCount-1] == "" {
		lineCount--
	}

	outcomes := make([]Outcome, len(edits))
	order := make([]int, 0, len(edits))
	// A Python class and a one-line method opening its body share an anchor
	// but not a declaration line, so both are kept.
	type target struct{ anchor, line int }
	targets := make(map[target]bool)
	for i, e := range edits {
		outcomes[i] = Outcome{Edit: e}
		if err := validate(path, e, lineCount); err != nil {
			outcomes[i].Err = err
			continue
		}
		t := target{e.anchor(), e.Line}
		if targets[t] {
			outcomes[i].Err = report.Newf(report.CategoryValidation, path, e.Symbol, "another edit already targets line %d", e.anchor())
			continue
		}
		targets[t] = true
		order = append(order, i)
	}
	// On a shared anchor the inner declaration goes first: splitting its
	// header must happen before the outer docstring lands above it.
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := edits[order[a]], edits[order[b]]
		if ea.anchor() != eb.anchor() {
			return ea.anchor() > eb.anchor()
		}
		return ea.Line > eb.Line
	})

	for _, i := range order {
		var err error
		if edits[i].Language == "python" {
			lines, err = applyPython(path, lines, edits[i])
		} else {
			lines, err = applyBrace(path, lines, edits[i])
		}
		if err != nil {
			outcomes[i].Err = err
			continue
		}
		outcomes[i].Applied = true
	}

	return []byte(strings.Join(lines, eol)), outcomes
}

func validate(path string, e Edit, lineCount int) error {
	if strings.TrimSpace(e.Text) == "" {
		return report.Newf(report.CategoryValidation, path, e.Symbol, "documentation text is empty")
	}
	if e.HasExisting && !e.Override {
		return report.Newf(report.CategoryValidation, path, e.Symbol, "documentation already exists")
	}
	if e.Line < 1 || e.Line > lineCount {
		return report.Newf(report.CategoryValidation, path, e.Symbol, "line %d out of range (file has %d lines)", e.Line, lineCount)
	}
	if e.Language == "python" && (e.BodyLine < e.Line || e.BodyLine > lineCount) {
		return report.Newf(report.CategoryValidation, path, e.Symbol, "body line %d out of range", e.BodyLine)
	}
	return nil
}

// applyBrace inserts the block above the declaration line, or replaces the
// comment block found directly above it.
func applyBrace(path string, lines []string, e Edit) ([]string, error) {
	decl := e.Line - 1
	block := indentBlock(e.Text, leadingWhitespace(lines[decl]))

	if e.Override && e.HasExisting {
		start, end, ok := precedingCommentSpan(lines, decl)
		if !ok {
			return lines, report.Newf(report.CategoryValidation, path, e.Symbol, "existing documentation not found above line %d", e.Line)
		}
		return splice(lines, start, end+1, block), nil
	}
	return splice(lines, decl, decl, block), nil
}

// applyPython inserts the docstring as the first statement of the body,
// splitting a body that shares the header line.
func applyPython(path string, lines []string, e Edit) ([]string, error) {
	body := e.BodyLine - 1
	if e.BodyLine == e.Line {
		header := lines[body]
		if e.BodyColumn <= 0 || e.BodyColumn > len(header) {
			return lines, report.Newf(report.CategoryValidation, path, e.Symbol, "body column %d out of range", e.BodyColumn)
		}
		indent := leadingWhitespace(header) + pythonBodyIndent
		split := []string{
			strings.TrimRight(header[:e.BodyColumn], " \t"),
			indent + strings.TrimLeft(header[e.BodyColumn:], " \t"),
		}
		lines = splice(lines, body, body+1, split)
		body++
	}

	indent := leadingWhitespace(lines[body])
	block := indentBlock(e.Text, indent)

	if e.Override && e.HasExisting {
		end, ok := docstringEnd(lines, body)
		if !ok {
			return lines, report.Newf(report.CategoryValidation, path, e.Symbol, "existing docstring not found at line %d", body+1)
		}
		rest := strings.TrimSpace(lines[end][closingIndex(lines, body, end):])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ";"))
		if rest != "" {
			block = append(block, indent+rest)
		}
		return splice(lines, body, end+1, block), nil
	}
	return splice(lines, body, body, block), nil
}

// precedingCommentSpan locates a `//` run or a `/* */` block ending at most
// one blank line above decl. Indices are inclusive.
func precedingCommentSpan(lines []string, decl int) (int, int, bool) {
	i := decl - 1
	if i >= 0 && strings.TrimSpace(lines[i]) == "" {
		i--
	}
	if i < 0 {
		return 0, 0, false
	}

	end := i
	trimmed := strings.TrimSpace(lines[i])
	switch {
	case strings.HasPrefix(trimmed, "//"):
		for i-1 >= 0 && strings.HasPrefix(strings.TrimSpace(lines[i-1]), "//") {
			i--
		}
		return i, end, true
	case strings.HasSuffix(trimmed, "*/"):
		for ; i >= 0; i-- {
			if strings.Contains(lines[i], "/*") {
				return i, end, true
			}
		}
	}
	return 0, 0, false
}

var tripleQuotes = []string{`"""`, `'''`}

// docstringEnd returns the line on which the triple-quoted string opening at
// start closes.
func docstringEnd(lines []string, start int) (int, bool) {
	open, quote := openingQuote(lines[start])
	if open < 0 {
		return 0, false
	}
	if strings.Contains(lines[start][open+len(quote):], quote) {
		return start, true
	}
	for i := start + 1; i < len(lines); i++ {
		if strings.Contains(lines[i], quote) {
			return i, true
		}
	}
	return 0, false
}

// closingIndex returns the byte offset just past the closing quote on line end.
func closingIndex(lines []string, start, end int) int {
	open, quote := openingQuote(lines[start])
	from := 0
	if end == start {
		from = open + len(quote)
	}
	idx := strings.Index(lines[end][from:], quote)
	if idx < 0 {
		return len(lines[end])
	}
	return from + idx + len(quote)
}

// openingQuote finds a docstring opener, allowing string prefixes like r or u.
func openingQuote(line string) (int, string) {
	trimmed := strings.TrimLeft(line, " \t")
	offset := len(line) - len(trimmed)
	prefixLen := 0
	for prefixLen < len(trimmed) && prefixLen < 2 && strings.ContainsRune("rRuUbBfF", rune(trimmed[prefixLen])) {
		prefixLen++
	}
	for _, q := range tripleQuotes {
		if strings.HasPrefix(trimmed[prefixLen:], q) {
			return offset + prefixLen, q
		}
	}
	return -1, ""
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// indentBlock prefixes every non-blank line of text with indent.
func indentBlock(text, indent string) []string {
	raw := strings.Split(strings.ReplaceAll(strings.TrimRight(text, "\r\n"), "\r\n", "\n"), "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		if strings.TrimSpace(l) == "" {
			out[i] = ""
			continue
		}
		out[i] = indent + l
	}
	return out
}

// splice replaces lines[from:to] with repl.
func splice(lines []string, from, to int, repl []string) []string {
	out := make([]string, 0, len(lines)-(to-from)+len(repl))
	out = append(out, lines[:from]...)
	out = append(out, repl...)
	out = append(out, lines[to:]...)
	return out
}

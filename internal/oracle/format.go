package oracle

import (
	"strings"
)

// cleanMarkdownOutput strips a surrounding code fence, language tag included.
func cleanMarkdownOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.Index(text, "\n"); nl != -1 && !strings.ContainsAny(text[:nl], " \t") {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

// stripMarkers removes comment and docstring delimiters an oracle may echo back.
func stripMarkers(text string) []string {
	text = strings.TrimSpace(text)
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			text = strings.TrimSpace(text[len(q) : len(text)-len(q)])
		}
	}
	if strings.HasPrefix(text, "/*") && strings.HasSuffix(text, "*/") {
		text = strings.TrimPrefix(text, "/**")
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimRight(l, " \t\r")
		trimmed := strings.TrimSpace(l)
		switch {
		case strings.HasPrefix(trimmed, "//"):
			l = strings.TrimPrefix(strings.TrimPrefix(trimmed, "//"), " ")
		case trimmed == "*":
			l = ""
		case strings.HasPrefix(trimmed, "* "):
			l = strings.TrimPrefix(trimmed, "* ")
		}
		lines = append(lines, l)
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return dedent(lines)
}

func dedent(lines []string) []string {
	prefix := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if prefix == -1 || n < prefix {
			prefix = n
		}
	}
	if prefix <= 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= prefix {
			out[i] = l[prefix:]
		}
	}
	return out
}

// Format renders oracle output as a documentation block for language, without
// base indentation. Empty output stays empty.
func Format(language, text string) string {
	lines := stripMarkers(cleanMarkdownOutput(text))
	if len(lines) == 0 {
		return ""
	}

	var sb strings.Builder
	switch language {
	case "python":
		if len(lines) == 1 {
			return `"""` + strings.ReplaceAll(lines[0], `"""`, `\"\"\"`) + `"""`
		}
		sb.WriteString(`"""`)
		for i, l := range lines {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(strings.ReplaceAll(l, `"""`, `\"\"\"`))
		}
		sb.WriteString("\n" + `"""`)
	case "javascript", "typescript":
		if len(lines) == 1 {
			return "/** " + strings.ReplaceAll(lines[0], "*/", "*\\/") + " */"
		}
		sb.WriteString("/**")
		for _, l := range lines {
			sb.WriteString("\n *")
			if l != "" {
				sb.WriteString(" " + strings.ReplaceAll(l, "*/", "*\\/"))
			}
		}
		sb.WriteString("\n */")
	default:
		for i, l := range lines {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("//")
			if l != "" {
				sb.WriteString(" " + l)
			}
		}
	}
	return sb.String()
}

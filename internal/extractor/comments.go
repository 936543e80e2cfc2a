package extractor

import (
	"context"
	"strings"

	"docfill/internal/report"

	sitter "github.com/smacker/go-tree-sitter"
)

// maxDocGap is the number of blank lines allowed between a documentation
// comment and the declaration it belongs to.
const maxDocGap = 1

// parseTree parses src with a fresh parser; parsers are not safe for
// concurrent use, and files are parsed in parallel batches.
func parseTree(ctx context.Context, lang *sitter.Language, path string, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, report.Wrap(report.CategoryParse, path, "", err, "failed to parse file")
	}
	root := tree.RootNode()
	if root.HasError() {
		line, col := firstErrorPoint(root)
		tree.Close()
		return nil, report.Newf(report.CategoryParse, path, "", "syntax error near line %d column %d", line, col)
	}
	return tree, nil
}

func firstErrorPoint(n *sitter.Node) (int, int) {
	if n.Type() == "ERROR" || n.IsMissing() {
		p := n.StartPoint()
		return int(p.Row) + 1, int(p.Column) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && (child.HasError() || child.IsMissing()) {
			return firstErrorPoint(child)
		}
	}
	p := n.StartPoint()
	return int(p.Row) + 1, int(p.Column) + 1
}

func startLine(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }
func endLine(n *sitter.Node) int   { return int(n.EndPoint().Row) + 1 }

func locationOf(n *sitter.Node) Location {
	return Location{Start: startLine(n), End: endLine(n)}
}

// lineIndent returns the leading whitespace of the given 1-based line.
func lineIndent(src []byte, line int) string {
	text := lineText(src, line)
	return text[:len(text)-len(strings.TrimLeft(text, " \t"))]
}

func lineText(src []byte, line int) string {
	lines := strings.Split(string(src), "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

// isTrailing reports whether comment starts on the line where a preceding
// non-comment sibling ends, i.e. it annotates that code, not what follows.
func isTrailing(comment *sitter.Node) bool {
	prev := comment.PrevSibling()
	if prev == nil || prev.Type() == "comment" {
		return false
	}
	return prev.EndPoint().Row == comment.StartPoint().Row
}

// precedingComments returns the contiguous run of comment siblings directly
// above decl, nearest last. The nearest comment may be separated by at most
// maxDocGap blank lines; the rest of the run must be adjacent.
func precedingComments(decl *sitter.Node) []*sitter.Node {
	var run []*sitter.Node
	cur := decl
	allowed := uint32(maxDocGap + 1)
	for {
		prev := cur.PrevSibling()
		if prev == nil || prev.Type() != "comment" {
			break
		}
		if cur.StartPoint().Row-prev.EndPoint().Row > allowed {
			break
		}
		if isTrailing(prev) {
			break
		}
		run = append([]*sitter.Node{prev}, run...)
		cur = prev
		allowed = 1
	}
	return run
}

// lineCommentDoc joins a Go-style comment run into one raw block.
func lineCommentDoc(decl *sitter.Node, src []byte) string {
	run := precedingComments(decl)
	if len(run) == 0 {
		return ""
	}
	parts := make([]string, 0, len(run))
	for _, c := range run {
		parts = append(parts, c.Content(src))
	}
	return strings.Join(parts, "\n")
}

// jsDoc returns the nearest preceding /** */ block, or "".
func jsDoc(decl *sitter.Node, src []byte) string {
	run := precedingComments(decl)
	if len(run) == 0 {
		return ""
	}
	nearest := run[len(run)-1]
	text := nearest.Content(src)
	if !strings.HasPrefix(text, "/**") || strings.HasPrefix(text, "/**/") {
		return ""
	}
	return text
}

func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

// headerSignature returns the declaration text up to its body, collapsed to one line.
func headerSignature(decl, body *sitter.Node, src []byte) string {
	var raw string
	if body != nil && body.StartByte() > decl.StartByte() {
		raw = string(src[decl.StartByte():body.StartByte()])
	} else {
		raw = decl.Content(src)
		if idx := strings.Index(raw, "\n"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, ":")
	return strings.Join(strings.Fields(raw), " ")
}

func nameOf(n *sitter.Node, src []byte) string {
	if name := n.ChildByFieldName("name"); name != nil {
		if s := strings.TrimSpace(name.Content(src)); s != "" {
			return s
		}
	}
	return AnonymousName
}

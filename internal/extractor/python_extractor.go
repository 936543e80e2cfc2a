package extractor

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonExtractor implements LanguageExtractor for Python. Documentation is
// the docstring: a string literal that is the first statement of the body.
type PythonExtractor struct{}

func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{}
}

func (p *PythonExtractor) Language() string     { return "python" }
func (p *PythonExtractor) Extensions() []string { return []string{".py", ".pyw"} }

func (p *PythonExtractor) Extract(ctx context.Context, path string, src []byte) ([]Symbol, error) {
	tree, err := parseTree(ctx, python.GetLanguage(), path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	symbols := []Symbol{}
	p.collect(tree.RootNode(), src, &symbols)
	return symbols, nil
}

// collect appends definitions found directly in node, descending into
// module-level compound statements but never into function bodies.
func (p *PythonExtractor) collect(node *sitter.Node, src []byte, out *[]Symbol) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		def := unwrapDecorated(child)
		switch def.Type() {
		case "function_definition":
			*out = append(*out, p.extractFunction(def, src, KindFunction))
		case "class_definition":
			*out = append(*out, p.extractClass(def, src))
		case "if_statement", "elif_clause", "else_clause",
			"try_statement", "except_clause", "finally_clause",
			"with_statement", "block":
			p.collect(def, src, out)
		}
	}
}

// unwrapDecorated returns the definition wrapped by a decorator list.
func unwrapDecorated(node *sitter.Node) *sitter.Node {
	if node.Type() != "decorated_definition" {
		return node
	}
	if def := node.ChildByFieldName("definition"); def != nil {
		return def
	}
	return node
}

func (p *PythonExtractor) extractFunction(node *sitter.Node, src []byte, kind Kind) Symbol {
	sym := Symbol{
		Kind:       kind,
		Name:       nameOf(node, src),
		Language:   p.Language(),
		Location:   locationOf(node),
		Parameters: []Param{},
		Indent:     lineIndent(src, startLine(node)),
		Signature:  p.buildFunctionSignature(node, src),
	}
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		sym.Parameters = p.extractParams(paramsNode, src)
	}
	if kind == KindMethod && len(sym.Parameters) > 0 {
		if first := sym.Parameters[0].Name; first == "self" || first == "cls" {
			sym.Parameters = sym.Parameters[1:]
		}
	}
	if returnNode := node.ChildByFieldName("return_type"); returnNode != nil {
		sym.ReturnTypeHint = strings.TrimSpace(returnNode.Content(src))
	}
	body := node.ChildByFieldName("body")
	p.setBody(&sym, body)
	return sym.withDoc(p.docstring(body, src))
}

func (p *PythonExtractor) extractClass(node *sitter.Node, src []byte) Symbol {
	sym := Symbol{
		Kind:       KindClass,
		Name:       nameOf(node, src),
		Language:   p.Language(),
		Location:   locationOf(node),
		Parameters: []Param{},
		Indent:     lineIndent(src, startLine(node)),
		Signature:  p.buildClassSignature(node, src),
	}
	body := node.ChildByFieldName("body")
	p.setBody(&sym, body)
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			def := unwrapDecorated(body.NamedChild(i))
			if def.Type() == "function_definition" {
				method := p.extractFunction(def, src, KindMethod)
				method.Owner = sym.Name
				sym.Members = append(sym.Members, method)
			}
		}
	}
	return sym.withDoc(p.docstring(body, src))
}

func (p *PythonExtractor) setBody(sym *Symbol, body *sitter.Node) {
	if body == nil {
		return
	}
	first := firstStatement(body)
	if first == nil {
		first = body
	}
	sym.BodyLine = startLine(first)
	sym.BodyColumn = int(first.StartPoint().Column)
}

func firstStatement(body *sitter.Node) *sitter.Node {
	if body == nil {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != "comment" {
			return stmt
		}
	}
	return nil
}

// docstring returns the raw string literal, quotes included, or "".
func (p *PythonExtractor) docstring(body *sitter.Node, src []byte) string {
	stmt := firstStatement(body)
	if stmt == nil || stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
		return ""
	}
	expr := stmt.NamedChild(0)
	if expr.Type() != "string" && expr.Type() != "concatenated_string" {
		return ""
	}
	return expr.Content(src)
}

func (p *PythonExtractor) extractParams(paramsNode *sitter.Node, src []byte) []Param {
	params := []Param{}
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		pNode := paramsNode.NamedChild(i)
		var param Param
		switch pNode.Type() {
		case "identifier", "list_splat_pattern", "dictionary_splat_pattern":
			param.Name = pNode.Content(src)
		case "typed_parameter":
			if pNode.NamedChildCount() > 0 {
				param.Name = pNode.NamedChild(0).Content(src)
			}
			param.TypeHint = nodeText(pNode.ChildByFieldName("type"), src)
		case "default_parameter":
			param.Name = nodeText(pNode.ChildByFieldName("name"), src)
		case "typed_default_parameter":
			param.Name = nodeText(pNode.ChildByFieldName("name"), src)
			param.TypeHint = nodeText(pNode.ChildByFieldName("type"), src)
		default:
			// keyword_separator, positional_separator
			continue
		}
		param.Name = strings.TrimSpace(param.Name)
		param.TypeHint = strings.TrimSpace(param.TypeHint)
		if param.Name != "" {
			params = append(params, param)
		}
	}
	return params
}

func (p *PythonExtractor) buildFunctionSignature(node *sitter.Node, src []byte) string {
	sig := "def " + nameOf(node, src)
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		sig += paramsNode.Content(src)
	}
	if returnNode := node.ChildByFieldName("return_type"); returnNode != nil {
		sig += " -> " + returnNode.Content(src)
	}
	if strings.HasPrefix(node.Content(src), "async") {
		sig = "async " + sig
	}
	return strings.Join(strings.Fields(sig), " ")
}

func (p *PythonExtractor) buildClassSignature(node *sitter.Node, src []byte) string {
	sig := "class " + nameOf(node, src)
	if superclassNode := node.ChildByFieldName("superclasses"); superclassNode != nil {
		sig += superclassNode.Content(src)
	}
	return sig
}

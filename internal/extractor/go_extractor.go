package extractor

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoExtractor implements LanguageExtractor for Go. Named types map to the
// class kind; methods whose receiver type is declared in the same file
// become members of that type.
type GoExtractor struct{}

func NewGoExtractor() *GoExtractor {
	return &GoExtractor{}
}

func (g *GoExtractor) Language() string     { return "go" }
func (g *GoExtractor) Extensions() []string { return []string{".go"} }

type goDecl struct {
	sym      Symbol
	receiver string
}

func (g *GoExtractor) Extract(ctx context.Context, path string, src []byte) ([]Symbol, error) {
	tree, err := parseTree(ctx, golang.GetLanguage(), path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	root := tree.RootNode()

	var decls []goDecl
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		switch node.Type() {
		case "function_declaration":
			decls = append(decls, goDecl{sym: g.extractFunction(node, src, KindFunction)})
		case "method_declaration":
			method := g.extractFunction(node, src, KindMethod)
			method.Owner = g.receiverType(node, src)
			decls = append(decls, goDecl{sym: method, receiver: method.Owner})
		case "type_declaration":
			for _, sym := range g.extractTypes(node, src) {
				decls = append(decls, goDecl{sym: sym})
			}
		}
	}

	classes := make(map[string]int)
	for i, d := range decls {
		if d.sym.Kind == KindClass {
			classes[d.sym.Name] = i
		}
	}

	// Attach methods to their receiver type first, then emit in declaration order.
	attached := make([]bool, len(decls))
	for i, d := range decls {
		if d.sym.Kind != KindMethod {
			continue
		}
		if idx, ok := classes[d.receiver]; ok {
			decls[idx].sym.Members = append(decls[idx].sym.Members, d.sym)
			attached[i] = true
		}
	}

	symbols := make([]Symbol, 0, len(decls))
	for i, d := range decls {
		if !attached[i] {
			symbols = append(symbols, d.sym)
		}
	}
	return symbols, nil
}

func (g *GoExtractor) extractFunction(node *sitter.Node, src []byte, kind Kind) Symbol {
	sym := Symbol{
		Kind:       kind,
		Name:       nameOf(node, src),
		Language:   g.Language(),
		Location:   locationOf(node),
		Parameters: []Param{},
		Indent:     lineIndent(src, startLine(node)),
	}
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		sym.Parameters = g.extractParams(paramsNode, src)
	}
	if resultNode := node.ChildByFieldName("result"); resultNode != nil {
		sym.ReturnTypeHint = strings.TrimSpace(resultNode.Content(src))
	}
	bodyNode := node.ChildByFieldName("body")
	sym.Signature = headerSignature(node, bodyNode, src)
	if bodyNode != nil {
		sym.BodyLine = startLine(bodyNode)
		sym.BodyColumn = int(bodyNode.StartPoint().Column)
	}
	return sym.withDoc(g.extractDocComment(node, src))
}

// extractTypes handles both `type T struct{}` and grouped `type ( ... )`
// declarations. A lone spec is documented above the `type` keyword; grouped
// specs are documented inside the parentheses.
func (g *GoExtractor) extractTypes(decl *sitter.Node, src []byte) []Symbol {
	var specs []*sitter.Node
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		child := decl.NamedChild(i)
		if child.Type() == "type_spec" || child.Type() == "type_alias" {
			specs = append(specs, child)
		}
	}

	grouped := len(specs) != 1 || strings.Contains(headerSignature(decl, specs[0], src), "(")
	out := make([]Symbol, 0, len(specs))
	for _, spec := range specs {
		anchor := decl
		if grouped {
			anchor = spec
		}
		sym := Symbol{
			Kind:       KindClass,
			Name:       nameOf(spec, src),
			Language:   g.Language(),
			Location:   locationOf(anchor),
			Parameters: []Param{},
			Indent:     lineIndent(src, startLine(anchor)),
			Signature:  g.typeSignature(spec, src),
		}
		out = append(out, sym.withDoc(g.extractDocComment(anchor, src)))
	}
	return out
}

func (g *GoExtractor) typeSignature(spec *sitter.Node, src []byte) string {
	sig := "type " + nameOf(spec, src)
	if typeNode := spec.ChildByFieldName("type"); typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			sig += " struct"
		case "interface_type":
			sig += " interface"
		default:
			sig += " " + strings.Join(strings.Fields(typeNode.Content(src)), " ")
		}
	}
	return sig
}

// receiverType returns the bare type name of a method receiver, with
// pointers and type parameters stripped.
func (g *GoExtractor) receiverType(node *sitter.Node, src []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		name := strings.TrimPrefix(strings.TrimSpace(typeNode.Content(src)), "*")
		if idx := strings.Index(name, "["); idx != -1 {
			name = name[:idx]
		}
		return strings.TrimSpace(name)
	}
	return ""
}

func (g *GoExtractor) extractDocComment(node *sitter.Node, src []byte) string {
	return lineCommentDoc(node, src)
}

func (g *GoExtractor) extractParams(paramsNode *sitter.Node, src []byte) []Param {
	params := []Param{}
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		pNode := paramsNode.NamedChild(i)
		var pType string
		if tn := pNode.ChildByFieldName("type"); tn != nil {
			pType = tn.Content(src)
		}
		switch pNode.Type() {
		case "parameter_declaration":
		case "variadic_parameter_declaration":
			pType = "..." + pType
		default:
			continue
		}

		var names []string
		for j := 0; j < int(pNode.NamedChildCount()); j++ {
			child := pNode.NamedChild(j)
			if child.Type() == "identifier" {
				names = append(names, child.Content(src))
			}
		}
		if len(names) == 0 {
			params = append(params, Param{Name: "_", TypeHint: pType})
			continue
		}
		for _, n := range names {
			params = append(params, Param{Name: n, TypeHint: pType})
		}
	}
	return params
}

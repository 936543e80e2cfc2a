package extractor

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ScriptExtractor implements LanguageExtractor for JavaScript and
// TypeScript. Only /** */ blocks count as documentation.
type ScriptExtractor struct {
	language   string
	extensions []string
	grammar    func(ext string) *sitter.Language
}

func NewJavaScriptExtractor() *ScriptExtractor {
	return &ScriptExtractor{
		language:   "javascript",
		extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		grammar:    func(string) *sitter.Language { return javascript.GetLanguage() },
	}
}

func NewTypeScriptExtractor() *ScriptExtractor {
	return &ScriptExtractor{
		language:   "typescript",
		extensions: []string{".ts", ".tsx", ".mts", ".cts"},
		grammar: func(ext string) *sitter.Language {
			if ext == ".tsx" {
				return tsx.GetLanguage()
			}
			return typescript.GetLanguage()
		},
	}
}

func (s *ScriptExtractor) Language() string     { return s.language }
func (s *ScriptExtractor) Extensions() []string { return s.extensions }

func (s *ScriptExtractor) Extract(ctx context.Context, path string, src []byte) ([]Symbol, error) {
	lang := s.grammar(strings.ToLower(filepath.Ext(path)))
	tree, err := parseTree(ctx, lang, path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	symbols := []Symbol{}
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		symbols = append(symbols, s.extractTopLevel(root.NamedChild(i), src)...)
	}
	return symbols, nil
}

// extractTopLevel returns the symbols declared by one program statement.
// Exported declarations are anchored at the export keyword.
func (s *ScriptExtractor) extractTopLevel(node *sitter.Node, src []byte) []Symbol {
	anchor := node
	decl := node
	if node.Type() == "export_statement" {
		decl = node.ChildByFieldName("declaration")
		if decl == nil {
			decl = node.ChildByFieldName("value")
		}
		if decl == nil {
			return nil
		}
	}

	switch decl.Type() {
	case "function_declaration", "generator_function_declaration",
		"function", "function_expression", "arrow_function":
		return []Symbol{s.extractFunction(decl, anchor, nameOf(decl, src), KindFunction, src)}
	case "class_declaration", "abstract_class_declaration", "class":
		return []Symbol{s.extractClass(decl, anchor, src)}
	case "lexical_declaration", "variable_declaration":
		return s.extractVariableFunctions(decl, anchor, src)
	}
	return nil
}

// extractVariableFunctions handles `const f = () => {}` and `var f = function() {}`.
func (s *ScriptExtractor) extractVariableFunctions(decl, anchor *sitter.Node, src []byte) []Symbol {
	var out []Symbol
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		child := decl.NamedChild(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		valueNode := child.ChildByFieldName("value")
		if valueNode == nil || !isFunctionValue(valueNode) {
			continue
		}
		name := AnonymousName
		if nameNode := child.ChildByFieldName("name"); nameNode != nil && nameNode.Type() == "identifier" {
			name = nameNode.Content(src)
		}
		out = append(out, s.extractFunction(valueNode, anchor, name, KindFunction, src))
	}
	return out
}

func isFunctionValue(n *sitter.Node) bool {
	switch n.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}

// extractFunction builds a function or method symbol. fn carries parameters
// and body; anchor is the statement that documentation sits above.
func (s *ScriptExtractor) extractFunction(fn, anchor *sitter.Node, name string, kind Kind, src []byte) Symbol {
	sym := Symbol{
		Kind:       kind,
		Name:       name,
		Language:   s.language,
		Location:   locationOf(anchor),
		Parameters: []Param{},
		Indent:     lineIndent(src, startLine(anchor)),
	}
	if paramsNode := fn.ChildByFieldName("parameters"); paramsNode != nil {
		sym.Parameters = s.extractParams(paramsNode, src)
	} else if single := fn.ChildByFieldName("parameter"); single != nil {
		sym.Parameters = []Param{{Name: single.Content(src)}}
	}
	if returnNode := fn.ChildByFieldName("return_type"); returnNode != nil {
		sym.ReturnTypeHint = typeAnnotation(returnNode, src)
	}
	body := fn.ChildByFieldName("body")
	sym.Signature = headerSignature(anchor, body, src)
	if body != nil {
		sym.BodyLine = startLine(body)
		sym.BodyColumn = int(body.StartPoint().Column)
	}
	return sym.withDoc(jsDoc(anchor, src))
}

func (s *ScriptExtractor) extractClass(decl, anchor *sitter.Node, src []byte) Symbol {
	body := decl.ChildByFieldName("body")
	sym := Symbol{
		Kind:       KindClass,
		Name:       nameOf(decl, src),
		Language:   s.language,
		Location:   locationOf(anchor),
		Parameters: []Param{},
		Indent:     lineIndent(src, startLine(anchor)),
		Signature:  headerSignature(anchor, body, src),
	}
	if body != nil {
		sym.BodyLine = startLine(body)
		sym.BodyColumn = int(body.StartPoint().Column)
		for i := 0; i < int(body.NamedChildCount()); i++ {
			member := body.NamedChild(i)
			if member.Type() != "method_definition" {
				continue
			}
			method := s.extractFunction(member, member, nameOf(member, src), KindMethod, src)
			method.Owner = sym.Name
			sym.Members = append(sym.Members, method)
		}
	}
	return sym.withDoc(jsDoc(anchor, src))
}

func (s *ScriptExtractor) extractParams(paramsNode *sitter.Node, src []byte) []Param {
	params := []Param{}
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		pNode := paramsNode.NamedChild(i)
		var param Param
		switch pNode.Type() {
		case "identifier", "object_pattern", "array_pattern":
			param.Name = pNode.Content(src)
		case "assignment_pattern":
			param.Name = nodeText(pNode.ChildByFieldName("left"), src)
		case "rest_pattern":
			param.Name = pNode.Content(src)
		case "required_parameter", "optional_parameter":
			pattern := pNode.ChildByFieldName("pattern")
			if pattern == nil {
				continue
			}
			param.Name = pattern.Content(src)
			if pNode.Type() == "optional_parameter" {
				param.Name += "?"
			}
			if typeNode := pNode.ChildByFieldName("type"); typeNode != nil {
				param.TypeHint = typeAnnotation(typeNode, src)
			}
		default:
			continue
		}
		param.Name = strings.TrimSpace(param.Name)
		if param.Name == "this" {
			continue
		}
		params = append(params, param)
	}
	return params
}

// typeAnnotation strips the leading colon of a TypeScript type annotation.
func typeAnnotation(n *sitter.Node, src []byte) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(n.Content(src)), ":"))
}

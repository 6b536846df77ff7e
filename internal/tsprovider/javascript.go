package tsprovider

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/symdex"
)

func extractJS(root *sitter.Node, src []byte) []symdex.DocumentSymbol {
	var out []symdex.DocumentSymbol
	for _, n := range namedChildren(root) {
		out = append(out, jsDeclaration(n, src)...)
	}
	return out
}

func jsDeclaration(n *sitter.Node, src []byte) []symdex.DocumentSymbol {
	switch n.Type() {
	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			return jsDeclaration(decl, src)
		}
		return nil
	case "class_declaration":
		if sym, ok := namedSymbol(n, src, symdex.KindClass); ok {
			if body := n.ChildByFieldName("body"); body != nil {
				sym.Children = jsClassMembers(body, src)
			}
			return []symdex.DocumentSymbol{sym}
		}
	case "function_declaration", "generator_function_declaration":
		if sym, ok := namedSymbol(n, src, symdex.KindFunction); ok {
			return []symdex.DocumentSymbol{sym}
		}
	case "lexical_declaration", "variable_declaration":
		var out []symdex.DocumentSymbol
		for _, declarator := range namedChildren(n) {
			if declarator.Type() != "variable_declarator" {
				continue
			}
			kind := symdex.KindVariable
			if value := declarator.ChildByFieldName("value"); value != nil {
				switch value.Type() {
				case "arrow_function", "function", "function_expression", "generator_function":
					kind = symdex.KindFunction
				}
			}
			if sym, ok := namedSymbol(declarator, src, kind); ok {
				out = append(out, sym)
			}
		}
		return out
	}
	return nil
}

func jsClassMembers(body *sitter.Node, src []byte) []symdex.DocumentSymbol {
	var members []symdex.DocumentSymbol
	for _, member := range namedChildren(body) {
		switch member.Type() {
		case "method_definition":
			if sym, ok := namedSymbol(member, src, symdex.KindMethod); ok {
				if sym.Name == "constructor" {
					sym.Kind = symdex.KindConstructor
				}
				members = append(members, sym)
			}
		case "field_definition", "public_field_definition":
			if nameNode := member.ChildByFieldName("property"); nameNode != nil {
				members = append(members, symdex.DocumentSymbol{
					Name:           nameNode.Content(src),
					Kind:           symdex.KindField,
					Range:          nodeRange(member),
					SelectionRange: nodeRange(nameNode),
				})
			}
		}
	}
	return members
}

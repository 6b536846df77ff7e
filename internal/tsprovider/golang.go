package tsprovider

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/symdex"
)

func extractGo(root *sitter.Node, src []byte) []symdex.DocumentSymbol {
	var out []symdex.DocumentSymbol
	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "function_declaration":
			if sym, ok := namedSymbol(n, src, symdex.KindFunction); ok {
				sym.Detail = goSignature(n, src)
				out = append(out, sym)
			}
		case "method_declaration":
			if sym, ok := namedSymbol(n, src, symdex.KindMethod); ok {
				sym.Detail = goSignature(n, src)
				out = append(out, sym)
			}
		case "type_declaration":
			for _, spec := range namedChildren(n) {
				if spec.Type() != "type_spec" {
					continue
				}
				out = append(out, goTypeSymbols(spec, src)...)
			}
		case "const_declaration":
			out = append(out, goValueSpecs(n, "const_spec", symdex.KindConstant, src)...)
		case "var_declaration":
			out = append(out, goValueSpecs(n, "var_spec", symdex.KindVariable, src)...)
		}
	}
	return out
}

func goTypeSymbols(spec *sitter.Node, src []byte) []symdex.DocumentSymbol {
	typeNode := spec.ChildByFieldName("type")
	kind := symdex.KindClass
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			kind = symdex.KindStruct
		case "interface_type":
			kind = symdex.KindInterface
		}
	}

	sym, ok := namedSymbol(spec, src, kind)
	if !ok {
		return nil
	}

	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			sym.Children = goStructFields(typeNode, src)
		case "interface_type":
			sym.Children = goInterfaceMethods(typeNode, src)
		}
	}
	return []symdex.DocumentSymbol{sym}
}

func goStructFields(structType *sitter.Node, src []byte) []symdex.DocumentSymbol {
	var fields []symdex.DocumentSymbol
	for _, list := range namedChildren(structType) {
		if list.Type() != "field_declaration_list" {
			continue
		}
		for _, decl := range namedChildren(list) {
			if decl.Type() != "field_declaration" {
				continue
			}
			for _, child := range namedChildren(decl) {
				if child.Type() != "field_identifier" {
					continue
				}
				fields = append(fields, symdex.DocumentSymbol{
					Name:           child.Content(src),
					Kind:           symdex.KindField,
					Range:          nodeRange(decl),
					SelectionRange: nodeRange(child),
				})
			}
		}
	}
	return fields
}

func goInterfaceMethods(ifaceType *sitter.Node, src []byte) []symdex.DocumentSymbol {
	var methods []symdex.DocumentSymbol
	for _, elem := range namedChildren(ifaceType) {
		// The grammar renamed method_spec to method_elem; accept both.
		if elem.Type() != "method_elem" && elem.Type() != "method_spec" {
			continue
		}
		if sym, ok := namedSymbol(elem, src, symdex.KindMethod); ok {
			methods = append(methods, sym)
		}
	}
	return methods
}

// goValueSpecs flattens grouped const/var declarations into one symbol per
// declared identifier.
func goValueSpecs(decl *sitter.Node, specType string, kind int, src []byte) []symdex.DocumentSymbol {
	var out []symdex.DocumentSymbol
	for _, spec := range namedChildren(decl) {
		if spec.Type() != specType {
			continue
		}
		for _, child := range namedChildren(spec) {
			if child.Type() != "identifier" {
				continue
			}
			out = append(out, symdex.DocumentSymbol{
				Name:           child.Content(src),
				Kind:           kind,
				Range:          nodeRange(spec),
				SelectionRange: nodeRange(child),
			})
		}
	}
	return out
}

// goSignature renders the parameter list (and result, if any) as the detail
// string, receiver included for methods.
func goSignature(n *sitter.Node, src []byte) string {
	detail := ""
	if recv := n.ChildByFieldName("receiver"); recv != nil {
		detail += recv.Content(src) + " "
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		detail += params.Content(src)
	}
	if result := n.ChildByFieldName("result"); result != nil {
		detail += " " + result.Content(src)
	}
	return detail
}

package tsprovider

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/symdex"
)

func extractPython(root *sitter.Node, src []byte) []symdex.DocumentSymbol {
	return pyScope(root, src, symdex.KindFunction)
}

// pyScope extracts the definitions of one scope. funcKind distinguishes
// module-level functions from methods inside a class body.
func pyScope(scope *sitter.Node, src []byte, funcKind int) []symdex.DocumentSymbol {
	var out []symdex.DocumentSymbol
	for _, n := range namedChildren(scope) {
		if n.Type() == "decorated_definition" {
			if def := n.ChildByFieldName("definition"); def != nil {
				n = def
			}
		}
		switch n.Type() {
		case "function_definition":
			if sym, ok := namedSymbol(n, src, funcKind); ok {
				if params := n.ChildByFieldName("parameters"); params != nil {
					sym.Detail = params.Content(src)
				}
				out = append(out, sym)
			}
		case "class_definition":
			if sym, ok := namedSymbol(n, src, symdex.KindClass); ok {
				if body := n.ChildByFieldName("body"); body != nil {
					sym.Children = pyScope(body, src, symdex.KindMethod)
				}
				out = append(out, sym)
			}
		}
	}
	return out
}

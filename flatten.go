package symdex

// FlatSymbol is one flattened symbol record, ready for persistence.
// ContainerName is the dot-joined chain of ancestor symbol names.
type FlatSymbol struct {
	Name           string
	Detail         string
	Kind           int
	Range          Range
	SelectionRange Range
	ContainerName  string
}

// Flatten converts a hierarchical symbol tree into a flat pre-order list,
// accumulating each node's ancestor path into ContainerName. Emission order
// is parent-before-children; storage does not depend on it beyond insertion
// order.
func Flatten(symbols []DocumentSymbol) []FlatSymbol {
	var out []FlatSymbol
	for i := range symbols {
		out = flattenInto(out, &symbols[i], "")
	}
	return out
}

func flattenInto(out []FlatSymbol, sym *DocumentSymbol, container string) []FlatSymbol {
	out = append(out, FlatSymbol{
		Name:           sym.Name,
		Detail:         sym.Detail,
		Kind:           sym.Kind,
		Range:          sym.Range,
		SelectionRange: sym.SelectionRange,
		ContainerName:  container,
	})

	childContainer := sym.Name
	if container != "" {
		childContainer = container + "." + sym.Name
	}
	for i := range sym.Children {
		out = flattenInto(out, &sym.Children[i], childContainer)
	}
	return out
}

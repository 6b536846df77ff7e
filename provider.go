package symdex

import "context"

// Position is a zero-based line/character location in a file.
type Position struct {
	Line      int
	Character int
}

// Range is a span between two positions.
type Range struct {
	Start Position
	End   Position
}

// DocumentSymbol is one node of the hierarchical symbol tree returned by a
// SymbolProvider. Kind is an opaque integer code shared with the provider's
// vocabulary (the Kind* constants follow the LSP numbering).
type DocumentSymbol struct {
	Name           string
	Detail         string
	Kind           int
	Range          Range
	SelectionRange Range
	Children       []DocumentSymbol
}

// SymbolProvider is the external analysis capability: given a file, it
// returns the symbol tree for that file. A nil/empty result is a valid
// answer (zero symbols); an error is an extraction failure and leaves any
// previously indexed state for the file untouched.
type SymbolProvider interface {
	GetSymbols(ctx context.Context, path string) ([]DocumentSymbol, error)
}

// Symbol kind codes, matching the LSP SymbolKind vocabulary.
const (
	KindFile          = 1
	KindModule        = 2
	KindNamespace     = 3
	KindPackage       = 4
	KindClass         = 5
	KindMethod        = 6
	KindProperty      = 7
	KindField         = 8
	KindConstructor   = 9
	KindEnum          = 10
	KindInterface     = 11
	KindFunction      = 12
	KindVariable      = 13
	KindConstant      = 14
	KindString        = 15
	KindNumber        = 16
	KindBoolean       = 17
	KindArray         = 18
	KindObject        = 19
	KindKey           = 20
	KindNull          = 21
	KindEnumMember    = 22
	KindStruct        = 23
	KindEvent         = 24
	KindOperator      = 25
	KindTypeParameter = 26
)

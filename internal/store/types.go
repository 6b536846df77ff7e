package store

// File is one indexed file. MTime and IndexedAt are milliseconds since epoch.
type File struct {
	ID        int64
	Path      string
	MTime     int64
	IndexedAt int64
}

// Span is a source range in zero-based line/column coordinates.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Symbol is one extracted symbol row. ContainerName is the dot-joined chain
// of ancestor symbol names; it is a denormalized path string, not a foreign key.
type Symbol struct {
	ID             int64
	FileID         int64
	Name           string
	Detail         string
	Kind           int
	Range          Span
	SelectionRange Span
	ContainerName  string
}

// SearchResult is a Symbol joined with its owning file's path.
type SearchResult struct {
	Symbol
	Path string
}

package symdex

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jward/symdex/internal/store"
)

// setupBenchEngine returns an engine whose store holds 200 files with ten
// symbols each, enough rows that query plans matter.
func setupBenchEngine(b *testing.B) *Engine {
	b.Helper()
	root := b.TempDir()
	dbPath := filepath.Join(b.TempDir(), "bench.db")

	e, err := New(dbPath, root, newFakeProvider())
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { e.Close() })

	for i := 0; i < 200; i++ {
		f := &store.File{
			Path:      filepath.Join(root, fmt.Sprintf("file%03d.go", i)),
			MTime:     int64(i),
			IndexedAt: int64(i),
		}
		symbols := make([]store.Symbol, 0, 10)
		for j := 0; j < 10; j++ {
			symbols = append(symbols, store.Symbol{
				Name:          fmt.Sprintf("Handle%sRequest%d", []string{"User", "Order", "Billing", "Auth"}[j%4], j),
				Kind:          KindFunction,
				ContainerName: fmt.Sprintf("Service%d", i%7),
			})
		}
		if err := e.store.ReplaceFile(f, symbols); err != nil {
			b.Fatal(err)
		}
	}
	return e
}

// BenchmarkSearch measures a two-keyword conjunction query over ~2000 symbol
// rows, the dominant interactive path.
func BenchmarkSearch(b *testing.B) {
	e := setupBenchEngine(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Search("handle user", 50, 0); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReplaceFile measures re-persisting one file's symbol set, the
// per-file cost of every indexing batch.
func BenchmarkReplaceFile(b *testing.B) {
	e := setupBenchEngine(b)

	f := &store.File{Path: filepath.Join(e.Root(), "file000.go"), MTime: 1, IndexedAt: 1}
	symbols := make([]store.Symbol, 50)
	for i := range symbols {
		symbols[i] = store.Symbol{Name: fmt.Sprintf("Reindexed%d", i), Kind: KindFunction}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := e.store.ReplaceFile(f, symbols); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFlatten measures tree flattening on a nested symbol tree shaped
// like a large class-heavy source file.
func BenchmarkFlatten(b *testing.B) {
	tree := make([]DocumentSymbol, 20)
	for i := range tree {
		class := DocumentSymbol{Name: fmt.Sprintf("Class%d", i), Kind: KindClass}
		for j := 0; j < 15; j++ {
			class.Children = append(class.Children, DocumentSymbol{
				Name: fmt.Sprintf("method%d", j),
				Kind: KindMethod,
			})
		}
		tree[i] = class
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if got := Flatten(tree); len(got) != 320 {
			b.Fatalf("unexpected symbol count %d", len(got))
		}
	}
}

package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSymbols(names ...string) []Symbol {
	syms := make([]Symbol, len(names))
	for i, name := range names {
		syms[i] = Symbol{
			Name:           name,
			Kind:           12,
			Range:          Span{StartLine: i, EndLine: i + 3},
			SelectionRange: Span{StartLine: i, StartCol: 5, EndLine: i, EndCol: 5 + len(name)},
		}
	}
	return syms
}

func mustReplace(t *testing.T, s *Store, path string, mtime int64, syms []Symbol) *File {
	t.Helper()
	f := &File{Path: path, MTime: mtime, IndexedAt: mtime}
	require.NoError(t, s.ReplaceFile(f, syms))
	require.Positive(t, f.ID)
	return f
}

// =============================================================================
// Schema & lifecycle
// =============================================================================

func TestOpen_CreatesSchema(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "symbols"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}

func TestOpen_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_Reopen(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(dbPath)
	require.NoError(t, err)
	mustReplace(t, s, "/src/a.go", 100, testSymbols("Alpha"))
	require.NoError(t, s.Close())

	s, err = Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	f, err := s.FileByPath("/src/a.go")
	require.NoError(t, err)
	require.NotNil(t, f)
}

func TestOpen_VersionMismatchDiscardsStore(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(dbPath)
	require.NoError(t, err)
	mustReplace(t, s, "/src/a.go", 100, testSymbols("Alpha"))
	require.NoError(t, s.Close())

	// Simulate a store written by a different engine version.
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion+1))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err = Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	f, err := s.FileByPath("/src/a.go")
	require.NoError(t, err)
	assert.Nil(t, f, "mismatched store should be recreated empty")

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}

func TestOpen_CorruptFileIsDiscarded(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("this is not a sqlite database"), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("stale wal"), 0o644))

	// The index is a derived cache: a corrupt store must heal into an empty
	// one, never surface as an open error.
	s, err := Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	files, symbols, err := s.Counts()
	require.NoError(t, err)
	assert.Zero(t, files)
	assert.Zero(t, symbols)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	mustReplace(t, s, "/src/a.go", 100, testSymbols("Alpha"))
}

func TestIsCorrupt(t *testing.T) {
	t.Parallel()
	assert.True(t, IsCorrupt(sqlite3.Error{Code: sqlite3.ErrNotADB}))
	assert.True(t, IsCorrupt(sqlite3.Error{Code: sqlite3.ErrCorrupt}))
	assert.True(t, IsCorrupt(fmt.Errorf("ping database: %w", sqlite3.Error{Code: sqlite3.ErrNotADB})))
	assert.False(t, IsCorrupt(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.False(t, IsCorrupt(fmt.Errorf("plain failure")))
	assert.False(t, IsCorrupt(nil))
}

func TestRebuild_EmptiesStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustReplace(t, s, "/src/a.go", 100, testSymbols("Alpha"))

	require.NoError(t, s.Rebuild())

	files, symbols, err := s.Counts()
	require.NoError(t, err)
	assert.Zero(t, files)
	assert.Zero(t, symbols)

	// The rebuilt store is writable again.
	mustReplace(t, s, "/src/b.go", 200, testSymbols("Beta"))
}

// =============================================================================
// File replacement & cascade
// =============================================================================

func TestReplaceFile_InsertAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := mustReplace(t, s, "/src/a.go", 1234, testSymbols("Alpha", "Beta"))

	got, err := s.FileByPath("/src/a.go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, int64(1234), got.MTime)

	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "Alpha", syms[0].Name)
	assert.Equal(t, "Beta", syms[1].Name)
	assert.Equal(t, Span{StartLine: 0, StartCol: 5, EndLine: 0, EndCol: 10}, syms[0].SelectionRange)
}

func TestReplaceFile_ReplacesWholeSymbolSet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	mustReplace(t, s, "/src/a.go", 100, testSymbols("Old1", "Old2", "Old3"))
	second := mustReplace(t, s, "/src/a.go", 200, testSymbols("New"))

	got, err := s.FileByPath("/src/a.go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(200), got.MTime)

	syms, err := s.SymbolsByFile(second.ID)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "New", syms[0].Name)

	// No orphans from the replaced generation.
	_, total, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestReplaceFile_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	symbols := testSymbols("Alpha", "Beta")
	f1 := mustReplace(t, s, "/src/a.go", 100, symbols)
	before, err := s.SymbolsByFile(f1.ID)
	require.NoError(t, err)

	f2 := mustReplace(t, s, "/src/a.go", 100, symbols)
	after, err := s.SymbolsByFile(f2.ID)
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Name, after[i].Name)
		assert.Equal(t, before[i].Kind, after[i].Kind)
		assert.Equal(t, before[i].Range, after[i].Range)
		assert.Equal(t, before[i].ContainerName, after[i].ContainerName)
	}
}

func TestReplaceFile_ChunkedInsert(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	names := make([]string, 0, 3*symbolInsertChunk+7)
	for i := range cap(names) {
		names = append(names, fmt.Sprintf("Sym%04d", i))
	}
	f := mustReplace(t, s, "/src/big.go", 100, testSymbols(names...))

	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, syms, len(names))
	// Insertion order preserved across chunk boundaries.
	for i, sym := range syms {
		assert.Equal(t, names[i], sym.Name)
	}
}

func TestReplaceFile_ZeroSymbols(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := mustReplace(t, s, "/src/empty.go", 100, nil)

	got, err := s.FileByPath("/src/empty.go")
	require.NoError(t, err)
	require.NotNil(t, got, "zero-symbol file must still be recorded as indexed")

	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestDeleteFile_CascadesToSymbols(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := mustReplace(t, s, "/src/a.go", 100, testSymbols("Alpha", "Beta"))
	mustReplace(t, s, "/src/b.go", 100, testSymbols("Gamma"))

	require.NoError(t, s.DeleteFile("/src/a.go"))

	var n int
	require.NoError(t, s.db.QueryRow(
		"SELECT COUNT(*) FROM symbols WHERE file_id = ?", f.ID,
	).Scan(&n))
	assert.Zero(t, n, "no symbol rows may reference a deleted file")

	files, symbols, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, int64(1), files)
	assert.Equal(t, int64(1), symbols)
}

func TestDeleteFile_UnknownPathIsNoop(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.DeleteFile("/nope"))
}

func TestAllFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	mustReplace(t, s, "/src/a.go", 100, nil)
	mustReplace(t, s, "/src/b.go", 200, nil)

	files, err := s.AllFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
}

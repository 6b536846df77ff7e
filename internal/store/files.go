package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// symbolInsertChunk bounds how many symbol rows go into one INSERT so the
// parameter count stays under SQLite's default 999-variable limit
// (13 columns per row).
const symbolInsertChunk = 64

// ReplaceFile atomically replaces the FileEntry at f.Path and all of its
// symbols inside a single transaction: any existing row at that path is
// deleted (cascading to its symbols), the new file row is inserted, and the
// symbol rows follow in fixed-size chunks. Any error rolls the whole
// operation back, preserving the prior state.
func (s *Store) ReplaceFile(f *File, symbols []Symbol) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM files WHERE path = ?", f.Path); err != nil {
		return fmt.Errorf("delete existing file: %w", err)
	}

	res, err := tx.Exec(
		"INSERT INTO files (path, mtime, indexed_at) VALUES (?, ?, ?)",
		f.Path, f.MTime, f.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	f.ID = fileID

	for start := 0; start < len(symbols); start += symbolInsertChunk {
		end := min(start+symbolInsertChunk, len(symbols))
		if err := insertSymbolChunk(tx, fileID, symbols[start:end]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertSymbolChunk(tx *sql.Tx, fileID int64, chunk []Symbol) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO symbols (file_id, name, detail, kind,
		start_line, start_col, end_line, end_col,
		sel_start_line, sel_start_col, sel_end_line, sel_end_col,
		container_name) VALUES `)

	args := make([]any, 0, len(chunk)*13)
	for i, sym := range chunk {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			fileID, sym.Name, sym.Detail, sym.Kind,
			sym.Range.StartLine, sym.Range.StartCol, sym.Range.EndLine, sym.Range.EndCol,
			sym.SelectionRange.StartLine, sym.SelectionRange.StartCol,
			sym.SelectionRange.EndLine, sym.SelectionRange.EndCol,
			sym.ContainerName,
		)
	}

	if _, err := tx.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("insert symbol chunk: %w", err)
	}
	return nil
}

// DeleteFile removes the file at path and, via cascade, all of its symbols.
// Deleting an unknown path is a no-op.
func (s *Store) DeleteFile(path string) error {
	if _, err := s.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// FileByPath returns the file row at path, or nil if not indexed.
func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, mtime, indexed_at FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.MTime, &f.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// AllFiles returns every file row, for reconciliation against the workspace.
func (s *Store) AllFiles() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, mtime, indexed_at FROM files")
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.Path, &f.MTime, &f.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// SymbolsByFile returns all symbol rows owned by fileID, in insertion order.
func (s *Store) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	rows, err := s.db.Query(
		`SELECT id, file_id, name, detail, kind,
			start_line, start_col, end_line, end_col,
			sel_start_line, sel_start_col, sel_end_line, sel_end_col,
			container_name
		 FROM symbols WHERE file_id = ? ORDER BY id`, fileID)
	if err != nil {
		return nil, fmt.Errorf("symbols by file: %w", err)
	}
	defer rows.Close()
	var symbols []*Symbol
	for rows.Next() {
		sym := &Symbol{}
		if err := rows.Scan(
			&sym.ID, &sym.FileID, &sym.Name, &sym.Detail, &sym.Kind,
			&sym.Range.StartLine, &sym.Range.StartCol, &sym.Range.EndLine, &sym.Range.EndCol,
			&sym.SelectionRange.StartLine, &sym.SelectionRange.StartCol,
			&sym.SelectionRange.EndLine, &sym.SelectionRange.EndCol,
			&sym.ContainerName,
		); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Counts returns the number of file and symbol rows.
func (s *Store) Counts() (files int64, symbols int64, err error) {
	if err = s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&files); err != nil {
		return 0, 0, fmt.Errorf("count files: %w", err)
	}
	if err = s.db.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&symbols); err != nil {
		return 0, 0, fmt.Errorf("count symbols: %w", err)
	}
	return files, symbols, nil
}

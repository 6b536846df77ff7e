package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SchemaVersion is stamped into the database via PRAGMA user_version.
// A store whose marker differs is discarded and recreated from scratch;
// the index is a derived cache, so destructive rebuild replaces migrations.
const SchemaVersion = 3

// Store is the SQLite data access layer for the symbol index.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at dbPath with WAL mode and
// relaxed synchronous flushing. If the schema version marker does not match
// SchemaVersion, the store file and its write-ahead artifacts are deleted
// and a fresh database is created. A corrupt or non-SQLite file at dbPath is
// healed the same way: the index is a derived cache, so it is discarded and
// recreated empty rather than surfacing the error.
func Open(dbPath string) (*Store, error) {
	s, err := open(dbPath)
	if err != nil && IsCorrupt(err) {
		if rmErr := removeStoreFiles(dbPath); rmErr != nil {
			return nil, fmt.Errorf("discard corrupt store: %w", rmErr)
		}
		s, err = open(dbPath)
	}
	return s, err
}

func open(dbPath string) (*Store, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	version, err := readUserVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version != SchemaVersion {
		// A zero version on a database that already has tables means the
		// store predates versioning; treat it like any other mismatch.
		stale := version != 0
		if !stale {
			stale, err = hasTables(db)
			if err != nil {
				db.Close()
				return nil, err
			}
		}
		if stale {
			db.Close()
			if err := removeStoreFiles(dbPath); err != nil {
				return nil, fmt.Errorf("discard stale store: %w", err)
			}
			db, err = openDB(dbPath)
			if err != nil {
				return nil, err
			}
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func readUserVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func hasTables(db *sql.DB) (bool, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'").Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count tables: %w", err)
	}
	return n > 0, nil
}

// removeStoreFiles deletes the database file plus any -wal/-shm artifacts.
func removeStoreFiles(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection, merging the WAL.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in tests and transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate creates the schema and stamps the version marker. Idempotent.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("stamp user_version: %w", err)
	}
	return nil
}

// Rebuild discards the store file entirely and recreates an empty schema.
// Used for full reindex requests and corruption self-healing.
func (s *Store) Rebuild() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close before rebuild: %w", err)
	}
	if err := removeStoreFiles(s.path); err != nil {
		return fmt.Errorf("remove store files: %w", err)
	}
	db, err := openDB(s.path)
	if err != nil {
		return err
	}
	s.db = db
	return s.migrate()
}

// IsCorrupt reports whether err indicates SQLite-level corruption, in which
// case the caller should Rebuild rather than propagate.
func IsCorrupt(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrCorrupt || serr.Code == sqlite3.ErrNotADB
	}
	return false
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id          INTEGER PRIMARY KEY,
  path        TEXT NOT NULL UNIQUE,
  mtime       INTEGER NOT NULL,
  indexed_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  name            TEXT NOT NULL,
  detail          TEXT NOT NULL DEFAULT '',
  kind            INTEGER NOT NULL,
  start_line      INTEGER NOT NULL,
  start_col       INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  end_col         INTEGER NOT NULL,
  sel_start_line  INTEGER NOT NULL,
  sel_start_col   INTEGER NOT NULL,
  sel_end_line    INTEGER NOT NULL,
  sel_end_col     INTEGER NOT NULL,
  container_name  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
`

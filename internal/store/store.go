// Package store persists the occurrence index: for every analyzed document,
// the tag and databinding occurrences it contains and the documents it
// depends on. It is backed by SQLite.
package store

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath is the dbPath of a private in-memory database.
const MemoryPath = ":memory:"

// Store is the SQLite data access layer for the occurrence index.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled. An
// in-memory database is confined to one connection, since each connection
// would otherwise see its own empty database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if dbPath == MemoryPath {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return errors.Wrap(err, "migrate")
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
  id              INTEGER PRIMARY KEY,
  url             TEXT NOT NULL UNIQUE,
  hash            TEXT NOT NULL,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS occurrences (
  id              INTEGER PRIMARY KEY,
  document_id     INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  kind            TEXT NOT NULL,
  name            TEXT NOT NULL,
  scope           TEXT NOT NULL DEFAULT '',
  start_offset    INTEGER NOT NULL,
  end_offset      INTEGER NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS dependencies (
  id              INTEGER PRIMARY KEY,
  document_id     INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  url             TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_occurrences_document ON occurrences(document_id);
CREATE INDEX IF NOT EXISTS idx_occurrences_name ON occurrences(kind, name);
CREATE INDEX IF NOT EXISTS idx_dependencies_document ON dependencies(document_id);
CREATE INDEX IF NOT EXISTS idx_dependencies_url ON dependencies(url);
`

// DeleteDocument removes a document and everything recorded for it.
// Deleting an unknown URL is not an error.
func (s *Store) DeleteDocument(url string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := deleteDocumentTx(tx, url); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteDocumentTx deletes child rows explicitly so the result does not
// depend on the connection's foreign key setting.
func deleteDocumentTx(tx *sql.Tx, url string) error {
	for _, q := range []string{
		"DELETE FROM occurrences WHERE document_id IN (SELECT id FROM documents WHERE url = ?)",
		"DELETE FROM dependencies WHERE document_id IN (SELECT id FROM documents WHERE url = ?)",
		"DELETE FROM documents WHERE url = ?",
	} {
		if _, err := tx.Exec(q, url); err != nil {
			return errors.Wrapf(err, "delete document %s", url)
		}
	}
	return nil
}

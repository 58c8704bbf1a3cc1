package store

import (
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

// --- Document operations ---

// ReplaceDocument records doc with its occurrences and dependencies,
// discarding whatever was recorded for doc.URL before. doc.ID is set.
func (s *Store) ReplaceDocument(doc *Document, occs []*Occurrence, deps []string) error {
	if doc.LastIndexed.IsZero() {
		doc.LastIndexed = time.Now()
	}
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := deleteDocumentTx(tx, doc.URL); err != nil {
		return err
	}
	res, err := tx.Exec(
		"INSERT INTO documents (url, hash, last_indexed) VALUES (?, ?, ?)",
		doc.URL, doc.Hash, doc.LastIndexed,
	)
	if err != nil {
		return errors.Wrap(err, "insert document")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "last insert id")
	}

	occStmt, err := tx.Prepare(`INSERT INTO occurrences (document_id, kind, name, scope,
			start_offset, end_offset, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare occurrence insert")
	}
	defer occStmt.Close()
	for _, o := range occs {
		res, err := occStmt.Exec(id, o.Kind, o.Name, o.Scope,
			o.StartOffset, o.EndOffset, o.StartLine, o.StartCol, o.EndLine, o.EndCol)
		if err != nil {
			return errors.Wrapf(err, "insert occurrence %s %q", o.Kind, o.Name)
		}
		if o.ID, err = res.LastInsertId(); err != nil {
			return errors.Wrap(err, "last insert id")
		}
		o.DocumentID = id
		o.URL = doc.URL
	}

	for _, dep := range deps {
		if _, err := tx.Exec("INSERT INTO dependencies (document_id, url) VALUES (?, ?)", id, dep); err != nil {
			return errors.Wrapf(err, "insert dependency %s", dep)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	doc.ID = id
	return nil
}

// DocumentByURL returns the recorded document, or nil if there is none.
func (s *Store) DocumentByURL(url string) (*Document, error) {
	d := &Document{}
	err := s.db.QueryRow(
		"SELECT id, url, hash, last_indexed FROM documents WHERE url = ?", url,
	).Scan(&d.ID, &d.URL, &d.Hash, &d.LastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "document by url")
	}
	return d, nil
}

// Documents returns every recorded document ordered by URL.
func (s *Store) Documents() ([]*Document, error) {
	rows, err := s.db.Query("SELECT id, url, hash, last_indexed FROM documents ORDER BY url")
	if err != nil {
		return nil, errors.Wrap(err, "documents")
	}
	defer rows.Close()
	var docs []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(&d.ID, &d.URL, &d.Hash, &d.LastIndexed); err != nil {
			return nil, errors.Wrap(err, "scan document")
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Dependents returns the URLs of documents that recorded url as a
// dependency, ordered by URL.
func (s *Store) Dependents(url string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT d.url FROM dependencies dep
		 JOIN documents d ON d.id = dep.document_id
		 WHERE dep.url = ? ORDER BY d.url`, url,
	)
	if err != nil {
		return nil, errors.Wrap(err, "dependents")
	}
	defer rows.Close()
	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, errors.Wrap(err, "scan dependent")
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// --- Occurrence operations ---

const occurrenceColumns = `o.id, o.document_id, d.url, o.kind, o.name, o.scope,
	o.start_offset, o.end_offset, o.start_line, o.start_col, o.end_line, o.end_col`

func (s *Store) queryOccurrences(where string, args ...any) ([]*Occurrence, error) {
	rows, err := s.db.Query(
		"SELECT "+occurrenceColumns+" FROM occurrences o JOIN documents d ON d.id = o.document_id WHERE "+
			where+" ORDER BY d.url, o.start_offset",
		args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query occurrences")
	}
	defer rows.Close()
	var occs []*Occurrence
	for rows.Next() {
		o := &Occurrence{}
		if err := rows.Scan(&o.ID, &o.DocumentID, &o.URL, &o.Kind, &o.Name, &o.Scope,
			&o.StartOffset, &o.EndOffset, &o.StartLine, &o.StartCol, &o.EndLine, &o.EndCol); err != nil {
			return nil, errors.Wrap(err, "scan occurrence")
		}
		occs = append(occs, o)
	}
	return occs, rows.Err()
}

// OccurrencesByDocument returns the occurrences recorded for url in
// document order.
func (s *Store) OccurrencesByDocument(url string) ([]*Occurrence, error) {
	return s.queryOccurrences("d.url = ?", url)
}

// OccurrencesByName returns occurrences of kind and name ordered by URL and
// offset. When urls is non-empty only those documents are searched.
func (s *Store) OccurrencesByName(kind, name string, urls ...string) ([]*Occurrence, error) {
	where := "o.kind = ? AND o.name = ?"
	args := []any{kind, name}
	if len(urls) > 0 {
		where += " AND d.url IN (" + placeholderList(len(urls)) + ")"
		args = append(args, stringsToArgs(urls)...)
	}
	return s.queryOccurrences(where, args...)
}

// OccurrencesInScope is OccurrencesByName restricted to one scope, such as
// the dom-module a databinding appears in.
func (s *Store) OccurrencesInScope(kind, name, scope string) ([]*Occurrence, error) {
	return s.queryOccurrences("o.kind = ? AND o.name = ? AND o.scope = ?", kind, name, scope)
}

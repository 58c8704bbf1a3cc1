package store

import "time"

// Occurrence kinds.
const (
	KindTag     = "tag"
	KindBinding = "binding"
)

// Document is one analyzed document.
type Document struct {
	ID          int64
	URL         string
	Hash        string
	LastIndexed time.Time
}

// Occurrence is a tag or databinding identifier in a document. Offsets are
// byte offsets into the document text; lines and columns are zero-based,
// with columns in UTF-16 code units.
type Occurrence struct {
	ID          int64
	DocumentID  int64
	URL         string
	Kind        string
	Name        string
	Scope       string
	StartOffset int
	EndOffset   int
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
}

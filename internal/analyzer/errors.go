package analyzer

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned by loaders for documents that do not exist.
var ErrNotFound = errors.New("analyzer: document not found")

// AnalysisError reports that a document's own source could not be analyzed,
// for example because one of its scripts does not parse.
type AnalysisError struct {
	URL     string
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analyze %s: %s: %v", e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("analyze %s: %s", e.URL, e.Message)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// IsAnalysisError reports whether err carries an *AnalysisError.
func IsAnalysisError(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae)
}

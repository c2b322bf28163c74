package rowset

import (
	"errors"

	"github.com/mathsigit/kudu/internal/cfile"
)

// Error kinds surfaced by this package. I/O failures from the underlying
// files are propagated wrapped with column/file context instead of being
// mapped to a sentinel; callers classify them by exclusion.
var (
	// ErrNotOpened reports an operation invoked before OpenAllColumns /
	// OpenKeyColumns.
	ErrNotOpened = errors.New("rowset: not opened")

	// ErrCorruption reports inconsistent rowset data, e.g. column files
	// that disagree on row count or a metadata mismatch.
	ErrCorruption = errors.New("rowset: corrupted data")

	// ErrNotFound is the normal negative result of a point lookup.
	ErrNotFound = errors.New("rowset: key not found")

	// ErrInvalidState reports a violation of the iterator protocol, such
	// as materializing a column before Init.
	ErrInvalidState = errors.New("rowset: invalid iterator state")
)

// errorsIsNotFound matches both this package's sentinel and the one the
// column-file layer reports from a past-the-end value search.
func errorsIsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, cfile.ErrNotFound)
}

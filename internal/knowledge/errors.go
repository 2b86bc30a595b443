package knowledge

import (
	"errors"
	"fmt"
)

// ErrFileNotFound reports an unknown file ID.
var ErrFileNotFound = errors.New("file not found")

// ValidationError reports input rejected before any I/O: bad filename,
// extension, size, or an empty query.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// validationf builds a ValidationError with a formatted reason.
func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ExtractionError reports that no usable text could be obtained from an
// uploaded file, either because a parser failed or the content was empty.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return "text extraction failed: " + e.Err.Error() }

func (e *ExtractionError) Unwrap() error { return e.Err }

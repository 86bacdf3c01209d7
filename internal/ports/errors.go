package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur at the dataset I/O boundary.
var (
	// ErrNoInputFiles indicates that no files matched a collection's
	// expected naming pattern under the input directory.
	ErrNoInputFiles = errors.New("no input files found")

	// ErrEmptyHeader indicates that an input file contains no header row.
	ErrEmptyHeader = errors.New("input file has no header row")

	// ErrUnknownRuleType indicates a request for a rule type that is not
	// registered.
	ErrUnknownRuleType = errors.New("unknown rule type")
)

// IOError represents an error from dataset reading or writing.
// It includes the collection and path involved so batch runs over many
// jurisdiction directories can report precisely which input failed.
type IOError struct {
	// Collection names the table being processed: "elections",
	// "candidates", "rounds", or "scores".
	Collection string

	// Path is the file or directory involved in the failed operation.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for IOError.
func (e *IOError) Error() string {
	return fmt.Sprintf("dataset io error: collection=%s, path=%s, err=%v", e.Collection, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error { return e.Err }

// NewIOError creates a new IOError with the given details.
func NewIOError(collection, path string, err error) *IOError {
	return &IOError{
		Collection: collection,
		Path:       path,
		Err:        err,
	}
}

package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingOutput means a module did not return one of its declared outputs.
	ErrMissingOutput = errors.New("declared output missing")
	// ErrNonFinite means a numeric output was NaN or infinite.
	ErrNonFinite = errors.New("non-finite output")
	// ErrFinished is returned when stepping a cursor past the end year or
	// after Finalize.
	ErrFinished = errors.New("simulation finished")
)

// OutputError is a runtime failure tied to one module output in one year.
// These indicate modeling bugs and are never retried.
type OutputError struct {
	Module string
	// Path locates the offending value, e.g. "minerals.copper.cumulative".
	Path string
	Year int
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("module %q, output %q, year %d: %v", e.Module, e.Path, e.Year, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

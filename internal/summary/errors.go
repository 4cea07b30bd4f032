package summary

import (
	"errors"
	"fmt"
)

// ErrNoData indicates the data document is absent or empty after
// normalization. Callers show a "no data" state rather than failing.
var ErrNoData = errors.New("summary: no data to display")

// MalformedInputError reports input text that is not valid JSON, or a
// document whose top level has the wrong shape.
type MalformedInputError struct {
	Path string
	Err  error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("summary: malformed input at %s: %v", e.Path, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

func malformed(path string, err error) error {
	return &MalformedInputError{Path: path, Err: err}
}

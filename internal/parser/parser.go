// Package parser defines the record reader contract shared by the dump
// formats and the error every reader reports for a malformed line.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"

	"custref/internal/records"
)

// Reader yields records one at a time. Next returns io.EOF once the input is
// exhausted. A Reader is single-pass and not safe for concurrent use.
type Reader interface {
	Next() (records.Record, error)
}

// Sentinel causes wrapped by ParseError.
var (
	ErrFieldCount = errors.New("wrong number of fields")
	ErrNoHeader   = errors.New("missing header row")
)

// ParseError reports a dump line that does not have the expected shape. The
// run aborts on the first ParseError; no statement is produced for Line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Errorf builds a ParseError for line with a formatted cause.
func Errorf(line int, format string, a ...any) *ParseError {
	return &ParseError{Line: line, Err: fmt.Errorf(format, a...)}
}

// FromCSV converts an encoding/csv read error into a ParseError carrying the
// line the broken record started on. Other errors are returned unchanged.
func FromCSV(err error) error {
	var ce *csv.ParseError
	if errors.As(err, &ce) {
		line := ce.StartLine
		if line == 0 {
			line = ce.Line
		}
		return &ParseError{Line: line, Err: ce.Err}
	}
	return err
}

// Package csv reads the flat customer dump: a header line naming the columns
// followed by one delimited row per record. Blank lines and lines starting
// with the comment rune are skipped. Unlike a best-effort loader, a row with
// the wrong width or broken quoting stops the read with a ParseError so no
// customer row is ever dropped silently.
package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"custref/internal/parser"
	"custref/internal/records"
	"custref/internal/sqltext"
)

// Options configures the reader. Zero values select the defaults.
type Options struct {
	// Comma is the field delimiter. Default ','.
	Comma rune

	// Comment marks lines to skip. Default '#'; use -1 to disable.
	Comment rune

	// Table is stamped on every record.
	Table string
}

// Reader yields one record per data row. It implements parser.Reader.
type Reader struct {
	cr     *csv.Reader
	tap    *lineTap
	opt    Options
	header []string
	err    error
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// NewReader wraps r. Nothing is read until Header or Next is called.
func NewReader(r io.Reader, opt Options) *Reader {
	tap := &lineTap{r: r}
	cr := csv.NewReader(tap)
	cr.Comma = ','
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	switch opt.Comment {
	case 0:
		cr.Comment = '#'
	case -1:
	default:
		cr.Comment = opt.Comment
	}
	// Width is enforced against the header below so the error carries our
	// line number and expected count.
	cr.FieldsPerRecord = -1
	return &Reader{cr: cr, tap: tap, opt: opt}
}

// Header returns the normalised column names, reading the header line on
// first use. An input without a header line yields ErrNoHeader.
func (r *Reader) Header() ([]string, error) {
	if r.header != nil || r.err != nil {
		return r.header, r.err
	}
	row, line, err := r.read()
	if err == io.EOF {
		r.err = &parser.ParseError{Line: 1, Err: parser.ErrNoHeader}
		return nil, r.err
	}
	if err != nil {
		r.err = err
		return nil, err
	}
	h, err := normalizeHeaders(row)
	if err != nil {
		r.err = &parser.ParseError{Line: line, Err: err}
		return nil, r.err
	}
	r.header = h
	return h, nil
}

// Next returns the next data row. io.EOF marks the end of input; any other
// error is sticky.
func (r *Reader) Next() (records.Record, error) {
	if _, err := r.Header(); err != nil {
		return records.Record{}, err
	}
	row, line, err := r.read()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return records.Record{}, err
	}
	if len(row) != len(r.header) {
		r.err = &parser.ParseError{
			Line: line,
			Err:  fmt.Errorf("%w: expected %d, got %d", parser.ErrFieldCount, len(r.header), len(row)),
		}
		return records.Record{}, r.err
	}
	return records.Record{
		Table:   r.opt.Table,
		Line:    line,
		Columns: r.header,
		Values:  row,
	}, nil
}

// read returns the next non-blank row and the line it started on.
func (r *Reader) read() ([]string, int, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	for {
		row, err := r.cr.Read()
		if err != nil {
			return nil, 0, parser.FromCSV(err)
		}
		raw := r.tap.take(r.cr.InputOffset())
		line, _ := r.cr.FieldPos(0)
		if len(row) == 1 && blankLine(raw) {
			continue
		}
		return row, line, nil
	}
}

// blankLine reports whether the last line of raw holds only whitespace.
// raw may start with comment or empty lines the csv reader skipped; a quoted
// empty field ("") is a record, not a blank line.
func blankLine(raw []byte) bool {
	raw = bytes.TrimRight(raw, "\r\n")
	if i := bytes.LastIndexByte(raw, '\n'); i >= 0 {
		raw = raw[i+1:]
	}
	return len(bytes.TrimSpace(raw)) == 0
}

// lineTap keeps the bytes the csv reader has consumed but not yet returned as
// a row, so a row can be checked against its raw text.
type lineTap struct {
	r    io.Reader
	buf  []byte
	base int64 // input offset of buf[0]
}

func (t *lineTap) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	t.buf = append(t.buf, p[:n]...)
	return n, err
}

// take returns the raw input up to offset off and drops it from the buffer.
func (t *lineTap) take(off int64) []byte {
	n := int(off - t.base)
	raw := t.buf[:n:n]
	t.buf = t.buf[n:]
	t.base = off
	return raw
}

// normalizeHeaders turns header cells into column names. Unnamed columns
// become col_N (1-based); duplicates are an error.
func normalizeHeaders(h []string) ([]string, error) {
	res := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimSpace(strings.TrimPrefix(c, utf8BOM))
		}
		name := sqltext.ToSQLName(c)
		if name == "" {
			name = fmt.Sprintf("col_%d", i+1)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column %q (columns %d and %d)", name, prev+1, i+1)
		}
		seen[name] = i
		res[i] = name
	}
	return res, nil
}

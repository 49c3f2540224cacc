// Package custref reads the record-typed customer reference dump.
//
// Every line is ';'-delimited and starts with a record-type tag. The tags
// form a fixed grammar:
//
//	H       dump header; fields 7 and 8 carry the insert date and time
//	S       optional separator after the header
//	H_CUST  customer section header
//	CUST    one customer
//	H_REF   reference section header for the current customer
//	REF     one reference of the current customer
//	MEDIUM  trailer; nothing after it is read
//
// Lines before the first H are ignored. A tag that is not allowed in the
// current state stops the read with a ParseError.
package custref

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"custref/internal/parser"
	"custref/internal/records"
	"custref/internal/schema"
)

// Record-type tags that only steer the state machine.
const (
	tagHeader     = "H"
	tagSeparator  = "S"
	tagCustHeader = "H_CUST"
	tagRefHeader  = "H_REF"
	tagTrailer    = "MEDIUM"

	stateInitial = ""
)

// transitions lists, per state, the tags allowed on the next line.
var transitions = map[string][]string{
	stateInitial:        {tagHeader},
	tagHeader:           {tagCustHeader, tagSeparator},
	tagSeparator:        {tagCustHeader},
	tagCustHeader:       {schema.CustomerTag, tagRefHeader},
	schema.CustomerTag:  {tagRefHeader, tagCustHeader, tagTrailer},
	tagRefHeader:        {schema.ReferenceTag},
	schema.ReferenceTag: {schema.ReferenceTag, tagCustHeader, tagTrailer},
	tagTrailer:          nil,
}

// Header field positions of the insert date and time.
const (
	headerDateField = 7
	headerTimeField = 8
)

// Delimiter is the field separator of the dump.
const Delimiter = ';'

// Options configures the reader.
type Options struct {
	// Comma overrides Delimiter when non-zero.
	Comma rune

	// Layout supplies the tables routed by CUST and REF. Zero value selects
	// schema.CustRef().
	Layout schema.Layout
}

// Reader implements parser.Reader over a record-typed dump.
type Reader struct {
	cr     *csv.Reader
	layout schema.Layout

	state string
	done  bool
	err   error

	// context columns merged into emitted rows.
	insertDate   string
	insertTime   string
	customerCode string
	haveCustomer bool
}

// NewReader wraps r.
func NewReader(r io.Reader, opt Options) *Reader {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	// Dumps carry bare quotes inside unquoted names.
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	layout := opt.Layout
	if len(layout.Tables) == 0 {
		layout = schema.CustRef()
	}
	return &Reader{cr: cr, layout: layout, state: stateInitial}
}

// Next returns the next CUST or REF row as a record of its table. Structural
// lines are consumed silently. io.EOF is returned after MEDIUM or at end of
// input.
func (r *Reader) Next() (records.Record, error) {
	if r.err != nil {
		return records.Record{}, r.err
	}
	for !r.done {
		row, err := r.cr.Read()
		if err == io.EOF {
			r.done = true
			break
		}
		if err != nil {
			r.err = parser.FromCSV(err)
			return records.Record{}, r.err
		}
		line, _ := r.cr.FieldPos(0)
		tag := strings.TrimSpace(row[0])
		if len(row) == 1 && tag == "" {
			continue
		}

		next, err := r.step(tag)
		if err != nil {
			r.err = &parser.ParseError{Line: line, Err: err}
			return records.Record{}, r.err
		}
		r.state = next

		rec, emit, err := r.enter(row, line)
		if err != nil {
			r.err = &parser.ParseError{Line: line, Err: err}
			return records.Record{}, r.err
		}
		if r.state == tagTrailer {
			r.done = true
		}
		if emit {
			return rec, nil
		}
	}
	return records.Record{}, io.EOF
}

// step validates tag against the current state and returns the new state.
func (r *Reader) step(tag string) (string, error) {
	allowed := transitions[r.state]
	for _, a := range allowed {
		if a == tag {
			return tag, nil
		}
	}
	if r.state == stateInitial {
		// Preamble before the dump header is skipped.
		return stateInitial, nil
	}
	want := append([]string(nil), allowed...)
	sort.Strings(want)
	return "", fmt.Errorf("unexpected record type %q after %s, want one of %v", tag, r.state, want)
}

// enter runs the action of the state just entered and reports whether it
// produced a row.
func (r *Reader) enter(row []string, line int) (records.Record, bool, error) {
	switch r.state {
	case tagHeader:
		if len(row) <= headerTimeField {
			return records.Record{}, false, fmt.Errorf("%w: header needs at least %d fields, got %d",
				parser.ErrFieldCount, headerTimeField+1, len(row))
		}
		r.insertDate = row[headerDateField]
		r.insertTime = row[headerTimeField]
	case tagCustHeader:
		// A new customer section closes the previous customer.
		r.haveCustomer = false
		r.customerCode = ""
	case schema.CustomerTag:
		rec, err := r.build(schema.CustomerTag, row, line)
		if err != nil {
			return records.Record{}, false, err
		}
		r.customerCode, _ = rec.Get(schema.CustomerCodeColumn)
		r.haveCustomer = true
		return rec, true, nil
	case schema.ReferenceTag:
		if !r.haveCustomer {
			return records.Record{}, false, fmt.Errorf("reference without a current customer")
		}
		rec, err := r.build(schema.ReferenceTag, row, line)
		if err != nil {
			return records.Record{}, false, err
		}
		return rec, true, nil
	}
	return records.Record{}, false, nil
}

// build maps a data line onto the SQL columns of the table routed by tag.
// Dump columns are positional; context columns are filled from the current
// header and customer.
func (r *Reader) build(tag string, row []string, line int) (records.Record, error) {
	tbl, ok := r.layout.ByTag(tag)
	if !ok {
		return records.Record{}, fmt.Errorf("layout has no table for record type %q", tag)
	}
	csvCols := tbl.CSVColumns()
	if err := checkWidth(row, len(csvCols)); err != nil {
		return records.Record{}, err
	}

	raw := make(map[string]string, len(csvCols)+3)
	for i, c := range csvCols {
		raw[c.Name] = row[i]
	}
	ctx := map[string]string{
		schema.InsertDateColumn:   r.insertDate,
		schema.InsertTimeColumn:   r.insertTime,
		schema.CustomerCodeColumn: r.customerCode,
	}

	sqlCols := tbl.SQLColumns()
	rec := records.Record{
		Table:   tbl.Name,
		Line:    line,
		Columns: make([]string, len(sqlCols)),
		Values:  make([]string, len(sqlCols)),
	}
	for i, c := range sqlCols {
		rec.Columns[i] = c.Name
		if v, ok := raw[c.Name]; ok {
			rec.Values[i] = v
			continue
		}
		rec.Values[i] = ctx[c.Name]
	}
	return rec, nil
}

// checkWidth requires at least want fields; extra fields are tolerated only
// when empty, which covers a trailing delimiter.
func checkWidth(row []string, want int) error {
	if len(row) < want {
		return fmt.Errorf("%w: expected %d, got %d", parser.ErrFieldCount, want, len(row))
	}
	for _, extra := range row[want:] {
		if strings.TrimSpace(extra) != "" {
			return fmt.Errorf("%w: expected %d, got %d", parser.ErrFieldCount, want, len(row))
		}
	}
	return nil
}

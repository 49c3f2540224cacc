// Package writer renders records as SQL statements, one complete statement
// per output line:
//
//	BEGIN TRANSACTION;                         (optional)
//	CREATE TABLE ...;                          (schema mode)
//	INSERT INTO t (c1, c2) VALUES (l1, l2);    (one per record)
//	COMMIT;                                    (optional)
//
// Each line is assembled in memory before it is handed to the buffered
// output, so a failed run never leaves half a statement behind. String
// literals carry line breaks as char(10)/char(13) (see sqltext.QuoteString),
// so a statement never spans lines. The writer
// keeps an xxh3 digest of everything it wrote; two runs over the same input
// produce the same digest.
package writer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/xxh3"

	"custref/internal/ddl"
	"custref/internal/schema"
	"custref/internal/sqltext"
	"custref/internal/transformer"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("writer: closed")

// Options configures statement framing.
type Options struct {
	// Transaction wraps the output in BEGIN TRANSACTION; ... COMMIT;.
	Transaction bool
}

// Stats summarises what was written.
type Stats struct {
	Statements int    // every statement, including BEGIN/CREATE/COMMIT
	Inserts    int    // INSERT statements only
	Tables     int    // CREATE TABLE statements
	Bytes      int64  // bytes handed to the output
	Digest     uint64 // xxh3 of those bytes
}

// Writer emits SQL to an io.Writer. It is not safe for concurrent use.
type Writer struct {
	bw  *bufio.Writer
	h   *xxh3.Hasher
	opt Options

	line   []byte
	prefix map[string]string // table name -> "INSERT INTO t (cols) VALUES ("
	stats  Stats
	begun  bool
	closed bool
	err    error
}

// New returns a Writer over w. The caller owns w and closes it after Close.
func New(w io.Writer, opt Options) *Writer {
	return &Writer{
		bw:     bufio.NewWriterSize(w, 64<<10),
		h:      xxh3.New(),
		opt:    opt,
		line:   make([]byte, 0, 512),
		prefix: make(map[string]string),
	}
}

// Begin writes BEGIN TRANSACTION; when the transaction wrapper is enabled.
// It is a no-op on repeated calls. CreateTable and Insert call it implicitly.
func (w *Writer) Begin() error {
	if w.begun {
		return w.err
	}
	w.begun = true
	if !w.opt.Transaction {
		return nil
	}
	return w.emit("BEGIN TRANSACTION;")
}

// CreateTable writes the single-line CREATE TABLE statement for def.
func (w *Writer) CreateTable(def ddl.TableDef) error {
	stmt, err := ddl.BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	if err := w.Begin(); err != nil {
		return err
	}
	if err := w.emit(stmt); err != nil {
		return err
	}
	w.stats.Tables++
	return nil
}

// Insert writes one INSERT into tbl. lits must hold one literal per SQL
// column of tbl, in column order.
func (w *Writer) Insert(tbl schema.Table, lits []transformer.Literal) error {
	prefix, n := w.insertPrefix(tbl)
	if len(lits) != n {
		return fmt.Errorf("writer: %s has %d columns, got %d values", tbl.Name, n, len(lits))
	}
	if err := w.Begin(); err != nil {
		return err
	}

	w.line = append(w.line[:0], prefix...)
	for i, l := range lits {
		if i > 0 {
			w.line = append(w.line, ", "...)
		}
		w.line = append(w.line, l.String()...)
	}
	w.line = append(w.line, ");"...)
	if err := w.emitLine(); err != nil {
		return err
	}
	w.stats.Inserts++
	return nil
}

func (w *Writer) insertPrefix(tbl schema.Table) (string, int) {
	cols := tbl.SQLColumns()
	if p, ok := w.prefix[tbl.Name]; ok {
		return p, len(cols)
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = sqltext.QuoteIdent(c.Name)
	}
	p := fmt.Sprintf("INSERT INTO %s (%s) VALUES (", sqltext.QuoteQualified(tbl.Name), strings.Join(names, ", "))
	w.prefix[tbl.Name] = p
	return p, len(cols)
}

func (w *Writer) emit(stmt string) error {
	w.line = append(w.line[:0], stmt...)
	return w.emitLine()
}

// emitLine writes w.line plus a newline. The first failure is sticky.
func (w *Writer) emitLine() error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	w.line = append(w.line, '\n')
	if _, err := w.bw.Write(w.line); err != nil {
		w.err = fmt.Errorf("write: %w", err)
		return w.err
	}
	_, _ = w.h.Write(w.line)
	w.stats.Statements++
	w.stats.Bytes += int64(len(w.line))
	return nil
}

// Flush pushes buffered statements to the underlying writer without
// finishing the script. Runs that abort call Flush instead of Close so the
// statements before the failure reach the output but no COMMIT does.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.bw.Flush(); err != nil {
		w.err = fmt.Errorf("flush: %w", err)
	}
	return w.err
}

// Close writes COMMIT; when the transaction wrapper is enabled and flushes.
// It does not close the underlying writer. Close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	if err := w.Begin(); err != nil {
		w.closed = true
		return err
	}
	if w.opt.Transaction {
		if err := w.emit("COMMIT;"); err != nil {
			w.closed = true
			return err
		}
	}
	w.closed = true
	return w.Flush()
}

// Stats returns the counters so far.
func (w *Writer) Stats() Stats {
	s := w.stats
	s.Digest = w.h.Sum64()
	return s
}

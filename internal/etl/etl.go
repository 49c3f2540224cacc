// Package etl runs one dump-to-SQL conversion: read records, render them as
// literals, write the statements.
//
// Run opens the input and reads its first record before creating the output,
// so a missing or unreadable input never leaves an empty SQL file behind. When CREATE TABLE output is requested and
// a table has auto-typed columns, the input is read twice: a first pass
// infers the column types, the second writes the statements.
package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"time"

	"custref/internal/config"
	"custref/internal/datasource"
	"custref/internal/datasource/file"
	"custref/internal/ddl"
	"custref/internal/parser"
	csvparser "custref/internal/parser/csv"
	"custref/internal/parser/custref"
	"custref/internal/records"
	"custref/internal/schema"
	"custref/internal/transformer"
	"custref/internal/transformer/builtin"
	"custref/internal/writer"
)

// progressEvery is the verbose progress cadence in records.
const progressEvery = 100_000

// ConfigError reports an unusable configuration or layout file.
type ConfigError struct{ Err error }

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// InputError reports that the dump could not be opened or read.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string { return fmt.Sprintf("input: %v", e.Err) }
func (e *InputError) Unwrap() error { return e.Err }

// OutputError reports that the SQL file could not be created or written.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string { return fmt.Sprintf("output %s: %v", e.Path, e.Err) }
func (e *OutputError) Unwrap() error { return e.Err }

// Job is one conversion.
type Job struct {
	Config config.Config

	// Layout overrides the tables of the dump. The zero value selects the
	// built-in custref layout, or a table derived from the header for flat
	// dumps.
	Layout schema.Layout

	// Stdin supplies the dump when Config.InputPath is config.Stdin.
	Stdin io.Reader

	// Stdout receives the SQL when Config.OutputPath is config.Stdout.
	Stdout io.Writer
}

// LoadLayout loads and validates the layout file named by cfg. It returns
// the zero Layout when cfg has none. Warnings are returned alongside a nil
// error; any error-severity issue is returned as a *ConfigError.
func LoadLayout(cfg config.Config) (schema.Layout, []config.Issue, error) {
	if cfg.LayoutPath == "" {
		return schema.Layout{}, nil, nil
	}
	l, err := config.LoadLayout(cfg.LayoutPath)
	if err != nil {
		return schema.Layout{}, nil, &ConfigError{Err: err}
	}
	issues := config.ValidateLayout(l, cfg)
	if err := config.FirstError(issues); err != nil {
		return schema.Layout{}, issues, &ConfigError{Err: fmt.Errorf("layout %s: %w", cfg.LayoutPath, err)}
	}
	return l, issues, nil
}

// Run executes job and returns what was written. A *parser.ParseError stops
// the run; statements for earlier records may already be in the output.
func Run(ctx context.Context, job Job) (writer.Stats, error) {
	cfg := job.Config
	path := cfg.InputPath
	if cfg.FromStdin() {
		// Standard input is copied aside: type inference reads the dump twice.
		stdin := job.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		p, cleanup, err := file.Spool(ctx, stdin)
		if err != nil {
			if ctx.Err() != nil {
				return writer.Stats{}, ctx.Err()
			}
			return writer.Stats{}, &InputError{Path: cfg.InputPath, Err: err}
		}
		defer cleanup()
		path = p
	}
	r := &runner{
		cfg: cfg,
		src: file.NewLocal(path, cfg.Encoding),
		tr:  transformer.New(steps(cfg)...),
	}
	start := time.Now()

	in, err := r.open(ctx)
	if err != nil {
		return writer.Stats{}, err
	}
	defer in.Close()

	rd, tables, err := r.reader(in, job.Layout)
	if err != nil {
		return writer.Stats{}, err
	}
	r.logf("input=%s format=%s tables=%d", cfg.InputPath, cfg.Format, len(tables))

	var defs []ddl.TableDef
	if cfg.EmitSchema {
		if defs, err = r.ddlFor(ctx, tables, job.Layout); err != nil {
			return writer.Stats{}, err
		}
	}

	// Read the first record before the output exists so an input that opens
	// but cannot be read leaves no SQL file behind. Parse errors wait for
	// emit so the statements before them are still written.
	la := prime(rd)
	if err := la.err; err != nil && err != io.EOF {
		var pe *parser.ParseError
		if !errors.As(err, &pe) {
			return writer.Stats{}, r.readErr(err)
		}
	}

	out, closeOut, err := r.create(job.Stdout)
	if err != nil {
		return writer.Stats{}, err
	}
	w := writer.New(out, writer.Options{Transaction: cfg.Transaction})

	n, runErr := r.emit(ctx, la, tables, defs, w)
	if runErr != nil {
		// Keep what was rendered before the failure, without a COMMIT.
		if err := w.Flush(); err != nil {
			r.logf("flush after error: %v", err)
		}
		if err := closeOut(); err != nil {
			r.logf("close after error: %v", err)
		}
		return w.Stats(), runErr
	}
	if err := w.Close(); err != nil {
		_ = closeOut()
		return w.Stats(), &OutputError{Path: cfg.OutputPath, Err: err}
	}
	if err := closeOut(); err != nil {
		return w.Stats(), &OutputError{Path: cfg.OutputPath, Err: err}
	}

	st := w.Stats()
	r.logf("records=%d tables=%d inserts=%d statements=%d bytes=%d xxh3=%016x in %s",
		n, st.Tables, st.Inserts, st.Statements, st.Bytes, st.Digest, time.Since(start).Truncate(time.Millisecond))
	return st, nil
}

func steps(cfg config.Config) []transformer.Step {
	var s []transformer.Step
	if cfg.Normalize {
		s = append(s, builtin.Normalize)
	}
	if cfg.Trim {
		s = append(s, builtin.TrimSpace)
	}
	return s
}

type runner struct {
	cfg config.Config
	src datasource.Source
	tr  *transformer.Transformer
}

func (r *runner) logf(format string, a ...any) {
	if r.cfg.Verbose {
		log.Printf(format, a...)
	}
}

// open opens the input, classifying failures as *InputError.
func (r *runner) open(ctx context.Context) (io.ReadCloser, error) {
	in, err := r.src.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &InputError{Path: r.cfg.InputPath, Err: err}
	}
	return in, nil
}

// reader builds the record reader for the configured format and returns the
// destination tables in CREATE TABLE order.
func (r *runner) reader(in io.Reader, layout schema.Layout) (parser.Reader, []schema.Table, error) {
	switch r.cfg.Format {
	case config.FormatCustRef:
		if len(layout.Tables) == 0 {
			layout = schema.CustRef()
		}
		rd := custref.NewReader(in, custref.Options{Comma: r.cfg.Comma(), Layout: layout})
		return rd, layout.Tables, nil

	case config.FormatFlat:
		rd := csvparser.NewReader(in, csvparser.Options{Comma: r.cfg.Comma(), Table: r.cfg.Table})
		header, err := rd.Header()
		if err != nil {
			return nil, nil, r.readErr(err)
		}
		tbl, err := flatTable(r.cfg.Table, header, layout)
		if err != nil {
			return nil, nil, err
		}
		return rd, []schema.Table{tbl}, nil
	}
	return nil, nil, &ConfigError{Err: fmt.Errorf("unknown format %q", r.cfg.Format)}
}

// flatTable returns the layout's table when one is configured, checking that
// the header supplies each of its columns, or an auto-typed table over the
// header otherwise.
func flatTable(name string, header []string, layout schema.Layout) (schema.Table, error) {
	if tbl, ok := layout.Table(name); ok {
		have := make(map[string]bool, len(header))
		for _, h := range header {
			have[h] = true
		}
		for _, c := range tbl.SQLColumns() {
			if !have[c.Name] {
				return schema.Table{}, parser.Errorf(1, "header has no column %q", c.Name)
			}
		}
		return tbl, nil
	}
	cols := make([]schema.Column, len(header))
	for i, h := range header {
		cols[i] = schema.Column{Name: h, Type: schema.Auto}
	}
	return schema.Table{Name: name, Columns: cols}, nil
}

// ddlFor resolves the DDL of tables. Auto columns need a pass over the whole
// input, made on a second reader so the main pass stays streaming.
func (r *runner) ddlFor(ctx context.Context, tables []schema.Table, layout schema.Layout) ([]ddl.TableDef, error) {
	resolved := tables
	if hasAuto(tables) {
		inf, err := r.infer(ctx, layout)
		if err != nil {
			return nil, err
		}
		resolved = make([]schema.Table, len(tables))
		for i, t := range tables {
			resolved[i] = inf.Resolve(t)
		}
	}
	defs := make([]ddl.TableDef, len(resolved))
	for i, t := range resolved {
		defs[i] = ddl.FromTable(t)
	}
	return defs, nil
}

func hasAuto(tables []schema.Table) bool {
	for _, t := range tables {
		for _, c := range t.SQLColumns() {
			if c.Type == schema.Auto || c.Type == "" {
				return true
			}
		}
	}
	return false
}

func (r *runner) infer(ctx context.Context, layout schema.Layout) (*schema.Inferrer, error) {
	in, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	rd, _, err := r.reader(in, layout)
	if err != nil {
		return nil, err
	}
	inf := schema.NewInferrer()
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, r.readErr(err)
		}
		inf.Observe(r.prepared(rec))
		n++
	}
	r.logf("type inference read %d records", n)
	return inf, nil
}

// prepared returns rec with the field steps applied, as the transformer
// will see it.
func (r *runner) prepared(rec records.Record) records.Record {
	vals := make([]string, len(rec.Values))
	for i, v := range rec.Values {
		vals[i] = r.tr.Apply(v)
	}
	rec.Values = vals
	return rec
}

// create opens the output. The returned close func closes the file; it is a
// no-op for standard output.
func (r *runner) create(stdout io.Writer) (io.Writer, func() error, error) {
	if r.cfg.ToStdout() {
		if stdout == nil {
			stdout = os.Stdout
		}
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(r.cfg.OutputPath)
	if err != nil {
		return nil, nil, &OutputError{Path: r.cfg.OutputPath, Err: err}
	}
	return f, f.Close, nil
}

// emit writes the schema statements and one INSERT per record.
func (r *runner) emit(ctx context.Context, rd parser.Reader, tables []schema.Table, defs []ddl.TableDef, w *writer.Writer) (int, error) {
	if err := w.Begin(); err != nil {
		return 0, &OutputError{Path: r.cfg.OutputPath, Err: err}
	}
	for _, def := range defs {
		if err := w.CreateTable(def); err != nil {
			return 0, &OutputError{Path: r.cfg.OutputPath, Err: err}
		}
	}

	byName := make(map[string]schema.Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		rec, err := rd.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, r.readErr(err)
		}
		tbl, ok := byName[rec.Table]
		if !ok {
			return n, parser.Errorf(rec.Line, "no table %q in layout", rec.Table)
		}
		lits, err := r.tr.Row(tbl, rec)
		if err != nil {
			return n, err
		}
		if err := w.Insert(tbl, lits); err != nil {
			return n, &OutputError{Path: r.cfg.OutputPath, Err: err}
		}
		n++
		if n%progressEvery == 0 {
			r.logf("progress: %d records", n)
		}
	}
}

// readErr keeps parse errors as they are and classifies everything else
// coming out of a reader as an input failure.
func (r *runner) readErr(err error) error {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return err
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &InputError{Path: r.cfg.InputPath, Err: err}
	}
	return &InputError{Path: r.cfg.InputPath, Err: fmt.Errorf("read %s: %w", r.cfg.InputPath, err)}
}

// lookahead replays the record read by prime, then reads on.
type lookahead struct {
	parser.Reader
	rec  records.Record
	err  error
	used bool
}

func prime(rd parser.Reader) *lookahead {
	la := &lookahead{Reader: rd}
	la.rec, la.err = rd.Next()
	return la
}

func (l *lookahead) Next() (records.Record, error) {
	if !l.used {
		l.used = true
		return l.rec, l.err
	}
	return l.Reader.Next()
}

// Command custref2sql converts a customer reference dump into SQL INSERT
// statements, optionally preceded by CREATE TABLE.
//
//	custref2sql [OPTIONS] INPUT_FILE OUTPUT_FILE
//
// INPUT_FILE "-" reads standard input; OUTPUT_FILE "-" writes to standard
// output. Exit codes: 0 success, 2 usage
// or configuration, 3 unreadable input, 4 malformed dump, 5 output failure,
// 1 anything else.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"custref/internal/config"
	"custref/internal/etl"
	"custref/internal/parser"
)

const progname = "custref2sql"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitInput   = 3
	exitParse   = 4
	exitOutput  = 5
)

// options defines all the configurable options from the command line.
type options struct {
	Create      bool   `short:"c" long:"create" env:"CUSTREF2SQL_CREATE" description:"Include SQL CREATE TABLE commands"`
	Format      string `short:"f" long:"format" env:"CUSTREF2SQL_FORMAT" description:"Dump format" choice:"flat" choice:"custref" default:"flat"`
	Table       string `short:"t" long:"table" env:"CUSTREF2SQL_TABLE" description:"Destination table of flat dumps" default:"customers"`
	Delimiter   string `short:"d" long:"delimiter" env:"CUSTREF2SQL_DELIMITER" description:"Field delimiter (default ',' for flat, ';' for custref)"`
	Layout      string `short:"l" long:"layout" env:"CUSTREF2SQL_LAYOUT" description:"YAML table layout" value-name:"FILE"`
	Encoding    string `short:"e" long:"encoding" env:"CUSTREF2SQL_ENCODING" description:"Character set of the dump (IANA name)" default:"utf-8"`
	Transaction bool   `long:"transaction" env:"CUSTREF2SQL_TRANSACTION" description:"Wrap the statements in BEGIN TRANSACTION and COMMIT"`
	Normalize   bool   `long:"normalize" env:"CUSTREF2SQL_NORMALIZE" description:"Compose text to Unicode NFC and replace no-break spaces"`
	Trim        bool   `long:"trim" env:"CUSTREF2SQL_TRIM" description:"Trim surrounding whitespace from every field"`
	Verbose     bool   `short:"v" long:"verbose" env:"CUSTREF2SQL_VERBOSE" description:"Log progress to stderr"`

	Args struct {
		Input  string `positional-arg-name:"INPUT_FILE" description:"Dump to convert, - for stdin"`
		Output string `positional-arg-name:"OUTPUT_FILE" description:"SQL file to create, - for stdout"`
	} `positional-args:"yes" required:"yes"`
}

func (o options) config() config.Config {
	c := config.Default()
	c.InputPath = o.Args.Input
	c.OutputPath = o.Args.Output
	c.Format = o.Format
	c.EmitSchema = o.Create
	c.Table = o.Table
	c.Delimiter = o.Delimiter
	c.LayoutPath = o.Layout
	c.Encoding = o.Encoding
	c.Transaction = o.Transaction
	c.Normalize = o.Normalize
	c.Trim = o.Trim
	c.Verbose = o.Verbose
	return c
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit, returning the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)
	log.SetFlags(0)
	log.SetPrefix(progname + ": ")

	var opts options
	p := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	p.Name = progname
	p.Usage = "[OPTIONS] INPUT_FILE OUTPUT_FILE"
	rest, err := p.ParseArgs(args)
	if err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, fe.Message)
			return exitOK
		}
		reportf(stderr, "%v (see --help)", err)
		return exitUsage
	}
	if len(rest) > 0 {
		reportf(stderr, "unexpected arguments %v (see --help)", rest)
		return exitUsage
	}

	cfg := opts.config()
	issues := config.Validate(cfg)
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			reportf(stderr, "%v", iss)
		}
	}
	if err := config.FirstError(issues); err != nil {
		reportf(stderr, "%v", err)
		return exitUsage
	}

	layout, issues, err := etl.LoadLayout(cfg)
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			reportf(stderr, "%v", iss)
		}
	}
	if err != nil {
		reportf(stderr, "%v", err)
		return exitCode(err)
	}

	if cfg.Verbose {
		log.Printf("format=%s create=%v transaction=%v output=%s", cfg.Format, cfg.EmitSchema, cfg.Transaction, cfg.OutputPath)
	}
	if _, err := etl.Run(ctx, etl.Job{Config: cfg, Layout: layout, Stdin: stdin, Stdout: stdout}); err != nil {
		reportf(stderr, "%v", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps a run error onto the documented exit codes.
func exitCode(err error) int {
	var (
		ce *etl.ConfigError
		ie *etl.InputError
		pe *parser.ParseError
		oe *etl.OutputError
	)
	switch {
	case errors.As(err, &ce):
		return exitUsage
	case errors.As(err, &pe):
		return exitParse
	case errors.As(err, &ie):
		return exitInput
	case errors.As(err, &oe):
		return exitOutput
	}
	return exitFailure
}

// reportf prints one diagnostic line. Embedded newlines are flattened so each
// message stays on a single line.
func reportf(w io.Writer, format string, a ...any) {
	msg := strings.ReplaceAll(fmt.Sprintf(format, a...), "\n", " ")
	fmt.Fprintf(w, "%s: %s\n", progname, msg)
}

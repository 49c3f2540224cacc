// Package config defines the run configuration for custref2sql. It is a plain
// struct filled by the command line; layouts for record-typed dumps are
// loaded from YAML files (see LoadLayout).
package config

import (
	"custref/internal/datasource/file"
)

// Input formats.
const (
	// FormatFlat is a header-first delimited dump loaded into one table.
	FormatFlat = "flat"
	// FormatCustRef is the record-typed customer/reference dump.
	FormatCustRef = "custref"
)

// Stdout is the OutputPath value that writes SQL to standard output.
const Stdout = "-"

// Stdin is the InputPath value that reads the dump from standard input.
const Stdin = "-"

// DefaultTable is the table flat dumps are loaded into.
const DefaultTable = "customers"

// Config is the complete, immutable configuration of one run.
type Config struct {
	// InputPath is the dump file to read, or Stdin.
	InputPath string
	// OutputPath is the SQL file to create, or Stdout.
	OutputPath string

	// Format selects the dump reader: FormatFlat or FormatCustRef.
	Format string
	// EmitSchema writes CREATE TABLE statements before the INSERTs.
	EmitSchema bool
	// Table names the destination of flat dumps.
	Table string
	// Delimiter overrides the format's field separator. Empty means the
	// format default.
	Delimiter string
	// LayoutPath optionally points at a YAML table layout.
	LayoutPath string
	// Encoding is the IANA charset of the input.
	Encoding string

	Transaction bool
	Normalize   bool
	Trim        bool
	Verbose     bool
}

// Default returns a Config with every optional setting at its default.
func Default() Config {
	return Config{
		Format:   FormatFlat,
		Table:    DefaultTable,
		Encoding: file.DefaultEncoding,
	}
}

// Comma returns the field separator: the configured delimiter, or ',' for
// flat dumps and ';' for custref dumps. Call it on a validated Config.
func (c Config) Comma() rune {
	if r := []rune(c.Delimiter); len(r) == 1 {
		return r[0]
	}
	if c.Format == FormatCustRef {
		return ';'
	}
	return ','
}

// ToStdout reports whether SQL goes to standard output.
func (c Config) ToStdout() bool { return c.OutputPath == Stdout }

// FromStdin reports whether the dump is read from standard input.
func (c Config) FromStdin() bool { return c.InputPath == Stdin }

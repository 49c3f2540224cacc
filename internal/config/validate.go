package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"custref/internal/datasource/file"
	"custref/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path names the offending setting (e.g. "delimiter",
// "layout.tables[1].columns[0].name"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// FirstError returns the first SeverityError issue, or nil.
func FirstError(issues []Issue) error {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return iss
		}
	}
	return nil
}

// contextColumns are the non-dump columns the custref reader can fill.
var contextColumns = map[string]struct{}{
	schema.InsertDateColumn:   {},
	schema.InsertTimeColumn:   {},
	schema.CustomerCodeColumn: {},
}

// Validate performs static validation of a Config. It does not mutate c and
// does not touch the input or output files beyond path comparison.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.InputPath) == "" {
		issues = append(issues, Issue{SeverityError, "input", "input file must not be empty"})
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		issues = append(issues, Issue{SeverityError, "output", "output file must not be empty"})
	} else if !c.ToStdout() && c.InputPath != "" && filepath.Clean(c.InputPath) == filepath.Clean(c.OutputPath) {
		issues = append(issues, Issue{SeverityError, "output", "output file would overwrite the input"})
	}

	switch c.Format {
	case FormatFlat:
		if strings.TrimSpace(c.Table) == "" {
			issues = append(issues, Issue{SeverityError, "table", "flat dumps need a destination table"})
		}
	case FormatCustRef:
		if c.Table != "" && c.Table != DefaultTable {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "table",
				Message:  "ignored for custref dumps; table names come from the layout",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "format",
			Message:  fmt.Sprintf("unknown format %q; want %s or %s", c.Format, FormatFlat, FormatCustRef),
		})
	}

	issues = append(issues, validateDelimiter(c)...)

	if _, err := file.LookupEncoding(c.Encoding); err != nil {
		issues = append(issues, Issue{SeverityError, "encoding", err.Error()})
	}
	return issues
}

func validateDelimiter(c Config) []Issue {
	if c.Delimiter == "" {
		return nil
	}
	r, size := utf8.DecodeRuneInString(c.Delimiter)
	if size != len(c.Delimiter) {
		return []Issue{{SeverityError, "delimiter", fmt.Sprintf("delimiter %q must be a single character", c.Delimiter)}}
	}
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError || !unicode.IsPrint(r) && r != '\t' {
		return []Issue{{SeverityError, "delimiter", fmt.Sprintf("delimiter %q cannot separate fields", c.Delimiter)}}
	}
	if c.Format == FormatFlat && r == '#' {
		return []Issue{{SeverityError, "delimiter", "'#' starts comment lines in flat dumps"}}
	}
	return nil
}

// ValidateLayout checks a layout loaded for the run described by c.
func ValidateLayout(l schema.Layout, c Config) []Issue {
	var issues []Issue
	if len(l.Tables) == 0 {
		return []Issue{{SeverityError, "layout.tables", "layout declares no tables"}}
	}

	names := map[string]int{}
	tags := map[string]int{}
	for i, t := range l.Tables {
		path := fmt.Sprintf("layout.tables[%d]", i)
		if strings.TrimSpace(t.Name) == "" {
			issues = append(issues, Issue{SeverityError, path + ".name", "table name must not be empty"})
		} else if j, dup := names[t.Name]; dup {
			issues = append(issues, Issue{SeverityError, path + ".name", fmt.Sprintf("duplicate table %q (also tables[%d])", t.Name, j)})
		} else {
			names[t.Name] = i
		}

		if c.Format == FormatCustRef {
			switch {
			case t.Tag == "":
				issues = append(issues, Issue{SeverityError, path + ".tag", "custref tables need a record-type tag"})
			case t.Tag != schema.CustomerTag && t.Tag != schema.ReferenceTag:
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     path + ".tag",
					Message:  fmt.Sprintf("tag %q never occurs in custref dumps", t.Tag),
				})
			}
			if j, dup := tags[t.Tag]; dup && t.Tag != "" {
				issues = append(issues, Issue{SeverityError, path + ".tag", fmt.Sprintf("duplicate tag %q (also tables[%d])", t.Tag, j)})
			}
			tags[t.Tag] = i
		}
		issues = append(issues, validateTable(t, path, c.Format)...)
	}

	if c.Format == FormatFlat {
		if _, ok := l.Table(c.Table); !ok {
			issues = append(issues, Issue{SeverityError, "layout.tables", fmt.Sprintf("layout has no table %q", c.Table)})
		}
	}
	if c.Format == FormatCustRef {
		for _, tag := range []string{schema.CustomerTag, schema.ReferenceTag} {
			if _, ok := l.ByTag(tag); !ok {
				issues = append(issues, Issue{SeverityError, "layout.tables", fmt.Sprintf("layout has no table tagged %s", tag)})
			}
		}
	}
	return issues
}

func validateTable(t schema.Table, path, format string) []Issue {
	var issues []Issue
	if len(t.SQLColumns()) == 0 {
		issues = append(issues, Issue{SeverityError, path + ".columns", "table has no SQL columns"})
	}
	if format == FormatFlat && len(t.ForeignKeys) > 0 {
		issues = append(issues, Issue{SeverityError, path + ".foreign_keys", "foreign keys are only filled in custref dumps"})
	}

	seen := map[string]struct{}{}
	check := func(c schema.Column, p string) {
		if strings.TrimSpace(c.Name) == "" {
			issues = append(issues, Issue{SeverityError, p + ".name", "column name must not be empty"})
			return
		}
		if _, dup := seen[c.Name]; dup && !c.NoSQL {
			issues = append(issues, Issue{SeverityError, p + ".name", fmt.Sprintf("duplicate column %q", c.Name)})
		}
		if !c.NoSQL {
			seen[c.Name] = struct{}{}
		}
		if c.NoCSV && c.NoSQL {
			issues = append(issues, Issue{SeverityWarning, p, fmt.Sprintf("column %q is neither read nor written", c.Name)})
		}
		if !c.NoCSV {
			return
		}
		if format == FormatFlat {
			issues = append(issues, Issue{SeverityError, p + ".no_csv", "flat dumps read every column from the header"})
		} else if _, ok := contextColumns[c.Name]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     p + ".no_csv",
				Message:  fmt.Sprintf("column %q has no dump value and will always be NULL", c.Name),
			})
		}
	}
	for i, c := range t.Columns {
		check(c, fmt.Sprintf("%s.columns[%d]", path, i))
	}
	if format == FormatFlat {
		return issues
	}
	for i, c := range t.ForeignKeys {
		c.NoCSV = true
		check(c, fmt.Sprintf("%s.foreign_keys[%d]", path, i))
	}
	return issues
}

// Package schema models the destination tables: the ordered column list and
// per-column logical type shared read-only by the transformer and the writer.
package schema

import (
	"fmt"
	"strings"
)

// Type is the logical type of a column. It decides how a raw field is
// rendered as a SQL literal and which SQL type the column gets in DDL.
type Type string

const (
	// Auto renders each field by inspection: numeric text bare, other text
	// quoted. Its DDL type is inferred from the data.
	Auto Type = "auto"
	// Text is always rendered as a quoted string.
	Text Type = "text"
	// Integer must parse as a base-10 integer.
	Integer Type = "integer"
	// Numeric must be an integer or decimal number.
	Numeric Type = "numeric"
	// YesNo maps "yes" (any case) to 1 and anything else to 0.
	YesNo Type = "yesno"
)

// ParseType maps a layout type name onto a Type. The empty string is Auto.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return Auto, nil
	case Auto, Text, Integer, Numeric, YesNo:
		return t, nil
	case "int", "bigint":
		return Integer, nil
	case "decimal", "real", "float":
		return Numeric, nil
	case "string", "varchar":
		return Text, nil
	case "bool", "boolean":
		return YesNo, nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}

// Column is one column of a table layout.
type Column struct {
	Name string `yaml:"name"`
	Type Type   `yaml:"type"`

	// NoCSV columns are not read from the dump; their value is supplied by
	// the reader from context (e.g. the dump header's insert date).
	NoCSV bool `yaml:"no_csv"`

	// NoSQL columns are consumed from the dump but never written.
	NoSQL bool `yaml:"no_sql"`

	// PrimaryKey adds the column to the table's PRIMARY KEY clause.
	PrimaryKey bool `yaml:"primary_key"`
}

// Table describes one destination table. Tag is the record-type marker that
// routes dump lines to this table in record-typed dumps.
type Table struct {
	Name        string   `yaml:"name"`
	Tag         string   `yaml:"tag"`
	Columns     []Column `yaml:"columns"`
	ForeignKeys []Column `yaml:"foreign_keys"`
}

// SQLColumns returns the columns written to SQL in order: every column not
// marked NoSQL, followed by the foreign keys.
func (t Table) SQLColumns() []Column {
	out := make([]Column, 0, len(t.Columns)+len(t.ForeignKeys))
	for _, c := range t.Columns {
		if !c.NoSQL {
			out = append(out, c)
		}
	}
	return append(out, t.ForeignKeys...)
}

// CSVColumns returns the columns read positionally from a dump line.
func (t Table) CSVColumns() []Column {
	out := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.NoCSV {
			out = append(out, c)
		}
	}
	return out
}

// Layout is an ordered set of tables. The order is the CREATE TABLE order.
type Layout struct {
	Tables []Table `yaml:"tables"`
}

// Table returns the table called name.
func (l Layout) Table(name string) (Table, bool) {
	for _, t := range l.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// ByTag returns the table routed by the record-type tag.
func (l Layout) ByTag(tag string) (Table, bool) {
	for _, t := range l.Tables {
		if t.Tag != "" && t.Tag == tag {
			return t, true
		}
	}
	return Table{}, false
}

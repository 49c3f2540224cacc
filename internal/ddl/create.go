// Package ddl renders the CREATE TABLE statement emitted ahead of the
// INSERTs when schema output is requested.
//
// The statement is a single line so that every emitted statement occupies
// exactly one line of output:
//
//	CREATE TABLE <name> (<col> <TYPE>, ..., [PRIMARY KEY (<cols>)]);
//
// Identifiers that are SQLite keywords or not plain identifiers are
// double-quoted. Columns are always nullable because empty dump fields are
// written as NULL.
package ddl

import (
	"fmt"
	"strings"

	"custref/internal/schema"
	"custref/internal/sqltext"
)

// MapType maps a column type onto its SQL type:
//   - integer, yesno -> INTEGER (yes/no as 0/1)
//   - numeric        -> NUMERIC
//   - text, auto     -> TEXT
//
// Auto columns should be resolved by schema.Inferrer before mapping;
// unresolved ones fall back to TEXT.
func MapType(t schema.Type) string {
	switch t {
	case schema.Integer, schema.YesNo:
		return "INTEGER"
	case schema.Numeric:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

// FromTable derives a TableDef from a table layout, in SQL column order.
func FromTable(t schema.Table) TableDef {
	cols := t.SQLColumns()
	defs := make([]ColumnDef, 0, len(cols))
	for _, c := range cols {
		defs = append(defs, ColumnDef{
			Name:       c.Name,
			SQLType:    MapType(c.Type),
			PrimaryKey: c.PrimaryKey,
		})
	}
	return TableDef{FQN: t.Name, Columns: defs}
}

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - Columns with PrimaryKey == true are collected into a trailing
//     PRIMARY KEY (<col1>, <col2>, ...) clause.
func BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		cols = append(cols, sqltext.QuoteIdent(name)+" "+typ)

		if c.PrimaryKey {
			pks = append(pks, sqltext.QuoteIdent(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE %s (%s);", sqltext.QuoteQualified(fqn), strings.Join(cols, ", ")), nil
}

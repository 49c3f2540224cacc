package schema

import (
	"custref/internal/records"
	"custref/internal/sqltext"
)

// colStats tracks what has been seen in one auto-typed column.
type colStats struct {
	numeric int
	other   int
}

// Inferrer decides the DDL type of Auto columns from a pass over the
// records: a column is Numeric when every non-empty value is numeric and at
// least one value is present, otherwise Text.
type Inferrer struct {
	stats map[string]map[string]*colStats
}

// NewInferrer returns an empty Inferrer.
func NewInferrer() *Inferrer {
	return &Inferrer{stats: make(map[string]map[string]*colStats)}
}

// Observe folds one record into the statistics.
func (in *Inferrer) Observe(rec records.Record) {
	tbl := in.stats[rec.Table]
	if tbl == nil {
		tbl = make(map[string]*colStats, len(rec.Columns))
		in.stats[rec.Table] = tbl
	}
	for i, col := range rec.Columns {
		st := tbl[col]
		if st == nil {
			st = &colStats{}
			tbl[col] = st
		}
		if i >= len(rec.Values) {
			continue
		}
		v := rec.Values[i]
		switch {
		case v == "":
		case sqltext.IsNumeric(v):
			st.numeric++
		default:
			st.other++
		}
	}
}

// Type returns the inferred type for table.column.
func (in *Inferrer) Type(table, column string) Type {
	st := in.stats[table][column]
	if st == nil || st.other > 0 || st.numeric == 0 {
		return Text
	}
	return Numeric
}

// Resolve returns t with every Auto column replaced by its inferred type.
func (in *Inferrer) Resolve(t Table) Table {
	out := t
	out.Columns = resolveAll(in, t.Name, t.Columns)
	out.ForeignKeys = resolveAll(in, t.Name, t.ForeignKeys)
	return out
}

func resolveAll(in *Inferrer, table string, cols []Column) []Column {
	if cols == nil {
		return nil
	}
	out := make([]Column, len(cols))
	for i, c := range cols {
		if c.Type == Auto || c.Type == "" {
			c.Type = in.Type(table, c.Name)
		}
		out[i] = c
	}
	return out
}

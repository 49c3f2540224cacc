// Package transformer turns raw dump fields into SQL literals.
//
// Rendering is per field and stateless: the same column type and raw value
// always give the same literal. Empty fields are NULL whatever the column
// type; auto columns render numeric text bare and everything else quoted.
package transformer

import (
	"fmt"
	"strconv"
	"strings"

	"custref/internal/parser"
	"custref/internal/records"
	"custref/internal/schema"
	"custref/internal/sqltext"
)

// Kind classifies a Literal.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Literal is the SQL text of one field value.
type Literal struct {
	Kind Kind
	Text string
}

func (l Literal) String() string { return l.Text }

var nullLiteral = Literal{Kind: KindNull, Text: sqltext.Null}

// Step rewrites a raw field before it is rendered.
type Step func(string) string

// Chain is an ordered list of steps.
type Chain []Step

// Apply runs every step in order.
func (c Chain) Apply(s string) string {
	for _, step := range c {
		s = step(s)
	}
	return s
}

// Transformer renders records against a table schema.
type Transformer struct {
	steps Chain
}

// New returns a Transformer that runs steps on every field first.
func New(steps ...Step) *Transformer {
	return &Transformer{steps: Chain(steps)}
}

// Apply runs the configured steps on raw without rendering it.
func (t *Transformer) Apply(raw string) string { return t.steps.Apply(raw) }

// Field renders one raw value for a column of type typ. An empty value is
// NULL for every type; a blank one is NULL only where it cannot be text.
func (t *Transformer) Field(typ schema.Type, raw string) (Literal, error) {
	raw = t.steps.Apply(raw)
	if raw == "" {
		return nullLiteral, nil
	}
	trimmed := strings.TrimSpace(raw)

	switch typ {
	case schema.Text:
		return str(raw), nil
	case schema.Auto, "":
		if sqltext.IsNumeric(trimmed) {
			return Literal{Kind: KindNumber, Text: trimmed}, nil
		}
		return str(raw), nil
	}

	// Padding in a numeric or flag field means no value.
	if trimmed == "" {
		switch typ {
		case schema.Integer, schema.Numeric, schema.YesNo:
			return nullLiteral, nil
		}
	}
	switch typ {
	case schema.Integer:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return Literal{}, fmt.Errorf("not an integer: %q", raw)
		}
		return Literal{Kind: KindNumber, Text: strconv.FormatInt(n, 10)}, nil
	case schema.Numeric:
		if !sqltext.IsNumeric(trimmed) {
			return Literal{}, fmt.Errorf("not a number: %q", raw)
		}
		return Literal{Kind: KindNumber, Text: trimmed}, nil
	case schema.YesNo:
		if strings.EqualFold(trimmed, "yes") {
			return Literal{Kind: KindNumber, Text: "1"}, nil
		}
		return Literal{Kind: KindNumber, Text: "0"}, nil
	}
	return Literal{}, fmt.Errorf("unsupported column type %q", typ)
}

func str(s string) Literal {
	return Literal{Kind: KindString, Text: sqltext.QuoteString(s)}
}

// Row renders rec in the SQL column order of tbl. A record missing one of
// the table's columns, or holding a value its column type rejects, is a
// ParseError at the record's line; no partial row is returned.
func (t *Transformer) Row(tbl schema.Table, rec records.Record) ([]Literal, error) {
	cols := tbl.SQLColumns()
	out := make([]Literal, len(cols))
	for i, c := range cols {
		var (
			v  string
			ok bool
		)
		if i < len(rec.Columns) && rec.Columns[i] == c.Name && i < len(rec.Values) {
			v, ok = rec.Values[i], true
		} else {
			v, ok = rec.Get(c.Name)
		}
		if !ok {
			return nil, &parser.ParseError{Line: rec.Line, Err: fmt.Errorf("record has no column %q", c.Name)}
		}
		lit, err := t.Field(c.Type, v)
		if err != nil {
			return nil, &parser.ParseError{Line: rec.Line, Err: fmt.Errorf("column %s: %w", c.Name, err)}
		}
		out[i] = lit
	}
	return out, nil
}

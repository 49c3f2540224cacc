package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"custref/internal/schema"
)

// LoadLayout decodes a YAML table layout such as:
//
//	tables:
//	  - name: customers
//	    tag: CUST
//	    columns:
//	      - {name: record_type, no_sql: true}
//	      - {name: customer_code, type: text}
//	      - {name: headquarter, type: yesno}
//
// Unknown keys are rejected. Type names are normalised with
// schema.ParseType, so "int" and "integer" are equivalent.
func LoadLayout(path string) (schema.Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return schema.Layout{}, fmt.Errorf("opening layout %s: %w", path, err)
	}
	defer f.Close()
	return DecodeLayout(f, path)
}

// DecodeLayout is LoadLayout over an open reader; name is used in errors.
func DecodeLayout(r io.Reader, name string) (schema.Layout, error) {
	var l schema.Layout
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		if errors.Is(err, io.EOF) {
			return schema.Layout{}, fmt.Errorf("layout %s is empty", name)
		}
		return schema.Layout{}, fmt.Errorf("decoding layout %s: %w", name, err)
	}
	for i := range l.Tables {
		t := &l.Tables[i]
		if err := normalizeTypes(t.Columns); err != nil {
			return schema.Layout{}, fmt.Errorf("layout %s: table %s: %w", name, t.Name, err)
		}
		if err := normalizeTypes(t.ForeignKeys); err != nil {
			return schema.Layout{}, fmt.Errorf("layout %s: table %s: %w", name, t.Name, err)
		}
	}
	return l, nil
}

func normalizeTypes(cols []schema.Column) error {
	for i := range cols {
		typ, err := schema.ParseType(string(cols[i].Type))
		if err != nil {
			return fmt.Errorf("column %s: %w", cols[i].Name, err)
		}
		cols[i].Type = typ
	}
	return nil
}

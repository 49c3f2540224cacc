// Package records defines the row value that flows from the dump readers to
// the SQL transformer.
package records

// Record is one parsed row of a dump file. Columns and Values are parallel
// slices in source order; Table names the destination table and Line is the
// 1-based line of the input the row started on.
//
// A Record is not modified after a reader returns it.
type Record struct {
	Table   string
	Line    int
	Columns []string
	Values  []string
}

// Get returns the raw value for col and whether the column exists.
func (r Record) Get(col string) (string, bool) {
	for i, c := range r.Columns {
		if c == col {
			if i < len(r.Values) {
				return r.Values[i], true
			}
			return "", true
		}
	}
	return "", false
}

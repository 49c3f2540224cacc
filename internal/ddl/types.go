package ddl

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (TEXT, INTEGER, NUMERIC)
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	SQLType    string
	PrimaryKey bool
}

// TableDef holds the table name and an ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

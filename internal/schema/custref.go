package schema

// Tables of the record-typed customer reference dump. Reference rows carry
// the code of the customer they follow as a foreign key.
const (
	CustomersTable  = "customers"
	ReferencesTable = "customer_references"

	CustomerTag  = "CUST"
	ReferenceTag = "REF"
)

// Context column names filled from the dump rather than from the row.
const (
	InsertDateColumn   = "insert_date"
	InsertTimeColumn   = "insert_time"
	CustomerCodeColumn = "customer_code"
)

func text(name string) Column     { return Column{Name: name, Type: Text} }
func yesno(name string) Column    { return Column{Name: name, Type: YesNo} }
func integer(name string) Column  { return Column{Name: name, Type: Integer} }
func csvOnly(name string) Column  { return Column{Name: name, Type: Text, NoSQL: true} }
func fromDump(name string) Column { return Column{Name: name, Type: Text, NoCSV: true} }

// CustRef returns the built-in layout of the customer reference dump.
// customer_references comes first so CREATE TABLE follows the same order as
// existing scripts generated from these dumps.
func CustRef() Layout {
	return Layout{Tables: []Table{
		{
			Name: ReferencesTable,
			Tag:  ReferenceTag,
			Columns: []Column{
				csvOnly("record_type"),
				text("reference_identifier"),
				integer("length"),
				yesno("mandatory"),
				yesno("numeric_only"),
				integer("folf_start_position"),
				integer("folf_length"),
				yesno("print_on_invoice"),
				text("check_type"),
				yesno("send_to_crs"),
				text("validation_mask"),
				text("internal_name"),
				text("customer_reference_desc"),
				text("dbi_connector"),
				text("dbi_connector_desc"),
				yesno("alphabetic_only"),
				yesno("no_special_characters"),
				yesno("only_capital_letters"),
				integer("minimum_length"),
				text("reference_type"),
				fromDump(InsertDateColumn),
				fromDump(InsertTimeColumn),
			},
			ForeignKeys: []Column{text(CustomerCodeColumn)},
		},
		{
			Name: CustomersTable,
			Tag:  CustomerTag,
			Columns: []Column{
				csvOnly("record_type"),
				text(CustomerCodeColumn),
				text("name"),
				text("name_extra"),
				text("address_number"),
				text("address_line_1"),
				text("address_line_2"),
				text("address_line_3"),
				text("address_line_4"),
				text("address_line_5"),
				text("contact_name"),
				text("contact_extra"),
				text("language_code"),
				text("language"),
				yesno("headquarter"),
				text("headquarter_code"),
				text("telephone"),
				text("mobile_phone"),
				fromDump(InsertDateColumn),
				fromDump(InsertTimeColumn),
			},
		},
	}}
}

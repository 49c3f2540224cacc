package sqltext

import (
	"strings"
	"testing"
)

func TestIsNumeric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"123", true},
		{"-42", true},
		{"+7", true},
		{"3.14", true},
		{"10.", true},
		{".5", true},
		{" 12 ", true},
		{"007", true},
		{"", false},
		{"-", false},
		{".", false},
		{"1e5", false},
		{"0x1F", false},
		{"Inf", false},
		{"NaN", false},
		{"1,5", false},
		{"12a", false},
		{"1 2", false},
	}
	for _, tt := range tests {
		if got := IsNumeric(tt.in); got != tt.want {
			t.Fatalf("IsNumeric(%q)=%v want %v", tt.in, got, tt.want)
		}
	}
}

func TestQuoteStringRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"John", "'John'"},
		{"John O'Brien", "'John O''Brien'"},
		{"''", "''''''"},
		{"", "''"},
		{`back\slash`, `'back\slash'`},
	}
	for _, tt := range tests {
		got := QuoteString(tt.in)
		if got != tt.want {
			t.Fatalf("QuoteString(%q)=%q want %q", tt.in, got, tt.want)
		}
		back, ok := unquote(got)
		if !ok || back != tt.in {
			t.Fatalf("unquote(%q)=(%q,%v) want (%q,true)", got, back, ok, tt.in)
		}
	}
}

// unquote reverses QuoteString. ok is false when s is not a well-formed
// single-quoted literal.
func unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return "", false
	}
	body := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\'' {
			if i+1 >= len(body) || body[i+1] != '\'' {
				return "", false
			}
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String(), true
}

func TestUnquoteRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "'", "abc", "'a'b'", "'abc"} {
		if _, ok := unquote(in); ok {
			t.Fatalf("unquote(%q) ok=true want false", in)
		}
	}
}

func TestQuoteStringLineBreaks(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"a\nb":       "'a' || char(10) || 'b'",
		"a\r\nb":     "'a' || char(13) || char(10) || 'b'",
		"\n":         "char(10)",
		"it's\n":     "'it''s' || char(10)",
		"\nO'Hara\n": "char(10) || 'O''Hara' || char(10)",
	}
	for in, want := range tests {
		got := QuoteString(in)
		if got != want {
			t.Fatalf("QuoteString(%q)=%s want %s", in, got, want)
		}
		if strings.ContainsAny(got, "\r\n") {
			t.Fatalf("QuoteString(%q) spans lines: %q", in, got)
		}
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"name":          "name",
		"customer_code": "customer_code",
		"order":         `"order"`,
		"Key":           `"Key"`,
		"1st":           `"1st"`,
		"has space":     `"has space"`,
		`we"ird`:        `"we""ird"`,
	}
	for in, want := range tests {
		if got := QuoteIdent(in); got != want {
			t.Fatalf("QuoteIdent(%q)=%q want %q", in, got, want)
		}
	}
}

func TestQuoteQualified(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"customers":       "customers",
		"main.customers":  "main.customers",
		"main.order":      `main."order"`,
		"Sales.customers": `"Sales".customers`,
		"a.b c":           `a."b c"`,
	}
	for in, want := range tests {
		if got := QuoteQualified(in); got != want {
			t.Fatalf("QuoteQualified(%q)=%q want %q", in, got, want)
		}
	}
}

func TestToSQLName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Customer Code":   "customer_code",
		"  Name  ":        "name",
		"Address-Line.1":  "address_line_1",
		"Název":           "nazev",
		"Krátký text":     "kratky_text",
		"a  --  b":        "a_b",
		"__x__":           "x",
		"%%%":             "",
		"insert_date":     "insert_date",
		"HEADQUARTER (Y)": "headquarter_y",
	}
	for in, want := range tests {
		if got := ToSQLName(in); got != want {
			t.Fatalf("ToSQLName(%q)=%q want %q", in, got, want)
		}
	}
}

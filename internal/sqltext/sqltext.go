// Package sqltext holds the small lexical helpers shared by the schema,
// transformer and writer packages: numeric detection, string-literal quoting,
// and identifier normalisation/quoting for the SQLite-flavoured output.
package sqltext

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Null is the rendering of an absent value.
const Null = "NULL"

// numericRe accepts plain integers and decimals with an optional sign. It
// rejects exponents, hex, Inf and NaN, which strconv.ParseFloat would accept.
var numericRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// IsNumeric reports whether s, after trimming surrounding whitespace, is an
// integer or decimal number.
func IsNumeric(s string) bool {
	return numericRe.MatchString(strings.TrimSpace(s))
}

// QuoteString renders s as a single-quoted SQL string literal, doubling any
// embedded single quote. Line breaks are spliced in as char(10) and
// char(13) so the literal never spans output lines:
//
//	"a\nb" -> 'a' || char(10) || 'b'
func QuoteString(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	var parts []string
	for len(s) > 0 {
		i := strings.IndexAny(s, "\r\n")
		if i < 0 {
			parts = append(parts, QuoteString(s))
			break
		}
		if i > 0 {
			parts = append(parts, QuoteString(s[:i]))
		}
		parts = append(parts, fmt.Sprintf("char(%d)", s[i]))
		s = s[i+1:]
	}
	return strings.Join(parts, " || ")
}

// reservedWords are SQLite keywords that must be quoted when used as
// identifiers.
var reservedWords = map[string]bool{
	"abort": true, "action": true, "add": true, "after": true, "all": true,
	"alter": true, "analyze": true, "and": true, "as": true, "asc": true,
	"attach": true, "autoincrement": true, "before": true, "begin": true,
	"between": true, "by": true, "cascade": true, "case": true, "cast": true,
	"check": true, "collate": true, "column": true, "commit": true,
	"conflict": true, "constraint": true, "create": true, "cross": true,
	"current": true, "current_date": true, "current_time": true,
	"current_timestamp": true, "database": true, "default": true,
	"deferrable": true, "deferred": true, "delete": true, "desc": true,
	"detach": true, "distinct": true, "do": true, "drop": true, "each": true,
	"else": true, "end": true, "escape": true, "except": true, "exclude": true,
	"exclusive": true, "exists": true, "explain": true, "fail": true,
	"filter": true, "first": true, "following": true, "for": true,
	"foreign": true, "from": true, "full": true, "glob": true, "group": true,
	"groups": true, "having": true, "if": true, "ignore": true,
	"immediate": true, "in": true, "index": true, "indexed": true,
	"initially": true, "inner": true, "insert": true, "instead": true,
	"intersect": true, "into": true, "is": true, "isnull": true, "join": true,
	"key": true, "last": true, "left": true, "like": true, "limit": true,
	"match": true, "natural": true, "no": true, "not": true, "nothing": true,
	"notnull": true, "null": true, "nulls": true, "of": true, "offset": true,
	"on": true, "or": true, "order": true, "others": true, "outer": true,
	"over": true, "partition": true, "plan": true, "pragma": true,
	"preceding": true, "primary": true, "query": true, "raise": true,
	"range": true, "recursive": true, "references": true, "regexp": true,
	"reindex": true, "release": true, "rename": true, "replace": true,
	"restrict": true, "right": true, "rollback": true, "row": true,
	"rows": true, "savepoint": true, "select": true, "set": true,
	"table": true, "temp": true, "temporary": true, "then": true, "ties": true,
	"to": true, "transaction": true, "trigger": true, "unbounded": true,
	"union": true, "unique": true, "update": true, "using": true,
	"vacuum": true, "values": true, "view": true, "virtual": true,
	"when": true, "where": true, "window": true, "with": true, "without": true,
}

// QuoteIdent returns name double-quoted when it is a reserved word or is not
// a plain identifier, otherwise unchanged.
func QuoteIdent(name string) string {
	if reservedWords[strings.ToLower(name)] || !plainIdent(name) {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

// QuoteQualified quotes each dotted part of a schema-qualified name, so
// main.customers stays two identifiers.
func QuoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

func plainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ToSQLName turns a free-form header into a lower-case identifier: accents
// are stripped, spaces, dashes and dots become a single underscore, anything
// else outside [a-z0-9_] is dropped. An empty result yields "".
func ToSQLName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose → remove nonspacing marks (accents) → recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

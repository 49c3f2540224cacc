// Package builtin holds the field steps that can be chained in front of
// literal rendering.
package builtin

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const nbspace = "\u00a0"

// Normalize replaces no-break spaces with plain spaces and composes the
// value to Unicode NFC, so visually equal names produce equal literals.
// Surrounding whitespace is kept; emptiness is decided by the transformer.
func Normalize(s string) string {
	if strings.Contains(s, nbspace) {
		s = strings.ReplaceAll(s, nbspace, " ")
	}
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// TrimSpace drops leading and trailing whitespace when present.
func TrimSpace(s string) string {
	if HasEdgeSpace(s) {
		return strings.TrimSpace(s)
	}
	return s
}

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

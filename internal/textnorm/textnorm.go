// Package textnorm holds the text normalization shared by the alias table
// and the query parser. Latin and Arabic script are treated as opaque
// Unicode: only case and whitespace are folded.
package textnorm

import "strings"

// Normalize trims, lower-cases and collapses every run of whitespace
// into a single ASCII space. It is idempotent.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Words splits already-normalized text into words. Empty input yields nil.
func Words(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

package util

import "strings"

// NormalizeHeaderKey collapses a column header to the form used for alias
// matching: trimmed, lowercased, all whitespace removed. "Opportunity  PAR "
// and "opportunitypar" compare equal.
func NormalizeHeaderKey(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	fields := strings.Fields(s)
	return strings.Join(fields, "")
}

// IsPlaceholderHeader reports whether a header is a spreadsheet-export
// artifact rather than a real column name.
func IsPlaceholderHeader(input string) bool {
	s := strings.TrimSpace(input)
	return s == "" || strings.HasPrefix(s, "Unnamed")
}

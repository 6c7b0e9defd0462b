package table

import (
	"regexp"
	"strings"
)

// numericPattern matches financial numbers as they appear on statements:
// optional dollar sign, optional parenthesized negative, thousands
// separators, decimals, optional trailing percent.
var numericPattern = regexp.MustCompile(`^\$?\(?-?\d{1,3}(?:,\d{3})*(?:\.\d+)?\)?%?$|^\$?\(?-?\d+(?:\.\d+)?\)?%?$`)

// IsNumeric reports whether a cell value is a numeric token after trimming.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return false
	}
	return numericPattern.MatchString(s)
}

// NormalizeNumeric canonicalizes a numeric cell: parenthesized values
// become negative ("(1,234)" -> "-1234"), thousands separators and
// currency/percent markers are stripped. Blank cells stay blank, and
// non-numeric values pass through untouched.
func NormalizeNumeric(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	if !IsNumeric(trimmed) {
		return s
	}
	v := strings.ReplaceAll(trimmed, "$", "")
	v = strings.ReplaceAll(v, "%", "")
	v = strings.ReplaceAll(v, ",", "")
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		v = "-" + strings.Trim(v, "()")
	}
	return v
}

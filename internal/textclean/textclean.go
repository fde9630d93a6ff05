// Package textclean holds the text normalisation applied to raw record values
// and rendered documents.
package textclean

import (
	"strings"
	"unicode"
)

// Clean normalises a raw string value: invalid UTF-8 and control characters
// other than newline and tab are dropped, and surrounding whitespace is trimmed.
// Clean is idempotent.
func Clean(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Compact collapses redundant whitespace in a rendered document. Runs of
// horizontal whitespace become a single space, lines are trimmed and blank
// lines removed. Tokens are never altered. Compact is idempotent.
func Compact(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, "\n")
}

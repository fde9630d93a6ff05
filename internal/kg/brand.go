package kg

import (
	"strings"
	"unicode/utf8"
)

// brandCutset is stripped from both ends of a brand value.
const brandCutset = " \".*+,-_!@#$%^&();/|<>'\t\n\r\\"

// maxBrandLen is the rune length above which only the first token is kept.
const maxBrandLen = 100

// NormalizeBrand canonicalises a brand string: strip punctuation and
// whitespace from both ends, drop a leading "by ", a trailing ".com", a
// leading "www.", and keep only the first space-delimited token of values
// longer than 100 characters. The steps run in that order and repeat until
// the value is stable, so NormalizeBrand is idempotent.
func NormalizeBrand(s string) string {
	for {
		next := normalizeBrandOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func normalizeBrandOnce(s string) string {
	s = strings.Trim(s, brandCutset)
	if utf8.RuneCountInString(s) > 3 && strings.HasPrefix(s, "by ") {
		s = s[3:]
	}
	if utf8.RuneCountInString(s) > 4 && strings.HasSuffix(s, ".com") {
		s = s[:len(s)-4]
	}
	if utf8.RuneCountInString(s) > 4 && strings.HasPrefix(s, "www.") {
		s = s[4:]
	}
	if utf8.RuneCountInString(s) > maxBrandLen {
		s, _, _ = strings.Cut(s, " ")
	}
	return s
}

// brandKey is the comparison form used by BrandMatches.
func brandKey(s string) string {
	if utf8.RuneCountInString(s) > 4 && strings.HasSuffix(s, ".com") {
		s = s[:len(s)-4]
	}
	return strings.Trim(strings.ToLower(s), `"`)
}

// SameBrand compares two brand strings ignoring case, surrounding quotes and
// a ".com" suffix.
func SameBrand(a, b string) bool {
	return brandKey(a) == brandKey(b)
}

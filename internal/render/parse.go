package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/semikb/internal/node"
)

// dimensionsKey is the normalised details key holding "dimensions ; weight".
const dimensionsKey = "product dimensions"

// TryParseDimensions extracts the dimensions and weight sub-fields from a
// record's details. It reports false when details are absent or the value
// does not split into exactly two parts on " ; ".
func TryParseDimensions(rec node.Record) (dimensions, weight string, ok bool) {
	details := rec[node.AttrDetails].Map()
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if normalizeDetailKey(k) != dimensionsKey {
			continue
		}
		parts := strings.Split(details[k], " ; ")
		if len(parts) != 2 {
			return "", "", false
		}
		return parts[0], parts[1], true
	}
	return "", "", false
}

func normalizeDetailKey(k string) string {
	k = strings.ReplaceAll(k, "_", " ")
	k = strings.Trim(k, " :\t\n\u200e\u200f")
	return strings.ToLower(k)
}

// TryParseVote parses a helpfulness vote such as "1,024". Thousands
// separators and surrounding whitespace are ignored; a fractional part is
// truncated.
func TryParseVote(v node.Value) (int, bool) {
	if n, ok := v.Num(); ok {
		return int(n), true
	}
	s, ok := v.Str()
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', '_', ' ', '\'':
			return -1
		}
		return r
	}, s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// voteOf returns the vote of a review, zero when missing or unparseable.
func voteOf(e node.Entry) int {
	n, _ := TryParseVote(e["vote"])
	return n
}

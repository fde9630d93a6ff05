// Package node defines the typed node-record abstraction: attribute values,
// records, and the known attribute names per node type.
package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/semikb/internal/textclean"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindList    // list of strings
	KindEntries // list of structured records (reviews, Q&A)
	KindDict    // string-to-string mapping (product details)
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	case KindEntries:
		return "entries"
	case KindDict:
		return "dict"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Entry is a structured record inside a list attribute, e.g. one review.
// Declared columns missing from the source are present as null values.
type Entry map[string]Value

// Text returns the text of a field, or "" when absent or null.
func (e Entry) Text(field string) string {
	v, ok := e[field]
	if !ok {
		return ""
	}
	return v.Text()
}

// Value is one attribute value of a node record.
type Value struct {
	kind    Kind
	str     string
	num     float64
	list    []string
	entries []Entry
	dict    map[string]string
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// List returns a list-of-strings value.
func List(items ...string) Value { return Value{kind: KindList, list: items} }

// Entries returns a list-of-records value.
func Entries(items ...Entry) Value { return Value{kind: KindEntries, entries: items} }

// Dict returns a mapping value.
func Dict(m map[string]string) Value { return Value{kind: KindDict, dict: m} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Strings returns the items of a list value. A string value is returned as a
// single-item list so callers joining text treat both uniformly.
func (v Value) Strings() []string {
	switch v.kind {
	case KindList:
		return v.list
	case KindString:
		return []string{v.str}
	}
	return nil
}

// Items returns the records of an entries value, nil otherwise.
func (v Value) Items() []Entry {
	if v.kind == KindEntries {
		return v.entries
	}
	return nil
}

// Map returns the mapping of a dict value, nil otherwise.
func (v Value) Map() map[string]string {
	if v.kind == KindDict {
		return v.dict
	}
	return nil
}

// Len returns the number of elements for collection values, the rune count
// for strings, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len([]rune(v.str))
	case KindList:
		return len(v.list)
	case KindEntries:
		return len(v.entries)
	case KindDict:
		return len(v.dict)
	}
	return 0
}

// Text renders v as plain text. Lists are joined with ", ", dicts are
// rendered as sorted "key: value" pairs, entries and null render as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindList:
		return strings.Join(v.list, ", ")
	case KindDict:
		keys := sortedKeys(v.dict)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+v.dict[k])
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// Clean applies textclean.Clean to every string inside v.
func (v Value) Clean() Value {
	switch v.kind {
	case KindString:
		return String(textclean.Clean(v.str))
	case KindList:
		out := make([]string, len(v.list))
		for i, s := range v.list {
			out[i] = textclean.Clean(s)
		}
		return List(out...)
	case KindEntries:
		out := make([]Entry, len(v.entries))
		for i, e := range v.entries {
			ce := make(Entry, len(e))
			for k, fv := range e {
				ce[k] = fv.Clean()
			}
			out[i] = ce
		}
		return Entries(out...)
	case KindDict:
		// Keys that clean to the same text keep the value of the first in
		// sorted order.
		out := make(map[string]string, len(v.dict))
		for _, k := range sortedKeys(v.dict) {
			ck := textclean.Clean(k)
			if _, ok := out[ck]; !ok {
				out[ck] = textclean.Clean(v.dict[k])
			}
		}
		return Dict(out)
	}
	return v
}

// FromAny converts a decoded JSON value into a Value. Arrays of objects
// become entries, other arrays become string lists, objects become dicts.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return String(t.String())
	case bool:
		return String(strconv.FormatBool(t))
	case []string:
		return List(t...)
	case []any:
		if len(t) > 0 && allObjects(t) {
			entries := make([]Entry, 0, len(t))
			for _, item := range t {
				m := item.(map[string]any)
				e := make(Entry, len(m))
				for k, fv := range m {
					e[k] = FromAny(fv)
				}
				entries = append(entries, e)
			}
			return Entries(entries...)
		}
		items := make([]string, 0, len(t))
		for _, item := range t {
			items = append(items, anyText(item))
		}
		return List(items...)
	case map[string]any:
		m := make(map[string]string, len(t))
		for k, fv := range t {
			m[k] = anyText(fv)
		}
		return Dict(m)
	case map[string]string:
		return Dict(t)
	}
	return String(fmt.Sprint(x))
}

func allObjects(items []any) bool {
	for _, item := range items {
		if _, ok := item.(map[string]any); !ok {
			return false
		}
	}
	return true
}

// anyText flattens a nested JSON value to text.
func anyText(x any) string {
	switch t := x.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	}
	data, err := json.Marshal(x)
	if err != nil {
		return fmt.Sprint(x)
	}
	return string(data)
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes v as its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindEntries:
		if v.entries == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.entries)
	case KindDict:
		return json.Marshal(v.dict)
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes the natural JSON form. An empty array decodes as an
// empty list.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}

	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case '{':
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decoding dict value: %w", err)
		}
		*v = Dict(m)
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if len(raw) == 0 {
			*v = List()
			return nil
		}
		if first := bytes.TrimSpace(raw[0]); len(first) > 0 && first[0] == '{' {
			entries := make([]Entry, len(raw))
			for i, r := range raw {
				if err := json.Unmarshal(r, &entries[i]); err != nil {
					return fmt.Errorf("decoding entry %d: %w", i, err)
				}
			}
			*v = Entries(entries...)
			return nil
		}
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decoding list value: %w", err)
		}
		*v = List(items...)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding number value: %w", err)
	}
	*v = Number(n)
	return nil
}

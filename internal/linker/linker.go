// Package linker joins the metadata, review and Q&A collections on their
// natural key and assigns dense entity ids.
package linker

import (
	"errors"
	"fmt"

	"github.com/matsen/semikb/internal/source"
)

// ErrSchema is returned when a collection lacks a required column.
var ErrSchema = errors.New("schema error")

// SchemaError names the collection and the missing column.
type SchemaError struct {
	Source string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s records have no %q column", e.Source, e.Column)
}

// Unwrap lets errors.Is match ErrSchema.
func (e *SchemaError) Unwrap() error { return ErrSchema }

// Columns declares the natural key and the required columns per collection.
type Columns struct {
	Key    string
	Meta   []string
	Review []string
	QA     []string
}

// Input holds the three raw collections.
type Input struct {
	Meta   []source.RawRecord
	Review []source.RawRecord
	QA     []source.RawRecord
}

// Linked is the result of linking: a bijection between natural keys and ids,
// and the collections filtered to the linked keys.
type Linked struct {
	Keys   []string       // id -> natural key
	IDs    map[string]int // natural key -> id
	Meta   []source.RawRecord
	Review []source.RawRecord
	QA     []source.RawRecord
}

// Len returns the number of linked entities.
func (l *Linked) Len() int { return len(l.Keys) }

// ID returns the id of a natural key.
func (l *Linked) ID(key string) (int, bool) {
	id, ok := l.IDs[key]
	return id, ok
}

// Link keeps the natural keys present in both metadata and reviews. Ids follow
// first-seen order in metadata; duplicate metadata keys keep the first record.
// Q&A membership is not required.
func Link(in Input, cols Columns) (*Linked, error) {
	if err := checkColumns("metadata", in.Meta, cols.Key, cols.Meta); err != nil {
		return nil, err
	}
	if err := checkColumns("review", in.Review, cols.Key, cols.Review); err != nil {
		return nil, err
	}
	if err := checkColumns("qa", in.QA, cols.Key, cols.QA); err != nil {
		return nil, err
	}

	reviewed := make(map[string]bool, len(in.Review))
	for _, r := range in.Review {
		if k := r.Key(cols.Key); k != "" {
			reviewed[k] = true
		}
	}

	l := &Linked{IDs: make(map[string]int)}
	seen := make(map[string]bool, len(in.Meta))
	for _, m := range in.Meta {
		k := m.Key(cols.Key)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		if !reviewed[k] {
			continue
		}
		l.IDs[k] = len(l.Keys)
		l.Keys = append(l.Keys, k)
		l.Meta = append(l.Meta, m)
	}

	l.Review = filter(in.Review, cols.Key, l.IDs)
	l.QA = filter(in.QA, cols.Key, l.IDs)
	return l, nil
}

// checkColumns fails when a non-empty collection has no record carrying a
// required column.
func checkColumns(name string, recs []source.RawRecord, key string, cols []string) error {
	if len(recs) == 0 {
		return nil
	}

	required := make([]string, 0, len(cols)+1)
	required = append(required, key)
	required = append(required, cols...)

	for _, col := range required {
		found := false
		for _, r := range recs {
			if r.Has(col) {
				found = true
				break
			}
		}
		if !found {
			return &SchemaError{Source: name, Column: col}
		}
	}
	return nil
}

func filter(recs []source.RawRecord, key string, ids map[string]int) []source.RawRecord {
	var out []source.RawRecord
	for _, r := range recs {
		if _, ok := ids[r.Key(key)]; ok {
			out = append(out, r)
		}
	}
	return out
}

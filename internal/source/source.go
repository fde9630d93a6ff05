// Package source supplies raw e-commerce records by category: metadata,
// reviews and question/answer pairs.
package source

import (
	"context"
	"errors"
	"fmt"
)

// Kind selects one of the three raw collections.
type Kind string

const (
	Metadata Kind = "metadata"
	Review   Kind = "review"
	QA       Kind = "qa"
)

// ErrNotFound is returned when a category/kind combination has no records.
var ErrNotFound = errors.New("raw records not found")

// RawRecord is one decoded raw record. Only declared columns are read.
type RawRecord map[string]any

// Has reports whether the record carries column.
func (r RawRecord) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Key returns the natural key stored under column, or "" if absent or not a string.
func (r RawRecord) Key(column string) string {
	s, _ := r[column].(string)
	return s
}

// Source fetches raw records for a category.
type Source interface {
	Fetch(ctx context.Context, category string, kind Kind) ([]RawRecord, error)
}

// notFound wraps ErrNotFound with the category and kind.
func notFound(category string, kind Kind, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: %s %s", ErrNotFound, category, kind)
	}
	return fmt.Errorf("%w: %s %s: %s", ErrNotFound, category, kind, detail)
}

// MemorySource serves records held in memory.
type MemorySource struct {
	records map[Kind]map[string][]RawRecord
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{records: make(map[Kind]map[string][]RawRecord)}
}

// Add registers records for a category and kind, appending to any already present.
func (m *MemorySource) Add(category string, kind Kind, records ...RawRecord) *MemorySource {
	byCat, ok := m.records[kind]
	if !ok {
		byCat = make(map[string][]RawRecord)
		m.records[kind] = byCat
	}
	byCat[category] = append(byCat[category], records...)
	return m
}

// Fetch returns a copy of the registered records.
func (m *MemorySource) Fetch(ctx context.Context, category string, kind Kind) ([]RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, ok := m.records[kind][category]
	if !ok {
		return nil, notFound(category, kind, "")
	}
	return append([]RawRecord(nil), recs...), nil
}

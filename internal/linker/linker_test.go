package linker

import (
	"errors"
	"testing"

	"github.com/matsen/semikb/internal/source"
)

func testColumns() Columns {
	return Columns{
		Key:    "asin",
		Meta:   []string{"title"},
		Review: []string{"summary"},
		QA:     []string{"question"},
	}
}

func TestLink(t *testing.T) {
	in := Input{
		Meta: []source.RawRecord{
			{"asin": "C", "title": "third"},
			{"asin": "A", "title": "first"},
			{"asin": "C", "title": "duplicate"},
			{"asin": "X", "title": "no reviews"},
			{"asin": "B", "title": "second"},
		},
		Review: []source.RawRecord{
			{"asin": "A", "summary": "a1"},
			{"asin": "Z", "summary": "no metadata"},
			{"asin": "C", "summary": "c1"},
			{"asin": "B", "summary": "b1"},
			{"asin": "A", "summary": "a2"},
		},
		QA: []source.RawRecord{
			{"asin": "B", "question": "q?"},
			{"asin": "Z", "question": "orphan"},
		},
	}

	l, err := Link(in, testColumns())
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	wantKeys := []string{"C", "A", "B"}
	if len(l.Keys) != len(wantKeys) {
		t.Fatalf("Keys = %v, want %v", l.Keys, wantKeys)
	}
	for i, k := range wantKeys {
		if l.Keys[i] != k {
			t.Errorf("Keys[%d] = %q, want %q", i, l.Keys[i], k)
		}
		if id, ok := l.ID(k); !ok || id != i {
			t.Errorf("ID(%q) = %d, %v; want %d", k, id, ok, i)
		}
	}

	if l.Meta[0]["title"] != "third" {
		t.Errorf("duplicate metadata should keep first record, got %v", l.Meta[0]["title"])
	}
	if len(l.Review) != 4 {
		t.Errorf("len(Review) = %d, want 4", len(l.Review))
	}
	if l.Review[0]["summary"] != "a1" || l.Review[3]["summary"] != "a2" {
		t.Errorf("review order not preserved: %v", l.Review)
	}
	if len(l.QA) != 1 || l.QA[0].Key("asin") != "B" {
		t.Errorf("QA = %v", l.QA)
	}

	// Every linked key is in both metadata and reviews, and the size is bounded.
	if l.Len() > len(in.Meta) || l.Len() > len(in.Review) {
		t.Errorf("Len() = %d exceeds input sizes", l.Len())
	}
	for _, k := range l.Keys {
		if !hasKey(in.Meta, k) || !hasKey(in.Review, k) {
			t.Errorf("key %q not in both collections", k)
		}
	}
}

func hasKey(recs []source.RawRecord, key string) bool {
	for _, r := range recs {
		if r.Key("asin") == key {
			return true
		}
	}
	return false
}

func TestLink_SchemaError(t *testing.T) {
	tests := []struct {
		name       string
		in         Input
		wantSource string
		wantColumn string
	}{
		{
			name: "metadata missing title",
			in: Input{
				Meta:   []source.RawRecord{{"asin": "A"}},
				Review: []source.RawRecord{{"asin": "A", "summary": "s"}},
			},
			wantSource: "metadata",
			wantColumn: "title",
		},
		{
			name: "review missing key",
			in: Input{
				Meta:   []source.RawRecord{{"asin": "A", "title": "t"}},
				Review: []source.RawRecord{{"summary": "s"}},
			},
			wantSource: "review",
			wantColumn: "asin",
		},
		{
			name: "qa missing question",
			in: Input{
				Meta:   []source.RawRecord{{"asin": "A", "title": "t"}},
				Review: []source.RawRecord{{"asin": "A", "summary": "s"}},
				QA:     []source.RawRecord{{"asin": "A"}},
			},
			wantSource: "qa",
			wantColumn: "question",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Link(tt.in, testColumns())
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("Link() error = %v, want ErrSchema", err)
			}
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("error is not *SchemaError: %T", err)
			}
			if se.Source != tt.wantSource || se.Column != tt.wantColumn {
				t.Errorf("SchemaError = %+v, want %s/%s", se, tt.wantSource, tt.wantColumn)
			}
		})
	}
}

func TestLink_ColumnPresentOnSomeRecords(t *testing.T) {
	in := Input{
		Meta:   []source.RawRecord{{"asin": "A"}, {"asin": "B", "title": "t"}},
		Review: []source.RawRecord{{"asin": "A", "summary": "s"}},
	}
	l, err := Link(in, testColumns())
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}


package storage

import (
	"path/filepath"
	"testing"

	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/node"
)

// setupTestDB opens a database indexed from testData.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	d := testData()
	d.Nodes[0][node.AttrDescription] = node.List("A handy widget", "for the kitchen")
	g, err := kg.New(d, true)
	if err != nil {
		t.Fatalf("kg.New() error = %v", err)
	}

	db, err := OpenDB(filepath.Join(t.TempDir(), "nodes.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	n, err := db.RebuildFromGraph(g)
	if err != nil {
		t.Fatalf("RebuildFromGraph() error = %v", err)
	}
	if n != 3 {
		t.Errorf("RebuildFromGraph() = %d, want 3", n)
	}
	return db
}

func TestDB_Search(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name    string
		query   string
		wantIDs []int
	}{
		{"title word", "widget", []int{0}},
		{"description word", "kitchen", []int{0}},
		{"feature word", "sturdy", []int{0}},
		{"brand matches product and brand node", "acme", []int{0, 2}},
		{"no match", "spaceship", nil},
		{"special characters quoted", "deluxe-edition", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := db.Search(tt.query, 10)
			if err != nil {
				t.Fatalf("Search(%q) error = %v", tt.query, err)
			}
			if len(hits) != len(tt.wantIDs) {
				t.Fatalf("Search(%q) = %v, want ids %v", tt.query, hits, tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if hits[i].ID != id {
					t.Errorf("hits[%d].ID = %d, want %d", i, hits[i].ID, id)
				}
			}
		})
	}
}

func TestDB_SearchField(t *testing.T) {
	db := setupTestDB(t)

	hits, err := db.SearchField("brand", "acme", 10)
	if err != nil {
		t.Fatalf("SearchField() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Key != "A1" || hits[0].Brand != "Acme" {
		t.Errorf("SearchField(brand) = %v", hits)
	}

	if _, err := db.SearchField("price", "9", 10); err == nil {
		t.Error("SearchField(price) should fail")
	}
}

func TestDB_GetByKey(t *testing.T) {
	db := setupTestDB(t)

	h, err := db.GetByKey("B2")
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if h == nil || h.ID != 1 || h.Type != "product" || h.Title != "Gadget <deluxe>" {
		t.Errorf("GetByKey(B2) = %+v", h)
	}

	h, err = db.GetByKey("missing")
	if err != nil || h != nil {
		t.Errorf("GetByKey(missing) = %+v, %v", h, err)
	}
}

func TestDB_RebuildReplaces(t *testing.T) {
	db := setupTestDB(t)

	d := testData()
	d.Nodes = d.Nodes[:2]
	d.NodeTypes = d.NodeTypes[:2]
	d.Edges = d.Edges[:2]
	delete(d.EdgeTypeDict, 2)
	delete(d.NodeTypeDict, 1)
	g, err := kg.New(d, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.RebuildFromGraph(g); err != nil {
		t.Fatal(err)
	}

	count, err := db.Count()
	if err != nil || count != 2 {
		t.Errorf("Count() = %d, %v; want 2", count, err)
	}
	hits, _ := db.Search("acme", 10)
	if len(hits) != 1 {
		t.Errorf("stale fts rows after rebuild: %v", hits)
	}
}

func TestNodeTitle(t *testing.T) {
	if got := nodeTitle(node.Record{"brand_name": node.String("Acme")}, "brand"); got != "Acme" {
		t.Errorf("nodeTitle(brand) = %q", got)
	}
}

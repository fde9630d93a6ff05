package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/matsen/semikb/internal/kg"
	"github.com/matsen/semikb/internal/node"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Hit is one search result.
type Hit struct {
	ID    int    `json:"id"`
	Key   string `json:"key,omitempty"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Brand string `json:"brand,omitempty"`
}

const selectNodeFields = `id, key, type, title, brand`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY,
			key TEXT,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			brand TEXT,
			category TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_key ON nodes(key) WHERE key IS NOT NULL AND key != '';

		-- Standalone full-text table; rowid mirrors nodes.id
		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			title,
			brand,
			description,
			features
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromGraph clears the database and indexes every node of g.
func (d *DB) RebuildFromGraph(g *kg.Graph) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM nodes"); err != nil {
		return 0, fmt.Errorf("clearing nodes table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM nodes_fts"); err != nil {
		return 0, fmt.Errorf("clearing nodes_fts table: %w", err)
	}

	nodesStmt, err := tx.Prepare(`
		INSERT INTO nodes (id, key, type, title, brand, category)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing nodes insert: %w", err)
	}
	defer nodesStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO nodes_fts (rowid, title, brand, description, features)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for id := 0; id < g.Len(); id++ {
		rec, err := g.Node(id)
		if err != nil {
			return 0, err
		}
		typ, _ := g.NodeType(id)
		key, _ := g.Key(id)
		title := nodeTitle(rec, typ)
		brand := rec.Text(node.AttrBrand)

		_, err = nodesStmt.Exec(id, nullableStringValue(key), typ, title,
			nullableStringValue(brand), nullableStringValue(rec.Text(node.AttrGlobalCategory)))
		if err != nil {
			return 0, fmt.Errorf("inserting node %d: %w", id, err)
		}

		description := strings.Join(rec[node.AttrDescription].Strings(), " ")
		features := strings.Join(rec[node.AttrFeature].Strings(), " ")
		if _, err := ftsStmt.Exec(id, title, brand, description, features); err != nil {
			return 0, fmt.Errorf("inserting fts for node %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing index: %w", err)
	}
	return g.Len(), nil
}

// nodeTitle is the display title of a product, or the name of a synthetic node.
func nodeTitle(rec node.Record, typ string) string {
	if t := rec.Text(node.AttrTitle); t != "" {
		return t
	}
	return rec.Text(node.NameAttr(typ))
}

// Search performs a full-text search over titles, brands, descriptions and
// features.
func (d *DB) Search(query string, limit int) ([]Hit, error) {
	ftsQuery := prepareFTSQuery(query)

	rows, err := d.db.Query(`
		SELECT `+selectNodeFields+`
		FROM nodes
		WHERE id IN (SELECT rowid FROM nodes_fts WHERE nodes_fts MATCH ?)
		ORDER BY id
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// SearchField performs a search on a specific field.
func (d *DB) SearchField(field, value string, limit int) ([]Hit, error) {
	var ftsQuery string

	switch field {
	case "title", "brand", "description", "features":
		ftsQuery = field + ":" + prepareFTSQuery(value)
	default:
		return nil, fmt.Errorf("unknown search field: %s", field)
	}

	rows, err := d.db.Query(`
		SELECT `+selectNodeFields+`
		FROM nodes
		WHERE id IN (SELECT rowid FROM nodes_fts WHERE nodes_fts MATCH ?)
		ORDER BY id
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", field, err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// GetByKey retrieves a node by its natural key. It returns nil when absent.
func (d *DB) GetByKey(key string) (*Hit, error) {
	row := d.db.QueryRow(`SELECT `+selectNodeFields+` FROM nodes WHERE key = ?`, key)
	return scanHit(row)
}

// Count returns the number of indexed nodes.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHit(s scanner) (*Hit, error) {
	var h Hit
	var key, brand sql.NullString
	if err := s.Scan(&h.ID, &key, &h.Type, &h.Title, &brand); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	h.Key = key.String
	h.Brand = brand.String
	return &h, nil
}

func scanHits(rows *sql.Rows) ([]Hit, error) {
	var hits []Hit
	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		if h != nil {
			hits = append(hits, *h)
		}
	}
	return hits, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// FTS5 uses double quotes for phrase matching
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}

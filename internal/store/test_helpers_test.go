package store

import (
	"database/sql"
	"path/filepath"
	"testing"
)

const librarySQL = `
CREATE TABLE authors (
	id        INTEGER PRIMARY KEY,
	name      VARCHAR(120) NOT NULL,
	bio       TEXT,
	mentor_id INTEGER REFERENCES authors(id)
);
CREATE TABLE publishers (
	id   INTEGER PRIMARY KEY,
	name VARCHAR(80) NOT NULL DEFAULT 'unknown'
);
CREATE TABLE books (
	id           INTEGER PRIMARY KEY,
	title        VARCHAR(200) NOT NULL,
	pages        INTEGER DEFAULT 0,
	available    BOOLEAN DEFAULT 1,
	published_on DATE,
	rating       REAL,
	cover        BLOB,
	added_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
	author_id    INTEGER NOT NULL REFERENCES authors(id),
	publisher_id INTEGER REFERENCES publishers(id)
);
CREATE TABLE book_tags (
	book_id INTEGER REFERENCES books(id),
	tag     TEXT,
	PRIMARY KEY (book_id, tag)
);
`

// createTestDatabase writes a database built from ddl and returns its path.
func createTestDatabase(t *testing.T, ddl string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(ddl); err != nil {
		t.Fatalf("schema setup failed: %v", err)
	}
	return path
}

// createTestStore opens a read-only store over a fresh database.
func createTestStore(t *testing.T, ddl string) *Store {
	t.Helper()
	s, err := Open(createTestDatabase(t, ddl))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

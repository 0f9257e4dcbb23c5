package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_ExistingDatabase(t *testing.T) {
	path := createTestDatabase(t, librarySQL)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM books").Scan(&count); err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_MissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	s, err := Open(path)
	if err == nil {
		s.Close()
		t.Fatal("Open() should fail for a missing database")
	}

	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("Open() must not create the database file")
	}
}

func TestOpen_ReadOnly(t *testing.T) {
	s := createTestStore(t, librarySQL)

	if err := s.verifyPragma("query_only", "1"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}

	if _, err := s.DB().Exec("INSERT INTO publishers (name) VALUES ('Ace')"); err == nil {
		t.Error("writes should be rejected")
	}
}

func TestQuery(t *testing.T) {
	s := createTestStore(t, librarySQL)

	rows, err := s.Query(context.Background(), "SELECT name FROM sqlite_master WHERE type = ? ORDER BY name", "table")
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("Scan() failed: %v", err)
		}
		names = append(names, name)
	}
	if len(names) != 4 {
		t.Errorf("got %d tables, want 4: %v", len(names), names)
	}
}

func TestClose_Nil(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on empty store: %v", err)
	}
}

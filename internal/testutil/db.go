// Package testutil provides fixture helpers for tests that need a populated
// transaction store on disk.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"billgen/internal/storage"

	_ "modernc.org/sqlite"
)

// Row is one BILL row to seed into a fixture store. Type defaults to the
// in-scope expense literal when empty.
type Row struct {
	Time      string
	Amount    float64
	Info      string
	Note      string
	Source    string
	Type      string
	UpdatedAt int64
}

// ExpenseType is the category literal marking rows in scope for reports.
const ExpenseType = "消费"

// SetupDB creates a SQLite store in a per-test temp directory, applies the
// schema migrations and seeds the given rows. It returns the database path
// and an opened read-only Repository that is closed on test cleanup.
func SetupDB(t *testing.T, rows []Row) (string, *storage.Repository) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "billing.sqlite")
	if err := storage.RunMigrations(dbPath); err != nil {
		t.Fatalf("failed to migrate fixture database: %v", err)
	}

	SeedRows(t, dbPath, rows)

	repo, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open fixture database: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})

	return dbPath, repo
}

// SeedRows inserts rows into an existing fixture store. Tests use it to
// simulate the external ingestion process between sync runs.
func SeedRows(t *testing.T, dbPath string, rows []Row) {
	t.Helper()

	if len(rows) == 0 {
		return
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open fixture database for seeding: %v", err)
	}
	defer db.Close()

	const q = `INSERT INTO BILL (TIME, AMOUNT, INFO, NOTE, SOURCE, TYPE, UPDATE_TIME)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, r := range rows {
		typ := r.Type
		if typ == "" {
			typ = ExpenseType
		}
		if _, err := db.Exec(q, r.Time, r.Amount, r.Info, r.Note, r.Source, typ, r.UpdatedAt); err != nil {
			t.Fatalf("failed to seed row %+v: %v", r, err)
		}
	}
}

package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *Context {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("SHELF_DIR", tmp)

	ctx, err := CreateDatabase("")
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}

	t.Cleanup(func() {
		if err := CloseDatabase(ctx); err != nil {
			t.Fatalf("CloseDatabase error: %v", err)
		}
	})

	return ctx
}

func TestDatabaseCreationAndSchema(t *testing.T) {
	ctx := setupTestDB(t)

	dbPath := filepath.Join(os.Getenv("SHELF_DIR"), "shelf.db")
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file to exist at %s: %v", dbPath, err)
	}

	if !objectExists(t, ctx.DB, "table", "user_status") {
		t.Fatalf("expected table user_status to exist")
	}
	for _, index := range []string{"idx_status", "idx_marked_at"} {
		if !objectExists(t, ctx.DB, "index", index) {
			t.Fatalf("expected index %s to exist", index)
		}
	}
}

func TestCreateDatabaseIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "shelf.db")

	first, err := CreateDatabase(dbPath)
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}
	insertStatus(t, first.DB, 42, "watched")
	if err := CloseDatabase(first); err != nil {
		t.Fatalf("CloseDatabase error: %v", err)
	}

	second, err := CreateDatabase(dbPath)
	if err != nil {
		t.Fatalf("second CreateDatabase returned error: %v", err)
	}
	t.Cleanup(func() { _ = CloseDatabase(second) })

	assertCount(t, second.DB, "user_status", 1)
}

func TestCreateDatabaseAdoptsPreexistingSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	// A file written by an older build that created the table directly.
	legacy, err := sql.Open("sqlite", "file:"+filepath.ToSlash(dbPath))
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	if _, err := legacy.Exec(`CREATE TABLE user_status (
		subject_id INTEGER PRIMARY KEY,
		status TEXT NOT NULL,
		rating INTEGER,
		tags TEXT,
		marked_at TEXT NOT NULL
	)`); err != nil {
		t.Fatalf("legacy schema error: %v", err)
	}
	insertStatus(t, legacy, 1, "skipped")
	_ = legacy.Close()

	ctx, err := CreateDatabase(dbPath)
	if err != nil {
		t.Fatalf("CreateDatabase on legacy file returned error: %v", err)
	}
	t.Cleanup(func() { _ = CloseDatabase(ctx) })

	assertCount(t, ctx.DB, "user_status", 1)
	if !objectExists(t, ctx.DB, "index", "idx_status") {
		t.Fatalf("expected idx_status to be created on legacy file")
	}
}

func TestCreateDatabaseInMemory(t *testing.T) {
	ctx, err := CreateDatabase(":memory:")
	if err != nil {
		t.Fatalf("CreateDatabase(:memory:) returned error: %v", err)
	}
	t.Cleanup(func() { _ = CloseDatabase(ctx) })

	if !objectExists(t, ctx.DB, "table", "user_status") {
		t.Fatalf("expected table user_status to exist in memory")
	}
}

func TestCreateDatabaseFailsOnDirectoryPath(t *testing.T) {
	dir := t.TempDir()
	if _, err := CreateDatabase(dir); err == nil {
		t.Fatalf("expected error opening a directory as database")
	}
}

func objectExists(t *testing.T, db *sql.DB, kind, name string) bool {
	t.Helper()
	var got string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type=? AND name=?`, kind, name).Scan(&got)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("objectExists query failed for %s: %v", name, err)
	}
	return true
}

func insertStatus(t *testing.T, db *sql.DB, subjectID int64, status string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO user_status(subject_id, status, marked_at) VALUES(?, ?, ?)`, subjectID, status, "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("insertStatus failed: %v", err)
	}
}

func assertCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("count query failed for %s: %v", table, err)
	}
	if count != expected {
		t.Fatalf("expected %s to have %d rows, got %d", table, expected, count)
	}
}

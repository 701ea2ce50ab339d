package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	dbpkg "github.com/garnizeh/timesheet/internal/db"
)

func TestNew_Close_GetConn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := dbpkg.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if d.GetConn() == nil {
		t.Fatalf("expected non-nil sql.DB from GetConn")
	}
	if d.Logger() == nil {
		t.Fatalf("expected default logger")
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestExec_QueryRow(t *testing.T) {
	ctx := context.Background()
	d, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer d.Close()

	_, err = d.Exec(ctx, `CREATE TABLE IF NOT EXISTS items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT);`)
	if err != nil {
		t.Fatalf("Exec create table returned error: %v", err)
	}

	res, err := d.Exec(ctx, `INSERT INTO items (name) VALUES (?)`, "foo")
	if err != nil {
		t.Fatalf("Exec insert returned error: %v", err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("LastInsertId returned error: %v", err)
	}
	if lastID == 0 {
		t.Fatalf("expected last insert id > 0")
	}

	var name string
	if err := d.QueryRow(ctx, `SELECT name FROM items WHERE id = ?`, lastID).Scan(&name); err != nil {
		t.Fatalf("QueryRow scan returned error: %v", err)
	}
	if name != "foo" {
		t.Fatalf("expected name 'foo' got %q", name)
	}
}

func TestNew_ForeignKeysEnabled(t *testing.T) {
	ctx := context.Background()
	d, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "fk.db"), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer d.Close()

	var on int
	if err := d.QueryRow(ctx, `PRAGMA foreign_keys`).Scan(&on); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if on != 1 {
		t.Fatalf("expected foreign keys to be enabled")
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	ctx := context.Background()
	_, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "missing", "dir", "x.db"), nil)
	if err == nil {
		t.Fatalf("expected error for unreachable path, got nil")
	}
}

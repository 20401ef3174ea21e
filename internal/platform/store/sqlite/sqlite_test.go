package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"ffiassembler/internal/platform/testkit"
)

func TestOpenMemory(t *testing.T) {
	t.Parallel()
	db, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(`CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO t (v) VALUES (?1)`, 7); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var v int
	if err := db.QueryRow(`SELECT v FROM t`).Scan(&v); err != nil || v != 7 {
		t.Fatalf("select = %d, %v", v, err)
	}
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "ffi.db")
	db, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = db.Close()
}

func TestOpenError(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &sqlOpen, func(string, string) (*sql.DB, error) { return nil, errors.New("boom") })
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatalf("expected open error")
	}
}

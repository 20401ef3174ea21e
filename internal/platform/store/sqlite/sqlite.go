// Package sqlite opens the embedded modernc SQLite database used when no
// Postgres server is configured
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Memory opens a private in-memory database
const Memory = ":memory:"

// Config configures the database file
type Config struct {
	Path string
}

var sqlOpen = sql.Open

// Open opens or creates the database with foreign keys on and a busy timeout
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	path := cfg.Path
	if path == "" {
		path = Memory
	}
	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if path != Memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sqlOpen("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == Memory {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

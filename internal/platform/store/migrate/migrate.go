// Package migrate applies the embedded schema to the relational and columnar
// backends. Files run in name order and each relational file commits with its
// schema_migrations row in one transaction
package migrate

import (
	"context"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"ffiassembler/internal/modkit/repokit"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/store"
)

//go:embed sql
var files embed.FS

const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
  version    TEXT PRIMARY KEY,
  applied_at TIMESTAMP NOT NULL
)`

// Files lists the migrations for a driver ("pg", "sqlite" or "ch") in apply order
func Files(driver string) ([]string, error) {
	switch driver {
	case store.DriverPG, store.DriverSQLite, "ch":
	default:
		return nil, perr.InvalidArgf("no migrations for driver %q", driver)
	}
	names, err := fs.Glob(files, path.Join("sql", driver, "*.sql"))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "list migrations")
	}
	sort.Strings(names)
	return names, nil
}

// Statements splits a migration on semicolons; blank pieces are dropped
func Statements(body string) []string {
	var out []string
	for _, s := range strings.Split(body, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Apply runs every pending relational migration and returns the versions it applied
// now stamps applied_at and defaults to time.Now
func Apply(ctx context.Context, db store.TxRunner, driver string, now func() time.Time) ([]string, error) {
	if db == nil {
		return nil, perr.New(perr.ErrorCodeUnavailable, "migrate: no sql backend")
	}
	if now == nil {
		now = time.Now
	}
	names, err := Files(driver)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(ctx, ledgerDDL); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "create schema_migrations")
	}
	done, err := applied(ctx, db)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, name := range names {
		version := strings.TrimSuffix(path.Base(name), ".sql")
		if done[version] {
			continue
		}
		body, err := files.ReadFile(name)
		if err != nil {
			return ran, perr.Wrap(err, perr.ErrorCodeUnknown, "read migration")
		}
		record := func(ctx context.Context, q repokit.Queryer) error {
			return store.ExecOne(ctx, q, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`, version, now().UTC())
		}
		err = repokit.WithTx(ctx, repokit.WithBeginHooks(db, record), func(q repokit.Queryer) error {
			for _, stmt := range Statements(string(body)) {
				if _, err := q.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return ran, perr.Wrapf(err, perr.ErrorCodeDB, "apply %s", version)
		}
		ran = append(ran, version)
	}
	return ran, nil
}

func applied(ctx context.Context, db store.RowQuerier) (map[string]bool, error) {
	versions, err := store.Many(ctx, db, func(r store.Row) (string, error) {
		var v string
		return v, r.Scan(&v)
	}, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "read schema_migrations")
	}
	out := make(map[string]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

// ApplyCH creates the columnar tables; every statement is idempotent
func ApplyCH(ctx context.Context, db store.Clickhouse) ([]string, error) {
	if db == nil {
		return nil, nil
	}
	names, err := Files("ch")
	if err != nil {
		return nil, err
	}
	var ran []string
	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return ran, perr.Wrap(err, perr.ErrorCodeUnknown, "read migration")
		}
		for _, stmt := range Statements(string(body)) {
			if err := db.Exec(ctx, stmt); err != nil {
				return ran, perr.Wrapf(err, perr.ErrorCodeUnavailable, "apply %s", path.Base(name))
			}
		}
		ran = append(ran, strings.TrimSuffix(path.Base(name), ".sql"))
	}
	return ran, nil
}

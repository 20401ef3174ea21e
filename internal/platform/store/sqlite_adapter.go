package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strconv"
	"time"

	"ffiassembler/internal/platform/logger"
)

// sqliteAdapter wraps *sql.DB and implements RowQuerier + TxRunner
// $N placeholders are rewritten to SQLite's numbered ?N form
type sqliteAdapter struct {
	db    *sql.DB
	log   logger.Logger
	trace bool
}

func newSQLiteAdapter(db *sql.DB) *sqliteAdapter { return &sqliteAdapter{db: db, log: logger.Nop()} }

var dollarParam = regexp.MustCompile(`\$([0-9]+)`)

func rebind(q string) string { return dollarParam.ReplaceAllString(q, "?$1") }

func (a *sqliteAdapter) Ping(ctx context.Context) error {
	if a == nil || a.db == nil {
		return errors.New("sqlite: nil adapter")
	}
	return a.db.PingContext(ctx)
}

func (a *sqliteAdapter) Close() error { return a.db.Close() }

func (a *sqliteAdapter) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	return execOn(ctx, a.db, a.tracer(), q, args)
}

func (a *sqliteAdapter) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	return queryOn(ctx, a.db, a.tracer(), q, args)
}

func (a *sqliteAdapter) QueryRow(ctx context.Context, q string, args ...any) Row {
	return queryRowOn(ctx, a.db, a.tracer(), q, args)
}

func (a *sqliteAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(sqliteTx{tx: tx, trace: a.tracer()}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (a *sqliteAdapter) tracer() func(string, time.Time, error) {
	if !a.trace {
		return nil
	}
	return func(q string, start time.Time, err error) {
		a.log.Debug().Dur("elapsed", time.Since(start)).Str("sql", compactSQL(q)).Err(err).Msg("sqlite query")
	}
}

// sqlConn is the common surface of *sql.DB and *sql.Tx
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execOn(ctx context.Context, c sqlConn, trace func(string, time.Time, error), q string, args []any) (CommandTag, error) {
	start := time.Now()
	res, err := c.ExecContext(ctx, rebind(q), args...)
	if trace != nil {
		trace(q, start, err)
	}
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	return resultTag{n: n}, nil
}

func queryOn(ctx context.Context, c sqlConn, trace func(string, time.Time, error), q string, args []any) (Rows, error) {
	start := time.Now()
	rs, err := c.QueryContext(ctx, rebind(q), args...)
	if trace != nil {
		trace(q, start, err)
	}
	if err != nil {
		return nil, err
	}
	return sqlRows{r: rs}, nil
}

func queryRowOn(ctx context.Context, c sqlConn, trace func(string, time.Time, error), q string, args []any) Row {
	start := time.Now()
	r := c.QueryRowContext(ctx, rebind(q), args...)
	return sqlRow{r: r, after: func(err error) {
		if trace != nil {
			trace(q, start, err)
		}
	}}
}

type sqliteTx struct {
	tx    *sql.Tx
	trace func(string, time.Time, error)
}

func (t sqliteTx) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	return execOn(ctx, t.tx, t.trace, q, args)
}

func (t sqliteTx) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	return queryOn(ctx, t.tx, t.trace, q, args)
}

func (t sqliteTx) QueryRow(ctx context.Context, q string, args ...any) Row {
	return queryRowOn(ctx, t.tx, t.trace, q, args)
}

type sqlRow struct {
	r     *sql.Row
	after func(error)
}

func (x sqlRow) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	x.after(err)
	return err
}

type sqlRows struct{ r *sql.Rows }

func (x sqlRows) Next() bool            { return x.r.Next() }
func (x sqlRows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x sqlRows) Err() error            { return x.r.Err() }
func (x sqlRows) Close()                { _ = x.r.Close() }
func (x sqlRows) Columns() []string {
	cols, _ := x.r.Columns()
	return cols
}

// resultTag renders like a pg command tag so ExecOne works on both drivers
type resultTag struct{ n int64 }

func (t resultTag) String() string      { return "SQLITE " + strconv.FormatInt(t.n, 10) }
func (t resultTag) RowsAffected() int64 { return t.n }

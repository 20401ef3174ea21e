package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ffiassembler/internal/platform/store/pg"
)

// pgxQuerier is what a pool and a transaction have in common
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgQuerier runs statements on q and reports each to the tracer, if any
type pgQuerier struct {
	q      pgxQuerier
	tracer pg.QueryTracer
	slow   time.Duration
}

func (p pgQuerier) done(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if p.tracer == nil {
		return
	}
	took := time.Since(start)
	p.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: took.Microseconds(),
		Err:       err,
		Slow:      p.slow >= 0 && took >= p.slow,
	})
}

func (p pgQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := p.q.Exec(ctx, sql, args...)
	p.done(ctx, sql, args, start, err)
	return ct, err
}

func (p pgQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := p.q.Query(ctx, sql, args...)
	p.done(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return pgRows{rs}, nil
}

// QueryRow is traced when the row is scanned, since pgx defers errors to Scan
func (p pgQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := p.q.QueryRow(ctx, sql, args...)
	return scanHook{Row: r, after: func(err error) { p.done(ctx, sql, args, start, err) }}
}

// pgAdapter is the pooled TxRunner
type pgAdapter struct {
	pgQuerier
	db *pg.PG
}

func newPGAdapter(db *pg.PG) *pgAdapter {
	return &pgAdapter{
		pgQuerier: pgQuerier{q: db.Pool, tracer: db.Tracer, slow: time.Duration(db.SlowMs) * time.Millisecond},
		db:        db,
	}
}

func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	inTx := a.pgQuerier
	inTx.q = tx
	if err := fn(inTx); err != nil {
		if rb := tx.Rollback(ctx); rb != nil && !errors.Is(rb, pgx.ErrTxClosed) {
			return errors.Join(err, rb)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error {
	a.db.Close()
	return nil
}

type scanHook struct {
	pgx.Row
	after func(error)
}

func (s scanHook) Scan(dst ...any) error {
	err := s.Row.Scan(dst...)
	s.after(err)
	return err
}

type pgRows struct{ pgx.Rows }

func (r pgRows) Columns() []string {
	fields := r.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

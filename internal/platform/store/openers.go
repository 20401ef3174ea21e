package store

import (
	"context"
	"time"

	perr "ffiassembler/internal/platform/errors"
	chx "ffiassembler/internal/platform/store/ch"
	"ffiassembler/internal/platform/store/pg"
	"ffiassembler/internal/platform/store/sqlite"
)

// waitReady pings until the backend answers, ctx ends or attempts run out
// Delays double from 150ms up to 2s
func waitReady(ctx context.Context, attempts int, timeout time.Duration, ping func(context.Context) error) error {
	delay := 150 * time.Millisecond
	var err error
	for range attempts {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err = ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(2*delay, 2*time.Second)
	}
	return perr.Wrapf(err, perr.ErrorCodeUnavailable, "no answer after %d pings", attempts)
}

func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}
	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}
	timeout := cfg.PG.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if err := waitReady(ctx, 20, timeout, p.Pool.Ping); err != nil {
		p.Close()
		return nil, err
	}
	return newPGAdapter(p), nil
}

func openSQLite(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLite.Path})
	if err != nil {
		return nil, err
	}
	a := newSQLiteAdapter(db)
	if cfg.SQLite.LogSQL {
		a.log = s.Log.With().Str("component", "sqlite").Logger()
		a.trace = true
	}
	return a, nil
}

func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{URL: cfg.CH.URL, Role: cfg.CH.Role})
	if err != nil {
		return nil, err
	}
	return chAdapter{c}, nil
}

// Package store opens the relational backend (Postgres or SQLite) that holds
// calibration records and run ledgers, and the optional ClickHouse warehouse
// that receives fragment statistics
package store

import (
	"context"
	"errors"
	"fmt"

	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/logger"
)

// Store holds the opened backends; a nil seam means that backend is not configured
type Store struct {
	Log    logger.Logger
	Driver string
	SQL    TxRunner
	CH     Clickhouse
}

// Option adjusts a Store before any backend is opened
type Option func(*Store) error

// WithLogger routes driver tracing and slow query lines to log
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// openers maps a relational driver name to its opener
var openers = map[string]func(context.Context, Config, *Store) (TxRunner, error){
	DriverPG:     openPG,
	DriverSQLite: openSQLite,
}

// Open opens the relational driver named by cfg.Driver, if any, then ClickHouse when enabled
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Log: logger.Nop(), Driver: cfg.Driver}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	if cfg.Driver != "" {
		open, ok := openers[cfg.Driver]
		if !ok {
			return nil, perr.WithField(perr.InvalidArgf("unknown store driver %q", cfg.Driver), "FFI_STORE_DRIVER")
		}
		db, err := open(ctx, cfg, s)
		if err != nil {
			return nil, perr.Annotate(err, "open %s store", cfg.Driver)
		}
		s.SQL = db
	}

	if cfg.CH.Enabled {
		ch, err := openCH(ctx, cfg, s)
		if err != nil {
			_ = s.Close(ctx)
			return nil, perr.Annotate(err, "open clickhouse")
		}
		s.CH = ch
	}
	s.Log.Debug().Str("driver", s.Driver).Bool("clickhouse", s.CH != nil).Msg("store open")
	return s, nil
}

// Guard pings each opened backend and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return perr.Unavailablef("store was never opened")
	}
	var errs []error
	for name, seam := range map[string]any{s.Driver: s.SQL, "clickhouse": s.CH} {
		if p, ok := seam.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}
	if len(errs) > 0 {
		return perr.Wrap(errors.Join(errs...), perr.ErrorCodeUnavailable, "store guard")
	}
	return nil
}

// Close closes ClickHouse then the relational backend
func (s *Store) Close(_ context.Context) error {
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.SQL.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"ffiassembler/internal/platform/config"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/logger"
	"ffiassembler/internal/platform/store/sqlite"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, SQLite: SQLiteConfig{Path: sqlite.Memory}}, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	if _, err := s.SQL.Exec(context.Background(), `CREATE TABLE gains (module INTEGER, output INTEGER, gain REAL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	return s
}

func TestOpenSQLiteAndGuard(t *testing.T) {
	t.Parallel()
	s := openMemory(t)
	if s.Driver != DriverSQLite || s.SQL == nil || s.CH != nil {
		t.Fatalf("store = %+v", s)
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("Guard: %v", err)
	}
}

func TestOpenWithoutDriver(t *testing.T) {
	t.Parallel()
	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.SQL != nil || s.CH != nil {
		t.Fatalf("empty config opened backends")
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("Guard on empty store: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(context.Background(), Config{Driver: "mysql"}); err == nil {
		t.Fatalf("unknown driver should fail")
	}
	boom := errors.New("boom")
	if _, err := Open(context.Background(), Config{}, func(*Store) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("option error = %v", err)
	}
}

func TestGuardNilStore(t *testing.T) {
	t.Parallel()
	var s *Store
	if err := s.Guard(context.Background()); err == nil {
		t.Fatalf("nil store should not pass Guard")
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()
	c := FromConfig(config.FromMap(map[string]string{
		"FFI_STORE_DRIVER":     "PG",
		"FFI_STORE_PG_URL":     "postgres://u:p@h/ffi",
		"FFI_STORE_CH_URL":     "clickhouse://h:9000/ffi",
		"FFI_STORE_LOG_SQL":    "true",
		"FFI_STORE_PG_SLOW_MS": "40",
	}))
	if c.Driver != DriverPG || c.PG.URL != "postgres://u:p@h/ffi" || c.PG.SlowQueryMs != 40 {
		t.Fatalf("pg config = %+v", c)
	}
	if !c.CH.Enabled || c.CH.URL != "clickhouse://h:9000/ffi" {
		t.Fatalf("ch config = %+v", c.CH)
	}
	if !c.PG.LogSQL || !c.SQLite.LogSQL {
		t.Fatalf("LOG_SQL should reach both drivers")
	}

	def := FromConfig(config.FromMap(nil))
	if def.Driver != DriverSQLite || def.SQLite.Path != "ffiassembler.db" || def.CH.Enabled {
		t.Fatalf("defaults = %+v", def)
	}
}

func TestHelpersOverSQLite(t *testing.T) {
	t.Parallel()
	s := openMemory(t)
	ctx := context.Background()

	if err := ExecOne(ctx, s.SQL, `INSERT INTO gains VALUES ($1, $2, $3)`, 13, 2, 112.5); err != nil {
		t.Fatalf("ExecOne: %v", err)
	}
	if err := ExecOne(ctx, s.SQL, `INSERT INTO gains VALUES ($1, $2, $3)`, 2, 1, 110.0); err != nil {
		t.Fatalf("ExecOne: %v", err)
	}
	if err := ExecOne(ctx, s.SQL, `UPDATE gains SET gain = 0 WHERE module > $1`, 0); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("two rows touched should conflict, got %v", err)
	}

	n, err := Scalar[int64](ctx, s.SQL, `SELECT count(*) FROM gains WHERE module = $1`, 13)
	if err != nil || n != 1 {
		t.Fatalf("Scalar = %d, %v", n, err)
	}

	scanGain := func(r Row) (float64, error) {
		var g float64
		return g, r.Scan(&g)
	}
	g, err := One(ctx, s.SQL, scanGain, `SELECT gain FROM gains WHERE module = $1 AND output = $2`, 2, 1)
	if err != nil || g != 110 {
		t.Fatalf("One = %v, %v", g, err)
	}
	if _, err := One(ctx, s.SQL, scanGain, `SELECT gain FROM gains WHERE module = $1`, 99); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("One on empty = %v", err)
	}
	if _, err := One(ctx, s.SQL, scanGain, `SELECT gain FROM gains`); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("One on two rows = %v", err)
	}
	all, err := Many(ctx, s.SQL, scanGain, `SELECT gain FROM gains ORDER BY module`)
	if err != nil || len(all) != 2 || all[0] != 0 {
		t.Fatalf("Many = %v, %v", all, err)
	}
}

func TestSQLiteTx(t *testing.T) {
	t.Parallel()
	s := openMemory(t)
	ctx := context.Background()

	err := s.SQL.Tx(ctx, func(q RowQuerier) error {
		_, err := q.Exec(ctx, `INSERT INTO gains VALUES ($1, $2, $3)`, 6, 1, 1.0)
		return err
	})
	if err != nil {
		t.Fatalf("Tx commit: %v", err)
	}

	boom := errors.New("boom")
	err = s.SQL.Tx(ctx, func(q RowQuerier) error {
		if _, err := q.Exec(ctx, `INSERT INTO gains VALUES ($1, $2, $3)`, 7, 1, 1.0); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Tx err = %v", err)
	}
	n, _ := Scalar[int64](ctx, s.SQL, `SELECT count(*) FROM gains`)
	if n != 1 {
		t.Fatalf("rolled back insert survived, count = %d", n)
	}
}

func TestRebindAndCompact(t *testing.T) {
	t.Parallel()
	if got := rebind(`SELECT * FROM t WHERE a = $1 AND b = $12`); got != `SELECT * FROM t WHERE a = ?1 AND b = ?12` {
		t.Fatalf("rebind = %q", got)
	}
	if got := compactSQL("SELECT\n\t a\n FROM  t "); got != "SELECT a FROM t" {
		t.Fatalf("compactSQL = %q", got)
	}
}

func TestWaitReadyRetriesThenGivesUp(t *testing.T) {
	t.Parallel()
	calls := 0
	err := waitReady(context.Background(), 3, time.Second, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("waitReady = %v after %d calls", err, calls)
	}

	calls = 0
	err = waitReady(context.Background(), 2, time.Second, func(context.Context) error {
		calls++
		return errors.New("connection refused")
	})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) || calls != 2 {
		t.Fatalf("exhausted waitReady = %v after %d calls", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitReady(ctx, 5, time.Second, func(context.Context) error { return errors.New("down") }); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled waitReady = %v", err)
	}
}

package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/testkit"
)

const dsn = "postgres://ffi:secret@db:5432/calibration?sslmode=disable"

func TestPoolConfig(t *testing.T) {
	t.Parallel()
	pc, err := poolConfig(Config{URL: dsn, AppName: "ffiassembler", MaxConns: 7})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if pc.MaxConns != 7 || pc.ConnConfig.RuntimeParams["application_name"] != "ffiassembler" || pc.ConnConfig.Database != "calibration" {
		t.Fatalf("pool config = %+v", pc)
	}

	_, err = poolConfig(Config{URL: "://not a url"})
	testkit.MustCode(t, err, perr.ErrorCodeInvalidArgument)
	if e, ok := perr.As(err); !ok || e.Field() != "FFI_STORE_PG_URL" {
		t.Fatalf("err = %v", err)
	}
}

func TestOpen(t *testing.T) {
	testkit.Serial(t)
	var seen *pgxpool.Config
	testkit.Swap(t, &newPool, func(_ context.Context, pc *pgxpool.Config) (*pgxpool.Pool, error) {
		seen = pc
		return &pgxpool.Pool{}, nil
	})

	p, err := Open(context.Background(), Config{URL: dsn, SlowMs: 250}, nil, func(pc *pgxpool.Config) { pc.MinConns = 2 })
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if p.SlowMs != 250 || p.Pool == nil || seen.MinConns != 2 {
		t.Fatalf("opened %+v with %+v", p, seen)
	}

	testkit.Swap(t, &newPool, func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error) {
		return nil, errors.New("dial refused")
	})
	_, err = Open(context.Background(), Config{URL: dsn}, nil, nil)
	testkit.MustCode(t, err, perr.ErrorCodeUnavailable)
}

func TestCloseIsNilSafe(t *testing.T) {
	t.Parallel()
	testkit.MustNotPanic(t, func() {
		var p *PG
		p.Close()
		(&PG{}).Close()
	})
}

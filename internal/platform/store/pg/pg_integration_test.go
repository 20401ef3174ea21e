//go:build integration_pg

package pg_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/product"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/store"
	"ffiassembler/internal/platform/store/migrate"
	"ffiassembler/internal/services/calibration/calibtest"
	"ffiassembler/internal/services/calibration/domain"
	calibrepo "ffiassembler/internal/services/calibration/repo"
	"ffiassembler/internal/services/calibration/service"
	piperepo "ffiassembler/internal/services/pipeline/repo"
)

// openContainer starts postgres and returns a migrated store on it
func openContainer(t *testing.T) *store.Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		Started: true,
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env:          map[string]string{"POSTGRES_USER": "ffi", "POSTGRES_PASSWORD": "ffi", "POSTGRES_DB": "ffi"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(2 * time.Minute),
		},
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	st, err := store.Open(ctx, store.Config{
		AppName: "ffiassembler-it",
		Driver:  store.DriverPG,
		PG: store.PGConfig{
			URL:         fmt.Sprintf("postgres://ffi:ffi@%s:%s/ffi?sslmode=disable", host, port.Port()),
			MaxConns:    4,
			LogSQL:      true,
			SlowQueryMs: 500,
		},
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	applied, err := migrate.Apply(ctx, st.SQL, store.DriverPG, nil)
	if err != nil || len(applied) == 0 {
		t.Fatalf("migrate: %v %v", applied, err)
	}
	again, err := migrate.Apply(ctx, st.SQL, store.DriverPG, nil)
	if err != nil || len(again) != 0 {
		t.Fatalf("second migrate: %v %v", again, err)
	}
	return st
}

func TestPostgresBackedLedgers(t *testing.T) {
	st := openContainer(t)
	ctx := context.Background()

	t.Run("calibration", func(t *testing.T) {
		svc := service.New(st.SQL, calibrepo.NewSQL())
		counts, err := svc.Import(ctx, calibtest.Snapshot())
		if err != nil || counts.Gains != focalplane.Count {
			t.Fatalf("Import = %+v, %v", counts, err)
		}
		rg := domain.Range{Channel: focalplane.Reference, StartMJD: calibtest.Window.StartMJD, EndMJD: calibtest.Window.EndMJD}
		if g, err := svc.Gain(ctx, rg); err != nil || g <= 0 {
			t.Fatalf("Gain = %v, %v", g, err)
		}
		late := rg
		late.StartMJD, late.EndMJD = 60000, 60001
		if _, err := svc.Gain(ctx, late); !perr.IsCode(err, perr.ErrorCodeNotFound) {
			t.Fatalf("uncovered gain err = %v", err)
		}
	})

	t.Run("lease", func(t *testing.T) {
		runs := piperepo.NewSQL().Bind(st.SQL)
		now := time.Now().UTC()
		ok, err := runs.Claim(ctx, "2009114174833", product.Calibrated, "run-a", now)
		if err != nil || !ok {
			t.Fatalf("first claim = %v, %v", ok, err)
		}
		ok, err = runs.Claim(ctx, "2009114174833", product.Calibrated, "run-b", now)
		if err != nil || ok {
			t.Fatalf("second claim = %v, %v", ok, err)
		}
		if err := runs.Release(ctx, "2009114174833", product.Calibrated, "run-a"); err != nil {
			t.Fatalf("Release: %v", err)
		}
		if ok, err := runs.Claim(ctx, "2009114174833", product.Calibrated, "run-b", now); err != nil || !ok {
			t.Fatalf("claim after release = %v, %v", ok, err)
		}
	})
}

package clickhouse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/product"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/store"
	"ffiassembler/internal/platform/testkit"
	"ffiassembler/internal/services/fragments/domain"
)

type fakeCH struct {
	table   string
	rows    [][]any
	query   string
	args    []any
	result  [][]any
	failErr error
}

func (f *fakeCH) Exec(context.Context, string, ...any) error { return f.failErr }

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.table = table
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeCH) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.query, f.args = sql, args
	return &fakeRows{data: f.result, i: -1}, nil
}

func (f *fakeCH) Close() error { return nil }

type fakeRows struct {
	data [][]any
	i    int
}

func (r *fakeRows) Next() bool        { r.i++; return r.i < len(r.data) }
func (r *fakeRows) Err() error        { return nil }
func (r *fakeRows) Close()            {}
func (r *fakeRows) Columns() []string { return nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *uint8:
			*p = row[i].(uint8)
		case *uint32:
			*p = row[i].(uint32)
		case *uint64:
			*p = row[i].(uint64)
		case *float64:
			*p = row[i].(float64)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return errors.New("unexpected scan target")
		}
	}
	return nil
}

var generated = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func TestRecordInsertsTypedRow(t *testing.T) {
	t.Parallel()
	ch := &fakeCH{}
	sink := NewStatsSink(ch)
	st := domain.Stats{
		RunID: "run-1", Timestamp: "2009114174833", Variant: product.Calibrated,
		Channel: focalplane.Channel{Module: 24, Output: 4}, Width: 1132, Height: 1070,
		Min: -1.5, Max: 9000, Mean: 42, NaNCount: 3, DataSum: "123", Checksum: "hcHjjc9ghcEghc9g",
		Generated: generated,
	}
	if err := sink.Record(context.Background(), st); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if ch.table != Table || len(ch.rows) != 1 {
		t.Fatalf("insert = %s %d rows", ch.table, len(ch.rows))
	}
	row := ch.rows[0]
	if row[3] != uint8(24) || row[4] != uint8(4) || row[5] != uint8(84) || row[6] != uint32(1132) || row[11] != uint64(3) {
		t.Fatalf("row = %#v", row)
	}
}

func TestRecordMapsFailureToUnavailable(t *testing.T) {
	t.Parallel()
	sink := NewStatsSink(&fakeCH{failErr: errors.New("connection reset")})
	err := sink.Record(context.Background(), domain.Stats{Channel: focalplane.Reference, Generated: generated})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) || !perr.Retryable(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestStatsScansRows(t *testing.T) {
	t.Parallel()
	ch := &fakeCH{result: [][]any{
		{"run-1", uint8(2), uint8(1), uint32(6), uint32(4), 1.0, 2.0, 1.5, uint64(0), "10", "abc", generated},
		{"run-1", uint8(2), uint8(2), uint32(6), uint32(4), 3.0, 4.0, 3.5, uint64(1), "11", "def", generated},
	}}
	got, err := NewStatsSink(ch).Stats(context.Background(), "2009114174833", product.Uncertainty)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(got) != 2 || got[1].Channel.String() != "2.2" || got[1].NaNCount != 1 || got[0].Variant != product.Uncertainty {
		t.Fatalf("stats = %+v", got)
	}
	testkit.MustContain(t, ch.query, "FINAL")
	if !strings.Contains(ch.query, "ORDER BY module, output") || ch.args[1] != "uncert" {
		t.Fatalf("query = %q args %v", ch.query, ch.args)
	}
	testkit.MustPanic(t, func() { NewStatsSink(nil) })
}

package store

import (
	"context"

	"ffiassembler/internal/platform/store/ch"
)

// chAdapter is *ch.CH with rows narrowed to store.Rows
type chAdapter struct{ *ch.CH }

var _ Clickhouse = chAdapter{}

func (a chAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := a.CH.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{rows}, nil
}

// chRows drops the error from Close; ClickHouse reports read failures through Err
type chRows struct{ ch.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }

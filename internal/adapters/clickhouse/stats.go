// Package clickhouse writes fragment pixel statistics to ClickHouse
package clickhouse

import (
	"context"
	"time"

	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/product"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/store"
	"ffiassembler/internal/services/fragments/domain"
)

// Table receives one row per finalized fragment
const Table = "ffi_fragment_stats"

// StatsSink implements domain.StatsSink over a ClickHouse seam
type StatsSink struct {
	ch store.Clickhouse
}

// NewStatsSink returns a sink writing to Table
func NewStatsSink(ch store.Clickhouse) *StatsSink {
	if ch == nil {
		panic("clickhouse.StatsSink requires a connection")
	}
	return &StatsSink{ch: ch}
}

// Record inserts one statistics row
func (s *StatsSink) Record(ctx context.Context, st domain.Stats) error {
	row := []any{
		st.RunID,
		st.Timestamp,
		string(st.Variant),
		uint8(st.Channel.Module),
		uint8(st.Channel.Output),
		uint8(st.Channel.Number()),
		uint32(st.Width),
		uint32(st.Height),
		st.Min,
		st.Max,
		st.Mean,
		st.NaNCount,
		st.DataSum,
		st.Checksum,
		st.Generated.UTC(),
	}
	if err := s.ch.Insert(ctx, Table, [][]any{row}); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "insert stats for %s", st.Channel)
	}
	return nil
}

// Stats returns the latest statistics of a timestamp and variant in channel order
func (s *StatsSink) Stats(ctx context.Context, timestamp string, v product.Variant) ([]domain.Stats, error) {
	rows, err := s.ch.Query(ctx, `
		SELECT run_id, module, output, width, height, min, max, mean, nan_count, datasum, checksum, generated
		FROM `+Table+` FINAL
		WHERE timestamp = ? AND variant = ?
		ORDER BY module, output
	`, timestamp, string(v))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "query stats")
	}
	defer rows.Close()

	var out []domain.Stats
	for rows.Next() {
		var (
			st             domain.Stats
			module, output uint8
			width, height  uint32
			generated      time.Time
		)
		if err := rows.Scan(&st.RunID, &module, &output, &width, &height,
			&st.Min, &st.Max, &st.Mean, &st.NaNCount, &st.DataSum, &st.Checksum, &generated); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "scan stats")
		}
		st.Timestamp, st.Variant = timestamp, v
		st.Channel = focalplane.Channel{Module: int(module), Output: int(output)}
		st.Width, st.Height, st.Generated = int(width), int(height), generated
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "read stats")
	}
	return out, nil
}

// Package repo provides sql access to the fragment ledger
package repo

import (
	"context"
	"time"

	"ffiassembler/internal/core/product"
	"ffiassembler/internal/modkit/repokit"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/store"
	"ffiassembler/internal/services/fragments/domain"
)

type (
	// SQL is a binder for domain.StorageRepo
	SQL     struct{}
	queries struct{ q repokit.Queryer }
)

// NewSQL returns a binder for domain.StorageRepo
func NewSQL() repokit.Binder[domain.StorageRepo] { return SQL{} }

// Bind implements repokit.Binder
func (SQL) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// StartFragment marks a channel running for the run (idempotent)
func (r *queries) StartFragment(ctx context.Context, rec domain.Record) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO ffi_fragments (timestamp, variant, module, output, run_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5, 'running', $6)
		ON CONFLICT (timestamp, variant, module, output) DO UPDATE
		SET run_id = excluded.run_id, status = 'running', error = '',
		    started_at = excluded.started_at, finished_at = NULL
	`, rec.Timestamp, string(rec.Variant), rec.Channel.Module, rec.Channel.Output, rec.RunID, rec.StartedAt.UTC())
	return perr.FromDBf(err, "start fragment %s", rec.Channel)
}

// FinishFragment records the outcome of a channel
func (r *queries) FinishFragment(ctx context.Context, rec domain.Record) error {
	finished := time.Now().UTC()
	if rec.FinishedAt != nil {
		finished = rec.FinishedAt.UTC()
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE ffi_fragments SET
			status = $5,
			checksum = $6,
			datasum = $7,
			bytes = $8,
			error = $9,
			finished_at = $10
		WHERE timestamp = $1 AND variant = $2 AND module = $3 AND output = $4
	`,
		rec.Timestamp, string(rec.Variant), rec.Channel.Module, rec.Channel.Output,
		string(rec.Status), rec.Checksum, rec.DataSum, rec.Bytes, rec.Error, finished,
	)
	if err != nil {
		return perr.FromDBf(err, "finish fragment %s", rec.Channel)
	}
	if tag.RowsAffected() == 0 {
		return perr.NotFoundf("fragment %s was never started", rec.Channel)
	}
	return nil
}

// Fragments lists the ledger rows of one timestamp and variant in channel order
func (r *queries) Fragments(ctx context.Context, timestamp string, v product.Variant) ([]domain.Record, error) {
	return store.Many(ctx, r.q, func(row store.Row) (domain.Record, error) {
		var (
			rec    domain.Record
			status string
		)
		err := row.Scan(&rec.Channel.Module, &rec.Channel.Output, &rec.RunID, &status,
			&rec.Checksum, &rec.DataSum, &rec.Bytes, &rec.Error, &rec.StartedAt, &rec.FinishedAt)
		rec.Timestamp, rec.Variant, rec.Status = timestamp, v, domain.Status(status)
		return rec, err
	}, `
		SELECT module, output, run_id, status, checksum, datasum, bytes, error, started_at, finished_at
		FROM ffi_fragments
		WHERE timestamp = $1 AND variant = $2
		ORDER BY module, output
	`, timestamp, string(v))
}

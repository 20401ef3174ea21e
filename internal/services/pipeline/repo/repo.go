// Package repo provides the run ledger and dataset leases
package repo

import (
	"context"
	"strings"
	"time"

	"ffiassembler/internal/core/product"
	"ffiassembler/internal/modkit/repokit"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/store"
	"ffiassembler/internal/services/pipeline/domain"
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

func joinVariants(vs []product.Variant) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}

func splitVariants(s string) ([]product.Variant, error) {
	var out []product.Variant
	for _, p := range strings.Split(s, ",") {
		if p == "" {
			continue
		}
		v, err := product.ParseVariant(p)
		if err != nil {
			return nil, perr.Annotate(err, "stored run variants %q", s)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *queries) CreateRun(ctx context.Context, run domain.Run) error {
	err := store.ExecOne(ctx, r.q, `
		INSERT INTO ffi_runs (id, timestamp, mission, variants, data_release, allow_missing, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, run.ID, run.Timestamp, string(run.Mission), joinVariants(run.Variants),
		run.DataRelease, run.AllowMissing, string(run.Status), run.CreatedAt.UTC())
	return perr.FromDBf(err, "create run %s", run.ID)
}

func (r *queries) FinishRun(ctx context.Context, run domain.Run) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE ffi_runs SET status = $2, error = $3, finished_at = $4
		WHERE id = $1
	`, run.ID, string(run.Status), run.Error, finished)
	if err != nil {
		return perr.FromDBf(err, "finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return perr.NotFoundf("run %s was never created", run.ID)
	}
	return nil
}

const runColumns = `id, timestamp, mission, variants, data_release, allow_missing, status, error, created_at, finished_at`

func scanRun(row store.Row) (domain.Run, error) {
	var (
		run                      domain.Run
		mission, variants, state string
	)
	err := row.Scan(&run.ID, &run.Timestamp, &mission, &variants, &run.DataRelease,
		&run.AllowMissing, &state, &run.Error, &run.CreatedAt, &run.FinishedAt)
	if err != nil {
		return run, err
	}
	run.Mission, run.Status = product.Mission(mission), domain.Status(state)
	run.Variants, err = splitVariants(variants)
	return run, err
}

func (r *queries) Run(ctx context.Context, id string) (domain.Run, error) {
	run, err := store.One(ctx, r.q, scanRun, `SELECT `+runColumns+` FROM ffi_runs WHERE id = $1`, id)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return run, perr.WithField(perr.NotFoundf("run %s", id), "id")
	}
	return run, perr.FromDBf(err, "run %s", id)
}

func (r *queries) Runs(ctx context.Context, timestamp string) ([]domain.Run, error) {
	runs, err := store.Many(ctx, r.q, scanRun, `
		SELECT `+runColumns+` FROM ffi_runs
		WHERE timestamp = $1
		ORDER BY created_at, id
	`, timestamp)
	return runs, perr.FromDBf(err, "runs for %s", timestamp)
}

func (r *queries) Claim(ctx context.Context, timestamp string, v product.Variant, runID string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO ffi_leases (timestamp, variant, run_id, claimed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (timestamp, variant) DO NOTHING
	`, timestamp, string(v), runID, at.UTC())
	if err != nil {
		return false, perr.FromDBf(err, "claim %s %s", timestamp, v)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) Release(ctx context.Context, timestamp string, v product.Variant, runID string) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM ffi_leases WHERE timestamp = $1 AND variant = $2 AND run_id = $3
	`, timestamp, string(v), runID)
	return perr.FromDBf(err, "release %s %s", timestamp, v)
}

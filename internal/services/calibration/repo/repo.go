// Package repo provides sql access to calibration records
// Statements use $N placeholders and run on Postgres and SQLite alike
package repo

import (
	"context"
	"encoding/json"

	"ffiassembler/internal/core/astrometry"
	"ffiassembler/internal/core/rolltime"
	"ffiassembler/internal/modkit/repokit"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/store"
	"ffiassembler/internal/services/calibration/domain"
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

// covers selects records valid over the whole window
const covers = `start_mjd <= $1 AND end_mjd >= $2`

// channelCovers adds the channel to covers
const channelCovers = covers + ` AND module = $3 AND output = $4`

func channelArgs(rg domain.Range) []any {
	return []any{rg.StartMJD, rg.EndMJD, rg.Channel.Module, rg.Channel.Output}
}

func (r *queries) ConfigMaps(ctx context.Context, rg domain.Range) ([]domain.ConfigMap, error) {
	return store.Many(ctx, r.q, func(row store.Row) (domain.ConfigMap, error) {
		var cm domain.ConfigMap
		err := row.Scan(&cm.SCConfigID, &cm.StartMJD, &cm.EndMJD,
			&cm.FGSFrameTimeMs, &cm.ReadoutTimeMs, &cm.FramesPerIntegration, &cm.IntegrationsPerImage)
		return cm, err
	}, `
		SELECT sc_config_id, start_mjd, end_mjd,
		       fgs_frame_time_ms, readout_time_ms, frames_per_integration, integrations_per_image
		FROM config_maps
		WHERE `+covers+`
		ORDER BY id
	`, rg.StartMJD, rg.EndMJD)
}

func scalars[T any](ctx context.Context, q repokit.Queryer, table, column string, rg domain.Range) ([]T, error) {
	return store.Many(ctx, q, func(row store.Row) (T, error) {
		var v T
		err := row.Scan(&v)
		return v, err
	}, `SELECT `+column+` FROM `+table+` WHERE `+channelCovers+` ORDER BY id`, channelArgs(rg)...)
}

func (r *queries) Gains(ctx context.Context, rg domain.Range) ([]float64, error) {
	return scalars[float64](ctx, r.q, "gain_models", "gain", rg)
}

func (r *queries) ReadNoise(ctx context.Context, rg domain.Range) ([]float64, error) {
	return scalars[float64](ctx, r.q, "read_noise_models", "read_noise", rg)
}

func (r *queries) MeanBlack(ctx context.Context, rg domain.Range) ([]int32, error) {
	return scalars[int32](ctx, r.q, "mean_black_models", "mean_black", rg)
}

func (r *queries) RollTimes(ctx context.Context) ([]rolltime.Entry, error) {
	return store.Many(ctx, r.q, func(row store.Row) (rolltime.Entry, error) {
		var e rolltime.Entry
		err := row.Scan(&e.MJD, &e.Season, &e.Quarter, &e.Campaign)
		return e, err
	}, `SELECT mjd, season, quarter, campaign FROM roll_times ORDER BY mjd`)
}

func (r *queries) WCS(ctx context.Context, rg domain.Range) ([]astrometry.WCS, error) {
	return store.Many(ctx, r.q, func(row store.Row) (astrometry.WCS, error) {
		var (
			raw []byte
			w   astrometry.WCS
		)
		if err := row.Scan(&raw); err != nil {
			return w, err
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return w, perr.Wrap(err, perr.ErrorCodeMalformed, "decode wcs model")
		}
		return w, nil
	}, `SELECT model FROM wcs_models WHERE `+channelCovers+` ORDER BY id`, channelArgs(rg)...)
}

func (r *queries) Barycentric(ctx context.Context, rg domain.Range) ([]astrometry.Barycentric, error) {
	return store.Many(ctx, r.q, func(row store.Row) (astrometry.Barycentric, error) {
		var b astrometry.Barycentric
		err := row.Scan(&b.ReferenceRow, &b.ReferenceColumn, &b.CorrectionDays)
		return b, err
	}, `
		SELECT reference_row, reference_column, correction_days
		FROM barycentric_models
		WHERE `+channelCovers+`
		ORDER BY id
	`, channelArgs(rg)...)
}

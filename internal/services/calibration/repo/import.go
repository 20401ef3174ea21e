package repo

import (
	"context"
	"encoding/json"

	"ffiassembler/internal/modkit/repokit"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/store"
	"ffiassembler/internal/services/calibration/domain"
)

// Import appends every record of s; callers run it inside one transaction
func (r *queries) Import(ctx context.Context, s domain.Snapshot) error {
	for _, cm := range s.ConfigMaps {
		if err := store.ExecOne(ctx, r.q, `
			INSERT INTO config_maps (sc_config_id, start_mjd, end_mjd,
				fgs_frame_time_ms, readout_time_ms, frames_per_integration, integrations_per_image)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, cm.SCConfigID, cm.StartMJD, cm.EndMJD,
			cm.FGSFrameTimeMs, cm.ReadoutTimeMs, cm.FramesPerIntegration, cm.IntegrationsPerImage); err != nil {
			return perr.FromDBf(err, "insert config map %d", cm.SCConfigID)
		}
	}
	if err := insertValues(ctx, r.q, "gain_models", "gain", s.Gains); err != nil {
		return err
	}
	if err := insertValues(ctx, r.q, "read_noise_models", "read_noise", s.ReadNoise); err != nil {
		return err
	}
	if err := insertValues(ctx, r.q, "mean_black_models", "mean_black", s.MeanBlack); err != nil {
		return err
	}
	for _, e := range s.RollTimes {
		if err := store.ExecOne(ctx, r.q, `
			INSERT INTO roll_times (mjd, season, quarter, campaign) VALUES ($1, $2, $3, $4)
		`, e.MJD, e.Season, e.Quarter, e.Campaign); err != nil {
			return perr.FromDBf(err, "insert roll time %.6f", e.MJD)
		}
	}
	for _, w := range s.WCS {
		model, err := json.Marshal(w.Value)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeJSON, "encode wcs model")
		}
		if err := store.ExecOne(ctx, r.q, `
			INSERT INTO wcs_models (module, output, start_mjd, end_mjd, model) VALUES ($1, $2, $3, $4, $5)
		`, w.Module, w.Output, w.StartMJD, w.EndMJD, string(model)); err != nil {
			return perr.FromDBf(err, "insert wcs model for %s", w.Channel())
		}
	}
	for _, b := range s.Barycentric {
		if err := store.ExecOne(ctx, r.q, `
			INSERT INTO barycentric_models (module, output, start_mjd, end_mjd,
				reference_row, reference_column, correction_days)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, b.Module, b.Output, b.StartMJD, b.EndMJD,
			b.Value.ReferenceRow, b.Value.ReferenceColumn, b.Value.CorrectionDays); err != nil {
			return perr.FromDBf(err, "insert barycentric model for %s", b.Channel())
		}
	}
	return nil
}

func insertValues[T any](ctx context.Context, q repokit.Queryer, table, column string, vals []domain.ChannelValue[T]) error {
	for _, v := range vals {
		if err := store.ExecOne(ctx, q, `
			INSERT INTO `+table+` (module, output, start_mjd, end_mjd, `+column+`) VALUES ($1, $2, $3, $4, $5)
		`, v.Module, v.Output, v.StartMJD, v.EndMJD, v.Value); err != nil {
			return perr.FromDBf(err, "insert %s for %s", table, v.Channel())
		}
	}
	return nil
}

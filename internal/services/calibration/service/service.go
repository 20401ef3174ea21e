// Package service answers calibration lookups with the exactly-one contract
package service

import (
	"context"

	"ffiassembler/internal/core/astrometry"
	"ffiassembler/internal/core/opt"
	"ffiassembler/internal/core/rolltime"
	"ffiassembler/internal/modkit/repokit"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/validate"
	"ffiassembler/internal/services/calibration/domain"
)

// Service implements domain.Source and domain.ImporterPort over a bound repo
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
}

// New constructs the calibration service; db may be nil for in-process binders
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo]) *Service {
	if binder == nil {
		panic("calibration.Service requires a non nil Repo binder")
	}
	return &Service{DB: db, Binder: binder}
}

func (s *Service) repo() domain.StorageRepo { return s.Binder.Bind(s.DB) }

// lookup enforces exactly one match and keeps the window in the message
func lookup[T any](what string, rg domain.Range, vals []T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, perr.FromDBf(err, "query %s", what)
	}
	return domain.ExactlyOne(what, rg, vals)
}

// ConfigMap returns the single config map covering rg
func (s *Service) ConfigMap(ctx context.Context, rg domain.Range) (domain.ConfigMap, error) {
	vals, err := s.repo().ConfigMaps(ctx, rg)
	return lookup("config map", domain.Range{StartMJD: rg.StartMJD, EndMJD: rg.EndMJD}, vals, err)
}

// Gain returns the channel gain covering rg
func (s *Service) Gain(ctx context.Context, rg domain.Range) (float64, error) {
	vals, err := s.repo().Gains(ctx, rg)
	return lookup("gain model", rg, vals, err)
}

// ReadNoise returns the channel read noise covering rg
func (s *Service) ReadNoise(ctx context.Context, rg domain.Range) (float64, error) {
	vals, err := s.repo().ReadNoise(ctx, rg)
	return lookup("read noise model", rg, vals, err)
}

// MeanBlack returns the channel mean black level covering rg
func (s *Service) MeanBlack(ctx context.Context, rg domain.Range) (int32, error) {
	vals, err := s.repo().MeanBlack(ctx, rg)
	return lookup("mean black model", rg, vals, err)
}

// RollTimes builds the roll-time model from every stored entry
func (s *Service) RollTimes(ctx context.Context) (rolltime.Model, error) {
	entries, err := s.repo().RollTimes(ctx)
	if err != nil {
		return rolltime.Model{}, perr.FromDBf(err, "query roll times")
	}
	if len(entries) == 0 {
		return rolltime.Model{}, perr.NotFoundf("no roll times loaded")
	}
	return rolltime.New(entries)
}

// WCS returns the sky projection covering rg or astrometry.Invalid
func (s *Service) WCS(ctx context.Context, rg domain.Range) (astrometry.WCS, error) {
	vals, err := s.repo().WCS(ctx, rg)
	w, err := lookup("wcs model", rg, vals, err)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return astrometry.Invalid, nil
	}
	return w, err
}

// Barycentric returns the correction covering rg when one exists
func (s *Service) Barycentric(ctx context.Context, rg domain.Range) (opt.Value[astrometry.Barycentric], error) {
	vals, err := s.repo().Barycentric(ctx, rg)
	b, err := lookup("barycentric model", rg, vals, err)
	switch {
	case perr.IsCode(err, perr.ErrorCodeNotFound):
		return opt.None[astrometry.Barycentric](), nil
	case err != nil:
		return opt.None[astrometry.Barycentric](), err
	}
	return opt.Of(b), nil
}

// Import validates and loads snap in one transaction
func (s *Service) Import(ctx context.Context, snap domain.Snapshot) (domain.Counts, error) {
	if err := validate.Struct(snap); err != nil {
		return domain.Counts{}, err
	}
	if err := snap.CheckChannels(); err != nil {
		return domain.Counts{}, err
	}
	if _, err := rolltime.New(snap.RollTimes); err != nil {
		return domain.Counts{}, perr.Annotate(err, "roll times")
	}
	if s.DB == nil {
		return snap.Counts(), s.repo().Import(ctx, snap)
	}
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).Import(ctx, snap)
	})
	if err != nil {
		return domain.Counts{}, err
	}
	return snap.Counts(), nil
}

var (
	_ domain.Source       = (*Service)(nil)
	_ domain.ImporterPort = (*Service)(nil)
)

// Package service assembles per-channel fragments into one FFI file
package service

import (
	"context"
	"io"

	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/core/checksum"
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/headers"
	"ffiassembler/internal/core/product"
	"ffiassembler/internal/core/reconcile"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/logger"
	"ffiassembler/internal/services/assembly/domain"
	calibdom "ffiassembler/internal/services/calibration/domain"
	"ffiassembler/internal/services/fragments/input"
	fragsvc "ffiassembler/internal/services/fragments/service"
)

// logFor is swapped in tests to capture skip logs
var logFor = logger.C

// Config holds assembly options
type Config struct {
	// Reference sources file metadata when missing fragments are not allowed
	Reference focalplane.Channel
}

// Service implements domain.AssemblerPort
type Service struct {
	Blobs domain.Blobs
	Calib calibdom.Source
	Cfg   Config
}

// New constructs the assembly service
func New(blobs domain.Blobs, calib calibdom.Source, cfg Config) *Service {
	if blobs == nil {
		panic("assembly.Service requires a blob store")
	}
	if calib == nil {
		panic("assembly.Service requires a calibration source")
	}
	if cfg.Reference == (focalplane.Channel{}) {
		cfg.Reference = focalplane.Reference
	}
	if !cfg.Reference.Valid() {
		panic("assembly.Service reference channel " + cfg.Reference.String() + " is not on the focal plane")
	}
	return &Service{Blobs: blobs, Calib: calib, Cfg: cfg}
}

func checkJob(job *domain.Job) error {
	if err := product.ValidateTimestamp(job.Timestamp); err != nil {
		return err
	}
	v, err := product.ParseVariant(string(job.Variant))
	if err != nil {
		return err
	}
	m, err := product.ParseMission(string(job.Mission))
	if err != nil {
		return err
	}
	job.Variant, job.Mission = v, m
	if job.DataRelease < 0 {
		return perr.WithField(perr.InvalidArgf("data release %d is negative", job.DataRelease), "data_release")
	}
	if job.Generated.IsZero() {
		return perr.Contractf("generation time must be fixed before assembly")
	}
	return nil
}

// Assemble writes the file for job once; an existing file is reused
func (s *Service) Assemble(ctx context.Context, job domain.Job) (domain.Result, error) {
	if err := checkJob(&job); err != nil {
		return domain.Result{}, err
	}
	ctx = logger.WithRun(ctx, job.RunID, job.Timestamp)
	out := domain.OutputKey(job.Timestamp, job.Variant)

	if m, err := s.Blobs.Stat(ctx, out); err == nil {
		logFor(ctx).Info().Str("key", out.String()).Msg("assembled file exists, reusing")
		return domain.Result{Key: out, Bytes: m.Size, Reused: true}, nil
	} else if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		return domain.Result{}, err
	}

	present, skipped, err := s.inventory(ctx, job)
	if err != nil {
		return domain.Result{}, err
	}
	rep, src, err := s.representative(ctx, job, present)
	if err != nil {
		return domain.Result{}, err
	}
	unit, err := s.primary(ctx, job, src, len(present))
	if err != nil {
		return domain.Result{}, perr.Annotate(err, "primary header from %s", rep)
	}

	pr, pw := io.Pipe()
	go func() { pw.CloseWithError(s.stream(ctx, pw, job, unit, present)) }()
	m, err := s.Blobs.Put(ctx, out, pr)
	_ = pr.CloseWithError(err)
	switch {
	case perr.IsCode(err, perr.ErrorCodeConflict):
		m, err = s.Blobs.Stat(ctx, out)
		if err != nil {
			return domain.Result{}, err
		}
		return domain.Result{Key: out, Bytes: m.Size, Reused: true}, nil
	case err != nil:
		return domain.Result{}, perr.Annotate(err, "assemble %s", out)
	}

	sum, _ := unit.Header.Value("CHECKSUM").AsString()
	logFor(ctx).Info().
		Str("key", out.String()).
		Int("channels", len(present)).
		Int("skipped", len(skipped)).
		Str("representative", rep.String()).
		Int64("bytes", m.Size).
		Msg("file assembled")
	return domain.Result{
		Key: out, Bytes: m.Size, Representative: rep,
		Channels: present, Skipped: skipped, Checksum: sum,
	}, nil
}

// inventory splits the focal plane into channels with and without usable fragments
// Tolerant jobs also drop channels whose fragment cannot be read
func (s *Service) inventory(ctx context.Context, job domain.Job) (present, skipped []focalplane.Channel, err error) {
	for _, ch := range focalplane.All() {
		_, key := fragsvc.Keys(job.Timestamp, job.Variant, ch)
		reason, err := s.usable(ctx, key)
		switch {
		case err == nil:
			present = append(present, ch)
			continue
		case !job.AllowMissing || ctx.Err() != nil:
			return nil, nil, perr.WithField(err, "channel")
		}
		logFor(ctx).Warn().Str("channel", ch.String()).Str("reason", reason).Str("variant", string(job.Variant)).Msg("channel skipped")
		skipped = append(skipped, ch)
	}
	if len(present) == 0 {
		return nil, nil, perr.NotFoundf("no fragments for %s %s", job.Timestamp, job.Variant)
	}
	return present, skipped, nil
}

// usable checks a fragment's sidecar and block alignment without reading it
func (s *Service) usable(ctx context.Context, key blobstore.Key) (reason string, err error) {
	m, err := s.Blobs.Stat(ctx, key)
	switch {
	case perr.IsCode(err, perr.ErrorCodeNotFound):
		return "fragment missing", perr.NotFoundf("fragment %s missing", key)
	case err != nil:
		return err.Error(), perr.Annotate(err, "fragment %s", key)
	case !fits.Aligned(int(m.Size)):
		err = perr.Integrityf("fragment %s is %d bytes, not block aligned", key, m.Size)
		return err.Error(), err
	}
	return "", nil
}

// representative picks the channel whose raw headers source the primary header
// Strict jobs use the reference channel; tolerant jobs take the first present
// channel whose input can be read
func (s *Service) representative(ctx context.Context, job domain.Job, present []focalplane.Channel) (focalplane.Channel, reconcile.Sources, error) {
	candidates := []focalplane.Channel{s.Cfg.Reference}
	if job.AllowMissing {
		candidates = present
	}
	var last error
	for _, ch := range candidates {
		inKey, _ := fragsvc.Keys(job.Timestamp, job.Variant, ch)
		b, err := s.Blobs.ReadAll(ctx, inKey)
		if err != nil {
			if !job.AllowMissing || ctx.Err() != nil {
				return focalplane.Channel{}, reconcile.Sources{}, perr.Annotate(err, "input of %s", ch)
			}
			logFor(ctx).Warn().Err(err).Str("channel", ch.String()).Msg("representative input unreadable, trying next channel")
			last = err
			continue
		}
		src, err := input.Headers(b)
		if err != nil {
			return focalplane.Channel{}, reconcile.Sources{}, perr.Annotate(err, "input of %s", ch)
		}
		return ch, src, nil
	}
	return focalplane.Channel{}, reconcile.Sources{}, perr.Annotate(last, "no readable input among %d channels", len(candidates))
}

// primary seals the header-only primary unit from the representative's raw headers
func (s *Service) primary(ctx context.Context, job domain.Job, src reconcile.Sources, extensions int) (checksum.Unit, error) {
	pointing, err := reconcile.ResolvePointing(src)
	if err != nil {
		return checksum.Unit{}, err
	}
	facts, err := reconcile.ResolveFacts(src)
	if err != nil {
		return checksum.Unit{}, err
	}
	iv, err := facts.Interval()
	if err != nil {
		return checksum.Unit{}, err
	}
	rolls, err := s.Calib.RollTimes(ctx)
	if err != nil {
		return checksum.Unit{}, perr.Annotate(err, "roll times")
	}
	period, err := rolls.Interval(iv.StartMJD, iv.EndMJD)
	if err != nil {
		return checksum.Unit{}, err
	}

	params := headers.PrimaryParams{
		Mission:     job.Mission,
		Timestamp:   job.Timestamp,
		DataRelease: job.DataRelease,
		Extensions:  extensions,
		Software:    job.Software,
		Period:      period,
		Pointing:    pointing,
		Facts:       facts,
	}
	return checksum.Seal(func(st headers.Stamp) (fits.Header, error) { return headers.Primary(params, st) }, nil, job.Generated)
}

// stream writes the primary unit then every present fragment verbatim
func (s *Service) stream(ctx context.Context, w io.Writer, job domain.Job, primary checksum.Unit, present []focalplane.Channel) error {
	if _, err := primary.WriteTo(w); err != nil {
		return err
	}
	for _, ch := range present {
		_, key := fragsvc.Keys(job.Timestamp, job.Variant, ch)
		if err := copyFragment(ctx, s.Blobs, w, key); err != nil {
			return err
		}
	}
	return nil
}

func copyFragment(ctx context.Context, blobs domain.Blobs, w io.Writer, key blobstore.Key) error {
	rc, err := blobs.Open(ctx, key)
	if err != nil {
		return perr.Annotate(err, "open fragment %s", key)
	}
	defer func() { _ = rc.Close() }()
	n, err := io.Copy(w, rc)
	if err != nil {
		return perr.Annotate(err, "copy fragment %s", key)
	}
	if !fits.Aligned(int(n)) {
		return perr.Integrityf("fragment %s is %d bytes, not block aligned", key, n)
	}
	return nil
}

package service

import (
	"context"
	"math"

	"ffiassembler/internal/core/astrometry"
	"ffiassembler/internal/core/checksum"
	"ffiassembler/internal/core/exposure"
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/headers"
	"ffiassembler/internal/core/memo"
	"ffiassembler/internal/core/opt"
	"ffiassembler/internal/core/reconcile"
	perr "ffiassembler/internal/platform/errors"
	calibdom "ffiassembler/internal/services/calibration/domain"
	"ffiassembler/internal/services/fragments/domain"
	"ffiassembler/internal/services/fragments/input"
)

// task generates one channel's fragment
// Each step requires the state the previous one left
type task struct {
	ch    focalplane.Channel
	calib calibdom.Source
	unit  string
	m     domain.Machine

	raw   input.Raw
	facts reconcile.CommonFacts
	iv    reconcile.Interval
	rg    calibdom.Range

	params  exposure.Parameters
	derived exposure.Derived
	pixels  fits.Image
	data    []byte

	gain      memo.Cell[float64]
	readNoise memo.Cell[float64]
	meanBlack memo.Cell[int32]
	wcs       memo.Cell[astrometry.WCS]
	bary      memo.Cell[opt.Value[astrometry.Barycentric]]

	draft checksum.Draft
}

func newTask(ch focalplane.Channel, raw input.Raw, calib calibdom.Source, unit string) *task {
	return &task{ch: ch, raw: raw, calib: calib, unit: unit}
}

// resolve checks channel identity and resolves the facts and interval
func (t *task) resolve() error {
	if err := t.m.Require(domain.Idle); err != nil {
		return err
	}
	if err := reconcile.VerifyChannel(t.raw.Sources, t.ch); err != nil {
		return err
	}
	facts, err := reconcile.ResolveFacts(t.raw.Sources)
	if err != nil {
		return err
	}
	iv, err := facts.Interval()
	if err != nil {
		return err
	}
	t.facts, t.iv = facts, iv
	t.rg = calibdom.Range{Channel: t.ch, StartMJD: iv.StartMJD, EndMJD: iv.EndMJD}
	return t.m.Advance(domain.MetadataResolved)
}

// compute derives exposure quantities and converts the pixels
func (t *task) compute(ctx context.Context) error {
	if err := t.m.Require(domain.MetadataResolved); err != nil {
		return err
	}
	rolls, err := t.calib.RollTimes(ctx)
	if err != nil {
		return perr.Annotate(err, "roll times")
	}
	if _, err := rolls.Interval(t.iv.StartMJD, t.iv.EndMJD); err != nil {
		return err
	}
	cm, err := t.calib.ConfigMap(ctx, t.rg)
	if err != nil {
		return perr.Annotate(err, "config map")
	}
	model, err := exposure.New(cm.Parameters)
	if err != nil {
		return err
	}
	t.params = model.Parameters()
	t.derived = model.Derive(t.iv.StartMJD, t.iv.EndMJD)
	t.pixels = model.Convert(t.raw.Image)
	t.data = fits.EncodeFloat32(t.pixels)
	return t.m.Advance(domain.PhysicsComputed)
}

// instrument looks up the per-channel models once per task
func (t *task) instrument(ctx context.Context) (headers.Instrument, astrometry.WCS, opt.Value[astrometry.Barycentric], error) {
	var (
		inst headers.Instrument
		err  error
	)
	if inst.Gain, err = t.gain.Get(func() (float64, error) { return t.calib.Gain(ctx, t.rg) }); err != nil {
		return inst, astrometry.Invalid, opt.None[astrometry.Barycentric](), perr.Annotate(err, "gain")
	}
	if inst.ReadNoise, err = t.readNoise.Get(func() (float64, error) { return t.calib.ReadNoise(ctx, t.rg) }); err != nil {
		return inst, astrometry.Invalid, opt.None[astrometry.Barycentric](), perr.Annotate(err, "read noise")
	}
	if inst.MeanBlack, err = t.meanBlack.Get(func() (int32, error) { return t.calib.MeanBlack(ctx, t.rg) }); err != nil {
		return inst, astrometry.Invalid, opt.None[astrometry.Barycentric](), perr.Annotate(err, "mean black")
	}
	w, err := t.wcs.Get(func() (astrometry.WCS, error) { return t.calib.WCS(ctx, t.rg) })
	if err != nil {
		return inst, astrometry.Invalid, opt.None[astrometry.Barycentric](), perr.Annotate(err, "wcs")
	}
	bc, err := t.bary.Get(func() (opt.Value[astrometry.Barycentric], error) { return t.calib.Barycentric(ctx, t.rg) })
	if err != nil {
		return inst, astrometry.Invalid, opt.None[astrometry.Barycentric](), perr.Annotate(err, "barycentric")
	}
	return inst, w, bc, nil
}

// render builds the image header; lookups after the first pass are cached
func (t *task) render(ctx context.Context) checksum.Render {
	return func(st headers.Stamp) (fits.Header, error) {
		inst, w, bc, err := t.instrument(ctx)
		if err != nil {
			return fits.Header{}, err
		}
		return headers.Image(headers.ImageParams{
			Channel:     t.ch,
			Width:       t.pixels.Width,
			Height:      t.pixels.Height,
			Facts:       t.facts,
			Interval:    t.iv,
			Parameters:  t.params,
			Exposure:    t.derived,
			Instrument:  inst,
			Barycentric: bc,
			WCS:         w,
			Unit:        t.unit,
		}, st)
	}
}

// writeDraft runs the first checksum pass
func (t *task) writeDraft(ctx context.Context, job domain.Job) error {
	if err := t.m.Require(domain.PhysicsComputed); err != nil {
		return err
	}
	d, err := checksum.Begin(t.render(ctx), t.data, job.Generated)
	if err != nil {
		return err
	}
	t.draft = d
	return t.m.Advance(domain.HeaderDraftWritten)
}

// finalize runs the second pass and returns the sealed fragment
func (t *task) finalize() (checksum.Unit, error) {
	if err := t.m.Require(domain.HeaderDraftWritten); err != nil {
		return checksum.Unit{}, err
	}
	u, err := t.draft.Finalize()
	if err != nil {
		return checksum.Unit{}, err
	}
	return u, t.m.Advance(domain.Finalized)
}

// run takes the task from Idle to Finalized
func (t *task) run(ctx context.Context, job domain.Job) (checksum.Unit, error) {
	if err := t.resolve(); err != nil {
		return checksum.Unit{}, err
	}
	if err := t.compute(ctx); err != nil {
		return checksum.Unit{}, err
	}
	if err := t.writeDraft(ctx, job); err != nil {
		return checksum.Unit{}, err
	}
	return t.finalize()
}

// stats summarizes the converted pixels; NaNs are counted and excluded
func (t *task) stats() (minV, maxV, mean float64, nans uint64) {
	var (
		sum float64
		n   int
	)
	minV, maxV = math.Inf(1), math.Inf(-1)
	for _, v := range t.pixels.Pix {
		x := float64(v)
		if math.IsNaN(x) {
			nans++
			continue
		}
		minV, maxV = math.Min(minV, x), math.Max(maxV, x)
		sum += x
		n++
	}
	if n == 0 {
		return 0, 0, 0, nans
	}
	return minV, maxV, sum / float64(n), nans
}

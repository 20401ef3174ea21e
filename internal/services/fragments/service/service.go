// Package service generates per-channel FFI fragments
package service

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/product"
	"ffiassembler/internal/modkit/repokit"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/logger"
	calibdom "ffiassembler/internal/services/calibration/domain"
	"ffiassembler/internal/services/fragments/domain"
	"ffiassembler/internal/services/fragments/guardrails"
	"ffiassembler/internal/services/fragments/input"
)

// logFor is swapped in tests to capture skip logs
var logFor = logger.C

// Config holds fragment generation options
type Config struct {
	Workers int // parallel channels; <=0 -> 1

	// Channel-level retry of transient failures
	MaxRetries int           // attempts per channel; <=0 -> 1
	RetryBase  time.Duration // base backoff; <=0 -> 250ms

	// Timeouts applied via guardrails
	ChannelTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	DBTimeout      time.Duration

	// Unit is the BUNIT of converted pixels
	Unit string
}

// Service implements domain.GeneratorPort
type Service struct {
	Blobs domain.Blobs
	Calib calibdom.Source
	Cfg   Config

	// optional fragment ledger
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]

	// optional statistics sink
	Stats domain.StatsSink
}

// New constructs the fragment service
func New(blobs domain.Blobs, calib calibdom.Source, cfg Config) *Service {
	if blobs == nil {
		panic("fragments.Service requires a blob store")
	}
	if calib == nil {
		panic("fragments.Service requires a calibration source")
	}
	if cfg.Unit == "" {
		cfg.Unit = "e-/s"
	}
	return &Service{Blobs: blobs, Calib: calib, Cfg: cfg}
}

// WithLedger records channel outcomes in the fragment ledger
func (s *Service) WithLedger(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo]) *Service {
	if db == nil || binder == nil {
		return s
	}
	s.DB, s.Binder = db, binder
	return s
}

// WithStats sends per-fragment statistics to sink
func (s *Service) WithStats(sink domain.StatsSink) *Service {
	s.Stats = sink
	return s
}

func (s *Service) timeouts() guardrails.Timeouts {
	return guardrails.Timeouts{
		Channel: s.Cfg.ChannelTimeout,
		Read:    s.Cfg.ReadTimeout,
		Write:   s.Cfg.WriteTimeout,
		DB:      s.Cfg.DBTimeout,
	}
}

// Keys returns the input and fragment keys of ch
func Keys(timestamp string, v product.Variant, ch focalplane.Channel) (in, frag blobstore.Key) {
	in = blobstore.Key{Timestamp: timestamp, Type: v.InputType(), Module: ch.Module, Output: ch.Output}
	frag = blobstore.Key{Timestamp: timestamp, Type: v.FragmentType(), Module: ch.Module, Output: ch.Output}
	return in, frag
}

func checkJob(job *domain.Job) error {
	if err := product.ValidateTimestamp(job.Timestamp); err != nil {
		return err
	}
	v, err := product.ParseVariant(string(job.Variant))
	if err != nil {
		return err
	}
	job.Variant = v
	if job.Generated.IsZero() {
		return perr.Contractf("generation time must be fixed before fragments are generated")
	}
	if len(job.Channels) == 0 {
		job.Channels = focalplane.All()
		return nil
	}
	for _, ch := range job.Channels {
		if !ch.Valid() {
			return perr.WithField(perr.InvalidArgf("invalid channel %s", ch), "channels")
		}
	}
	job.Channels = focalplane.Sort(job.Channels)
	return nil
}

// Generate produces every requested channel's fragment
// The first fatal channel error cancels the remaining channels
func (s *Service) Generate(ctx context.Context, job domain.Job) (domain.Result, error) {
	if err := checkJob(&job); err != nil {
		return domain.Result{}, err
	}
	ctx = logger.WithRun(ctx, job.RunID, job.Timestamp)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]domain.Outcome, len(job.Channels))
	var (
		wg       sync.WaitGroup
		fails    int64
		once     sync.Once
		firstErr error
	)
	sem := make(chan struct{}, max(s.Cfg.Workers, 1))

	for i, ch := range job.Channels {
		acquired := false
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			acquired = true
		}
		if ctx.Err() != nil {
			if acquired {
				<-sem
			}
			out[i] = domain.Outcome{Channel: ch, Status: domain.StatusFailed, Reason: "canceled"}
			continue
		}
		wg.Add(1)
		go func(i int, ch focalplane.Channel) {
			defer func() { <-sem; wg.Done() }()
			o, err := s.runChannel(ctx, job, ch)
			out[i] = o
			if err != nil {
				atomic.AddInt64(&fails, 1)
				once.Do(func() {
					firstErr = perr.Annotate(err, "channel %s", ch)
					cancel()
				})
			}
		}(i, ch)
	}
	wg.Wait()

	res := domain.Result{Outcomes: out}
	if firstErr != nil {
		logFor(ctx).Error().Err(firstErr).Int64("failed", fails).Str("variant", string(job.Variant)).Msg("fragment generation failed")
		return res, firstErr
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	logFor(ctx).Info().
		Str("variant", string(job.Variant)).
		Int("generated", res.Count(domain.StatusGenerated)).
		Int("reused", res.Count(domain.StatusReused)).
		Int("skipped", res.Count(domain.StatusSkipped)).
		Msg("fragments ready")
	return res, nil
}

// runChannel handles reuse and missing inputs around the retried generation
// With AllowMissing set, a channel that cannot be read or written in time is
// skipped; defects in its input stay fatal
func (s *Service) runChannel(ctx context.Context, job domain.Job, ch focalplane.Channel) (o domain.Outcome, retErr error) {
	o = domain.Outcome{Channel: ch, Status: domain.StatusFailed}
	inKey, fragKey := Keys(job.Timestamp, job.Variant, ch)
	tos := s.timeouts()

	m, err := s.Blobs.Stat(ctx, fragKey)
	switch {
	case err == nil:
		o.Status, o.Bytes = domain.StatusReused, m.Size
		s.ledger(ctx, job, o, nil, false)
		return o, nil
	case !perr.IsCode(err, perr.ErrorCodeNotFound):
		if skippable(ctx, job, err) {
			o = skip(ctx, job, ch, err.Error())
			s.ledger(ctx, job, o, nil, false)
			return o, nil
		}
		return o, err
	}

	ok, err := s.Blobs.Exists(ctx, inKey)
	switch {
	case err != nil && skippable(ctx, job, err):
		o = skip(ctx, job, ch, err.Error())
		s.ledger(ctx, job, o, nil, false)
		return o, nil
	case err != nil:
		return o, err
	case !ok && job.AllowMissing:
		o = skip(ctx, job, ch, "input missing")
		s.ledger(ctx, job, o, nil, false)
		return o, nil
	case !ok:
		return o, perr.WithField(perr.NotFoundf("input %s missing", inKey), "channel")
	}

	s.ledgerStart(ctx, job, ch, tos)
	defer func() {
		if retErr != nil {
			o.Reason = retErr.Error()
		}
		s.ledger(ctx, job, o, retErr, true)
	}()

	err = s.withRetry(ctx, func() error {
		r, err := s.generate(ctx, job, ch, inKey, fragKey, tos)
		if err == nil {
			o = r
		}
		return err
	})
	if err != nil && skippable(ctx, job, err) {
		return skip(ctx, job, ch, err.Error()), nil
	}
	return o, err
}

// skippable reports whether a tolerant job may drop the channel that failed with err
// Input defects and ambiguous or missing calibration abort the run, as does
// cancellation of the run itself
func skippable(ctx context.Context, job domain.Job, err error) bool {
	if !job.AllowMissing || ctx.Err() != nil {
		return false
	}
	switch perr.CodeOf(err) {
	case perr.ErrorCodeMalformed, perr.ErrorCodeMismatch, perr.ErrorCodeContract,
		perr.ErrorCodeConflict, perr.ErrorCodeNotFound,
		perr.ErrorCodeInvalidArgument, perr.ErrorCodeValidation:
		return false
	}
	return true
}

func skip(ctx context.Context, job domain.Job, ch focalplane.Channel, reason string) domain.Outcome {
	logFor(ctx).Warn().Str("channel", ch.String()).Str("reason", reason).Str("variant", string(job.Variant)).Msg("channel skipped")
	return domain.Outcome{Channel: ch, Status: domain.StatusSkipped, Reason: reason}
}

// generate runs one attempt for ch
func (s *Service) generate(ctx context.Context, job domain.Job, ch focalplane.Channel, inKey, fragKey blobstore.Key, tos guardrails.Timeouts) (domain.Outcome, error) {
	chCtx, chCancel := tos.Bound(ctx, guardrails.StageChannel)
	defer chCancel()

	readCtx, readCancel := tos.Bound(chCtx, guardrails.StageRead)
	b, err := s.Blobs.ReadAll(readCtx, inKey)
	readCancel()
	if err != nil {
		return domain.Outcome{}, err
	}
	raw, err := input.Decode(b)
	if err != nil {
		return domain.Outcome{}, err
	}

	t := newTask(ch, raw, s.Calib, s.Cfg.Unit)
	u, err := t.run(chCtx, job)
	if err != nil {
		return domain.Outcome{}, err
	}
	sum, _ := u.Header.Value("CHECKSUM").AsString()
	dsum, _ := u.Header.Value("DATASUM").AsString()

	writeCtx, writeCancel := tos.Bound(chCtx, guardrails.StageWrite)
	m, err := s.Blobs.Put(writeCtx, fragKey, io.MultiReader(bytes.NewReader(u.HeaderBytes), bytes.NewReader(u.Data)))
	writeCancel()
	switch {
	case perr.IsCode(err, perr.ErrorCodeConflict):
		// another writer finalized the same fragment first
		return domain.Outcome{Channel: ch, Status: domain.StatusReused, Bytes: int64(u.Len())}, nil
	case err != nil:
		return domain.Outcome{}, err
	}

	if s.Stats != nil {
		lo, hi, mean, nans := t.stats()
		st := domain.Stats{
			RunID: job.RunID, Timestamp: job.Timestamp, Variant: job.Variant, Channel: ch,
			Width: t.pixels.Width, Height: t.pixels.Height,
			Min: lo, Max: hi, Mean: mean, NaNCount: nans,
			DataSum: dsum, Checksum: sum, Generated: job.Generated,
		}
		if err := s.Stats.Record(chCtx, st); err != nil {
			logFor(ctx).Warn().Err(err).Str("channel", ch.String()).Msg("fragment stats dropped")
		}
	}
	return domain.Outcome{Channel: ch, Status: domain.StatusGenerated, Checksum: sum, DataSum: dsum, Bytes: m.Size}, nil
}

// withRetry retries transient failures with jittered exponential backoff
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	attempts := max(s.Cfg.MaxRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	var last error
	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		last = err
		if !perr.Retryable(err) || ctx.Err() != nil {
			return last
		}
		if i == attempts-1 {
			break
		}
		d := min(base<<i, 30*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
		if se := sleepCtx(ctx, j); se != nil {
			return last
		}
	}
	return last
}

func (s *Service) ledgerStart(ctx context.Context, job domain.Job, ch focalplane.Channel, tos guardrails.Timeouts) {
	if s.DB == nil {
		return
	}
	dbCtx, cancel := tos.Bound(ctx, guardrails.StageLedger)
	defer cancel()
	rec := domain.Record{
		Timestamp: job.Timestamp, Variant: job.Variant, Channel: ch,
		RunID: job.RunID, StartedAt: time.Now().UTC(),
	}
	if err := s.DB.Tx(dbCtx, func(q repokit.Queryer) error { return s.Binder.Bind(q).StartFragment(dbCtx, rec) }); err != nil {
		logFor(ctx).Warn().Err(err).Str("channel", ch.String()).Msg("fragment ledger start failed")
	}
}

// ledger records the outcome; best effort and detached from cancellation
// Channels that never started get their row opened first
func (s *Service) ledger(ctx context.Context, job domain.Job, o domain.Outcome, cause error, started bool) {
	if s.DB == nil {
		return
	}
	now := time.Now().UTC()
	rec := domain.Record{
		Timestamp: job.Timestamp, Variant: job.Variant, Channel: o.Channel, RunID: job.RunID,
		Status: o.Status, Checksum: o.Checksum, DataSum: o.DataSum, Bytes: o.Bytes,
		StartedAt: now, FinishedAt: &now,
	}
	if cause != nil {
		rec.Status, rec.Error = domain.StatusFailed, cause.Error()
	} else if o.Reason != "" {
		rec.Error = o.Reason
	}
	dbCtx, cancel := s.timeouts().Bound(context.WithoutCancel(ctx), guardrails.StageLedger)
	defer cancel()
	err := s.DB.Tx(dbCtx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		if !started {
			if err := repo.StartFragment(dbCtx, rec); err != nil {
				return err
			}
		}
		return repo.FinishFragment(dbCtx, rec)
	})
	if err != nil {
		logFor(ctx).Warn().Err(err).Str("channel", o.Channel.String()).Msg("fragment ledger finish failed")
	}
}

// Fragments lists the ledger rows of a timestamp and variant
func (s *Service) Fragments(ctx context.Context, timestamp string, v product.Variant) ([]domain.Record, error) {
	if s.DB == nil {
		return nil, perr.Unavailablef("fragment ledger not configured")
	}
	return s.Binder.Bind(s.DB).Fragments(ctx, timestamp, v)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

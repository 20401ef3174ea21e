// Package service runs the FFI task: fragments then assembly for each variant
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/headers"
	"ffiassembler/internal/core/product"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/logger"
	"ffiassembler/internal/platform/validate"
	asmdom "ffiassembler/internal/services/assembly/domain"
	fragdom "ffiassembler/internal/services/fragments/domain"
	"ffiassembler/internal/services/pipeline/domain"
	"ffiassembler/internal/services/pipeline/guardrails"
)

// seams swapped in tests
var (
	logFor = logger.C
	newID  = uuid.NewString
)

// Config holds run options
type Config struct {
	Software headers.Software
}

// Service implements domain.RunnerPort
type Service struct {
	Fragments fragdom.GeneratorPort
	Assembler asmdom.AssemblerPort
	Runs      domain.StorageRepo
	Cfg       Config

	lease guardrails.Lease
	now   func() time.Time

	bg    sync.WaitGroup
	mu    sync.Mutex
	files map[string][]domain.File
}

// New constructs the pipeline service
func New(frags fragdom.GeneratorPort, asm asmdom.AssemblerPort, runs domain.StorageRepo, cfg Config) *Service {
	if frags == nil || asm == nil || runs == nil {
		panic("pipeline.Service requires fragments, assembler and a run ledger")
	}
	s := &Service{
		Fragments: frags,
		Assembler: asm,
		Runs:      runs,
		Cfg:       cfg,
		now:       time.Now,
		files:     map[string][]domain.File{},
	}
	s.lease = guardrails.MakeLease(runs, func() time.Time { return s.now() })
	return s
}

// WithClock replaces the clock used for run and generation times
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run executes req and returns once every variant is assembled
func (s *Service) Run(ctx context.Context, req domain.Request) (domain.Run, error) {
	run, err := s.open(ctx, req)
	if err != nil {
		return domain.Run{}, err
	}
	return s.execute(ctx, run)
}

// Submit records the run and executes it detached from ctx
func (s *Service) Submit(ctx context.Context, req domain.Request) (domain.Run, error) {
	run, err := s.open(ctx, req)
	if err != nil {
		return domain.Run{}, err
	}
	bg := context.WithoutCancel(ctx)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		_, _ = s.execute(bg, run)
	}()
	return run, nil
}

// Wait blocks until every submitted run has finished
func (s *Service) Wait() { s.bg.Wait() }

// Get returns a recorded run with the files this process assembled for it
func (s *Service) Get(ctx context.Context, id string) (domain.Run, error) {
	run, err := s.Runs.Run(ctx, id)
	if err != nil {
		return domain.Run{}, err
	}
	s.mu.Lock()
	run.Files = s.files[id]
	s.mu.Unlock()
	return run, nil
}

// open validates req and writes the running row
func (s *Service) open(ctx context.Context, req domain.Request) (domain.Run, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Run{}, err
	}
	mission, err := product.ParseMission(req.Mission)
	if err != nil {
		return domain.Run{}, err
	}
	run := domain.Run{
		ID:           newID(),
		Timestamp:    req.Timestamp,
		Mission:      mission,
		DataRelease:  req.DataRelease,
		AllowMissing: req.AllowMissing,
		Status:       domain.StatusRunning,
		CreatedAt:    s.now().UTC(),
	}
	seen := map[product.Variant]bool{}
	for _, raw := range req.Variants {
		v, err := product.ParseVariant(raw)
		if err != nil {
			return domain.Run{}, err
		}
		if !seen[v] {
			seen[v] = true
			run.Variants = append(run.Variants, v)
		}
	}
	if req.Channels != "" {
		if run.Channels, err = focalplane.ParseList(req.Channels); err != nil {
			return domain.Run{}, perr.WithField(err, "channels")
		}
		// a strict file needs every channel, which a subset run cannot produce
		if !run.AllowMissing {
			return domain.Run{}, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "channels subset requires allow_missing"), "channels")
		}
	}
	if err := s.Runs.CreateRun(ctx, run); err != nil {
		return domain.Run{}, perr.Annotate(err, "record run")
	}
	return run, nil
}

// execute fans out over variants; the generation time is fixed once for the whole run
func (s *Service) execute(ctx context.Context, run domain.Run) (domain.Run, error) {
	ctx = logger.WithRun(ctx, run.ID, run.Timestamp)
	generated := s.now().UTC().Truncate(time.Second)
	logFor(ctx).Info().Int("variants", len(run.Variants)).Bool("allow_missing", run.AllowMissing).Msg("run started")

	files := make([]domain.File, len(run.Variants))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range run.Variants {
		g.Go(func() error {
			f, err := s.variant(gctx, run, v, generated)
			files[i] = f
			return err
		})
	}
	err := g.Wait()

	finished := s.now().UTC()
	run.FinishedAt, run.Files, run.Status = &finished, files, domain.StatusSucceeded
	if err != nil {
		run.Status, run.Error = domain.StatusFailed, err.Error()
		err = perr.Wrapf(err, perr.CodeOf(err), "ffi run %s for %s", run.ID, run.Timestamp)
	}
	if ferr := s.Runs.FinishRun(context.WithoutCancel(ctx), run); ferr != nil {
		logFor(ctx).Error().Err(ferr).Msg("run ledger update failed")
		if err == nil {
			err = ferr
		}
	}
	s.mu.Lock()
	s.files[run.ID] = files
	s.mu.Unlock()

	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.ErrorLevel
	}
	logFor(ctx).WithLevel(level).Err(err).
		Str("status", string(run.Status)).
		Dur("took", finished.Sub(run.CreatedAt)).
		Msg("run finished")
	return run, err
}

// variant generates fragments then assembles one variant under its lease
func (s *Service) variant(ctx context.Context, run domain.Run, v product.Variant, generated time.Time) (domain.File, error) {
	var file domain.File
	err := s.lease(ctx, run.Timestamp, v, run.ID, func(ctx context.Context) error {
		frags, err := s.Fragments.Generate(ctx, fragdom.Job{
			RunID:        run.ID,
			Timestamp:    run.Timestamp,
			Variant:      v,
			Channels:     run.Channels,
			AllowMissing: run.AllowMissing,
			Generated:    generated,
		})
		if err != nil {
			return perr.Annotate(err, "%s fragments", v)
		}
		res, err := s.Assembler.Assemble(ctx, asmdom.Job{
			RunID:        run.ID,
			Timestamp:    run.Timestamp,
			Mission:      run.Mission,
			Variant:      v,
			DataRelease:  run.DataRelease,
			AllowMissing: run.AllowMissing,
			Generated:    generated,
			Software:     s.Cfg.Software,
		})
		if err != nil {
			return perr.Annotate(err, "%s assembly", v)
		}
		file = domain.File{
			Variant:   v,
			Key:       res.Key.String(),
			Bytes:     res.Bytes,
			Checksum:  res.Checksum,
			Generated: frags.Count(fragdom.StatusGenerated),
			Reused:    frags.Count(fragdom.StatusReused),
			Skipped:   res.Skipped,
			FileReuse: res.Reused,
		}
		return nil
	})
	return file, err
}

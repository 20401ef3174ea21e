// Package module wires the fragment, assembly and run services into the task surface
package module

import (
	"ffiassembler/internal/core/headers"
	"ffiassembler/internal/core/version"
	"ffiassembler/internal/modkit"
	"ffiassembler/internal/modkit/repokit"
	phttp "ffiassembler/internal/platform/net/http"
	asmdom "ffiassembler/internal/services/assembly/domain"
	asmmod "ffiassembler/internal/services/assembly/module"
	calibdom "ffiassembler/internal/services/calibration/domain"
	fragdom "ffiassembler/internal/services/fragments/domain"
	fragmod "ffiassembler/internal/services/fragments/module"
	"ffiassembler/internal/services/pipeline/domain"
	"ffiassembler/internal/services/pipeline/repo"
	"ffiassembler/internal/services/pipeline/service"
)

// Ports defines the pipeline module ports
type Ports struct {
	Runner    domain.RunnerPort
	Generator fragdom.GeneratorPort
	Assembler asmdom.AssemblerPort
	Service   *service.Service
}

// Module implements the pipeline module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the fragments and assembly modules and the run service over them
// Runs are recorded in SQL when deps carry a store and in process memory otherwise
func New(deps modkit.Deps, calib calibdom.Source) (*Module, error) {
	frags, err := fragmod.New(deps, calib)
	if err != nil {
		return nil, err
	}
	asm, err := asmmod.New(deps, calib, frags.Options().ReferenceChannel)
	if err != nil {
		return nil, err
	}

	opts := FromConfig(deps.Cfg)
	var runs domain.StorageRepo = repo.NewMemory()
	if deps.HasSQL() {
		runs = repokit.MustBind(repo.NewSQL(), deps.SQL)
	}
	svc := service.New(frags.Service(), asm.Assembler(), runs, service.Config{
		Software: headers.Software{
			Creator:     version.Creator(),
			ProcVer:     version.Info().Version,
			FileVersion: opts.FileVersion,
		},
	})

	deps.Log.Debug().Strs("variants", opts.Variants).Str("mission", opts.Mission).Bool("sql_ledger", deps.HasSQL()).Msg("pipeline ready")
	return &Module{deps: deps, opts: opts, ports: Ports{
		Runner:    svc,
		Generator: frags.Service(),
		Assembler: asm.Assembler(),
		Service:   svc,
	}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "pipeline" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Runner returns the run port
func (m *Module) Runner() domain.RunnerPort { return m.ports.Runner }

// Generator returns the fragment port
func (m *Module) Generator() fragdom.GeneratorPort { return m.ports.Generator }

// Assembler returns the assembly port
func (m *Module) Assembler() asmdom.AssemblerPort { return m.ports.Assembler }

// Service returns the run service
func (m *Module) Service() *service.Service { return m.ports.Service }

// Options returns the run defaults
func (m *Module) Options() Options { return m.opts }

// MountRoutes is a no-op; the api module owns the run routes
func (m *Module) MountRoutes(phttp.Router) {}

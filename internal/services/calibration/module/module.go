// Package module wires the calibration service and exposes its ports
package module

import (
	"ffiassembler/internal/modkit"
	perr "ffiassembler/internal/platform/errors"
	phttp "ffiassembler/internal/platform/net/http"
	"ffiassembler/internal/services/calibration/domain"
	"ffiassembler/internal/services/calibration/repo"
	"ffiassembler/internal/services/calibration/service"
)

// Ports defines the calibration module ports
type Ports struct {
	Source   domain.Source
	Importer domain.ImporterPort
}

// Module implements the calibration module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the calibration module from deps.Cfg
// The sql source needs deps.SQL; the yaml source loads the snapshot once
func New(deps modkit.Deps, overrides Options) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if overrides.Source != "" {
		opts.Source = overrides.Source
	}
	if overrides.Snapshot != "" {
		opts.Snapshot = overrides.Snapshot
	}

	var svc *service.Service
	switch opts.Source {
	case SourceYAML:
		if opts.Snapshot == "" {
			return nil, perr.WithField(perr.InvalidArgf("yaml calibration source needs a snapshot path"), "FFI_CALIBRATION_SNAPSHOT")
		}
		snap, err := repo.LoadSnapshot(opts.Snapshot)
		if err != nil {
			return nil, err
		}
		svc = service.New(nil, repo.NewMemory(snap))
	default:
		if !deps.HasSQL() {
			return nil, perr.Unavailablef("sql calibration source needs a store")
		}
		svc = service.New(deps.SQL, repo.NewSQL())
	}

	deps.Log.Debug().Str("source", opts.Source).Msg("calibration source ready")
	return &Module{deps: deps, ports: Ports{Source: svc, Importer: svc}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "calibration" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Source returns the lookup port
func (m *Module) Source() domain.Source { return m.ports.Source }

// Importer returns the snapshot import port
func (m *Module) Importer() domain.ImporterPort { return m.ports.Importer }

// MountRoutes is a no-op; calibration has no routes
func (m *Module) MountRoutes(phttp.Router) {}

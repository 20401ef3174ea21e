// Package module wires the fragment service and exposes its ports
package module

import (
	"ffiassembler/internal/adapters/clickhouse"
	"ffiassembler/internal/modkit"
	perr "ffiassembler/internal/platform/errors"
	phttp "ffiassembler/internal/platform/net/http"
	calibdom "ffiassembler/internal/services/calibration/domain"
	"ffiassembler/internal/services/fragments/domain"
	"ffiassembler/internal/services/fragments/repo"
	"ffiassembler/internal/services/fragments/service"
)

// Ports defines the fragment module ports
type Ports struct {
	Generator domain.GeneratorPort
	Service   *service.Service
}

// Module implements the fragments module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the fragments module over a calibration source
// The ledger is wired when deps carry a SQL store, statistics when they carry ClickHouse
func New(deps modkit.Deps, calib calibdom.Source) (*Module, error) {
	opts, err := FromConfig(deps.Cfg)
	if err != nil {
		return nil, err
	}
	if deps.Blobs == nil {
		return nil, perr.Unavailablef("fragments need a blob store")
	}

	svc := service.New(deps.Blobs, calib, service.Config{
		Workers:        opts.Workers,
		MaxRetries:     opts.MaxRetries,
		RetryBase:      opts.RetryBase,
		ChannelTimeout: opts.ChannelTimeout,
		ReadTimeout:    opts.ReadTimeout,
		WriteTimeout:   opts.WriteTimeout,
		DBTimeout:      opts.DBTimeout,
	})
	if deps.HasSQL() {
		svc.WithLedger(deps.SQL, repo.NewSQL())
	}
	if deps.CH != nil && opts.Stats {
		svc.WithStats(clickhouse.NewStatsSink(deps.CH))
	}

	deps.Log.Debug().Int("workers", opts.Workers).Str("reference", opts.ReferenceChannel.String()).Msg("fragments ready")
	return &Module{deps: deps, opts: opts, ports: Ports{Generator: svc, Service: svc}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "fragments" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Service returns the fragment service
func (m *Module) Service() *service.Service { return m.ports.Service }

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// MountRoutes is a no-op; fragments have no routes
func (m *Module) MountRoutes(phttp.Router) {}

// Package module wires the assembly service and exposes its ports
package module

import (
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/modkit"
	perr "ffiassembler/internal/platform/errors"
	phttp "ffiassembler/internal/platform/net/http"
	"ffiassembler/internal/services/assembly/domain"
	"ffiassembler/internal/services/assembly/service"
	calibdom "ffiassembler/internal/services/calibration/domain"
)

// Ports defines the assembly module ports
type Ports struct {
	Assembler domain.AssemblerPort
}

// Module implements the assembly module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the assembly module; reference sources strict-mode metadata
func New(deps modkit.Deps, calib calibdom.Source, reference focalplane.Channel) (*Module, error) {
	if deps.Blobs == nil {
		return nil, perr.Unavailablef("assembly needs a blob store")
	}
	if !reference.Valid() {
		return nil, perr.WithField(perr.InvalidArgf("reference channel %s is not on the focal plane", reference), "FFI_FRAGMENTS_REFERENCE_CHANNEL")
	}
	svc := service.New(deps.Blobs, calib, service.Config{Reference: reference})
	return &Module{deps: deps, ports: Ports{Assembler: svc}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "assembly" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Assembler returns the assembler port
func (m *Module) Assembler() domain.AssemblerPort { return m.ports.Assembler }

// MountRoutes is a no-op; assembly has no routes
func (m *Module) MountRoutes(phttp.Router) {}

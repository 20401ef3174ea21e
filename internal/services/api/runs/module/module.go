// Package module wires the run endpoints into the API
package module

import (
	"ffiassembler/internal/modkit"
	phttp "ffiassembler/internal/platform/net/http"
	runshttp "ffiassembler/internal/services/api/runs/http"
	"ffiassembler/internal/services/pipeline/domain"
)

// Ports defines the runs module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements modkit.Module
type Module struct {
	spec modkit.Spec
}

// New constructs the runs module over the pipeline runner
func New(runner domain.RunnerPort, opts ...modkit.Option) *Module {
	if runner == nil {
		panic("runs module requires a runner")
	}
	spec := modkit.Build(append([]modkit.Option{
		modkit.WithName("runs"),
		modkit.WithPorts(Ports{Runner: runner}),
		modkit.WithRegister(func(r phttp.Router) { runshttp.Register(r, runner) }),
	}, opts...)...)
	return &Module{spec: spec}
}

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r phttp.Router) { m.spec.Mount(r) }

// Name implements modkit.Module
func (m *Module) Name() string { return m.spec.Name }

// Ports implements modkit.Module
func (m *Module) Ports() any { return m.spec.Ports }

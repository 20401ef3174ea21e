// Package module wires the file endpoints into the API
package module

import (
	"ffiassembler/internal/modkit"
	phttp "ffiassembler/internal/platform/net/http"
	fileshttp "ffiassembler/internal/services/api/files/http"
	"ffiassembler/internal/services/api/files/service"
)

// Ports defines the files module ports
type Ports struct {
	Files *service.Service
}

// Module implements modkit.Module
type Module struct {
	spec modkit.Spec
}

// New constructs the files module over deps.Blobs
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	if deps.Blobs == nil {
		panic("files module requires a blob store")
	}
	svc := service.New(deps.Blobs)
	spec := modkit.Build(append([]modkit.Option{
		modkit.WithName("files"),
		modkit.WithPorts(Ports{Files: svc}),
		modkit.WithRegister(func(r phttp.Router) { fileshttp.Register(r, svc) }),
	}, opts...)...)
	return &Module{spec: spec}
}

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r phttp.Router) { m.spec.Mount(r) }

// Name implements modkit.Module
func (m *Module) Name() string { return m.spec.Name }

// Ports implements modkit.Module
func (m *Module) Ports() any { return m.spec.Ports }

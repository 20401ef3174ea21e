// Package module wires the meta endpoints into the API root
package module

import (
	"context"
	"os"
	"time"

	"ffiassembler/internal/modkit"
	phttp "ffiassembler/internal/platform/net/http"
	metahttp "ffiassembler/internal/services/api/meta/http"
)

// Module implements modkit.Module
type Module struct {
	spec modkit.Spec
}

// New probes the relational store, ClickHouse and the blob root when wired;
// a backend that cannot be pinged is reported as skipped
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	probes := map[string]metahttp.Probe{"sql": nil, "ch": nil, "blobs": nil}
	if p, ok := deps.SQL.(metahttp.Probe); ok {
		probes["sql"] = p
	}
	if p, ok := deps.CH.(metahttp.Probe); ok {
		probes["ch"] = p
	}
	if deps.Blobs != nil {
		root := deps.Blobs.Root()
		probes["blobs"] = metahttp.ProbeFunc(func(context.Context) error {
			_, err := os.Stat(root)
			return err
		})
	}
	d := metahttp.Deps{
		Service:   "ffi-api",
		StartedAt: time.Now(),
		Probes:    probes,
		Timeout:   deps.Cfg.Prefix("FFI_API_").MayDuration("READY_TIMEOUT", 2*time.Second),
	}
	spec := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithRegister(func(r phttp.Router) { metahttp.Register(r, d) }),
	}, opts...)...)
	return &Module{spec: spec}
}

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r phttp.Router) { m.spec.Mount(r) }

// Name implements modkit.Module
func (m *Module) Name() string { return m.spec.Name }

// Ports implements modkit.Module
func (m *Module) Ports() any { return m.spec.Ports }

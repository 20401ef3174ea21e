// Package api provides the HTTP API for the application
package api

import (
	_ "embed"
	"time"

	"ffiassembler/internal/modkit"
	"ffiassembler/internal/modkit/module"
	phttp "ffiassembler/internal/platform/net/http"
	"ffiassembler/internal/platform/net/middleware"
	filesmod "ffiassembler/internal/services/api/files/module"
	metamod "ffiassembler/internal/services/api/meta/module"
	runsmod "ffiassembler/internal/services/api/runs/module"
	"ffiassembler/internal/services/pipeline/domain"
)

//go:embed openapi.json
var openapi []byte

// Options are the API options
type Options struct {
	Deps           modkit.Deps
	Runner         domain.RunnerPort
	EnableDocs     bool
	EnableProfiler bool
}

// FromConfig fills the toggles from FFI_API_DOCS and FFI_API_PROFILER in deps.Cfg
func FromConfig(deps modkit.Deps, runner domain.RunnerPort) Options {
	c := deps.Cfg.Prefix("FFI_API_")
	return Options{
		Deps:           deps,
		Runner:         runner,
		EnableDocs:     c.MayBool("DOCS", true),
		EnableProfiler: c.MayBool("PROFILER", false),
	}
}

// Mount mounts the API onto r; r must not have routes yet
func Mount(r phttp.Router, opt Options) {
	c := opt.Deps.Cfg.Prefix("FFI_API_")
	r.Use(middleware.Defaults(middleware.Options{
		CORSOrigins: c.MayCSV("CORS_ORIGINS", nil),
		Slow:        c.MayDuration("SLOW", 2*time.Second),
	})...)

	meta := metamod.New(opt.Deps)
	mods := []module.Module{
		runsmod.New(opt.Runner, modkit.WithMiddlewares(middleware.Timeout(c.MayDuration("TIMEOUT", 30*time.Second)))),
		filesmod.New(opt.Deps),
	}

	module.Register(meta.Name(), meta.Ports())
	meta.MountRoutes(r)
	phttp.MountDocs(r, opt.EnableDocs, openapi)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	r.Route("/v1", func(v1 phttp.Router) {
		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(v1)
		}
	})
	opt.Deps.Log.Debug().Strs("modules", module.Names()).Bool("docs", opt.EnableDocs).Msg("api mounted")
}

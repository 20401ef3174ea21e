// @title         FFI Assembler API
// @version       0.1.0
// @description   Submit assembly runs and download full-frame images

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/modkit"
	"ffiassembler/internal/modkit/repokit"
	"ffiassembler/internal/platform/config"
	"ffiassembler/internal/platform/logger"
	phttp "ffiassembler/internal/platform/net/http"
	"ffiassembler/internal/platform/store"
	"ffiassembler/internal/services/api"
	calibmod "ffiassembler/internal/services/calibration/module"
	pipemod "ffiassembler/internal/services/pipeline/module"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	logger.Init(logger.FromEnv())
	l := logger.Get()

	// relational store (FFI_STORE_*) with optional clickhouse stats
	st, err := store.Open(ctx, store.FromConfig(root), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st)

	bc, err := blobstore.FromConfig(root)
	if err != nil {
		l.Panic().Err(err).Msg("blob config")
	}
	blobs, err := blobstore.OpenConfig(bc)
	if err != nil {
		l.Panic().Err(err).Msg("blobstore.Open failed")
	}

	deps := modkit.Deps{Log: *l, Cfg: root, SQL: st.SQL, CH: st.CH, Blobs: blobs}
	calib, err := calibmod.New(deps, calibmod.Options{})
	if err != nil {
		l.Panic().Err(err).Msg("calibration module")
	}
	pipeline, err := pipemod.New(deps, calib.Source())
	if err != nil {
		l.Panic().Err(err).Msg("pipeline module")
	}

	// http server (reads FFI_API_PORT / FFI_API_ADDR)
	srv := phttp.NewServer(phttp.ServerConfigFrom(root))
	api.Mount(srv.Router(), api.FromConfig(deps, pipeline.Runner()))

	if err := srv.Run(ctx); err != nil {
		l.Error().Err(err).Msg("http server stopped")
	}
	// background runs finish before the store closes
	pipeline.Service().Wait()
}

// Package modkit wires feature modules: the shared deps they are built from
// and the spec that mounts their routes
package modkit

import (
	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/modkit/module"
	"ffiassembler/internal/modkit/repokit"
	"ffiassembler/internal/platform/config"
	"ffiassembler/internal/platform/logger"
	"ffiassembler/internal/platform/store"
)

// Module is the surface a feature module exposes to the API root
type Module = module.Module

// Deps are the shared handles a module may draw on; any of them may be nil
// except Log and Cfg
type Deps struct {
	Log   logger.Logger
	Cfg   config.Conf
	SQL   repokit.TxRunner
	CH    store.Clickhouse
	Blobs *blobstore.FS
}

// HasSQL reports whether a relational backend is wired
func (d Deps) HasSQL() bool { return d.SQL != nil }

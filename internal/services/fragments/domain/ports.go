package domain

import (
	"context"
	"io"

	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/core/product"
)

// GeneratorPort is the public port other modules call
type GeneratorPort interface {
	Generate(ctx context.Context, job Job) (Result, error)
}

// Blobs is the subset of the blob store fragments need
type Blobs interface {
	Exists(ctx context.Context, k blobstore.Key) (bool, error)
	Stat(ctx context.Context, k blobstore.Key) (blobstore.Meta, error)
	ReadAll(ctx context.Context, k blobstore.Key) ([]byte, error)
	Put(ctx context.Context, k blobstore.Key, r io.Reader) (blobstore.Meta, error)
}

// StorageRepo is the fragment ledger
type StorageRepo interface {
	// StartFragment marks a channel running for the run (idempotent)
	StartFragment(ctx context.Context, rec Record) error

	// FinishFragment records the outcome of a channel
	FinishFragment(ctx context.Context, rec Record) error

	// Fragments lists the ledger rows of one timestamp and variant in channel order
	Fragments(ctx context.Context, timestamp string, v product.Variant) ([]Record, error)
}

// StatsSink receives per-fragment pixel statistics
type StatsSink interface {
	Record(ctx context.Context, s Stats) error
}

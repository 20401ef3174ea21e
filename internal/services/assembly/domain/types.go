// Package domain holds the assembly types and ports
package domain

import (
	"context"
	"io"
	"time"

	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/headers"
	"ffiassembler/internal/core/product"
)

// Job assembles one variant's file from its fragments
type Job struct {
	RunID       string
	Timestamp   string
	Mission     product.Mission
	Variant     product.Variant
	DataRelease int
	// AllowMissing skips absent fragments instead of failing
	AllowMissing bool
	// Generated is the CHECKSUM comment time of the primary header
	Generated time.Time
	Software  headers.Software
}

// Result describes an assembled file
type Result struct {
	Key            blobstore.Key        `json:"key"`
	Bytes          int64                `json:"bytes"`
	Representative focalplane.Channel   `json:"representative"`
	Channels       []focalplane.Channel `json:"channels"`
	Skipped        []focalplane.Channel `json:"skipped,omitempty"`
	Checksum       string               `json:"checksum,omitempty"`
	Reused         bool                 `json:"reused"`
}

// AssemblerPort is the public port other modules call
type AssemblerPort interface {
	Assemble(ctx context.Context, job Job) (Result, error)
}

// Blobs is the subset of the blob store assembly needs
type Blobs interface {
	Stat(ctx context.Context, k blobstore.Key) (blobstore.Meta, error)
	ReadAll(ctx context.Context, k blobstore.Key) ([]byte, error)
	Open(ctx context.Context, k blobstore.Key) (io.ReadCloser, error)
	Put(ctx context.Context, k blobstore.Key, r io.Reader) (blobstore.Meta, error)
}

// OutputKey addresses the assembled file of a timestamp and variant
func OutputKey(timestamp string, v product.Variant) blobstore.Key {
	return blobstore.Key{Timestamp: timestamp, Type: v.FileType()}
}

// Package domain holds the pipeline run types and ports
package domain

import (
	"context"
	"time"

	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/product"
)

// Status is the lifecycle of a run
type Status string

// Run statuses
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Request is what a caller submits for one dataset timestamp
type Request struct {
	Timestamp    string   `json:"timestamp" validate:"required,ffi_timestamp"`
	Mission      string   `json:"mission" validate:"required,ffi_mission"`
	Variants     []string `json:"variants" validate:"required,min=1,dive,ffi_variant"`
	DataRelease  int      `json:"data_release" validate:"min=0"`
	AllowMissing bool     `json:"allow_missing"`
	// Channels restricts fragment generation to a subset and requires AllowMissing
	Channels string `json:"channels,omitempty" validate:"ffi_channels"`
}

// Run is one execution of the task surface
type Run struct {
	ID           string            `json:"id"`
	Timestamp    string            `json:"timestamp"`
	Mission      product.Mission   `json:"mission"`
	Variants     []product.Variant `json:"variants"`
	DataRelease  int               `json:"data_release"`
	AllowMissing bool              `json:"allow_missing"`
	Status       Status            `json:"status"`
	Error        string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
	// Files is known only to the process that executed the run
	Files []File `json:"files,omitempty"`

	Channels []focalplane.Channel `json:"-"`
}

// File summarizes one assembled variant
type File struct {
	Variant   product.Variant      `json:"variant"`
	Key       string               `json:"key"`
	Bytes     int64                `json:"bytes"`
	Checksum  string               `json:"checksum,omitempty"`
	Generated int                  `json:"fragments_generated"`
	Reused    int                  `json:"fragments_reused"`
	Skipped   []focalplane.Channel `json:"skipped,omitempty"`
	FileReuse bool                 `json:"file_reused"`
}

// RunnerPort is the public port the CLI and API call
type RunnerPort interface {
	// Run executes a request and returns once every variant is assembled
	Run(ctx context.Context, req Request) (Run, error)

	// Submit records a run and executes it in the background
	Submit(ctx context.Context, req Request) (Run, error)

	// Get returns a recorded run
	Get(ctx context.Context, id string) (Run, error)
}

// StorageRepo is the run ledger plus the per-dataset lease
type StorageRepo interface {
	CreateRun(ctx context.Context, r Run) error
	FinishRun(ctx context.Context, r Run) error
	Run(ctx context.Context, id string) (Run, error)
	Runs(ctx context.Context, timestamp string) ([]Run, error)

	// Claim takes the lease on timestamp and variant for runID; false means another run holds it
	Claim(ctx context.Context, timestamp string, v product.Variant, runID string, at time.Time) (bool, error)
	Release(ctx context.Context, timestamp string, v product.Variant, runID string) error
}

package domain

import (
	"context"

	"ffiassembler/internal/core/astrometry"
	"ffiassembler/internal/core/opt"
	"ffiassembler/internal/core/rolltime"
)

// Source answers calibration lookups for one observation window
// Required records return NotFound when missing and Conflict when ambiguous
type Source interface {
	ConfigMap(ctx context.Context, rg Range) (ConfigMap, error)
	Gain(ctx context.Context, rg Range) (float64, error)
	ReadNoise(ctx context.Context, rg Range) (float64, error)
	MeanBlack(ctx context.Context, rg Range) (int32, error)
	RollTimes(ctx context.Context) (rolltime.Model, error)

	// WCS returns astrometry.Invalid when no model covers rg
	WCS(ctx context.Context, rg Range) (astrometry.WCS, error)

	// Barycentric is absent when no model covers rg
	Barycentric(ctx context.Context, rg Range) (opt.Value[astrometry.Barycentric], error)
}

// StorageRepo is the relational calibration store
type StorageRepo interface {
	ConfigMaps(ctx context.Context, rg Range) ([]ConfigMap, error)
	Gains(ctx context.Context, rg Range) ([]float64, error)
	ReadNoise(ctx context.Context, rg Range) ([]float64, error)
	MeanBlack(ctx context.Context, rg Range) ([]int32, error)
	RollTimes(ctx context.Context) ([]rolltime.Entry, error)
	WCS(ctx context.Context, rg Range) ([]astrometry.WCS, error)
	Barycentric(ctx context.Context, rg Range) ([]astrometry.Barycentric, error)

	// Import appends every record of s
	Import(ctx context.Context, s Snapshot) error
}

// ImporterPort loads a snapshot into the relational store
type ImporterPort interface {
	Import(ctx context.Context, s Snapshot) (Counts, error)
}

// Package guardrails keeps two runs from writing the same dataset at once
package guardrails

import (
	"context"
	"errors"
	"time"

	"ffiassembler/internal/core/product"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/logger"
	"ffiassembler/internal/services/pipeline/domain"
)

// ErrLeaseHeld signals another run owns the timestamp and variant already
var ErrLeaseHeld = perr.New(perr.ErrorCodeConflict, "pipeline: dataset lease already held")

// Lease runs do while holding the lease on one timestamp and variant
type Lease func(ctx context.Context, timestamp string, v product.Variant, runID string, do func(context.Context) error) error

// MakeLease returns a Lease backed by the run ledger
// A held lease is reported as ErrLeaseHeld without running do
// The lease is released when do returns, even when ctx is already canceled
func MakeLease(leases domain.StorageRepo, now func() time.Time) Lease {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, timestamp string, v product.Variant, runID string, do func(context.Context) error) error {
		claimed, err := leases.Claim(ctx, timestamp, v, runID, now())
		if err != nil {
			return err
		}
		if !claimed {
			return perr.Annotate(ErrLeaseHeld, "%s %s", timestamp, v)
		}
		defer func() {
			if err := leases.Release(context.WithoutCancel(ctx), timestamp, v, runID); err != nil {
				logger.C(ctx).Warn().Err(err).Str("variant", string(v)).Msg("lease release failed")
			}
		}()
		return do(ctx)
	}
}

// Held reports whether err came from a lease another run owns
func Held(err error) bool { return errors.Is(err, ErrLeaseHeld) }

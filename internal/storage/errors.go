// Package storage holds the helpers every store shares: call deadlines and the
// translation of driver failures into coded domain errors.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"

	dErrors "consentledger/pkg/domain-errors"
	"consentledger/pkg/platform/sentinel"
)

// DefaultTimeout bounds a single store call when no store timeout is set.
const DefaultTimeout = 5 * time.Second

// queryCanceled is the SQLSTATE Postgres returns when lib/pq cancels a
// running statement because its context ended.
const queryCanceled = "57014"

// WithTimeout bounds a store call by d. A caller deadline that is earlier
// still wins.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// Translate maps a store failure to a coded error.
//
//   - coded errors pass through unchanged
//   - sentinel.ErrNotFound becomes CodeNotFound with notFoundMsg
//   - deadline, cancellation and cancelled statements become CodeTimeout,
//     as does any failure once ctx has ended
//   - anything else is treated as the backend being unavailable
func Translate(ctx context.Context, err error, op, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if dErrors.IsDomainError(err) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFoundMsg)
	case timedOut(ctx, err):
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+" timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+" failed: store unavailable")
	}
}

func timedOut(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == queryCanceled {
		return true
	}
	return ctx.Err() != nil
}

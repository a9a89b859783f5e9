// Package ctxutil provides context utility functions.
package ctxutil

import "context"

// Canceled reports whether ctx is already done, returning its error
// (context.Canceled or context.DeadlineExceeded) if so and nil otherwise.
// Long operations call this at entry so cancellation observed between
// units never starts new work.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}

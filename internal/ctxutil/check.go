// Package ctxutil provides context helpers shared across the engine.
package ctxutil

import "context"

// Canceled reports whether the context is done, returning its error
// (context.Canceled or context.DeadlineExceeded) when it is. Used at
// the entry of operations that should not start work on a dead context.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}

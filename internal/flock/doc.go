// Package flock serializes invocations that write the same results tree.
//
// The checkpoint store does no cross-process locking of its own, so two
// processes appending to the same checkpoint file would race with
// last-write-wins data loss. Commands that write run artifacts or
// checkpoint records take this lock for their whole lifetime instead:
// Acquire takes an exclusive non-blocking lock on a file beside the
// checkpoint, and a second acquirer fails immediately with
// ErrResultsLocked rather than blocking behind a batch that can run for
// hours.
//
// Locks are advisory and released by the kernel when the owning process
// exits, so a crashed invocation never leaves the tree locked.
package flock

// Package boundary persists the run boundary of automatic archive runs: the
// cutoff date below which everything has already been covered by a previous
// run. State is scoped per batch-files root and survives process restarts.
package boundary

import (
	"context"

	"batcharchive/internal/model"
)

// Store reads and writes the persisted run boundary for a batch-files root.
//
// The orchestrator owns the write: it is performed only after an automatic
// run completed its scan, which keeps boundaries monotonically non-decreasing
// across successive runs. Concurrent invocations against the same root are
// not guarded; external schedulers must serialize runs.
type Store interface {
	// Read returns the boundary for root. ok is false when no prior run has
	// recorded one; that is a valid result, not an error. An error means the
	// backing storage is unavailable.
	Read(ctx context.Context, root string) (d model.BatchDate, ok bool, err error)

	// Write records d as the new boundary for root, replacing any previous
	// value.
	Write(ctx context.Context, root string, d model.BatchDate) error
}

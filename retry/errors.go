package retry

import (
	"github.com/pingcap/errors"
)

// Terminal errors surfaced when a retry budget is exhausted. Lower layers
// classify failures; this package turns repeated transient failures into one
// of these named kinds and nothing else.
var (
	// ErrRegionUnavailable means routing kept failing: every re-resolution
	// of the region still produced a region error.
	ErrRegionUnavailable = errors.New("region unavailable")
	// ErrStoreUnreachable means transport to the store kept failing within
	// the backoff budget.
	ErrStoreUnreachable = errors.New("store unreachable")
	// ErrPDServerTimeout means the coordination service could not be
	// reached within its retry budget.
	ErrPDServerTimeout = errors.New("PD server timeout")
	// ErrResolveLockTimeout means a conflicting lock could not be resolved
	// within the backoff budget.
	ErrResolveLockTimeout = errors.New("resolve lock timeout")
)

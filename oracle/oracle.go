package oracle

import (
	"context"
	"time"
)

// Oracle is the source of transaction timestamps. Implementations must hand
// out strictly increasing values to all callers of one instance.
type Oracle interface {
	GetTimestamp(ctx context.Context) (uint64, error)
	GetTimestampAsync(ctx context.Context) Future
	// IsExpired reports whether a lock written at lockTS with the given TTL
	// (in milliseconds) has outlived it, judged by this oracle's clock.
	IsExpired(lockTS uint64, ttl uint64) bool
	// UntilExpired returns the remaining life of such a lock in
	// milliseconds; non-positive means expired.
	UntilExpired(lockTS uint64, ttl uint64) int64
	Close()
}

// Future is a result of an asynchronous timestamp request.
type Future interface {
	Wait() (uint64, error)
}

const physicalShiftBits = 18

// ComposeTS composes a timestamp from a physical millisecond clock reading
// and a logical counter.
func ComposeTS(physical, logical int64) uint64 {
	return uint64((physical << physicalShiftBits) + logical)
}

// ExtractPhysical returns the physical millisecond component of ts.
func ExtractPhysical(ts uint64) int64 {
	return int64(ts >> physicalShiftBits)
}

// GetPhysical returns the physical clock reading of t in milliseconds.
func GetPhysical(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// Package retry implements the bounded, jittered exponential backoff used by
// every region and store facing operation. Only routing and transport
// failures pass through here; per key semantic errors are the transaction
// layer's business and must never be fed to a Backoffer except through
// BoTxnLock, which paces lock resolution.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinykv-client/config"
	"github.com/pingcap-incubator/tinykv-client/metrics"
)

// BackoffType classifies the failure being backed off.
type BackoffType int

const (
	// BoPDRPC is a failed call to the coordination service.
	BoPDRPC BackoffType = iota
	// BoRegionMiss is stale routing: the cached region or leader was wrong.
	BoRegionMiss
	// BoStoreRPC is a transport failure talking to a storage node.
	BoStoreRPC
	// BoTxnLock is a conflicting lock that needs resolution before retry.
	BoTxnLock
)

func (t BackoffType) String() string {
	switch t {
	case BoPDRPC:
		return "pdRPC"
	case BoRegionMiss:
		return "regionMiss"
	case BoStoreRPC:
		return "storeRPC"
	case BoTxnLock:
		return "txnLock"
	}
	return "unknown"
}

// TError returns the terminal error reported when the budget for this kind of
// backoff runs out.
func (t BackoffType) TError() error {
	switch t {
	case BoPDRPC:
		return ErrPDServerTimeout
	case BoRegionMiss:
		return ErrRegionUnavailable
	case BoStoreRPC:
		return ErrStoreUnreachable
	case BoTxnLock:
		return ErrResolveLockTimeout
	}
	return ErrStoreUnreachable
}

// Backoffer drives the retries of one logical operation. It accumulates the
// total slept time against a budget and counts attempts per backoff kind.
// A Backoffer is not safe for concurrent use; Fork child backoffers for
// concurrent branches of the same operation.
type Backoffer struct {
	ctx context.Context

	conf       *config.Config
	totalSleep time.Duration
	maxSleep   time.Duration
	attempts   map[BackoffType]int
	errors     []error
}

// NewBackoffer creates a Backoffer with a total sleep budget. A non-positive
// maxSleep falls back to the configured RetryMaxSleep.
func NewBackoffer(ctx context.Context, maxSleep time.Duration, conf *config.Config) *Backoffer {
	if maxSleep <= 0 {
		maxSleep = conf.RetryMaxSleep.Duration
	}
	return &Backoffer{
		ctx:      ctx,
		conf:     conf,
		maxSleep: maxSleep,
		attempts: make(map[BackoffType]int),
	}
}

// Backoff sleeps for the next interval of typ. It returns the terminal error
// of typ once the sleep budget or, for region misses, the attempt cap is
// exceeded, and the context error if the context is done.
func (b *Backoffer) Backoff(typ BackoffType, err error) error {
	select {
	case <-b.ctx.Done():
		return b.ctx.Err()
	default:
	}

	b.errors = append(b.errors, err)
	b.attempts[typ]++

	if typ == BoRegionMiss && b.attempts[typ] > b.conf.MaxRetryAttempts {
		return b.exhausted(typ)
	}

	sleep := b.nextSleep(typ)
	if b.totalSleep+sleep > b.maxSleep {
		return b.exhausted(typ)
	}
	b.totalSleep += sleep
	metrics.BackoffCounter.WithLabelValues(typ.String()).Inc()

	log.Debug("backoff",
		zap.Stringer("type", typ),
		zap.Duration("sleep", sleep),
		zap.Duration("total", b.totalSleep),
		zap.Error(err))

	select {
	case <-time.After(sleep):
		return nil
	case <-b.ctx.Done():
		return b.ctx.Err()
	}
}

// nextSleep computes an equal-jitter exponential interval: the lower half of
// the doubling window is deterministic, so the sequence of intervals never
// shrinks while it is below the cap, and the upper half is random to spread
// simultaneous retries against a recovering leader.
func (b *Backoffer) nextSleep(typ BackoffType) time.Duration {
	base := b.conf.BackoffBase.Duration
	ceiling := b.conf.BackoffCap.Duration
	if typ == BoTxnLock {
		// Lock resolution waits on another transaction finishing, which
		// takes longer than a leader bounce.
		base *= 10
	}
	window := base << uint(b.attempts[typ]-1)
	if window <= 0 || window > ceiling {
		window = ceiling
	}
	half := window / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func (b *Backoffer) exhausted(typ BackoffType) error {
	terr := typ.TError()
	log.Warn("backoff budget exhausted",
		zap.Stringer("type", typ),
		zap.Duration("total-sleep", b.totalSleep),
		zap.Int("attempts", b.attempts[typ]),
		zap.Error(terr))
	details := make([]string, 0, len(b.errors))
	for _, e := range b.errors {
		details = append(details, e.Error())
	}
	return errors.Annotate(terr, strings.Join(details, ", "))
}

// TotalSleep returns the time this Backoffer has slept so far.
func (b *Backoffer) TotalSleep() time.Duration {
	return b.totalSleep
}

// GetContext returns the context this Backoffer was created with.
func (b *Backoffer) GetContext() context.Context {
	return b.ctx
}

// Fork creates a child Backoffer sharing the remaining budget, for branches
// of one operation that proceed concurrently, e.g. per region prewrites.
func (b *Backoffer) Fork() (*Backoffer, context.CancelFunc) {
	ctx, cancel := context.WithCancel(b.ctx)
	child := &Backoffer{
		ctx:        ctx,
		conf:       b.conf,
		totalSleep: b.totalSleep,
		maxSleep:   b.maxSleep,
		attempts:   make(map[BackoffType]int),
	}
	return child, cancel
}

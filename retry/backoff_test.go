package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinykv-client/config"
	"github.com/pingcap-incubator/tinykv-client/util/typeutil"
)

func testConfig() *config.Config {
	conf := config.NewDefaultConfig()
	conf.BackoffBase = typeutil.NewDuration(2 * time.Millisecond)
	conf.BackoffCap = typeutil.NewDuration(128 * time.Millisecond)
	return conf
}

func TestNextSleepBounds(t *testing.T) {
	conf := testConfig()
	b := NewBackoffer(context.Background(), time.Minute, conf)

	var prevFloor time.Duration
	for attempt := 1; attempt <= 12; attempt++ {
		b.attempts[BoStoreRPC] = attempt
		window := conf.BackoffBase.Duration << uint(attempt-1)
		if window <= 0 || window > conf.BackoffCap.Duration {
			window = conf.BackoffCap.Duration
		}
		floor := window / 2

		// The deterministic half of the interval never shrinks, so a
		// sequence of failures waits longer and longer until the cap.
		assert.True(t, floor >= prevFloor, "attempt %d", attempt)
		prevFloor = floor

		for i := 0; i < 20; i++ {
			sleep := b.nextSleep(BoStoreRPC)
			assert.True(t, sleep >= floor, "attempt %d slept %v, floor %v", attempt, sleep, floor)
			assert.True(t, sleep <= window, "attempt %d slept %v, window %v", attempt, sleep, window)
		}
	}
}

func TestTransientFailuresThenSuccess(t *testing.T) {
	conf := testConfig()
	b := NewBackoffer(context.Background(), time.Minute, conf)

	// A few failures followed by success must consume budget but report no
	// error.
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Backoff(BoStoreRPC, errors.New("transient")))
	}
	assert.True(t, b.TotalSleep() > 0)
}

func TestBudgetExhaustion(t *testing.T) {
	conf := testConfig()
	b := NewBackoffer(context.Background(), 10*time.Millisecond, conf)

	var err error
	for i := 0; i < 100; i++ {
		if err = b.Backoff(BoStoreRPC, errors.New("store down")); err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.Equal(t, ErrStoreUnreachable, errors.Cause(err))
	assert.True(t, b.TotalSleep() <= 10*time.Millisecond)
}

func TestRegionMissAttemptCap(t *testing.T) {
	conf := testConfig()
	conf.MaxRetryAttempts = 3
	b := NewBackoffer(context.Background(), time.Minute, conf)

	var err error
	for i := 0; i < 10; i++ {
		if err = b.Backoff(BoRegionMiss, errors.New("stale region")); err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.Equal(t, ErrRegionUnavailable, errors.Cause(err))
}

func TestPDBackoffError(t *testing.T) {
	conf := testConfig()
	b := NewBackoffer(context.Background(), 5*time.Millisecond, conf)

	var err error
	for i := 0; i < 100; i++ {
		if err = b.Backoff(BoPDRPC, errors.New("pd unreachable")); err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.Equal(t, ErrPDServerTimeout, errors.Cause(err))
}

func TestContextCancelStopsBackoff(t *testing.T) {
	conf := testConfig()
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBackoffer(ctx, time.Minute, conf)
	cancel()

	err := b.Backoff(BoStoreRPC, errors.New("whatever"))
	assert.Equal(t, context.Canceled, err)
}

func TestForkSharesRemainingBudget(t *testing.T) {
	conf := testConfig()
	b := NewBackoffer(context.Background(), 12*time.Millisecond, conf)
	require.NoError(t, b.Backoff(BoStoreRPC, errors.New("first")))
	spent := b.TotalSleep()

	child, cancel := b.Fork()
	defer cancel()
	assert.Equal(t, spent, child.TotalSleep())

	var err error
	for i := 0; i < 100; i++ {
		if err = child.Backoff(BoStoreRPC, errors.New("child")); err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.Equal(t, ErrStoreUnreachable, errors.Cause(err))
}

//
// Copyright 2016 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package oracles

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinykv-client/oracle"
	"github.com/pingcap-incubator/tinykv-client/pd"
)

var _ oracle.Oracle = &pdOracle{}

// pdOracle is an Oracle backed by the placement driver. It keeps the last
// seen timestamp to guard monotonicity across PD leader changes and to judge
// lock TTL expiry without a round trip.
type pdOracle struct {
	c      pd.Client
	lastTS uint64
	quit   chan struct{}
}

// NewPdOracle creates an Oracle on top of a PD client. The returned oracle
// refreshes its cached timestamp every updateInterval so TTL judgements stay
// fresh even when no transaction is asking for timestamps.
func NewPdOracle(pdClient pd.Client, updateInterval time.Duration) (oracle.Oracle, error) {
	o := &pdOracle{
		c:    pdClient,
		quit: make(chan struct{}),
	}
	ctx := context.TODO()
	go o.updateTS(ctx, updateInterval)
	// Initialize the timestamp of the oracle, so that it always behind PD.
	_, err := o.GetTimestamp(ctx)
	if err != nil {
		o.Close()
		return nil, err
	}
	return o, nil
}

func (o *pdOracle) GetTimestamp(ctx context.Context) (uint64, error) {
	ts, err := o.getTimestamp(ctx)
	if err != nil {
		return 0, err
	}
	o.setLastTS(ts)
	return ts, nil
}

type tsFuture struct {
	pd.TSFuture
	o *pdOracle
}

// Wait implements the oracle.Future interface.
func (f *tsFuture) Wait() (uint64, error) {
	physical, logical, err := f.TSFuture.Wait()
	if err != nil {
		return 0, err
	}
	ts := oracle.ComposeTS(physical, logical)
	f.o.setLastTS(ts)
	return ts, nil
}

func (o *pdOracle) GetTimestampAsync(ctx context.Context) oracle.Future {
	return &tsFuture{o.c.GetTSAsync(ctx), o}
}

func (o *pdOracle) getTimestamp(ctx context.Context) (uint64, error) {
	physical, logical, err := o.c.GetTS(ctx)
	if err != nil {
		return 0, err
	}
	return oracle.ComposeTS(physical, logical), nil
}

func (o *pdOracle) setLastTS(ts uint64) {
	for {
		lastTS := atomic.LoadUint64(&o.lastTS)
		if ts <= lastTS {
			return
		}
		if atomic.CompareAndSwapUint64(&o.lastTS, lastTS, ts) {
			return
		}
	}
}

func (o *pdOracle) updateTS(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ts, err := o.getTimestamp(ctx)
			if err != nil {
				log.Error("updateTS error", zap.Error(err))
				break
			}
			o.setLastTS(ts)
		case <-o.quit:
			return
		}
	}
}

// IsExpired judges expiry against the last timestamp this oracle has seen,
// which always lags PD slightly. A lock is therefore never judged expired
// before it truly is.
func (o *pdOracle) IsExpired(lockTS, ttl uint64) bool {
	lastTS := atomic.LoadUint64(&o.lastTS)
	return oracle.ExtractPhysical(lastTS) >= oracle.ExtractPhysical(lockTS)+int64(ttl)
}

func (o *pdOracle) UntilExpired(lockTS uint64, ttl uint64) int64 {
	lastTS := atomic.LoadUint64(&o.lastTS)
	return oracle.ExtractPhysical(lockTS) + int64(ttl) - oracle.ExtractPhysical(lastTS)
}

func (o *pdOracle) Close() {
	close(o.quit)
}

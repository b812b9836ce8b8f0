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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinykv-client/oracle"
)

func TestLocalOracleMonotonic(t *testing.T) {
	o := NewLocalOracle()
	defer o.Close()

	var last uint64
	for i := 0; i < 100; i++ {
		ts, err := o.GetTimestamp(context.Background())
		require.Nil(t, err)
		assert.True(t, ts > last)
		last = ts
	}
}

func TestLocalOracleFuture(t *testing.T) {
	o := NewLocalOracle()
	defer o.Close()

	f := o.GetTimestampAsync(context.Background())
	ts, err := f.Wait()
	require.Nil(t, err)
	assert.True(t, ts > 0)
}

func TestLocalOracleExpiry(t *testing.T) {
	o := NewLocalOracle()
	defer o.Close()

	past := oracle.ComposeTS(oracle.GetPhysical(time.Now().Add(-time.Second)), 0)
	assert.True(t, o.IsExpired(past, 10))
	assert.True(t, o.UntilExpired(past, 10) <= 0)

	now := oracle.ComposeTS(oracle.GetPhysical(time.Now()), 0)
	assert.False(t, o.IsExpired(now, 60000))
	assert.True(t, o.UntilExpired(now, 60000) > 0)
}

func TestComposeExtractRoundTrip(t *testing.T) {
	physical := oracle.GetPhysical(time.Now())
	ts := oracle.ComposeTS(physical, 7)
	assert.Equal(t, physical, oracle.ExtractPhysical(ts))
	assert.Equal(t, uint64(physical<<18+7), ts)
}

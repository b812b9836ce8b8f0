// Copyright 2017 PingCAP, Inc.
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

package typeutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type example struct {
	Interval Duration `json:"interval" toml:"interval"`
}

func TestDurationJSON(t *testing.T) {
	e := &example{}

	require.Nil(t, json.Unmarshal([]byte(`{"interval":"1h30m"}`), e))
	assert.Equal(t, 90*time.Minute, e.Interval.Duration)

	b, err := json.Marshal(e)
	require.Nil(t, err)
	assert.Equal(t, `{"interval":"1h30m0s"}`, string(b))
}

func TestDurationTOML(t *testing.T) {
	e := &example{}

	require.Nil(t, toml.Unmarshal([]byte(`interval = "1h30m"`), e))
	assert.Equal(t, 90*time.Minute, e.Interval.Duration)
}

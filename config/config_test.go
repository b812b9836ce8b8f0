package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	c := NewDefaultConfig()
	require.Nil(t, c.Validate())
	assert.Equal(t, []string{"127.0.0.1:2379"}, c.PDAddrs)
	assert.True(t, c.BackoffBase.Duration < c.BackoffCap.Duration)
}

func TestValidateRejectsBadValues(t *testing.T) {
	c := NewDefaultConfig()
	c.PDAddrs = nil
	assert.NotNil(t, c.Validate())

	c = NewDefaultConfig()
	c.BackoffCap.Duration = c.BackoffBase.Duration / 2
	assert.NotNil(t, c.Validate())

	c = NewDefaultConfig()
	c.MaxRetryAttempts = 0
	assert.NotNil(t, c.Validate())

	c = NewDefaultConfig()
	c.LockTTL.Duration = 0
	assert.NotNil(t, c.Validate())
}

func TestLoadFromFileOverlay(t *testing.T) {
	dir, err := ioutil.TempDir("", "config-test")
	require.Nil(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "client.toml")
	content := `
pd-addrs = ["pd1:2379", "pd2:2379"]
rpc-timeout = "5s"

[security]
ca-path = "/etc/ssl/ca.pem"
`
	require.Nil(t, ioutil.WriteFile(path, []byte(content), 0644))

	c := NewDefaultConfig()
	require.Nil(t, c.LoadFromFile(path))
	assert.Equal(t, []string{"pd1:2379", "pd2:2379"}, c.PDAddrs)
	assert.Equal(t, 5*time.Second, c.RPCTimeout.Duration)
	assert.Equal(t, "/etc/ssl/ca.pem", c.Security.CAPath)

	// Fields the file does not mention keep their defaults.
	assert.Equal(t, 10, c.MaxRetryAttempts)
}

func TestLoadFromFileMissing(t *testing.T) {
	c := NewDefaultConfig()
	assert.NotNil(t, c.LoadFromFile("/nonexistent/client.toml"))
}

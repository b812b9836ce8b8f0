package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinykv-client/util/typeutil"
)

// Security holds the TLS material used for every connection to PD and the
// storage nodes. Empty paths mean plain connections.
type Security struct {
	CAPath   string `toml:"ca-path"`
	CertPath string `toml:"cert-path"`
	KeyPath  string `toml:"key-path"`
}

// Config is the client configuration. Callers normally start from
// NewDefaultConfig and override fields or overlay a TOML file.
type Config struct {
	// PDAddrs is the coordination service endpoint list.
	PDAddrs  []string `toml:"pd-addrs"`
	LogLevel string   `toml:"log-level"`
	Security Security `toml:"security"`

	// RPCTimeout bounds a single request to one storage node.
	RPCTimeout typeutil.Duration `toml:"rpc-timeout"`

	// MaxRetryAttempts caps how many times a request is re-routed after
	// region errors before it fails with region unavailable.
	MaxRetryAttempts int `toml:"max-retry-attempts"`

	// BackoffBase and BackoffCap bound the jittered exponential sleep
	// between retries of transport failures. RetryMaxSleep is the total
	// sleep budget of one logical operation across all its retries.
	BackoffBase   typeutil.Duration `toml:"backoff-base"`
	BackoffCap    typeutil.Duration `toml:"backoff-cap"`
	RetryMaxSleep typeutil.Duration `toml:"retry-max-sleep"`

	// LockTTL is the time-to-live stamped on prewrite locks. A transaction
	// whose primary lock outlives its TTL may be rolled back by any reader
	// that trips over it.
	LockTTL typeutil.Duration `toml:"lock-ttl"`

	GrpcKeepAliveTime     typeutil.Duration `toml:"grpc-keepalive-time"`
	GrpcKeepAliveTimeout  typeutil.Duration `toml:"grpc-keepalive-timeout"`
	GrpcInitialWindowSize int               `toml:"grpc-initial-window-size"`
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		PDAddrs:               []string{"127.0.0.1:2379"},
		LogLevel:              getLogLevel(),
		RPCTimeout:            typeutil.NewDuration(3 * time.Second),
		MaxRetryAttempts:      10,
		BackoffBase:           typeutil.NewDuration(2 * time.Millisecond),
		BackoffCap:            typeutil.NewDuration(500 * time.Millisecond),
		RetryMaxSleep:         typeutil.NewDuration(20 * time.Second),
		LockTTL:               typeutil.NewDuration(3 * time.Second),
		GrpcKeepAliveTime:     typeutil.NewDuration(10 * time.Second),
		GrpcKeepAliveTimeout:  typeutil.NewDuration(3 * time.Second),
		GrpcInitialWindowSize: 1 << 27,
	}
}

// LoadFromFile overlays the TOML file at path onto c.
func (c *Config) LoadFromFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return errors.Annotatef(err, "load config file %s", path)
	}
	return nil
}

func (c *Config) Validate() error {
	if len(c.PDAddrs) == 0 {
		return errors.New("no PD endpoint configured")
	}
	if c.BackoffBase.Duration <= 0 || c.BackoffCap.Duration < c.BackoffBase.Duration {
		return errors.Errorf("invalid backoff bounds: base %v, cap %v", c.BackoffBase.Duration, c.BackoffCap.Duration)
	}
	if c.MaxRetryAttempts <= 0 {
		return errors.New("max-retry-attempts must be greater than 0")
	}
	if c.LockTTL.Duration <= 0 {
		return errors.New("lock-ttl must be greater than 0")
	}
	return nil
}

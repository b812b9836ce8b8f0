// Package txnkv is the transactional client: snapshot reads at a start
// timestamp, locally buffered writes, and an optimistic two phase commit
// with lock resolution for the transactions that die half way.
package txnkv

import (
	"context"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinykv-client/config"
	"github.com/pingcap-incubator/tinykv-client/locate"
	"github.com/pingcap-incubator/tinykv-client/oracle"
	"github.com/pingcap-incubator/tinykv-client/oracle/oracles"
	"github.com/pingcap-incubator/tinykv-client/pd"
	"github.com/pingcap-incubator/tinykv-client/rpc"
)

const oracleUpdateInterval = 2 * time.Second

// Client is a transactional kv client. One Client serves many concurrent
// transactions; it owns the region cache, the store connections and the
// timestamp source they share.
type Client struct {
	conf         *config.Config
	pdClient     pd.Client
	oracle       oracle.Oracle
	regionCache  *locate.RegionCache
	rpcClient    rpc.Client
	lockResolver *LockResolver
}

// NewClient dials the placement driver at pdAddrs and builds a ready client.
func NewClient(pdAddrs []string, conf config.Config) (*Client, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	pdCli, err := pd.NewClient(pdAddrs, conf.Security)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewClientWith(pdCli, rpc.NewRPCClient(&conf), &conf)
}

// NewClientWith builds a client over existing pd and rpc clients. Tests use
// it to plug in an in-process cluster.
func NewClientWith(pdClient pd.Client, rpcClient rpc.Client, conf *config.Config) (*Client, error) {
	o, err := oracles.NewPdOracle(pdClient, oracleUpdateInterval)
	if err != nil {
		return nil, errors.Trace(err)
	}
	c := &Client{
		conf:        conf,
		pdClient:    pdClient,
		oracle:      o,
		regionCache: locate.NewRegionCache(pdClient),
		rpcClient:   rpcClient,
	}
	c.lockResolver = newLockResolver(c)
	return c, nil
}

// Begin starts a transaction at a fresh start timestamp.
func (c *Client) Begin(ctx context.Context) (*Transaction, error) {
	startTS, err := c.GetTimestamp(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return newTransaction(c, startTS), nil
}

// BeginWithTS starts a transaction reading at a caller supplied timestamp.
func (c *Client) BeginWithTS(startTS uint64) *Transaction {
	return newTransaction(c, startTS)
}

// GetSnapshot returns a read only view of the data at ts.
func (c *Client) GetSnapshot(ts uint64) *Snapshot {
	return newSnapshot(c, ts)
}

// GetTimestamp allocates a timestamp from the oracle.
func (c *Client) GetTimestamp(ctx context.Context) (uint64, error) {
	return c.oracle.GetTimestamp(ctx)
}

// Close releases the oracle, the store connections and the pd client.
func (c *Client) Close() error {
	c.oracle.Close()
	if err := c.rpcClient.Close(); err != nil {
		log.Warn("close rpc client failed", zap.Error(err))
	}
	c.pdClient.Close()
	return nil
}

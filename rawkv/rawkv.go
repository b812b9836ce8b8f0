// Package rawkv is the non transactional client: each call is one region
// routed request with no timestamps, no locks and no cross key atomicity.
// It shares the region cache, connection pool and retry machinery with the
// transactional client.
package rawkv

import (
	"bytes"
	"context"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinykv-client/config"
	"github.com/pingcap-incubator/tinykv-client/locate"
	"github.com/pingcap-incubator/tinykv-client/pd"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
	"github.com/pingcap-incubator/tinykv-client/retry"
	"github.com/pingcap-incubator/tinykv-client/rpc"
)

// ErrNotExist means the key does not exist.
var ErrNotExist = errors.New("key does not exist")

// MaxRawKVScanLimit caps the number of pairs one Scan may return.
const MaxRawKVScanLimit = 10240

// Client is a raw kv client. It is safe for concurrent use.
type Client struct {
	conf        *config.Config
	pdClient    pd.Client
	regionCache *locate.RegionCache
	rpcClient   rpc.Client
}

// NewClient dials the placement driver at pdAddrs and builds a raw client.
func NewClient(pdAddrs []string, conf config.Config) (*Client, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	pdCli, err := pd.NewClient(pdAddrs, conf.Security)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewClientWith(pdCli, rpc.NewRPCClient(&conf), &conf), nil
}

// NewClientWith builds a raw client over existing pd and rpc clients.
func NewClientWith(pdClient pd.Client, rpcClient rpc.Client, conf *config.Config) *Client {
	return &Client{
		conf:        conf,
		pdClient:    pdClient,
		regionCache: locate.NewRegionCache(pdClient),
		rpcClient:   rpcClient,
	}
}

// Close releases the store connections and the pd client.
func (c *Client) Close() error {
	err := c.rpcClient.Close()
	c.pdClient.Close()
	return errors.Trace(err)
}

// Get fetches the value of key, or ErrNotExist.
func (c *Client) Get(ctx context.Context, key []byte) ([]byte, error) {
	req := &rpc.Request{
		Type:   rpc.CmdRawGet,
		RawGet: &kvrpcpb.RawGetRequest{Key: key},
	}
	resp, err := c.sendReq(ctx, key, req)
	if err != nil {
		return nil, errors.Trace(err)
	}
	cmdResp := resp.RawGet
	if cmdResp == nil {
		return nil, errors.New("raw get response body missing")
	}
	if cmdResp.GetError() != "" {
		return nil, errors.New(cmdResp.GetError())
	}
	if cmdResp.NotFound {
		return nil, errors.Trace(ErrNotExist)
	}
	return cmdResp.Value, nil
}

// Put stores value under key, overwriting any previous value.
func (c *Client) Put(ctx context.Context, key, value []byte) error {
	if len(key) == 0 {
		return errors.New("key cannot be empty")
	}
	req := &rpc.Request{
		Type:   rpc.CmdRawPut,
		RawPut: &kvrpcpb.RawPutRequest{Key: key, Value: value},
	}
	resp, err := c.sendReq(ctx, key, req)
	if err != nil {
		return errors.Trace(err)
	}
	cmdResp := resp.RawPut
	if cmdResp == nil {
		return errors.New("raw put response body missing")
	}
	if cmdResp.GetError() != "" {
		return errors.New(cmdResp.GetError())
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key []byte) error {
	req := &rpc.Request{
		Type:      rpc.CmdRawDelete,
		RawDelete: &kvrpcpb.RawDeleteRequest{Key: key},
	}
	resp, err := c.sendReq(ctx, key, req)
	if err != nil {
		return errors.Trace(err)
	}
	cmdResp := resp.RawDelete
	if cmdResp == nil {
		return errors.New("raw delete response body missing")
	}
	if cmdResp.GetError() != "" {
		return errors.New(cmdResp.GetError())
	}
	return nil
}

// Scan returns up to limit pairs from [start, end) in key order. A nil end
// scans to the end of the key space.
func (c *Client) Scan(ctx context.Context, start, end []byte, limit int) (keys [][]byte, values [][]byte, err error) {
	if limit > MaxRawKVScanLimit {
		return nil, nil, errors.Errorf("scan limit %d exceeds maximum %d", limit, MaxRawKVScanLimit)
	}

	bo := retry.NewBackoffer(ctx, 0, c.conf)
	for len(keys) < limit {
		loc, err := c.regionCache.LocateKey(bo, start)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		req := &rpc.Request{
			Type: rpc.CmdRawScan,
			RawScan: &kvrpcpb.RawScanRequest{
				StartKey: start,
				Limit:    uint32(limit - len(keys)),
			},
		}
		sender := locate.NewRegionRequestSender(c.regionCache, c.rpcClient)
		resp, err := sender.SendReq(bo, req, loc.Region, c.conf.RPCTimeout.Duration)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		regionErr, err := resp.GetRegionError()
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		if regionErr != nil {
			if err = bo.Backoff(retry.BoRegionMiss, errors.New(regionErr.String())); err != nil {
				return nil, nil, errors.Trace(err)
			}
			continue
		}
		cmdResp := resp.RawScan
		if cmdResp == nil {
			return nil, nil, errors.New("raw scan response body missing")
		}
		for _, pair := range cmdResp.Kvs {
			if len(end) > 0 && bytes.Compare(pair.Key, end) >= 0 {
				return keys, values, nil
			}
			keys = append(keys, pair.Key)
			values = append(values, pair.Value)
		}
		start = loc.EndKey
		if len(start) == 0 || (len(end) > 0 && bytes.Compare(start, end) >= 0) {
			break
		}
	}
	return keys, values, nil
}

// sendReq routes a single key request, retrying across stale region info.
func (c *Client) sendReq(ctx context.Context, key []byte, req *rpc.Request) (*rpc.Response, error) {
	bo := retry.NewBackoffer(ctx, 0, c.conf)
	sender := locate.NewRegionRequestSender(c.regionCache, c.rpcClient)
	for {
		loc, err := c.regionCache.LocateKey(bo, key)
		if err != nil {
			return nil, errors.Trace(err)
		}
		resp, err := sender.SendReq(bo, req, loc.Region, c.conf.RPCTimeout.Duration)
		if err != nil {
			return nil, errors.Trace(err)
		}
		regionErr, err := resp.GetRegionError()
		if err != nil {
			return nil, errors.Trace(err)
		}
		if regionErr != nil {
			if err = bo.Backoff(retry.BoRegionMiss, errors.New(regionErr.String())); err != nil {
				return nil, errors.Trace(err)
			}
			continue
		}
		return resp, nil
	}
}

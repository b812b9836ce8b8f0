package mocktikv

import (
	"context"
	"sync"
	"time"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinykv-client/pd"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/metapb"
)

// pdClient serves placement driver calls out of the in process cluster,
// with a monotonic local timestamp source instead of a remote oracle.
type pdClient struct {
	cluster *Cluster

	tsMu struct {
		sync.Mutex
		physical int64
		logical  int64
	}
}

// NewPDClient creates a placement driver client over an in process cluster.
func NewPDClient(cluster *Cluster) pd.Client {
	return &pdClient{cluster: cluster}
}

func (c *pdClient) GetClusterID(ctx context.Context) uint64 {
	return c.cluster.GetClusterID()
}

func (c *pdClient) GetTS(ctx context.Context) (int64, int64, error) {
	c.tsMu.Lock()
	defer c.tsMu.Unlock()
	physical := time.Now().UnixNano() / int64(time.Millisecond)
	if physical > c.tsMu.physical {
		c.tsMu.physical = physical
		c.tsMu.logical = 0
	} else {
		c.tsMu.logical++
	}
	return c.tsMu.physical, c.tsMu.logical, nil
}

type mockTSFuture struct {
	c   *pdClient
	ctx context.Context
}

func (f *mockTSFuture) Wait() (int64, int64, error) {
	return f.c.GetTS(f.ctx)
}

func (c *pdClient) GetTSAsync(ctx context.Context) pd.TSFuture {
	return &mockTSFuture{c: c, ctx: ctx}
}

func (c *pdClient) GetRegion(ctx context.Context, key []byte) (*metapb.Region, *metapb.Peer, error) {
	region, leader := c.cluster.GetRegionByKey(key)
	return region, leader, nil
}

func (c *pdClient) GetRegionByID(ctx context.Context, regionID uint64) (*metapb.Region, *metapb.Peer, error) {
	region, leader := c.cluster.GetRegionByID(regionID)
	return region, leader, nil
}

func (c *pdClient) ScanRegions(ctx context.Context, key, endKey []byte, limit int) ([]*metapb.Region, []*metapb.Peer, error) {
	regions, leaders := c.cluster.ScanRegions(key, endKey, limit)
	return regions, leaders, nil
}

func (c *pdClient) GetStore(ctx context.Context, storeID uint64) (*metapb.Store, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Trace(ctx.Err())
	default:
	}
	return c.cluster.GetStore(storeID), nil
}

func (c *pdClient) GetAllStores(ctx context.Context, opts ...pd.GetStoreOption) ([]*metapb.Store, error) {
	return c.cluster.GetAllStores(), nil
}

func (c *pdClient) Close() {
}

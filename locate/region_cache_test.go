package locate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinykv-client/config"
	"github.com/pingcap-incubator/tinykv-client/mockstore/mocktikv"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
	"github.com/pingcap-incubator/tinykv-client/retry"
	"github.com/pingcap-incubator/tinykv-client/rpc"
	"github.com/pingcap-incubator/tinykv-client/util/typeutil"
)

func testConfig() *config.Config {
	conf := config.NewDefaultConfig()
	conf.BackoffBase = typeutil.NewDuration(time.Millisecond)
	conf.BackoffCap = typeutil.NewDuration(4 * time.Millisecond)
	conf.RetryMaxSleep = typeutil.NewDuration(2 * time.Second)
	return conf
}

func newTestBackoffer(conf *config.Config) *retry.Backoffer {
	return retry.NewBackoffer(context.Background(), 0, conf)
}

func TestLocateKeyHitsCache(t *testing.T) {
	cluster := mocktikv.NewCluster()
	_, _, regionID := mocktikv.BootstrapWithSingleStore(cluster)
	cache := NewRegionCache(mocktikv.NewPDClient(cluster))
	bo := newTestBackoffer(testConfig())

	loc1, err := cache.LocateKey(bo, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, regionID, loc1.Region.GetID())

	// A lookup of another key in the same range is served from the cache
	// and returns the identical region version.
	loc2, err := cache.LocateKey(bo, []byte("z"))
	require.NoError(t, err)
	assert.Equal(t, loc1.Region, loc2.Region)
}

func TestInvalidateForcesReload(t *testing.T) {
	cluster := mocktikv.NewCluster()
	_, _, regionID := mocktikv.BootstrapWithSingleStore(cluster)
	cache := NewRegionCache(mocktikv.NewPDClient(cluster))
	bo := newTestBackoffer(testConfig())

	loc, err := cache.LocateKey(bo, []byte("x"))
	require.NoError(t, err)

	// The cluster splits behind the client's back. The stale entry keeps
	// serving until it is invalidated.
	ids := cluster.AllocIDs(2)
	cluster.Split(regionID, ids[0], []byte("m"), []uint64{ids[1]}, ids[1])

	stale, err := cache.LocateKey(bo, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, loc.Region, stale.Region)

	cache.InvalidateCachedRegion(loc.Region)
	fresh, err := cache.LocateKey(bo, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, ids[0], fresh.Region.GetID())
	assert.Equal(t, []byte("m"), fresh.StartKey)
}

func TestGroupKeysByRegion(t *testing.T) {
	cluster := mocktikv.NewCluster()
	_, regionIDs := mocktikv.BootstrapWithMultiRegions(cluster, []byte("b"), []byte("c"))
	cache := NewRegionCache(mocktikv.NewPDClient(cluster))
	bo := newTestBackoffer(testConfig())

	keys := [][]byte{[]byte("a1"), []byte("a2"), []byte("b1"), []byte("c1")}
	groups, first, err := cache.GroupKeysByRegion(bo, keys)
	require.NoError(t, err)
	assert.Equal(t, regionIDs[0], first.GetID())
	assert.Len(t, groups, 3)
	assert.Len(t, groups[first], 2)
}

func TestGetRPCContextFollowsLeader(t *testing.T) {
	cluster := mocktikv.NewCluster()
	ids := cluster.AllocIDs(5)
	store1, store2, peer1, peer2, regionID := ids[0], ids[1], ids[2], ids[3], ids[4]
	cluster.AddStore(store1, "store1")
	cluster.AddStore(store2, "store2")
	cluster.Bootstrap(regionID, []uint64{store1, store2}, []uint64{peer1, peer2}, peer1)

	cache := NewRegionCache(mocktikv.NewPDClient(cluster))
	bo := newTestBackoffer(testConfig())

	loc, err := cache.LocateKey(bo, []byte("k"))
	require.NoError(t, err)
	ctx, err := cache.GetRPCContext(bo, loc.Region)
	require.NoError(t, err)
	assert.Equal(t, "store1", ctx.Addr)

	cache.UpdateLeader(loc.Region, store2)
	ctx, err = cache.GetRPCContext(bo, loc.Region)
	require.NoError(t, err)
	assert.Equal(t, "store2", ctx.Addr)

	// A leader hint naming a store outside the peer set drops the entry.
	cache.UpdateLeader(loc.Region, store2+100)
	ctx, err = cache.GetRPCContext(bo, loc.Region)
	require.NoError(t, err)
	assert.Nil(t, ctx)
}

func TestConcurrentLeaderSwitch(t *testing.T) {
	cluster := mocktikv.NewCluster()
	ids := cluster.AllocIDs(5)
	store1, store2, peer1, peer2, regionID := ids[0], ids[1], ids[2], ids[3], ids[4]
	cluster.AddStore(store1, "store1")
	cluster.AddStore(store2, "store2")
	cluster.Bootstrap(regionID, []uint64{store1, store2}, []uint64{peer1, peer2}, peer1)

	cache := NewRegionCache(mocktikv.NewPDClient(cluster))
	bo := newTestBackoffer(testConfig())

	loc, err := cache.LocateKey(bo, []byte("k"))
	require.NoError(t, err)

	// Resolve the leader while another goroutine keeps moving it. Every
	// resolution must name one of the two real stores.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			if i%2 == 0 {
				cache.UpdateLeader(loc.Region, store2)
			} else {
				cache.UpdateLeader(loc.Region, store1)
			}
		}
	}()
	for i := 0; i < 2000; i++ {
		ctx, err := cache.GetRPCContext(bo, loc.Region)
		require.NoError(t, err)
		require.NotNil(t, ctx)
		assert.Contains(t, []string{"store1", "store2"}, ctx.Addr)
	}
	<-done
}

func TestOnSendFailDropsEntry(t *testing.T) {
	cluster := mocktikv.NewCluster()
	mocktikv.BootstrapWithSingleStore(cluster)
	cache := NewRegionCache(mocktikv.NewPDClient(cluster))
	bo := newTestBackoffer(testConfig())

	loc, err := cache.LocateKey(bo, []byte("k"))
	require.NoError(t, err)
	ctx, err := cache.GetRPCContext(bo, loc.Region)
	require.NoError(t, err)

	cache.OnSendFail(bo, ctx, context.DeadlineExceeded)
	gone, err := cache.GetRPCContext(bo, loc.Region)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSenderFollowsNotLeader(t *testing.T) {
	cluster := mocktikv.NewCluster()
	ids := cluster.AllocIDs(5)
	store1, store2, peer1, peer2, regionID := ids[0], ids[1], ids[2], ids[3], ids[4]
	cluster.AddStore(store1, "store1")
	cluster.AddStore(store2, "store2")
	cluster.Bootstrap(regionID, []uint64{store1, store2}, []uint64{peer1, peer2}, peer1)

	mvccStore := mocktikv.NewMvccStore()
	client := mocktikv.NewRPCClient(cluster, mvccStore)
	cache := NewRegionCache(mocktikv.NewPDClient(cluster))
	conf := testConfig()
	bo := newTestBackoffer(conf)

	loc, err := cache.LocateKey(bo, []byte("k"))
	require.NoError(t, err)

	// Move leadership after the cache was filled. The sender follows the
	// redirect and the request still succeeds.
	cluster.ChangeLeader(regionID, peer2)

	sender := NewRegionRequestSender(cache, client)
	req := &rpc.Request{
		Type:   rpc.CmdRawPut,
		RawPut: &kvrpcpb.RawPutRequest{Key: []byte("k"), Value: []byte("v")},
	}
	resp, err := sender.SendReq(bo, req, loc.Region, conf.RPCTimeout.Duration)
	require.NoError(t, err)
	regionErr, err := resp.GetRegionError()
	require.NoError(t, err)
	assert.Nil(t, regionErr)

	v, ok := mvccStore.RawGet([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestSenderReportsStaleEpoch(t *testing.T) {
	cluster := mocktikv.NewCluster()
	_, _, regionID := mocktikv.BootstrapWithSingleStore(cluster)
	mvccStore := mocktikv.NewMvccStore()
	client := mocktikv.NewRPCClient(cluster, mvccStore)
	cache := NewRegionCache(mocktikv.NewPDClient(cluster))
	conf := testConfig()
	bo := newTestBackoffer(conf)

	loc, err := cache.LocateKey(bo, []byte("x"))
	require.NoError(t, err)

	ids := cluster.AllocIDs(2)
	cluster.Split(regionID, ids[0], []byte("m"), []uint64{ids[1]}, ids[1])

	sender := NewRegionRequestSender(cache, client)
	req := &rpc.Request{
		Type:   rpc.CmdRawGet,
		RawGet: &kvrpcpb.RawGetRequest{Key: []byte("x")},
	}
	resp, err := sender.SendReq(bo, req, loc.Region, conf.RPCTimeout.Duration)
	require.NoError(t, err)
	regionErr, err := resp.GetRegionError()
	require.NoError(t, err)
	require.NotNil(t, regionErr)
	assert.NotNil(t, regionErr.GetEpochNotMatch())

	// The mismatch repaired the cache: the left half is already present
	// with its new epoch.
	fresh, err := cache.LocateKey(bo, []byte("a"))
	require.NoError(t, err)
	assert.NotEqual(t, loc.Region, fresh.Region)
	assert.Equal(t, []byte("m"), fresh.EndKey)
}

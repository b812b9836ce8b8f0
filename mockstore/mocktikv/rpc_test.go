package mocktikv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/metapb"
	"github.com/pingcap-incubator/tinykv-client/rpc"
)

func allRequestTypes() []*rpc.Request {
	return []*rpc.Request{
		{Type: rpc.CmdGet, Get: &kvrpcpb.GetRequest{Key: []byte("k")}},
		{Type: rpc.CmdScan, Scan: &kvrpcpb.ScanRequest{StartKey: []byte("k"), Limit: 1}},
		{Type: rpc.CmdPrewrite, Prewrite: &kvrpcpb.PrewriteRequest{}},
		{Type: rpc.CmdCommit, Commit: &kvrpcpb.CommitRequest{}},
		{Type: rpc.CmdBatchRollback, BatchRollback: &kvrpcpb.BatchRollbackRequest{}},
		{Type: rpc.CmdCheckTxnStatus, CheckTxnStatus: &kvrpcpb.CheckTxnStatusRequest{PrimaryKey: []byte("k")}},
		{Type: rpc.CmdResolveLock, ResolveLock: &kvrpcpb.ResolveLockRequest{}},
		{Type: rpc.CmdRawGet, RawGet: &kvrpcpb.RawGetRequest{Key: []byte("k")}},
		{Type: rpc.CmdRawPut, RawPut: &kvrpcpb.RawPutRequest{Key: []byte("k"), Value: []byte("v")}},
		{Type: rpc.CmdRawDelete, RawDelete: &kvrpcpb.RawDeleteRequest{Key: []byte("k")}},
		{Type: rpc.CmdRawScan, RawScan: &kvrpcpb.RawScanRequest{StartKey: []byte("k"), Limit: 1}},
	}
}

// Every request type must be rejected with a region error, not a panic, when
// its routing context was never set.
func TestMissingContextRejected(t *testing.T) {
	cluster := NewCluster()
	BootstrapWithSingleStore(cluster)
	client := NewRPCClient(cluster, NewMvccStore())
	ctx := context.Background()

	for _, req := range allRequestTypes() {
		resp, err := client.SendRequest(ctx, "store1", req, time.Second)
		require.NoError(t, err, "%v", req.Type)
		regionErr, err := resp.GetRegionError()
		require.NoError(t, err, "%v", req.Type)
		require.NotNil(t, regionErr, "%v", req.Type)
		assert.Nil(t, regionErr.NotLeader, "%v", req.Type)
		assert.Nil(t, regionErr.EpochNotMatch, "%v", req.Type)
	}
}

func TestStaleEpochRejected(t *testing.T) {
	cluster := NewCluster()
	BootstrapWithSingleStore(cluster)
	client := NewRPCClient(cluster, NewMvccStore())
	ctx := context.Background()

	region, leader := cluster.GetRegionByKey([]byte("k"))
	require.NotNil(t, region)
	stale := &metapb.Region{
		Id:          region.Id,
		RegionEpoch: &metapb.RegionEpoch{ConfVer: region.RegionEpoch.ConfVer, Version: region.RegionEpoch.Version + 1},
	}

	for _, req := range allRequestTypes() {
		require.NoError(t, req.SetContext(stale, leader))
		resp, err := client.SendRequest(ctx, "store1", req, time.Second)
		require.NoError(t, err, "%v", req.Type)
		regionErr, err := resp.GetRegionError()
		require.NoError(t, err, "%v", req.Type)
		require.NotNil(t, regionErr, "%v", req.Type)
		assert.NotNil(t, regionErr.EpochNotMatch, "%v", req.Type)
	}
}

func TestRawRequestRoundTrip(t *testing.T) {
	cluster := NewCluster()
	BootstrapWithSingleStore(cluster)
	client := NewRPCClient(cluster, NewMvccStore())
	ctx := context.Background()

	region, leader := cluster.GetRegionByKey([]byte("k"))
	require.NotNil(t, region)

	put := &rpc.Request{Type: rpc.CmdRawPut, RawPut: &kvrpcpb.RawPutRequest{Key: []byte("k"), Value: []byte("v")}}
	require.NoError(t, put.SetContext(region, leader))
	resp, err := client.SendRequest(ctx, "store1", put, time.Second)
	require.NoError(t, err)
	require.NotNil(t, resp.RawPut)
	assert.Empty(t, resp.RawPut.GetError())

	get := &rpc.Request{Type: rpc.CmdRawGet, RawGet: &kvrpcpb.RawGetRequest{Key: []byte("k")}}
	require.NoError(t, get.SetContext(region, leader))
	resp, err = client.SendRequest(ctx, "store1", get, time.Second)
	require.NoError(t, err)
	require.NotNil(t, resp.RawGet)
	assert.Empty(t, resp.RawGet.GetError())
	assert.Equal(t, "v", string(resp.RawGet.Value))

	del := &rpc.Request{Type: rpc.CmdRawDelete, RawDelete: &kvrpcpb.RawDeleteRequest{Key: []byte("k")}}
	require.NoError(t, del.SetContext(region, leader))
	resp, err = client.SendRequest(ctx, "store1", del, time.Second)
	require.NoError(t, err)
	require.NotNil(t, resp.RawDelete)
	assert.Empty(t, resp.RawDelete.GetError())

	resp, err = client.SendRequest(ctx, "store1", get, time.Second)
	require.NoError(t, err)
	assert.True(t, resp.RawGet.NotFound)
}

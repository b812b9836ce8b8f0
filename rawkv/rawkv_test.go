package rawkv

import (
	"context"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinykv-client/config"
	"github.com/pingcap-incubator/tinykv-client/mockstore/mocktikv"
	"github.com/pingcap-incubator/tinykv-client/rpc"
	"github.com/pingcap-incubator/tinykv-client/util/typeutil"
)

func newTestClient(t *testing.T, splitKeys ...[]byte) (*Client, *mocktikv.Cluster, *mocktikv.RPCClient) {
	cluster := mocktikv.NewCluster()
	if len(splitKeys) > 0 {
		mocktikv.BootstrapWithMultiRegions(cluster, splitKeys...)
	} else {
		mocktikv.BootstrapWithSingleStore(cluster)
	}
	conf := config.NewDefaultConfig()
	conf.BackoffBase = typeutil.NewDuration(time.Millisecond)
	conf.BackoffCap = typeutil.NewDuration(4 * time.Millisecond)
	rpcClient := mocktikv.NewRPCClient(cluster, mocktikv.NewMvccStore())
	client := NewClientWith(mocktikv.NewPDClient(cluster), rpcClient, conf)
	return client, cluster, rpcClient
}

func TestPutGetDelete(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	require.NoError(t, client.Put(ctx, []byte("k"), []byte("v")))
	v, err := client.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))

	require.NoError(t, client.Delete(ctx, []byte("k")))
	_, err = client.Get(ctx, []byte("k"))
	assert.Equal(t, ErrNotExist, errors.Cause(err))
}

func TestScanAcrossRegions(t *testing.T) {
	client, _, _ := newTestClient(t, []byte("b"), []byte("c"))
	defer client.Close()
	ctx := context.Background()

	for _, kv := range [][2]string{
		{"a1", "1"}, {"a2", "2"}, {"b1", "3"}, {"c1", "4"}, {"c2", "5"},
	} {
		require.NoError(t, client.Put(ctx, []byte(kv[0]), []byte(kv[1])))
	}

	keys, values, err := client.Scan(ctx, []byte("a2"), []byte("c2"), 100)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a2"), []byte("b1"), []byte("c1")}, keys)
	assert.Equal(t, [][]byte{[]byte("2"), []byte("3"), []byte("4")}, values)
}

func TestScanLimit(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, client.Put(ctx, []byte(k), []byte(k)))
	}
	keys, _, err := client.Scan(ctx, []byte("a"), nil, 2)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	_, _, err = client.Scan(ctx, []byte("a"), nil, MaxRawKVScanLimit+1)
	require.Error(t, err)
}

func TestRetryOnTransportFailure(t *testing.T) {
	client, _, rpcClient := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	// The first two sends fail at the transport level; the request must
	// survive them through backoff and rerouting.
	failures := 2
	rpcClient.SendHook = func(addr string, req *rpc.Request) error {
		if failures > 0 {
			failures--
			return errors.New("connection reset")
		}
		return nil
	}
	require.NoError(t, client.Put(ctx, []byte("k"), []byte("v")))
	v, err := client.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}

func TestSplitInvisibleToCaller(t *testing.T) {
	client, cluster, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	require.NoError(t, client.Put(ctx, []byte("a"), []byte("1")))
	require.NoError(t, client.Put(ctx, []byte("z"), []byte("2")))

	// Split after the cache warmed up; follow-up requests recover from the
	// epoch mismatch without the caller noticing.
	regionMeta, _ := cluster.GetRegionByKey([]byte("a"))
	ids := cluster.AllocIDs(2)
	cluster.Split(regionMeta.Id, ids[0], []byte("m"), []uint64{ids[1]}, ids[1])

	v, err := client.Get(ctx, []byte("z"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(v))
	require.NoError(t, client.Put(ctx, []byte("z"), []byte("3")))
}

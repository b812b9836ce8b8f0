package txnkv

import (
	"context"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinykv-client/config"
	"github.com/pingcap-incubator/tinykv-client/mockstore/mocktikv"
	"github.com/pingcap-incubator/tinykv-client/retry"
	"github.com/pingcap-incubator/tinykv-client/rpc"
	"github.com/pingcap-incubator/tinykv-client/util/typeutil"
)

func newTestBackoffer(ctx context.Context, client *Client) *retry.Backoffer {
	return retry.NewBackoffer(ctx, 0, client.conf)
}

// newShortBackoffer has a budget small enough to exhaust quickly in tests
// that expect to give up.
func newShortBackoffer(ctx context.Context, client *Client) *retry.Backoffer {
	return retry.NewBackoffer(ctx, 30*time.Millisecond, client.conf)
}

func testConfig() *config.Config {
	conf := config.NewDefaultConfig()
	conf.BackoffBase = typeutil.NewDuration(time.Millisecond)
	conf.BackoffCap = typeutil.NewDuration(4 * time.Millisecond)
	conf.RetryMaxSleep = typeutil.NewDuration(2 * time.Second)
	return conf
}

func newTestClient(t *testing.T) (*Client, *mocktikv.Cluster, *mocktikv.RPCClient) {
	cluster := mocktikv.NewCluster()
	mocktikv.BootstrapWithSingleStore(cluster)
	mvccStore := mocktikv.NewMvccStore()
	rpcClient := mocktikv.NewRPCClient(cluster, mvccStore)
	client, err := NewClientWith(mocktikv.NewPDClient(cluster), rpcClient, testConfig())
	require.NoError(t, err)
	return client, cluster, rpcClient
}

func mustCommit(t *testing.T, client *Client, kvs map[string]string) {
	txn, err := client.Begin(context.Background())
	require.NoError(t, err)
	for k, v := range kvs {
		require.NoError(t, txn.Set([]byte(k), []byte(v)))
	}
	require.NoError(t, txn.Commit(context.Background()))
}

func mustGet(t *testing.T, client *Client, key, expect string) {
	txn, err := client.Begin(context.Background())
	require.NoError(t, err)
	v, err := txn.Get(context.Background(), []byte(key))
	require.NoError(t, err)
	assert.Equal(t, expect, string(v))
}

func mustNotExist(t *testing.T, client *Client, key string) {
	txn, err := client.Begin(context.Background())
	require.NoError(t, err)
	_, err = txn.Get(context.Background(), []byte(key))
	assert.Equal(t, ErrNotExist, errors.Cause(err))
}

func TestReadYourOwnWrites(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	mustCommit(t, client, map[string]string{"k1": "stored"})

	txn, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Set([]byte("k1"), []byte("buffered")))
	require.NoError(t, txn.Set([]byte("k2"), []byte("new")))
	require.NoError(t, txn.Delete([]byte("k1")))

	_, err = txn.Get(ctx, []byte("k1"))
	assert.Equal(t, ErrNotExist, errors.Cause(err))
	v, err := txn.Get(ctx, []byte("k2"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(v))

	// Nothing hit the store yet; another transaction still sees the old
	// state.
	mustGet(t, client, "k1", "stored")
	mustNotExist(t, client, "k2")
}

func TestSnapshotIsolation(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	mustCommit(t, client, map[string]string{"k": "v1"})

	early, err := client.Begin(ctx)
	require.NoError(t, err)

	mustCommit(t, client, map[string]string{"k": "v2"})

	// The early transaction keeps reading its snapshot.
	v, err := early.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v))

	mustGet(t, client, "k", "v2")
}

func TestCommitAcrossRegions(t *testing.T) {
	cluster := mocktikv.NewCluster()
	mocktikv.BootstrapWithMultiRegions(cluster, []byte("b"), []byte("c"))
	mvccStore := mocktikv.NewMvccStore()
	client, err := NewClientWith(mocktikv.NewPDClient(cluster), mocktikv.NewRPCClient(cluster, mvccStore), testConfig())
	require.NoError(t, err)
	defer client.Close()

	mustCommit(t, client, map[string]string{
		"a1": "v1",
		"b1": "v2",
		"c1": "v3",
	})
	mustGet(t, client, "a1", "v1")
	mustGet(t, client, "b1", "v2")
	mustGet(t, client, "c1", "v3")
}

func TestWriteConflict(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	mustCommit(t, client, map[string]string{"k": "base"})

	txn1, err := client.Begin(ctx)
	require.NoError(t, err)
	txn2, err := client.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, txn1.Set([]byte("k"), []byte("from-txn1")))
	require.NoError(t, txn2.Set([]byte("k"), []byte("from-txn2")))

	// txn2 commits first and wins; txn1 finds a newer committed version at
	// prewrite and loses the whole transaction.
	require.NoError(t, txn2.Commit(ctx))
	err = txn1.Commit(ctx)
	require.Error(t, err)
	assert.True(t, IsRetryableTxnError(err))
	assert.False(t, txn1.Valid())

	mustGet(t, client, "k", "from-txn2")
}

func TestPrewriteSingleWinner(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	txn1, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn1.Set([]byte("k"), []byte("one")))
	committer1, err := newTwoPhaseCommitter(txn1)
	require.NoError(t, err)

	bo := newTestBackoffer(ctx, client)
	require.NoError(t, committer1.prewriteKeys(bo, committer1.keys))

	// A second transaction writing the same key cannot take the lock; its
	// commit eventually fails instead of silently overwriting.
	txn2, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn2.Set([]byte("k"), []byte("two")))
	committer2, err := newTwoPhaseCommitter(txn2)
	require.NoError(t, err)
	shortBo := newShortBackoffer(ctx, client)
	err = committer2.prewriteKeys(shortBo, committer2.keys)
	require.Error(t, err)

	// The winner finishes its commit normally.
	commitTS, err := client.GetTimestamp(ctx)
	require.NoError(t, err)
	committer1.commitTS = commitTS
	require.NoError(t, committer1.commitKeys(bo, committer1.keys))
	mustGet(t, client, "k", "one")
}

func TestResolveExpiredLock(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	mustCommit(t, client, map[string]string{"k": "old"})

	// A transaction prewrites and then dies without committing.
	crashed, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, crashed.Set([]byte("k"), []byte("half-done")))
	committer, err := newTwoPhaseCommitter(crashed)
	require.NoError(t, err)
	committer.lockTTL = 1
	require.NoError(t, committer.prewriteKeys(newTestBackoffer(ctx, client), committer.keys))

	time.Sleep(5 * time.Millisecond)

	// A later reader resolves the expired lock and sees the old value.
	mustGet(t, client, "k", "old")

	// The crashed transaction can never commit afterwards.
	commitTS, err := client.GetTimestamp(ctx)
	require.NoError(t, err)
	committer.commitTS = commitTS
	err = committer.commitKeys(newShortBackoffer(ctx, client), committer.keys)
	require.Error(t, err)
}

func TestAliveLockNotDisturbed(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	mustCommit(t, client, map[string]string{"k": "old"})

	owner, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, owner.Set([]byte("k"), []byte("new")))
	committer, err := newTwoPhaseCommitter(owner)
	require.NoError(t, err)
	require.NoError(t, committer.prewriteKeys(newTestBackoffer(ctx, client), committer.keys))

	// The owner's lock is well within its TTL, so resolution leaves it in
	// place and reports that the caller must wait.
	lock := &Lock{Key: []byte("k"), Primary: []byte("k"), TxnID: owner.StartTS(), TTL: committer.lockTTL}
	resolved, err := client.lockResolver.ResolveLocks(newShortBackoffer(ctx, client), []*Lock{lock})
	require.NoError(t, err)
	assert.False(t, resolved)

	// The undisturbed owner finishes its commit normally.
	commitTS, err := client.GetTimestamp(ctx)
	require.NoError(t, err)
	committer.commitTS = commitTS
	require.NoError(t, committer.commitKeys(newTestBackoffer(ctx, client), committer.keys))
	mustGet(t, client, "k", "new")
}

func TestRollback(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	mustCommit(t, client, map[string]string{"k": "v"})

	txn, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Set([]byte("k"), []byte("discarded")))
	require.NoError(t, txn.Rollback())
	assert.False(t, txn.Valid())

	assert.Equal(t, ErrInvalidTxn, errors.Cause(txn.Set([]byte("k"), []byte("x"))))
	assert.Equal(t, ErrInvalidTxn, errors.Cause(txn.Commit(ctx)))

	mustGet(t, client, "k", "v")
}

func TestTerminalStateRejectsOperations(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	txn, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Set([]byte("k"), []byte("v")))
	require.NoError(t, txn.Commit(ctx))

	_, err = txn.Get(ctx, []byte("k"))
	assert.Equal(t, ErrInvalidTxn, errors.Cause(err))
	assert.Equal(t, ErrInvalidTxn, errors.Cause(txn.Delete([]byte("k"))))
	assert.Equal(t, ErrInvalidTxn, errors.Cause(txn.Rollback()))
}

func TestBatchGet(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	mustCommit(t, client, map[string]string{"a": "1", "b": "2", "c": "3"})

	txn, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Set([]byte("b"), []byte("buffered")))
	require.NoError(t, txn.Delete([]byte("c")))

	m, err := txn.BatchGet(ctx, [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("missing")})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("buffered"),
	}, m)
}

func TestIterMergesBufferAndSnapshot(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	mustCommit(t, client, map[string]string{"a": "1", "b": "2", "d": "4"})

	txn, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Set([]byte("c"), []byte("3")))
	require.NoError(t, txn.Set([]byte("b"), []byte("2+")))
	require.NoError(t, txn.Delete([]byte("d")))

	it, err := txn.Iter(ctx, []byte("a"), nil)
	require.NoError(t, err)
	defer it.Close()

	var keys, values []string
	for it.Valid() {
		keys = append(keys, string(it.Key()))
		values = append(values, string(it.Value()))
		require.NoError(t, it.Next())
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, []string{"1", "2+", "3"}, values)
}

func TestScanAcrossRegions(t *testing.T) {
	cluster := mocktikv.NewCluster()
	mocktikv.BootstrapWithMultiRegions(cluster, []byte("b"), []byte("c"))
	mvccStore := mocktikv.NewMvccStore()
	client, err := NewClientWith(mocktikv.NewPDClient(cluster), mocktikv.NewRPCClient(cluster, mvccStore), testConfig())
	require.NoError(t, err)
	defer client.Close()
	ctx := context.Background()

	mustCommit(t, client, map[string]string{
		"a1": "1", "a2": "2", "b1": "3", "c1": "4", "c2": "5",
	})

	ts, err := client.GetTimestamp(ctx)
	require.NoError(t, err)
	it, err := client.GetSnapshot(ts).Iter(ctx, []byte("a2"), []byte("c2"))
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for it.Valid() {
		keys = append(keys, string(it.Key()))
		require.NoError(t, it.Next())
	}
	assert.Equal(t, []string{"a2", "b1", "c1"}, keys)
}

func TestCommitEmptyTxn(t *testing.T) {
	client, _, _ := newTestClient(t)
	defer client.Close()

	txn, err := client.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, txn.Commit(context.Background()))
	assert.False(t, txn.Valid())
}

func TestEpochChangeDuringCommit(t *testing.T) {
	cluster := mocktikv.NewCluster()
	_, _, regionID := mocktikv.BootstrapWithSingleStore(cluster)
	mvccStore := mocktikv.NewMvccStore()
	client, err := NewClientWith(mocktikv.NewPDClient(cluster), mocktikv.NewRPCClient(cluster, mvccStore), testConfig())
	require.NoError(t, err)
	defer client.Close()

	mustCommit(t, client, map[string]string{"k": "v1"})

	// Split so the epoch moves on, invalidating what the client cached.
	ids := cluster.AllocIDs(2)
	cluster.Split(regionID, ids[0], []byte("m"), []uint64{ids[1]}, ids[1])

	// The next commit runs into stale routing and recovers on its own.
	mustCommit(t, client, map[string]string{"k": "v2", "z": "right-half"})
	mustGet(t, client, "k", "v2")
	mustGet(t, client, "z", "right-half")
}

func TestLeaderChangeDuringCommit(t *testing.T) {
	cluster := mocktikv.NewCluster()
	ids := cluster.AllocIDs(5)
	store1, store2, peer1, peer2, regionID := ids[0], ids[1], ids[2], ids[3], ids[4]
	cluster.AddStore(store1, "store1")
	cluster.AddStore(store2, "store2")
	cluster.Bootstrap(regionID, []uint64{store1, store2}, []uint64{peer1, peer2}, peer1)

	mvccStore := mocktikv.NewMvccStore()
	client, err := NewClientWith(mocktikv.NewPDClient(cluster), mocktikv.NewRPCClient(cluster, mvccStore), testConfig())
	require.NoError(t, err)
	defer client.Close()

	mustCommit(t, client, map[string]string{"k": "v1"})

	// Leadership moves; the cached leader now bounces requests with a
	// redirect the sender follows without surfacing an error.
	cluster.ChangeLeader(regionID, peer2)

	mustCommit(t, client, map[string]string{"k": "v2"})
	mustGet(t, client, "k", "v2")
}

func TestUndeterminedPrimaryCommit(t *testing.T) {
	client, _, rpcClient := newTestClient(t)
	defer client.Close()
	ctx := context.Background()

	txn, err := client.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Set([]byte("k"), []byte("v")))

	// Every commit request dies in transit. Prewrite went through, so the
	// primary may or may not have committed; the client must say so rather
	// than claim a rollback.
	rpcClient.SendHook = func(addr string, req *rpc.Request) error {
		if req.Type == rpc.CmdCommit {
			return errors.New("broken pipe")
		}
		return nil
	}
	err = txn.Commit(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrResultUndetermined, errors.Cause(err))
	assert.False(t, txn.Valid())

	// The prewrite lock is still there and keeps blocking readers until it
	// expires and resolution rolls it back.
	rpcClient.SendHook = nil
	_, keyErr := rpcClient.MvccStore.Get([]byte("k"), txn.startTS+1)
	assert.NotNil(t, keyErr)
}

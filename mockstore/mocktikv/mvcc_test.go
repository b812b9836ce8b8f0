package mocktikv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinykv-client/oracle"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
)

func ts(physical int64) uint64 {
	return oracle.ComposeTS(physical, 0)
}

func putMutation(key, value string) *kvrpcpb.Mutation {
	return &kvrpcpb.Mutation{Op: kvrpcpb.Op_Put, Key: []byte(key), Value: []byte(value)}
}

func mustPrewriteCommit(t *testing.T, s *MvccStore, key, value string, startTS, commitTS uint64) {
	require.Nil(t, s.Prewrite(putMutation(key, value), []byte(key), startTS, 3000))
	require.Nil(t, s.Commit([]byte(key), startTS, commitTS))
}

func TestVisibilityAtTimestamp(t *testing.T) {
	s := NewMvccStore()
	mustPrewriteCommit(t, s, "k", "v1", ts(10), ts(20))
	mustPrewriteCommit(t, s, "k", "v2", ts(30), ts(40))

	v, keyErr := s.Get([]byte("k"), ts(15))
	require.Nil(t, keyErr)
	assert.Nil(t, v)

	v, keyErr = s.Get([]byte("k"), ts(25))
	require.Nil(t, keyErr)
	assert.Equal(t, "v1", string(v))

	v, keyErr = s.Get([]byte("k"), ts(45))
	require.Nil(t, keyErr)
	assert.Equal(t, "v2", string(v))
}

func TestLockBlocksReader(t *testing.T) {
	s := NewMvccStore()
	mustPrewriteCommit(t, s, "k", "v1", ts(10), ts(20))
	require.Nil(t, s.Prewrite(putMutation("k", "v2"), []byte("k"), ts(30), 3000))

	// A reader below the lock's start ts is unaffected.
	v, keyErr := s.Get([]byte("k"), ts(25))
	require.Nil(t, keyErr)
	assert.Equal(t, "v1", string(v))

	// A reader above it must resolve the lock first.
	_, keyErr = s.Get([]byte("k"), ts(35))
	require.NotNil(t, keyErr)
	require.NotNil(t, keyErr.Locked)
	assert.Equal(t, ts(30), keyErr.Locked.LockVersion)
}

func TestPrewriteConflict(t *testing.T) {
	s := NewMvccStore()
	mustPrewriteCommit(t, s, "k", "newer", ts(30), ts(40))

	// A transaction that started before the commit above must not write
	// over it.
	keyErr := s.Prewrite(putMutation("k", "stale"), []byte("k"), ts(20), 3000)
	require.NotNil(t, keyErr)
	require.NotNil(t, keyErr.Conflict)
	assert.Equal(t, ts(40), keyErr.Conflict.ConflictTs)
}

func TestPrewriteSingleOwner(t *testing.T) {
	s := NewMvccStore()
	require.Nil(t, s.Prewrite(putMutation("k", "one"), []byte("k"), ts(10), 3000))

	keyErr := s.Prewrite(putMutation("k", "two"), []byte("k"), ts(20), 3000)
	require.NotNil(t, keyErr)
	assert.NotNil(t, keyErr.Locked)

	// The owner's own retry is idempotent.
	require.Nil(t, s.Prewrite(putMutation("k", "one"), []byte("k"), ts(10), 3000))
}

func TestRollbackBlocksLateCommit(t *testing.T) {
	s := NewMvccStore()
	require.Nil(t, s.Prewrite(putMutation("k", "v"), []byte("k"), ts(10), 3000))
	require.Nil(t, s.Rollback([]byte("k"), ts(10)))

	keyErr := s.Commit([]byte("k"), ts(10), ts(20))
	require.NotNil(t, keyErr)
	assert.NotEmpty(t, keyErr.Abort)

	// The rollback tombstone also blocks a late prewrite of the same
	// transaction.
	keyErr = s.Prewrite(putMutation("k", "v"), []byte("k"), ts(10), 3000)
	require.NotNil(t, keyErr)
}

func TestCommitIdempotent(t *testing.T) {
	s := NewMvccStore()
	mustPrewriteCommit(t, s, "k", "v", ts(10), ts(20))
	require.Nil(t, s.Commit([]byte("k"), ts(10), ts(20)))
}

func TestCheckTxnStatusExpiredLock(t *testing.T) {
	s := NewMvccStore()
	require.Nil(t, s.Prewrite(putMutation("k", "v"), []byte("k"), ts(10), 50))

	// Within TTL the owner is reported alive.
	ttl, commitTS, action := s.CheckTxnStatus([]byte("k"), ts(10), ts(30))
	assert.Equal(t, uint64(50), ttl)
	assert.Equal(t, uint64(0), commitTS)
	assert.Equal(t, kvrpcpb.Action_NoAction, action)

	// Past TTL the primary lock is rolled back on the spot.
	ttl, commitTS, action = s.CheckTxnStatus([]byte("k"), ts(10), ts(100))
	assert.Equal(t, uint64(0), ttl)
	assert.Equal(t, uint64(0), commitTS)
	assert.Equal(t, kvrpcpb.Action_TTLExpireRollback, action)

	keyErr := s.Commit([]byte("k"), ts(10), ts(110))
	require.NotNil(t, keyErr)
}

func TestCheckTxnStatusCommitted(t *testing.T) {
	s := NewMvccStore()
	mustPrewriteCommit(t, s, "k", "v", ts(10), ts(20))

	ttl, commitTS, action := s.CheckTxnStatus([]byte("k"), ts(10), ts(30))
	assert.Equal(t, uint64(0), ttl)
	assert.Equal(t, ts(20), commitTS)
	assert.Equal(t, kvrpcpb.Action_NoAction, action)
}

func TestCheckTxnStatusMissingPrimary(t *testing.T) {
	s := NewMvccStore()

	// No lock, no record: the check leaves a rollback so the absent owner
	// can never commit here later.
	ttl, commitTS, action := s.CheckTxnStatus([]byte("k"), ts(10), ts(30))
	assert.Equal(t, uint64(0), ttl)
	assert.Equal(t, uint64(0), commitTS)
	assert.Equal(t, kvrpcpb.Action_LockNotExistRollback, action)

	keyErr := s.Prewrite(putMutation("k", "v"), []byte("k"), ts(10), 3000)
	require.NotNil(t, keyErr)
}

func TestResolveLockCommitsOrRollsBack(t *testing.T) {
	s := NewMvccStore()
	require.Nil(t, s.Prewrite(putMutation("a", "va"), []byte("a"), ts(10), 3000))
	require.Nil(t, s.Prewrite(putMutation("b", "vb"), []byte("a"), ts(10), 3000))

	// Commit both through resolution.
	s.ResolveLock(nil, nil, ts(10), ts(20))
	v, keyErr := s.Get([]byte("b"), ts(30))
	require.Nil(t, keyErr)
	assert.Equal(t, "vb", string(v))

	// And roll back another transaction's locks.
	require.Nil(t, s.Prewrite(putMutation("c", "vc"), []byte("c"), ts(40), 3000))
	s.ResolveLock(nil, nil, ts(40), 0)
	v, keyErr = s.Get([]byte("c"), ts(50))
	require.Nil(t, keyErr)
	assert.Nil(t, v)
}

func TestScanSkipsOtherVersions(t *testing.T) {
	s := NewMvccStore()
	mustPrewriteCommit(t, s, "a", "1", ts(10), ts(20))
	mustPrewriteCommit(t, s, "b", "2", ts(30), ts(40))
	mustPrewriteCommit(t, s, "c", "3", ts(50), ts(60))

	pairs := s.Scan([]byte("a"), nil, 10, ts(45))
	require.Len(t, pairs, 2)
	assert.Equal(t, "a", string(pairs[0].Key))
	assert.Equal(t, "b", string(pairs[1].Key))
}

func TestRawOperations(t *testing.T) {
	s := NewMvccStore()
	s.RawPut([]byte("k"), []byte("v"))
	v, ok := s.RawGet([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, "v", string(v))

	s.RawDelete([]byte("k"))
	_, ok = s.RawGet([]byte("k"))
	assert.False(t, ok)
}

package mocktikv

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"github.com/pingcap-incubator/tinykv-client/oracle"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
)

const btreeDegree = 16

// mvccLock is an uncommitted write staged by a prewrite.
type mvccLock struct {
	startTS uint64
	primary []byte
	value   []byte
	op      kvrpcpb.Op
	ttl     uint64
}

func (l *mvccLock) toLockInfo(key []byte) *kvrpcpb.LockInfo {
	return &kvrpcpb.LockInfo{
		PrimaryLock: l.primary,
		LockVersion: l.startTS,
		Key:         key,
		LockTtl:     l.ttl,
	}
}

// mvccWrite is a finished version: a committed put or delete, a lock
// record, or a rollback tombstone.
type mvccWrite struct {
	startTS  uint64
	commitTS uint64
	op       kvrpcpb.Op
	value    []byte
}

// mvccEntry is all versions of one key. writes is ordered by descending
// commitTS.
type mvccEntry struct {
	key    []byte
	lock   *mvccLock
	writes []mvccWrite
}

func (e *mvccEntry) Less(other btree.Item) bool {
	return bytes.Compare(e.key, other.(*mvccEntry).key) < 0
}

// lockErr builds the KeyError a blocked operation reports.
func (e *mvccEntry) lockErr() *kvrpcpb.KeyError {
	return &kvrpcpb.KeyError{Locked: e.lock.toLockInfo(e.key)}
}

// getValue returns the newest version visible at ts, nil when none.
func (e *mvccEntry) getValue(ts uint64) []byte {
	for _, w := range e.writes {
		if w.commitTS > ts {
			continue
		}
		switch w.op {
		case kvrpcpb.Op_Put:
			return w.value
		case kvrpcpb.Op_Del:
			return nil
		default:
			// Lock and rollback records carry no data; keep looking.
			continue
		}
	}
	return nil
}

// MvccStore is a single process percolator storage engine: txn data and raw
// data live in separate trees, all guarded by one lock. It implements the
// storage semantics only; region checks live in the rpc handler.
type MvccStore struct {
	mu   sync.RWMutex
	tree *btree.BTree
	raw  *btree.BTree
}

// NewMvccStore creates an empty store.
func NewMvccStore() *MvccStore {
	return &MvccStore{
		tree: btree.New(btreeDegree),
		raw:  btree.New(btreeDegree),
	}
}

func (s *MvccStore) entry(key []byte) *mvccEntry {
	item := s.tree.Get(&mvccEntry{key: key})
	if item == nil {
		return nil
	}
	return item.(*mvccEntry)
}

func (s *MvccStore) getOrCreateEntry(key []byte) *mvccEntry {
	if e := s.entry(key); e != nil {
		return e
	}
	e := &mvccEntry{key: append([]byte{}, key...)}
	s.tree.ReplaceOrInsert(e)
	return e
}

// addWrite prepends a version, keeping descending commitTS order.
func (e *mvccEntry) addWrite(w mvccWrite) {
	idx := 0
	for idx < len(e.writes) && e.writes[idx].commitTS > w.commitTS {
		idx++
	}
	e.writes = append(e.writes, mvccWrite{})
	copy(e.writes[idx+1:], e.writes[idx:])
	e.writes[idx] = w
}

// findWrite returns the version written at startTS, or nil.
func (e *mvccEntry) findWrite(startTS uint64) *mvccWrite {
	for i := range e.writes {
		if e.writes[i].startTS == startTS {
			return &e.writes[i]
		}
	}
	return nil
}

// Get reads key at ts, honoring percolator visibility: a lock from an
// older transaction blocks the read.
func (s *MvccStore) Get(key []byte, ts uint64) ([]byte, *kvrpcpb.KeyError) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(key, ts)
}

func (s *MvccStore) getLocked(key []byte, ts uint64) ([]byte, *kvrpcpb.KeyError) {
	e := s.entry(key)
	if e == nil {
		return nil, nil
	}
	if e.lock != nil && e.lock.startTS <= ts && e.lock.op != kvrpcpb.Op_Lock {
		return nil, e.lockErr()
	}
	return e.getValue(ts), nil
}

// Scan returns up to limit visible pairs starting at startKey. A pair whose
// key is locked comes back as a KeyError pair, like the wire protocol does.
func (s *MvccStore) Scan(startKey, endKey []byte, limit int, ts uint64) []*kvrpcpb.KvPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pairs []*kvrpcpb.KvPair
	s.tree.AscendGreaterOrEqual(&mvccEntry{key: startKey}, func(item btree.Item) bool {
		if len(pairs) >= limit {
			return false
		}
		e := item.(*mvccEntry)
		if len(endKey) > 0 && bytes.Compare(e.key, endKey) >= 0 {
			return false
		}
		if e.lock != nil && e.lock.startTS <= ts && e.lock.op != kvrpcpb.Op_Lock {
			pairs = append(pairs, &kvrpcpb.KvPair{Error: e.lockErr(), Key: e.key})
			return true
		}
		if v := e.getValue(ts); v != nil {
			pairs = append(pairs, &kvrpcpb.KvPair{Key: e.key, Value: v})
		}
		return true
	})
	return pairs
}

// Prewrite stages one mutation. It fails with a conflict when a newer
// committed version exists, and with a lock error when another transaction
// holds the key.
func (s *MvccStore) Prewrite(mut *kvrpcpb.Mutation, primary []byte, startTS, ttl uint64) *kvrpcpb.KeyError {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.getOrCreateEntry(mut.Key)

	if e.lock != nil {
		if e.lock.startTS == startTS {
			return nil
		}
		return e.lockErr()
	}
	for _, w := range e.writes {
		if w.commitTS >= startTS {
			return &kvrpcpb.KeyError{
				Conflict: &kvrpcpb.WriteConflict{
					StartTs:    startTS,
					ConflictTs: w.commitTS,
					Key:        mut.Key,
					Primary:    primary,
				},
			}
		}
		break
	}
	if w := e.findWrite(startTS); w != nil && w.op == kvrpcpb.Op_Rollback {
		return &kvrpcpb.KeyError{Abort: "transaction already rolled back"}
	}

	e.lock = &mvccLock{
		startTS: startTS,
		primary: append([]byte{}, primary...),
		value:   mut.Value,
		op:      mut.Op,
		ttl:     ttl,
	}
	return nil
}

// Commit finalizes the lock a transaction holds on key at commitTS.
func (s *MvccStore) Commit(key []byte, startTS, commitTS uint64) *kvrpcpb.KeyError {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(key)
	if e == nil {
		return &kvrpcpb.KeyError{Retryable: "lock not found"}
	}
	if e.lock != nil && e.lock.startTS == startTS {
		e.addWrite(mvccWrite{
			startTS:  startTS,
			commitTS: commitTS,
			op:       e.lock.op,
			value:    e.lock.value,
		})
		e.lock = nil
		return nil
	}
	// Idempotent commit: the lock may already be resolved.
	if w := e.findWrite(startTS); w != nil {
		if w.op == kvrpcpb.Op_Rollback {
			return &kvrpcpb.KeyError{Abort: "transaction already rolled back"}
		}
		return nil
	}
	return &kvrpcpb.KeyError{Retryable: "lock not found"}
}

// Rollback undoes a prewrite and leaves a tombstone so the transaction can
// never commit this key later.
func (s *MvccStore) Rollback(key []byte, startTS uint64) *kvrpcpb.KeyError {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.getOrCreateEntry(key)
	if e.lock != nil && e.lock.startTS == startTS {
		e.lock = nil
		e.addWrite(mvccWrite{startTS: startTS, commitTS: startTS, op: kvrpcpb.Op_Rollback})
		return nil
	}
	if w := e.findWrite(startTS); w != nil {
		if w.op == kvrpcpb.Op_Rollback {
			return nil
		}
		return &kvrpcpb.KeyError{Abort: "transaction already committed"}
	}
	e.addWrite(mvccWrite{startTS: startTS, commitTS: startTS, op: kvrpcpb.Op_Rollback})
	return nil
}

// CheckTxnStatus reports and, when the lock expired or never arrived,
// decides the fate of the transaction that owns primary.
func (s *MvccStore) CheckTxnStatus(primary []byte, lockTS, currentTS uint64) (ttl, commitTS uint64, action kvrpcpb.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(primary)
	if e != nil && e.lock != nil && e.lock.startTS == lockTS {
		if oracle.ExtractPhysical(currentTS)-oracle.ExtractPhysical(lockTS) >= int64(e.lock.ttl) {
			e.lock = nil
			e.addWrite(mvccWrite{startTS: lockTS, commitTS: lockTS, op: kvrpcpb.Op_Rollback})
			return 0, 0, kvrpcpb.Action_TTLExpireRollback
		}
		return e.lock.ttl, 0, kvrpcpb.Action_NoAction
	}
	if e != nil {
		if w := e.findWrite(lockTS); w != nil {
			if w.op == kvrpcpb.Op_Rollback {
				return 0, 0, kvrpcpb.Action_NoAction
			}
			return 0, w.commitTS, kvrpcpb.Action_NoAction
		}
	}
	// No lock and no record: the owner never prewrote its primary here, or
	// crashed before doing so. Leave a rollback so it can never commit.
	ne := s.getOrCreateEntry(primary)
	ne.addWrite(mvccWrite{startTS: lockTS, commitTS: lockTS, op: kvrpcpb.Op_Rollback})
	return 0, 0, kvrpcpb.Action_LockNotExistRollback
}

// ResolveLock commits or rolls back, per commitTS being set, every lock of
// the transaction inside [startKey, endKey).
func (s *MvccStore) ResolveLock(startKey, endKey []byte, startTS, commitTS uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.AscendGreaterOrEqual(&mvccEntry{key: startKey}, func(item btree.Item) bool {
		e := item.(*mvccEntry)
		if len(endKey) > 0 && bytes.Compare(e.key, endKey) >= 0 {
			return false
		}
		if e.lock == nil || e.lock.startTS != startTS {
			return true
		}
		if commitTS > 0 {
			e.addWrite(mvccWrite{
				startTS:  startTS,
				commitTS: commitTS,
				op:       e.lock.op,
				value:    e.lock.value,
			})
		} else {
			e.addWrite(mvccWrite{startTS: startTS, commitTS: startTS, op: kvrpcpb.Op_Rollback})
		}
		e.lock = nil
		return true
	})
}

type rawEntry struct {
	key   []byte
	value []byte
}

func (e *rawEntry) Less(other btree.Item) bool {
	return bytes.Compare(e.key, other.(*rawEntry).key) < 0
}

// RawGet reads a raw key. The bool reports existence.
func (s *MvccStore) RawGet(key []byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item := s.raw.Get(&rawEntry{key: key})
	if item == nil {
		return nil, false
	}
	return item.(*rawEntry).value, true
}

// RawPut stores a raw key.
func (s *MvccStore) RawPut(key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.ReplaceOrInsert(&rawEntry{
		key:   append([]byte{}, key...),
		value: append([]byte{}, value...),
	})
}

// RawDelete removes a raw key.
func (s *MvccStore) RawDelete(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Delete(&rawEntry{key: key})
}

// RawScan returns up to limit raw pairs starting at startKey.
func (s *MvccStore) RawScan(startKey, endKey []byte, limit int) []*kvrpcpb.KvPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pairs []*kvrpcpb.KvPair
	s.raw.AscendGreaterOrEqual(&rawEntry{key: startKey}, func(item btree.Item) bool {
		if len(pairs) >= limit {
			return false
		}
		e := item.(*rawEntry)
		if len(endKey) > 0 && bytes.Compare(e.key, endKey) >= 0 {
			return false
		}
		pairs = append(pairs, &kvrpcpb.KvPair{Key: e.key, Value: e.value})
		return true
	})
	return pairs
}

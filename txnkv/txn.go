package txnkv

import (
	"context"
	"fmt"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinykv-client/metrics"
	"github.com/pingcap-incubator/tinykv-client/retry"
)

// txnState is the lifecycle of a transaction. Transitions only move
// forward; Committed and RolledBack are terminal.
type txnState int

const (
	stateActive txnState = iota
	statePrewriting
	stateCommitting
	stateCommitted
	stateRolledBack
)

func (s txnState) String() string {
	switch s {
	case stateActive:
		return "active"
	case statePrewriting:
		return "prewriting"
	case stateCommitting:
		return "committing"
	case stateCommitted:
		return "committed"
	case stateRolledBack:
		return "rolled back"
	}
	return "unknown"
}

// Transaction buffers writes locally and commits them atomically with an
// optimistic two phase commit. It is owned by a single goroutine; handing
// it to another goroutine must be an explicit transfer, never shared use.
type Transaction struct {
	client    *Client
	startTS   uint64
	startTime time.Time
	snapshot  *Snapshot
	buffer    *memBuffer
	lockKeys  [][]byte
	state     txnState
}

func newTransaction(client *Client, startTS uint64) *Transaction {
	return &Transaction{
		client:    client,
		startTS:   startTS,
		startTime: time.Now(),
		snapshot:  newSnapshot(client, startTS),
		buffer:    newMemBuffer(),
		state:     stateActive,
	}
}

// StartTS returns the transaction's snapshot timestamp.
func (txn *Transaction) StartTS() uint64 {
	return txn.startTS
}

// Valid reports whether the transaction still accepts operations.
func (txn *Transaction) Valid() bool {
	return txn.state == stateActive
}

func (txn *Transaction) String() string {
	return fmt.Sprintf("txn %d (%s)", txn.startTS, txn.state)
}

// Len returns the number of buffered mutations.
func (txn *Transaction) Len() int {
	return txn.buffer.Len()
}

// Size returns the total bytes of buffered mutations.
func (txn *Transaction) Size() int {
	return txn.buffer.Size()
}

// Get reads key, seeing the transaction's own buffered writes before the
// snapshot.
func (txn *Transaction) Get(ctx context.Context, key []byte) ([]byte, error) {
	if !txn.Valid() {
		return nil, errors.Trace(ErrInvalidTxn)
	}
	if len(key) == 0 {
		return nil, errors.Trace(ErrEmptyKey)
	}
	if e := txn.buffer.Get(key); e != nil {
		if e.kind == entryDelete {
			return nil, errors.Trace(ErrNotExist)
		}
		return e.value, nil
	}
	return txn.snapshot.Get(ctx, key)
}

// BatchGet reads many keys, buffered writes first. Missing keys are absent
// from the result.
func (txn *Transaction) BatchGet(ctx context.Context, keys [][]byte) (map[string][]byte, error) {
	if !txn.Valid() {
		return nil, errors.Trace(ErrInvalidTxn)
	}
	result := make(map[string][]byte, len(keys))
	var remain [][]byte
	for _, k := range keys {
		if e := txn.buffer.Get(k); e != nil {
			if e.kind == entryPut {
				result[string(k)] = e.value
			}
			continue
		}
		remain = append(remain, k)
	}
	if len(remain) > 0 {
		stored, err := txn.snapshot.BatchGet(ctx, remain)
		if err != nil {
			return nil, errors.Trace(err)
		}
		for k, v := range stored {
			result[k] = v
		}
	}
	return result, nil
}

// Set buffers a write. No network traffic and no conflict detection happen
// until Commit.
func (txn *Transaction) Set(key, value []byte) error {
	if !txn.Valid() {
		return errors.Trace(ErrInvalidTxn)
	}
	if len(key) == 0 {
		return errors.Trace(ErrEmptyKey)
	}
	txn.buffer.Put(key, value)
	return nil
}

// Delete buffers a delete.
func (txn *Transaction) Delete(key []byte) error {
	if !txn.Valid() {
		return errors.Trace(ErrInvalidTxn)
	}
	if len(key) == 0 {
		return errors.Trace(ErrEmptyKey)
	}
	txn.buffer.Delete(key)
	return nil
}

// LockKeys marks keys to be locked at commit without writing them, so the
// commit fails if anyone else changed them after startTS.
func (txn *Transaction) LockKeys(keys ...[]byte) error {
	if !txn.Valid() {
		return errors.Trace(ErrInvalidTxn)
	}
	for _, k := range keys {
		if len(k) == 0 {
			return errors.Trace(ErrEmptyKey)
		}
		txn.lockKeys = append(txn.lockKeys, k)
	}
	return nil
}

// Iter scans [start, end) merging buffered mutations over the snapshot.
func (txn *Transaction) Iter(ctx context.Context, start, end []byte) (*unionIter, error) {
	if !txn.Valid() {
		return nil, errors.Trace(ErrInvalidTxn)
	}
	snapIt, err := txn.snapshot.Iter(ctx, start, end)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return newUnionIter(txn.buffer.Iter(start, end), snapIt)
}

// Commit runs the two phase commit. On any prewrite failure every written
// lock is rolled back and the transaction ends RolledBack; a conflict comes
// back as ErrTxnConflict so the caller can rerun its logic in a fresh
// transaction.
func (txn *Transaction) Commit(ctx context.Context) error {
	if !txn.Valid() {
		return errors.Trace(ErrInvalidTxn)
	}
	if txn.buffer.Len() == 0 && len(txn.lockKeys) == 0 {
		txn.state = stateCommitted
		return nil
	}

	committer, err := newTwoPhaseCommitter(txn)
	if err != nil {
		txn.state = stateRolledBack
		return errors.Trace(err)
	}

	txn.state = statePrewriting
	bo := retry.NewBackoffer(ctx, 0, txn.client.conf)
	if err := committer.prewriteKeys(bo, committer.keys); err != nil {
		txn.state = stateRolledBack
		committer.cleanupOnFailure(ctx)
		txn.observeFinish("rollback")
		return errors.Trace(err)
	}

	commitTS, err := txn.client.oracle.GetTimestamp(ctx)
	if err != nil {
		txn.state = stateRolledBack
		committer.cleanupOnFailure(ctx)
		txn.observeFinish("rollback")
		return errors.Trace(err)
	}
	committer.commitTS = commitTS

	txn.state = stateCommitting
	if err := committer.commitKeys(bo, committer.keys); err != nil {
		if committer.committed {
			// The primary key committed, so the transaction is decided.
			// Stray secondary locks are repaired by future lock resolution.
			txn.state = stateCommitted
			txn.observeFinish("committed")
			log.Warn("secondary commit incomplete, left to lock resolution",
				zap.Uint64("txn-start-ts", txn.startTS),
				zap.Error(err))
			return nil
		}
		if errors.Cause(err) == ErrResultUndetermined {
			// The primary key's fate is unknown; rolling back now could undo
			// a commit that actually happened. Leave the locks to resolution.
			txn.observeFinish("undetermined")
			return errors.Trace(err)
		}
		txn.state = stateRolledBack
		committer.cleanupOnFailure(ctx)
		txn.observeFinish("rollback")
		return errors.Trace(err)
	}

	txn.state = stateCommitted
	txn.observeFinish("committed")
	return nil
}

// Rollback discards the transaction. Buffered writes are dropped; nothing
// was sent to the storage nodes before Commit, so there is nothing remote to
// undo.
func (txn *Transaction) Rollback() error {
	if !txn.Valid() {
		return errors.Trace(ErrInvalidTxn)
	}
	txn.state = stateRolledBack
	txn.observeFinish("rollback")
	return nil
}

func (txn *Transaction) observeFinish(result string) {
	metrics.TxnCounter.WithLabelValues(result).Inc()
	metrics.TxnDurationHistogram.WithLabelValues(result).Observe(time.Since(txn.startTime).Seconds())
}

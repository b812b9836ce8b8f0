package txnkv

import (
	"bytes"
	"context"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinykv-client/locate"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
	"github.com/pingcap-incubator/tinykv-client/retry"
	"github.com/pingcap-incubator/tinykv-client/rpc"
)

// txnCommitBatchSize caps the byte size of one prewrite or commit request.
// A region group larger than this is split into several requests.
const txnCommitBatchSize = 16 * 1024

type commitAction int

const (
	actionPrewrite commitAction = iota
	actionCommit
	actionCleanup
)

func (a commitAction) String() string {
	switch a {
	case actionPrewrite:
		return "prewrite"
	case actionCommit:
		return "commit"
	case actionCleanup:
		return "cleanup"
	}
	return "unknown"
}

// twoPhaseCommitter drives one transaction's commit. Prewrites fan out to
// all affected regions concurrently; the commit of the primary key then
// decides the transaction, and only after it succeeds are the secondaries
// committed.
type twoPhaseCommitter struct {
	txn       *Transaction
	startTS   uint64
	commitTS  uint64
	primary   []byte
	keys      [][]byte
	mutations map[string]*kvrpcpb.Mutation
	lockTTL   uint64

	// committed flips when the primary key's commit succeeds. Past that
	// point the transaction is decided regardless of what happens to the
	// secondaries.
	committed bool
}

func newTwoPhaseCommitter(txn *Transaction) (*twoPhaseCommitter, error) {
	mutations := make(map[string]*kvrpcpb.Mutation)
	var keys [][]byte
	txn.buffer.ForEach(func(e *bufferEntry) bool {
		m := &kvrpcpb.Mutation{Key: e.key}
		if e.kind == entryDelete {
			m.Op = kvrpcpb.Op_Del
		} else {
			m.Op = kvrpcpb.Op_Put
			m.Value = e.value
		}
		mutations[string(e.key)] = m
		keys = append(keys, e.key)
		return true
	})
	for _, k := range txn.lockKeys {
		if _, ok := mutations[string(k)]; !ok {
			mutations[string(k)] = &kvrpcpb.Mutation{Op: kvrpcpb.Op_Lock, Key: k}
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("no keys to commit")
	}
	return &twoPhaseCommitter{
		txn:       txn,
		startTS:   txn.startTS,
		primary:   keys[0],
		keys:      keys,
		mutations: mutations,
		lockTTL:   uint64(txn.client.conf.LockTTL.Duration / time.Millisecond),
	}, nil
}

// batchKeys is the keys of one request: one region, bounded size.
type batchKeys struct {
	region locate.RegionVerID
	keys   [][]byte
}

// appendBatchesBySize splits a region's keys into size bounded batches.
func appendBatchesBySize(batches []batchKeys, region locate.RegionVerID, keys [][]byte, sizeOf func([]byte) int, limit int) []batchKeys {
	var start, size int
	for end := range keys {
		size += sizeOf(keys[end])
		if size >= limit {
			batches = append(batches, batchKeys{region: region, keys: keys[start : end+1]})
			start = end + 1
			size = 0
		}
	}
	if start < len(keys) {
		batches = append(batches, batchKeys{region: region, keys: keys[start:]})
	}
	return batches
}

func (c *twoPhaseCommitter) prewriteKeys(bo *retry.Backoffer, keys [][]byte) error {
	return c.doActionOnKeys(bo, actionPrewrite, keys)
}

func (c *twoPhaseCommitter) commitKeys(bo *retry.Backoffer, keys [][]byte) error {
	return c.doActionOnKeys(bo, actionCommit, keys)
}

func (c *twoPhaseCommitter) cleanupKeys(bo *retry.Backoffer, keys [][]byte) error {
	return c.doActionOnKeys(bo, actionCleanup, keys)
}

func (c *twoPhaseCommitter) doActionOnKeys(bo *retry.Backoffer, action commitAction, keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	groups, firstRegion, err := c.txn.client.regionCache.GroupKeysByRegion(bo, keys)
	if err != nil {
		return errors.Trace(err)
	}

	sizeOf := func(k []byte) int { return len(k) }
	if action == actionPrewrite {
		sizeOf = func(k []byte) int {
			m := c.mutations[string(k)]
			return len(m.Key) + len(m.Value)
		}
	}

	var batches []batchKeys
	// The group holding the first key goes first so the primary is always
	// in batches[0] when it is among the keys at all.
	if g, ok := groups[firstRegion]; ok {
		batches = appendBatchesBySize(batches, firstRegion, g, sizeOf, txnCommitBatchSize)
		delete(groups, firstRegion)
	}
	for region, g := range groups {
		batches = appendBatchesBySize(batches, region, g, sizeOf, txnCommitBatchSize)
	}

	if action == actionCommit && !c.committed {
		// The primary's batch decides the transaction and must finish
		// before any secondary commit is sent.
		if err = c.doActionOnBatch(bo, action, batches[0]); err != nil {
			return errors.Trace(err)
		}
		batches = batches[1:]
	}
	if len(batches) == 0 {
		return nil
	}
	if len(batches) == 1 {
		return errors.Trace(c.doActionOnBatch(bo, action, batches[0]))
	}
	return errors.Trace(c.doActionOnBatches(bo, action, batches))
}

// doActionOnBatches runs one action on many batches concurrently, each with
// a forked backoffer, and returns the first error.
func (c *twoPhaseCommitter) doActionOnBatches(bo *retry.Backoffer, action commitAction, batches []batchKeys) error {
	errCh := make(chan error, len(batches))
	for _, batch := range batches {
		batch := batch
		childBo, cancel := bo.Fork()
		go func() {
			defer cancel()
			errCh <- c.doActionOnBatch(childBo, action, batch)
		}()
	}
	var firstErr error
	for range batches {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return errors.Trace(firstErr)
}

func (c *twoPhaseCommitter) doActionOnBatch(bo *retry.Backoffer, action commitAction, batch batchKeys) error {
	switch action {
	case actionPrewrite:
		return c.prewriteSingleBatch(bo, batch)
	case actionCommit:
		return c.commitSingleBatch(bo, batch)
	case actionCleanup:
		return c.cleanupSingleBatch(bo, batch)
	}
	return errors.Errorf("unknown commit action %v", action)
}

func (c *twoPhaseCommitter) prewriteSingleBatch(bo *retry.Backoffer, batch batchKeys) error {
	mutations := make([]*kvrpcpb.Mutation, 0, len(batch.keys))
	for _, k := range batch.keys {
		mutations = append(mutations, c.mutations[string(k)])
	}
	req := &rpc.Request{
		Type: rpc.CmdPrewrite,
		Prewrite: &kvrpcpb.PrewriteRequest{
			Mutations:    mutations,
			PrimaryLock:  c.primary,
			StartVersion: c.startTS,
			LockTtl:      c.lockTTL,
		},
	}
	sender := locate.NewRegionRequestSender(c.txn.client.regionCache, c.txn.client.rpcClient)
	for {
		resp, err := sender.SendReq(bo, req, batch.region, c.txn.client.conf.RPCTimeout.Duration)
		if err != nil {
			return errors.Trace(err)
		}
		regionErr, err := resp.GetRegionError()
		if err != nil {
			return errors.Trace(err)
		}
		if regionErr != nil {
			if err = bo.Backoff(retry.BoRegionMiss, errors.New(regionErr.String())); err != nil {
				return errors.Trace(err)
			}
			// Keys may have moved; regroup and prewrite them again.
			return errors.Trace(c.prewriteKeys(bo, batch.keys))
		}
		cmdResp := resp.Prewrite
		if cmdResp == nil {
			return errors.Annotate(ErrInternalProtocol, "prewrite response body missing")
		}
		keyErrs := cmdResp.GetErrors()
		if len(keyErrs) == 0 {
			return nil
		}
		var locks []*Lock
		for _, keyErr := range keyErrs {
			lock, err := extractLockFromKeyErr(keyErr)
			if err != nil {
				// A conflict: someone committed under or locked over us.
				// The whole transaction loses and retries from scratch.
				return errors.Trace(err)
			}
			log.Debug("prewrite blocked by lock",
				zap.Uint64("txn-start-ts", c.startTS),
				zap.Uint64("owner-start-ts", lock.TxnID),
				zap.Binary("key", lock.Key))
			locks = append(locks, lock)
		}
		ok, err := c.txn.client.lockResolver.ResolveLocks(bo, locks)
		if err != nil {
			return errors.Trace(err)
		}
		if !ok {
			if err = bo.Backoff(retry.BoTxnLock, errors.Errorf("%d locks blocking prewrite of txn %d", len(locks), c.startTS)); err != nil {
				return errors.Trace(err)
			}
		}
	}
}

func (c *twoPhaseCommitter) commitSingleBatch(bo *retry.Backoffer, batch batchKeys) error {
	req := &rpc.Request{
		Type: rpc.CmdCommit,
		Commit: &kvrpcpb.CommitRequest{
			StartVersion:  c.startTS,
			Keys:          batch.keys,
			CommitVersion: c.commitTS,
		},
	}
	sender := locate.NewRegionRequestSender(c.txn.client.regionCache, c.txn.client.rpcClient)
	resp, err := sender.SendReq(bo, req, batch.region, c.txn.client.conf.RPCTimeout.Duration)
	if err != nil {
		return errors.Trace(c.classifyCommitErr(sender, batch, err))
	}
	regionErr, err := resp.GetRegionError()
	if err != nil {
		return errors.Trace(err)
	}
	if regionErr != nil {
		if err = bo.Backoff(retry.BoRegionMiss, errors.New(regionErr.String())); err != nil {
			return errors.Trace(c.classifyCommitErr(sender, batch, err))
		}
		// Commit is idempotent; regroup and resend.
		return errors.Trace(c.commitKeys(bo, batch.keys))
	}
	cmdResp := resp.Commit
	if cmdResp == nil {
		return errors.Annotate(ErrInternalProtocol, "commit response body missing")
	}
	if keyErr := cmdResp.GetError(); keyErr != nil {
		if c.committed {
			// The transaction is already decided at the primary; a failed
			// secondary commit is repaired by lock resolution later.
			return errors.Annotatef(ErrInternalProtocol, "secondary commit failed: %s", keyErr)
		}
		return errors.Trace(extractKeyErr(keyErr))
	}
	if c.isPrimaryBatch(batch) {
		c.committed = true
	}
	return nil
}

func (c *twoPhaseCommitter) cleanupSingleBatch(bo *retry.Backoffer, batch batchKeys) error {
	req := &rpc.Request{
		Type: rpc.CmdBatchRollback,
		BatchRollback: &kvrpcpb.BatchRollbackRequest{
			StartVersion: c.startTS,
			Keys:         batch.keys,
		},
	}
	sender := locate.NewRegionRequestSender(c.txn.client.regionCache, c.txn.client.rpcClient)
	resp, err := sender.SendReq(bo, req, batch.region, c.txn.client.conf.RPCTimeout.Duration)
	if err != nil {
		return errors.Trace(err)
	}
	regionErr, err := resp.GetRegionError()
	if err != nil {
		return errors.Trace(err)
	}
	if regionErr != nil {
		if err = bo.Backoff(retry.BoRegionMiss, errors.New(regionErr.String())); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(c.cleanupKeys(bo, batch.keys))
	}
	cmdResp := resp.BatchRollback
	if cmdResp == nil {
		return errors.Annotate(ErrInternalProtocol, "rollback response body missing")
	}
	if keyErr := cmdResp.GetError(); keyErr != nil {
		return errors.Annotatef(ErrInternalProtocol, "rollback rejected: %s", keyErr)
	}
	return nil
}

// classifyCommitErr upgrades a failed commit of the primary key's batch to
// undetermined when a request may have reached the store before the failure.
// Rolling back in that situation could undo a commit that actually happened.
func (c *twoPhaseCommitter) classifyCommitErr(sender *locate.RegionRequestSender, batch batchKeys, err error) error {
	if !c.committed && c.isPrimaryBatch(batch) && sender.RPCError() != nil {
		return errors.Annotatef(ErrResultUndetermined, "%v after transport error %v", err, sender.RPCError())
	}
	return err
}

func (c *twoPhaseCommitter) isPrimaryBatch(batch batchKeys) bool {
	for _, k := range batch.keys {
		if bytes.Equal(k, c.primary) {
			return true
		}
	}
	return false
}

// cleanupOnFailure makes one bounded effort to remove the locks a failed
// commit left behind. Failure here is tolerable: the locks' TTL lets any
// later reader finish the job through lock resolution.
func (c *twoPhaseCommitter) cleanupOnFailure(ctx context.Context) {
	bo := retry.NewBackoffer(ctx, cleanupMaxSleep, c.txn.client.conf)
	if err := c.cleanupKeys(bo, c.keys); err != nil {
		log.Warn("cleanup after failed commit incomplete, leaving locks to expire",
			zap.Uint64("txn-start-ts", c.startTS),
			zap.Error(err))
	}
}

const cleanupMaxSleep = 5 * time.Second

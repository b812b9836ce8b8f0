package txnkv

import (
	"sync"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinykv-client/locate"
	"github.com/pingcap-incubator/tinykv-client/metrics"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
	"github.com/pingcap-incubator/tinykv-client/retry"
	"github.com/pingcap-incubator/tinykv-client/rpc"
)

// resolvedCacheSize bounds the memory of the resolved transaction cache.
const resolvedCacheSize = 2048

// Lock is the client side view of a lock another transaction left on a key.
type Lock struct {
	Key     []byte
	Primary []byte
	TxnID   uint64
	TTL     uint64
}

// NewLock converts a protocol lock into a Lock.
func NewLock(l *kvrpcpb.LockInfo) *Lock {
	return &Lock{
		Key:     l.GetKey(),
		Primary: l.GetPrimaryLock(),
		TxnID:   l.GetLockVersion(),
		TTL:     l.GetLockTtl(),
	}
}

// TxnStatus is the fate of a transaction as decided at its primary key.
type TxnStatus struct {
	ttl      uint64
	commitTS uint64
}

// IsCommitted reports whether the transaction committed.
func (s TxnStatus) IsCommitted() bool { return s.ttl == 0 && s.commitTS > 0 }

// CommitTS returns the commit timestamp of a committed transaction.
func (s TxnStatus) CommitTS() uint64 { return s.commitTS }

// isAlive reports that the lock's owner is still within its TTL and must not
// be disturbed.
func (s TxnStatus) isAlive() bool { return s.ttl > 0 }

// LockResolver decides the fate of locks left by other transactions. The
// decision is always made at the lock's primary key, which is the one place
// the commit protocol guarantees a truthful answer, and then replayed onto
// the secondary locks encountered.
type LockResolver struct {
	client *Client
	mu     struct {
		sync.RWMutex
		// resolved caches terminal statuses by start timestamp. A terminal
		// status never changes, so the cache needs no invalidation, only a
		// size bound.
		resolved       map[uint64]TxnStatus
		recentResolved []uint64
	}
}

func newLockResolver(client *Client) *LockResolver {
	r := &LockResolver{client: client}
	r.mu.resolved = make(map[uint64]TxnStatus)
	return r
}

func (lr *LockResolver) saveResolved(txnID uint64, status TxnStatus) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if _, ok := lr.mu.resolved[txnID]; ok {
		return
	}
	lr.mu.resolved[txnID] = status
	lr.mu.recentResolved = append(lr.mu.recentResolved, txnID)
	if len(lr.mu.recentResolved) > resolvedCacheSize {
		front := lr.mu.recentResolved[0]
		delete(lr.mu.resolved, front)
		lr.mu.recentResolved = lr.mu.recentResolved[1:]
	}
}

func (lr *LockResolver) getResolved(txnID uint64) (TxnStatus, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	s, ok := lr.mu.resolved[txnID]
	return s, ok
}

// ResolveLocks tries to clear the given locks. It returns true when every
// lock was resolved and the blocked operation can be retried immediately;
// false means at least one owner is still alive and the caller should back
// off before retrying.
func (lr *LockResolver) ResolveLocks(bo *retry.Backoffer, locks []*Lock) (bool, error) {
	if len(locks) == 0 {
		return true, nil
	}
	metrics.LockResolverCounter.WithLabelValues("resolve").Inc()

	allResolved := true
	for _, l := range locks {
		if !lr.client.oracle.IsExpired(l.TxnID, l.TTL) {
			// The owner is within its TTL by every timestamp this client
			// has seen. Leave the lock alone and let the caller back off.
			metrics.LockResolverCounter.WithLabelValues("not_expired").Inc()
			log.Debug("lock owner still alive",
				zap.Uint64("txn-id", l.TxnID),
				zap.Int64("remaining-ms", lr.client.oracle.UntilExpired(l.TxnID, l.TTL)))
			allResolved = false
			continue
		}
		status, err := lr.getTxnStatus(bo, l.TxnID, l.Primary)
		if err != nil {
			return false, errors.Trace(err)
		}
		if status.isAlive() {
			metrics.LockResolverCounter.WithLabelValues("not_expired").Inc()
			allResolved = false
			continue
		}
		if err = lr.resolveLock(bo, l, status); err != nil {
			return false, errors.Trace(err)
		}
	}
	return allResolved, nil
}

// getTxnStatus asks the lock owner's primary key whether the owner is
// alive, committed or rolled back. Asking has a side effect on the server:
// an expired primary lock is rolled back, and a missing one gets a rollback
// tombstone so the owner can never commit later.
func (lr *LockResolver) getTxnStatus(bo *retry.Backoffer, txnID uint64, primary []byte) (TxnStatus, error) {
	if s, ok := lr.getResolved(txnID); ok {
		return s, nil
	}
	metrics.LockResolverCounter.WithLabelValues("query_txn_status").Inc()

	currentTS, err := lr.client.oracle.GetTimestamp(bo.GetContext())
	if err != nil {
		return TxnStatus{}, errors.Trace(err)
	}

	var status TxnStatus
	req := &rpc.Request{
		Type: rpc.CmdCheckTxnStatus,
		CheckTxnStatus: &kvrpcpb.CheckTxnStatusRequest{
			PrimaryKey: primary,
			LockTs:     txnID,
			CurrentTs:  currentTS,
		},
	}
	for {
		loc, err := lr.client.regionCache.LocateKey(bo, primary)
		if err != nil {
			return status, errors.Trace(err)
		}
		sender := locate.NewRegionRequestSender(lr.client.regionCache, lr.client.rpcClient)
		resp, err := sender.SendReq(bo, req, loc.Region, lr.client.conf.RPCTimeout.Duration)
		if err != nil {
			return status, errors.Trace(err)
		}
		regionErr, err := resp.GetRegionError()
		if err != nil {
			return status, errors.Trace(err)
		}
		if regionErr != nil {
			if err = bo.Backoff(retry.BoRegionMiss, errors.New(regionErr.String())); err != nil {
				return status, errors.Trace(err)
			}
			continue
		}
		cmdResp := resp.CheckTxnStatus
		if cmdResp == nil {
			return status, errors.Annotate(ErrInternalProtocol, "check txn status response body missing")
		}
		if cmdResp.LockTtl > 0 {
			// Owner still alive.
			return TxnStatus{ttl: cmdResp.LockTtl}, nil
		}
		status = TxnStatus{commitTS: cmdResp.CommitVersion}
		lr.saveResolved(txnID, status)
		log.Debug("resolved transaction status",
			zap.Uint64("txn-id", txnID),
			zap.Uint64("commit-ts", cmdResp.CommitVersion),
			zap.Stringer("action", cmdResp.Action))
		return status, nil
	}
}

// resolveLock replays the primary key's verdict onto one secondary lock:
// commit it at the recorded commit timestamp or roll it back.
func (lr *LockResolver) resolveLock(bo *retry.Backoffer, l *Lock, status TxnStatus) error {
	metrics.LockResolverCounter.WithLabelValues("expired").Inc()
	req := &rpc.Request{
		Type: rpc.CmdResolveLock,
		ResolveLock: &kvrpcpb.ResolveLockRequest{
			StartVersion:  l.TxnID,
			CommitVersion: status.CommitTS(),
		},
	}
	for {
		loc, err := lr.client.regionCache.LocateKey(bo, l.Key)
		if err != nil {
			return errors.Trace(err)
		}
		sender := locate.NewRegionRequestSender(lr.client.regionCache, lr.client.rpcClient)
		resp, err := sender.SendReq(bo, req, loc.Region, lr.client.conf.RPCTimeout.Duration)
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
			continue
		}
		cmdResp := resp.ResolveLock
		if cmdResp == nil {
			return errors.Annotate(ErrInternalProtocol, "resolve lock response body missing")
		}
		if keyErr := cmdResp.GetError(); keyErr != nil {
			return errors.Annotatef(ErrInternalProtocol, "resolve lock rejected: %s", keyErr)
		}
		return nil
	}
}

package txnkv

import (
	"context"
	"sync"

	"github.com/pingcap/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pingcap-incubator/tinykv-client/locate"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
	"github.com/pingcap-incubator/tinykv-client/retry"
	"github.com/pingcap-incubator/tinykv-client/rpc"
)

// Snapshot reads the database as of one timestamp. Every read observes
// exactly the versions committed before ts; locks from transactions still in
// flight at ts are resolved or waited out, never read around.
type Snapshot struct {
	client *Client
	ts     uint64
}

func newSnapshot(client *Client, ts uint64) *Snapshot {
	return &Snapshot{client: client, ts: ts}
}

// Ts returns the snapshot's read timestamp.
func (s *Snapshot) Ts() uint64 {
	return s.ts
}

// Get fetches the value of key visible at the snapshot timestamp. It
// returns ErrNotExist when no committed version is visible.
func (s *Snapshot) Get(ctx context.Context, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.Trace(ErrEmptyKey)
	}
	bo := retry.NewBackoffer(ctx, 0, s.client.conf)
	return s.get(bo, key)
}

func (s *Snapshot) get(bo *retry.Backoffer, key []byte) ([]byte, error) {
	sender := locate.NewRegionRequestSender(s.client.regionCache, s.client.rpcClient)
	req := &rpc.Request{
		Type: rpc.CmdGet,
		Get: &kvrpcpb.GetRequest{
			Key:     key,
			Version: s.ts,
		},
	}
	for {
		loc, err := s.client.regionCache.LocateKey(bo, key)
		if err != nil {
			return nil, errors.Trace(err)
		}
		resp, err := sender.SendReq(bo, req, loc.Region, s.client.conf.RPCTimeout.Duration)
		if err != nil {
			return nil, errors.Trace(err)
		}
		regionErr, err := resp.GetRegionError()
		if err != nil {
			return nil, errors.Trace(err)
		}
		if regionErr != nil {
			if err = bo.Backoff(retry.BoRegionMiss, errors.New(regionErr.String())); err != nil {
				return nil, errors.Trace(err)
			}
			continue
		}
		cmdResp := resp.Get
		if cmdResp == nil {
			return nil, errors.Annotate(ErrInternalProtocol, "get response body missing")
		}
		if keyErr := cmdResp.GetError(); keyErr != nil {
			lock, err := extractLockFromKeyErr(keyErr)
			if err != nil {
				return nil, errors.Trace(err)
			}
			ok, err := s.client.lockResolver.ResolveLocks(bo, []*Lock{lock})
			if err != nil {
				return nil, errors.Trace(err)
			}
			if !ok {
				if err = bo.Backoff(retry.BoTxnLock, errors.Errorf("key %q locked by txn %d", key, lock.TxnID)); err != nil {
					return nil, errors.Trace(err)
				}
			}
			continue
		}
		if cmdResp.NotFound {
			return nil, errors.Trace(ErrNotExist)
		}
		return cmdResp.Value, nil
	}
}

// BatchGet fetches many keys at the snapshot timestamp. Missing keys are
// simply absent from the result map.
func (s *Snapshot) BatchGet(ctx context.Context, keys [][]byte) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	bo := retry.NewBackoffer(ctx, 0, s.client.conf)
	groups, _, err := s.client.regionCache.GroupKeysByRegion(bo, keys)
	if err != nil {
		return nil, errors.Trace(err)
	}

	var mu sync.Mutex
	result := make(map[string][]byte, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for _, groupKeys := range groups {
		groupKeys := groupKeys
		g.Go(func() error {
			gbo := retry.NewBackoffer(gctx, 0, s.client.conf)
			for _, k := range groupKeys {
				v, err := s.get(gbo, k)
				if err != nil {
					if errors.Cause(err) == ErrNotExist {
						continue
					}
					return errors.Trace(err)
				}
				mu.Lock()
				result[string(k)] = v
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Trace(err)
	}
	return result, nil
}

// Iter returns a scanner over [start, end) at the snapshot timestamp. A nil
// end means scan to the end of the key space.
func (s *Snapshot) Iter(ctx context.Context, start, end []byte) (*Scanner, error) {
	return newScanner(ctx, s, start, end, scanBatchSize)
}

// extractLockFromKeyErr returns the lock a read bumped into, or the
// terminal error the key error stands for.
func extractLockFromKeyErr(keyErr *kvrpcpb.KeyError) (*Lock, error) {
	if locked := keyErr.GetLocked(); locked != nil {
		return NewLock(locked), nil
	}
	return nil, extractKeyErr(keyErr)
}

// extractKeyErr maps a storage node key error onto the client taxonomy.
// Conflicts become ErrTxnConflict so callers can re-run the transaction;
// anything else is a hard failure.
func extractKeyErr(keyErr *kvrpcpb.KeyError) error {
	if conflict := keyErr.GetConflict(); conflict != nil {
		return errors.Annotatef(ErrTxnConflict,
			"write conflict on key %q: our start ts %d, conflicting commit ts %d",
			conflict.GetKey(), conflict.GetStartTs(), conflict.GetConflictTs())
	}
	if keyErr.GetRetryable() != "" {
		return errors.Annotatef(ErrTxnConflict, "retryable: %s", keyErr.GetRetryable())
	}
	if keyErr.GetAbort() != "" {
		return errors.Errorf("transaction aborted: %s", keyErr.GetAbort())
	}
	return errors.Annotatef(ErrInternalProtocol, "unexpected key error: %s", keyErr)
}

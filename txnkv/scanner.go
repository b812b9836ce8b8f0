package txnkv

import (
	"bytes"
	"context"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinykv-client/locate"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
	"github.com/pingcap-incubator/tinykv-client/retry"
	"github.com/pingcap-incubator/tinykv-client/rpc"
)

const scanBatchSize = 256

// Scanner iterates committed versions in key order at a snapshot timestamp.
// The storage protocol scans one region at a time with no end bound, so the
// scanner stitches region batches together and cuts off at endKey itself.
type Scanner struct {
	snapshot     *Snapshot
	bo           *retry.Backoffer
	batchSize    uint32
	cache        []*kvrpcpb.KvPair
	idx          int
	nextStartKey []byte
	endKey       []byte
	valid        bool
	eof          bool
}

func newScanner(ctx context.Context, snapshot *Snapshot, start, end []byte, batchSize uint32) (*Scanner, error) {
	s := &Scanner{
		snapshot:     snapshot,
		bo:           retry.NewBackoffer(ctx, 0, snapshot.client.conf),
		batchSize:    batchSize,
		idx:          -1,
		nextStartKey: start,
		endKey:       end,
		valid:        true,
	}
	if err := s.Next(); err != nil {
		return nil, errors.Trace(err)
	}
	return s, nil
}

// Valid reports whether the scanner currently points at a pair.
func (s *Scanner) Valid() bool {
	return s.valid
}

// Key returns the current key. Only valid while Valid() is true.
func (s *Scanner) Key() []byte {
	if !s.valid {
		return nil
	}
	return s.cache[s.idx].Key
}

// Value returns the current value. Only valid while Valid() is true.
func (s *Scanner) Value() []byte {
	if !s.valid {
		return nil
	}
	return s.cache[s.idx].Value
}

// Next advances to the next pair. The scanner becomes invalid at the end of
// the range.
func (s *Scanner) Next() error {
	if !s.valid {
		return errors.New("scanner iterator is invalid")
	}
	for {
		s.idx++
		if s.idx >= len(s.cache) {
			if s.eof {
				s.Close()
				return nil
			}
			if err := s.getData(); err != nil {
				s.Close()
				return errors.Trace(err)
			}
			if s.idx >= len(s.cache) {
				// Empty batch with more regions ahead.
				continue
			}
		}

		current := s.cache[s.idx]
		if len(s.endKey) > 0 && bytes.Compare(current.Key, s.endKey) >= 0 {
			s.eof = true
			s.Close()
			return nil
		}
		if keyErr := current.GetError(); keyErr != nil {
			skip, err := s.resolveCurrentLock(current, keyErr)
			if err != nil {
				s.Close()
				return errors.Trace(err)
			}
			if skip {
				continue
			}
		}
		return nil
	}
}

// Close invalidates the scanner. Safe to call more than once.
func (s *Scanner) Close() {
	s.valid = false
}

// resolveCurrentLock clears the lock blocking the current pair and re-reads
// the key. It reports skip when the key has no visible version once the
// lock is gone.
func (s *Scanner) resolveCurrentLock(current *kvrpcpb.KvPair, keyErr *kvrpcpb.KeyError) (bool, error) {
	lock, err := extractLockFromKeyErr(keyErr)
	if err != nil {
		return false, errors.Trace(err)
	}
	ok, err := s.snapshot.client.lockResolver.ResolveLocks(s.bo, []*Lock{lock})
	if err != nil {
		return false, errors.Trace(err)
	}
	if !ok {
		if err = s.bo.Backoff(retry.BoTxnLock, errors.Errorf("key %q locked during scan", lock.Key)); err != nil {
			return false, errors.Trace(err)
		}
	}
	val, err := s.snapshot.get(s.bo, lock.Key)
	if err != nil {
		if errors.Cause(err) == ErrNotExist {
			return true, nil
		}
		return false, errors.Trace(err)
	}
	current.Error = nil
	current.Key = lock.Key
	current.Value = val
	return false, nil
}

// getData fetches the next batch, advancing nextStartKey across region
// boundaries.
func (s *Scanner) getData() error {
	log.Debug("scanner fetch batch",
		zap.Binary("next-start-key", s.nextStartKey),
		zap.Uint64("ts", s.snapshot.ts))
	sender := locate.NewRegionRequestSender(s.snapshot.client.regionCache, s.snapshot.client.rpcClient)
	for {
		loc, err := s.snapshot.client.regionCache.LocateKey(s.bo, s.nextStartKey)
		if err != nil {
			return errors.Trace(err)
		}
		req := &rpc.Request{
			Type: rpc.CmdScan,
			Scan: &kvrpcpb.ScanRequest{
				StartKey: s.nextStartKey,
				Limit:    s.batchSize,
				Version:  s.snapshot.ts,
			},
		}
		resp, err := sender.SendReq(s.bo, req, loc.Region, s.snapshot.client.conf.RPCTimeout.Duration)
		if err != nil {
			return errors.Trace(err)
		}
		regionErr, err := resp.GetRegionError()
		if err != nil {
			return errors.Trace(err)
		}
		if regionErr != nil {
			if err = s.bo.Backoff(retry.BoRegionMiss, errors.New(regionErr.String())); err != nil {
				return errors.Trace(err)
			}
			continue
		}
		cmdResp := resp.Scan
		if cmdResp == nil {
			return errors.Annotate(ErrInternalProtocol, "scan response body missing")
		}

		s.cache = cmdResp.Pairs
		s.idx = 0

		if len(cmdResp.Pairs) < int(s.batchSize) {
			// This region is drained; continue at its end or stop at the
			// end of the key space.
			if len(loc.EndKey) == 0 ||
				(len(s.endKey) > 0 && bytes.Compare(loc.EndKey, s.endKey) >= 0) {
				s.eof = true
			} else {
				s.nextStartKey = loc.EndKey
			}
			return nil
		}

		lastKey := cmdResp.Pairs[len(cmdResp.Pairs)-1].GetKey()
		s.nextStartKey = append(append([]byte{}, lastKey...), 0)
		return nil
	}
}

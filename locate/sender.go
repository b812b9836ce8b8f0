package locate

import (
	"context"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinykv-client/proto/pkg/errorpb"
	"github.com/pingcap-incubator/tinykv-client/rpc"
	"github.com/pingcap-incubator/tinykv-client/retry"
)

// RegionRequestSender sends one request to the region's leader, retrying
// transparently across the failures that do not move keys between regions:
// transport errors, leader changes and stale commands. Failures that may
// have changed the key to region mapping, epoch mismatches in particular,
// are handed back to the caller as a region error in the response so the
// caller can re-locate its keys and regroup.
//
// Semantic per key errors inside the response are never inspected here.
type RegionRequestSender struct {
	regionCache *RegionCache
	client      rpc.Client
	rpcError    error
}

// NewRegionRequestSender creates a RegionRequestSender.
func NewRegionRequestSender(regionCache *RegionCache, client rpc.Client) *RegionRequestSender {
	return &RegionRequestSender{
		regionCache: regionCache,
		client:      client,
	}
}

// RPCError returns the last transport error seen, for callers that must
// treat an undelivered request differently from a rejected one.
func (s *RegionRequestSender) RPCError() error {
	return s.rpcError
}

// SendReq sends req to the leader of regionID. The returned response may
// still carry a region error that requires relocating keys; it never carries
// a transport error.
func (s *RegionRequestSender) SendReq(bo *retry.Backoffer, req *rpc.Request, regionID RegionVerID, timeout time.Duration) (*rpc.Response, error) {
	for {
		ctx, err := s.regionCache.GetRPCContext(bo, regionID)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if ctx == nil {
			// The cached region is gone. Report stale routing so the caller
			// re-locates instead of us guessing where the key went.
			return rpc.GenRegionErrorResp(req, &errorpb.Error{
				EpochNotMatch: &errorpb.EpochNotMatch{},
			})
		}

		resp, retryable, err := s.sendReqToRegion(bo, ctx, req, timeout)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if retryable {
			continue
		}

		regionErr, err := resp.GetRegionError()
		if err != nil {
			return nil, errors.Trace(err)
		}
		if regionErr != nil {
			retryable, err := s.onRegionError(bo, ctx, regionErr)
			if err != nil {
				return nil, errors.Trace(err)
			}
			if retryable {
				continue
			}
		}
		return resp, nil
	}
}

func (s *RegionRequestSender) sendReqToRegion(bo *retry.Backoffer, ctx *RPCContext, req *rpc.Request, timeout time.Duration) (*rpc.Response, bool, error) {
	if err := req.SetContext(ctx.Meta, ctx.Peer); err != nil {
		return nil, false, errors.Trace(err)
	}
	resp, err := s.client.SendRequest(bo.GetContext(), ctx.Addr, req, timeout)
	if err != nil {
		s.rpcError = err
		if e := s.onSendFail(bo, ctx, err); e != nil {
			return nil, false, errors.Trace(e)
		}
		return nil, true, nil
	}
	return resp, false, nil
}

func (s *RegionRequestSender) onSendFail(bo *retry.Backoffer, ctx *RPCContext, err error) error {
	if errors.Cause(err) == context.Canceled {
		return errors.Trace(err)
	}
	s.regionCache.OnSendFail(bo, ctx, err)
	return bo.Backoff(retry.BoStoreRPC, errors.Errorf("send request to %s failed: %v", ctx.Addr, err))
}

// onRegionError reacts to a region error. It returns true when the request
// can be resent to the same region id; false hands the error to the caller.
func (s *RegionRequestSender) onRegionError(bo *retry.Backoffer, ctx *RPCContext, regionErr *errorpb.Error) (bool, error) {
	if notLeader := regionErr.GetNotLeader(); notLeader != nil {
		log.Debug("not leader",
			zap.Uint64("region-id", ctx.Region.GetID()),
			zap.Uint64("new-leader-store-id", notLeader.GetLeader().GetStoreId()))
		if notLeader.GetLeader() == nil {
			// No hint means an election is in flight; give it a beat.
			s.regionCache.InvalidateCachedRegion(ctx.Region)
			if err := bo.Backoff(retry.BoRegionMiss, errors.Errorf("not leader: %v, ctx: %s", notLeader, ctx)); err != nil {
				return false, errors.Trace(err)
			}
		} else {
			s.regionCache.UpdateLeader(ctx.Region, notLeader.GetLeader().GetStoreId())
		}
		return true, nil
	}

	if staleCommand := regionErr.GetStaleCommand(); staleCommand != nil {
		if err := bo.Backoff(retry.BoRegionMiss, errors.Errorf("stale command, ctx: %s", ctx)); err != nil {
			return false, errors.Trace(err)
		}
		return true, nil
	}

	if epochNotMatch := regionErr.GetEpochNotMatch(); epochNotMatch != nil {
		log.Debug("epoch not match",
			zap.Uint64("region-id", ctx.Region.GetID()),
			zap.Int("current-regions", len(epochNotMatch.CurrentRegions)))
		s.regionCache.OnRegionEpochNotMatch(bo, ctx, epochNotMatch.CurrentRegions)
		return false, nil
	}

	if regionErr.GetKeyNotInRegion() != nil || regionErr.GetRegionNotFound() != nil {
		s.regionCache.InvalidateCachedRegion(ctx.Region)
		return false, nil
	}

	log.Debug("unknown region error",
		zap.Uint64("region-id", ctx.Region.GetID()),
		zap.String("message", regionErr.GetMessage()))
	s.regionCache.InvalidateCachedRegion(ctx.Region)
	return false, nil
}

package mocktikv

import (
	"bytes"
	"context"
	"time"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinykv-client/proto/pkg/errorpb"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/metapb"
	"github.com/pingcap-incubator/tinykv-client/rpc"
)

// RPCClient implements the store client interface against an in process
// cluster. It performs the same region checks a real storage node does, so
// the client's staleness handling is exercised for real.
type RPCClient struct {
	Cluster   *Cluster
	MvccStore *MvccStore

	// SendHook, when set, runs before every request. Returning an error
	// simulates a transport failure for that request.
	SendHook func(addr string, req *rpc.Request) error
}

// NewRPCClient creates an RPCClient over a cluster and a store.
func NewRPCClient(cluster *Cluster, mvccStore *MvccStore) *RPCClient {
	return &RPCClient{Cluster: cluster, MvccStore: mvccStore}
}

// SendRequest handles one request as the addressed store would.
func (c *RPCClient) SendRequest(ctx context.Context, addr string, req *rpc.Request, timeout time.Duration) (*rpc.Response, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Trace(ctx.Err())
	default:
	}
	if c.SendHook != nil {
		if err := c.SendHook(addr, req); err != nil {
			return nil, errors.Trace(err)
		}
	}

	store := c.storeByAddr(addr)
	if store == nil {
		return nil, errors.Errorf("connect %s: connection refused", addr)
	}

	h := &rpcHandler{
		cluster:   c.Cluster,
		mvccStore: c.MvccStore,
		storeID:   store.Id,
	}
	return h.handleRequest(req)
}

// Close implements the store client interface.
func (c *RPCClient) Close() error {
	return nil
}

func (c *RPCClient) storeByAddr(addr string) *metapb.Store {
	for _, s := range c.Cluster.GetAllStores() {
		if s.Address == addr {
			return s
		}
	}
	return nil
}

// rpcHandler serves one request in the role of one store.
type rpcHandler struct {
	cluster   *Cluster
	mvccStore *MvccStore
	storeID   uint64

	// region bounds, set once the request context checks out
	startKey []byte
	endKey   []byte
}

// checkContext validates the request's routing context exactly the way a
// storage node does: region exists, epoch matches, this peer is leader.
func (h *rpcHandler) checkContext(reqCtx *kvrpcpb.Context) *errorpb.Error {
	if reqCtx == nil {
		return &errorpb.Error{Message: "missing request context"}
	}
	meta, leaderPeerID := h.cluster.leaderRegion(reqCtx.GetRegionId())
	if meta == nil {
		return &errorpb.Error{
			Message:        "region not found",
			RegionNotFound: &errorpb.RegionNotFound{RegionId: reqCtx.GetRegionId()},
		}
	}
	var leader *metapb.Peer
	for _, p := range meta.Peers {
		if p.Id == leaderPeerID {
			leader = p
		}
	}
	if leader == nil || reqCtx.GetPeer() == nil || leader.StoreId != h.storeID || reqCtx.GetPeer().GetId() != leader.Id {
		return &errorpb.Error{
			Message: "not leader",
			NotLeader: &errorpb.NotLeader{
				RegionId: reqCtx.GetRegionId(),
				Leader:   leader,
			},
		}
	}
	epoch := reqCtx.GetRegionEpoch()
	if epoch.GetConfVer() != meta.RegionEpoch.ConfVer || epoch.GetVersion() != meta.RegionEpoch.Version {
		return &errorpb.Error{
			Message: "epoch not match",
			EpochNotMatch: &errorpb.EpochNotMatch{
				CurrentRegions: []*metapb.Region{meta},
			},
		}
	}
	h.startKey, h.endKey = meta.StartKey, meta.EndKey
	return nil
}

func (h *rpcHandler) keyInRegion(key []byte) bool {
	return bytes.Compare(h.startKey, key) <= 0 &&
		(bytes.Compare(key, h.endKey) < 0 || len(h.endKey) == 0)
}

func (h *rpcHandler) keyNotInRegion(key []byte, regionID uint64) *errorpb.Error {
	return &errorpb.Error{
		Message: "key not in region",
		KeyNotInRegion: &errorpb.KeyNotInRegion{
			Key:      key,
			RegionId: regionID,
			StartKey: h.startKey,
			EndKey:   h.endKey,
		},
	}
}

// regionEnd clamps a scan to the region's end, honoring an optional cap.
func (h *rpcHandler) regionEnd() []byte {
	return h.endKey
}

func (h *rpcHandler) handleRequest(req *rpc.Request) (*rpc.Response, error) {
	resp := &rpc.Response{Type: req.Type}
	switch req.Type {
	case rpc.CmdGet:
		r := req.Get
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.Get = &kvrpcpb.GetResponse{RegionError: err}
			return resp, nil
		}
		if !h.keyInRegion(r.Key) {
			resp.Get = &kvrpcpb.GetResponse{RegionError: h.keyNotInRegion(r.Key, r.GetContext().GetRegionId())}
			return resp, nil
		}
		val, keyErr := h.mvccStore.Get(r.Key, r.Version)
		if keyErr != nil {
			resp.Get = &kvrpcpb.GetResponse{Error: keyErr}
			return resp, nil
		}
		resp.Get = &kvrpcpb.GetResponse{Value: val, NotFound: val == nil}

	case rpc.CmdScan:
		r := req.Scan
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.Scan = &kvrpcpb.ScanResponse{RegionError: err}
			return resp, nil
		}
		if !h.keyInRegion(r.StartKey) {
			resp.Scan = &kvrpcpb.ScanResponse{RegionError: h.keyNotInRegion(r.StartKey, r.GetContext().GetRegionId())}
			return resp, nil
		}
		pairs := h.mvccStore.Scan(r.StartKey, h.regionEnd(), int(r.Limit), r.Version)
		resp.Scan = &kvrpcpb.ScanResponse{Pairs: pairs}

	case rpc.CmdPrewrite:
		r := req.Prewrite
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.Prewrite = &kvrpcpb.PrewriteResponse{RegionError: err}
			return resp, nil
		}
		var keyErrs []*kvrpcpb.KeyError
		for _, m := range r.Mutations {
			if !h.keyInRegion(m.Key) {
				resp.Prewrite = &kvrpcpb.PrewriteResponse{RegionError: h.keyNotInRegion(m.Key, r.GetContext().GetRegionId())}
				return resp, nil
			}
			if keyErr := h.mvccStore.Prewrite(m, r.PrimaryLock, r.StartVersion, r.LockTtl); keyErr != nil {
				keyErrs = append(keyErrs, keyErr)
			}
		}
		resp.Prewrite = &kvrpcpb.PrewriteResponse{Errors: keyErrs}

	case rpc.CmdCommit:
		r := req.Commit
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.Commit = &kvrpcpb.CommitResponse{RegionError: err}
			return resp, nil
		}
		commitResp := &kvrpcpb.CommitResponse{}
		for _, k := range r.Keys {
			if !h.keyInRegion(k) {
				resp.Commit = &kvrpcpb.CommitResponse{RegionError: h.keyNotInRegion(k, r.GetContext().GetRegionId())}
				return resp, nil
			}
			if keyErr := h.mvccStore.Commit(k, r.StartVersion, r.CommitVersion); keyErr != nil {
				commitResp.Error = keyErr
				break
			}
		}
		resp.Commit = commitResp

	case rpc.CmdBatchRollback:
		r := req.BatchRollback
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.BatchRollback = &kvrpcpb.BatchRollbackResponse{RegionError: err}
			return resp, nil
		}
		rollbackResp := &kvrpcpb.BatchRollbackResponse{}
		for _, k := range r.Keys {
			if !h.keyInRegion(k) {
				resp.BatchRollback = &kvrpcpb.BatchRollbackResponse{RegionError: h.keyNotInRegion(k, r.GetContext().GetRegionId())}
				return resp, nil
			}
			if keyErr := h.mvccStore.Rollback(k, r.StartVersion); keyErr != nil {
				rollbackResp.Error = keyErr
				break
			}
		}
		resp.BatchRollback = rollbackResp

	case rpc.CmdCheckTxnStatus:
		r := req.CheckTxnStatus
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.CheckTxnStatus = &kvrpcpb.CheckTxnStatusResponse{RegionError: err}
			return resp, nil
		}
		if !h.keyInRegion(r.PrimaryKey) {
			resp.CheckTxnStatus = &kvrpcpb.CheckTxnStatusResponse{RegionError: h.keyNotInRegion(r.PrimaryKey, r.GetContext().GetRegionId())}
			return resp, nil
		}
		ttl, commitTS, action := h.mvccStore.CheckTxnStatus(r.PrimaryKey, r.LockTs, r.CurrentTs)
		resp.CheckTxnStatus = &kvrpcpb.CheckTxnStatusResponse{
			LockTtl:       ttl,
			CommitVersion: commitTS,
			Action:        action,
		}

	case rpc.CmdResolveLock:
		r := req.ResolveLock
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.ResolveLock = &kvrpcpb.ResolveLockResponse{RegionError: err}
			return resp, nil
		}
		h.mvccStore.ResolveLock(h.startKey, h.endKey, r.StartVersion, r.CommitVersion)
		resp.ResolveLock = &kvrpcpb.ResolveLockResponse{}

	case rpc.CmdRawGet:
		r := req.RawGet
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.RawGet = &kvrpcpb.RawGetResponse{RegionError: err}
			return resp, nil
		}
		if !h.keyInRegion(r.Key) {
			resp.RawGet = &kvrpcpb.RawGetResponse{RegionError: h.keyNotInRegion(r.Key, r.GetContext().GetRegionId())}
			return resp, nil
		}
		val, ok := h.mvccStore.RawGet(r.Key)
		resp.RawGet = &kvrpcpb.RawGetResponse{Value: val, NotFound: !ok}

	case rpc.CmdRawPut:
		r := req.RawPut
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.RawPut = &kvrpcpb.RawPutResponse{RegionError: err}
			return resp, nil
		}
		if !h.keyInRegion(r.Key) {
			resp.RawPut = &kvrpcpb.RawPutResponse{RegionError: h.keyNotInRegion(r.Key, r.GetContext().GetRegionId())}
			return resp, nil
		}
		h.mvccStore.RawPut(r.Key, r.Value)
		resp.RawPut = &kvrpcpb.RawPutResponse{}

	case rpc.CmdRawDelete:
		r := req.RawDelete
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.RawDelete = &kvrpcpb.RawDeleteResponse{RegionError: err}
			return resp, nil
		}
		if !h.keyInRegion(r.Key) {
			resp.RawDelete = &kvrpcpb.RawDeleteResponse{RegionError: h.keyNotInRegion(r.Key, r.GetContext().GetRegionId())}
			return resp, nil
		}
		h.mvccStore.RawDelete(r.Key)
		resp.RawDelete = &kvrpcpb.RawDeleteResponse{}

	case rpc.CmdRawScan:
		r := req.RawScan
		if err := h.checkContext(r.GetContext()); err != nil {
			resp.RawScan = &kvrpcpb.RawScanResponse{RegionError: err}
			return resp, nil
		}
		if !h.keyInRegion(r.StartKey) {
			resp.RawScan = &kvrpcpb.RawScanResponse{RegionError: h.keyNotInRegion(r.StartKey, r.GetContext().GetRegionId())}
			return resp, nil
		}
		pairs := h.mvccStore.RawScan(r.StartKey, h.regionEnd(), int(r.Limit))
		resp.RawScan = &kvrpcpb.RawScanResponse{Kvs: pairs}

	default:
		return nil, errors.Errorf("unsupported request type %v", req.Type)
	}
	return resp, nil
}

package rpc

import (
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinykv-client/proto/pkg/errorpb"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
)

// GenRegionErrorResp builds a response of the request's type carrying only a
// region error. The sender uses it when routing turns out stale before any
// bytes hit the wire, so callers handle that case the same way as a region
// error returned by a storage node.
func GenRegionErrorResp(req *Request, e *errorpb.Error) (*Response, error) {
	resp := &Response{Type: req.Type}
	switch req.Type {
	case CmdGet:
		resp.Get = &kvrpcpb.GetResponse{RegionError: e}
	case CmdScan:
		resp.Scan = &kvrpcpb.ScanResponse{RegionError: e}
	case CmdPrewrite:
		resp.Prewrite = &kvrpcpb.PrewriteResponse{RegionError: e}
	case CmdCommit:
		resp.Commit = &kvrpcpb.CommitResponse{RegionError: e}
	case CmdBatchRollback:
		resp.BatchRollback = &kvrpcpb.BatchRollbackResponse{RegionError: e}
	case CmdCheckTxnStatus:
		resp.CheckTxnStatus = &kvrpcpb.CheckTxnStatusResponse{RegionError: e}
	case CmdResolveLock:
		resp.ResolveLock = &kvrpcpb.ResolveLockResponse{RegionError: e}
	case CmdRawGet:
		resp.RawGet = &kvrpcpb.RawGetResponse{RegionError: e}
	case CmdRawPut:
		resp.RawPut = &kvrpcpb.RawPutResponse{RegionError: e}
	case CmdRawDelete:
		resp.RawDelete = &kvrpcpb.RawDeleteResponse{RegionError: e}
	case CmdRawScan:
		resp.RawScan = &kvrpcpb.RawScanResponse{RegionError: e}
	default:
		return nil, errors.Errorf("invalid request type %v", req.Type)
	}
	return resp, nil
}

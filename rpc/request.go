package rpc

import (
	"context"
	"fmt"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinykv-client/proto/pkg/errorpb"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/kvrpcpb"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/metapb"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/tikvpb"
)

// CmdType identifies a kv command.
type CmdType uint16

const (
	CmdGet CmdType = iota + 1
	CmdScan
	CmdPrewrite
	CmdCommit
	CmdBatchRollback
	CmdCheckTxnStatus
	CmdResolveLock

	CmdRawGet CmdType = iota + 256
	CmdRawPut
	CmdRawDelete
	CmdRawScan
)

func (t CmdType) String() string {
	switch t {
	case CmdGet:
		return "Get"
	case CmdScan:
		return "Scan"
	case CmdPrewrite:
		return "Prewrite"
	case CmdCommit:
		return "Commit"
	case CmdBatchRollback:
		return "BatchRollback"
	case CmdCheckTxnStatus:
		return "CheckTxnStatus"
	case CmdResolveLock:
		return "ResolveLock"
	case CmdRawGet:
		return "RawGet"
	case CmdRawPut:
		return "RawPut"
	case CmdRawDelete:
		return "RawDelete"
	case CmdRawScan:
		return "RawScan"
	}
	return "Unknown"
}

// Request is a uniform envelope over all kv request types. Exactly the field
// matching Type is set.
type Request struct {
	Type           CmdType
	Get            *kvrpcpb.GetRequest
	Scan           *kvrpcpb.ScanRequest
	Prewrite       *kvrpcpb.PrewriteRequest
	Commit         *kvrpcpb.CommitRequest
	BatchRollback  *kvrpcpb.BatchRollbackRequest
	CheckTxnStatus *kvrpcpb.CheckTxnStatusRequest
	ResolveLock    *kvrpcpb.ResolveLockRequest
	RawGet         *kvrpcpb.RawGetRequest
	RawPut         *kvrpcpb.RawPutRequest
	RawDelete      *kvrpcpb.RawDeleteRequest
	RawScan        *kvrpcpb.RawScanRequest
}

// Response is the uniform envelope over all kv response types.
type Response struct {
	Type           CmdType
	Get            *kvrpcpb.GetResponse
	Scan           *kvrpcpb.ScanResponse
	Prewrite       *kvrpcpb.PrewriteResponse
	Commit         *kvrpcpb.CommitResponse
	BatchRollback  *kvrpcpb.BatchRollbackResponse
	CheckTxnStatus *kvrpcpb.CheckTxnStatusResponse
	ResolveLock    *kvrpcpb.ResolveLockResponse
	RawGet         *kvrpcpb.RawGetResponse
	RawPut         *kvrpcpb.RawPutResponse
	RawDelete      *kvrpcpb.RawDeleteResponse
	RawScan        *kvrpcpb.RawScanResponse
}

// SetContext stamps the routing context the request will be validated
// against on the storage node: region id, epoch and peer.
func (req *Request) SetContext(region *metapb.Region, peer *metapb.Peer) error {
	ctx := &kvrpcpb.Context{
		RegionId:    region.GetId(),
		RegionEpoch: region.GetRegionEpoch(),
		Peer:        peer,
	}
	switch req.Type {
	case CmdGet:
		req.Get.Context = ctx
	case CmdScan:
		req.Scan.Context = ctx
	case CmdPrewrite:
		req.Prewrite.Context = ctx
	case CmdCommit:
		req.Commit.Context = ctx
	case CmdBatchRollback:
		req.BatchRollback.Context = ctx
	case CmdCheckTxnStatus:
		req.CheckTxnStatus.Context = ctx
	case CmdResolveLock:
		req.ResolveLock.Context = ctx
	case CmdRawGet:
		req.RawGet.Context = ctx
	case CmdRawPut:
		req.RawPut.Context = ctx
	case CmdRawDelete:
		req.RawDelete.Context = ctx
	case CmdRawScan:
		req.RawScan.Context = ctx
	default:
		return errors.Errorf("invalid request type %v", req.Type)
	}
	return nil
}

// GetRegionError extracts the region error of a response, if any. Every
// response type carries one; a nil result means routing was accepted.
func (resp *Response) GetRegionError() (*errorpb.Error, error) {
	var e interface {
		GetRegionError() *errorpb.Error
	}
	switch resp.Type {
	case CmdGet:
		e = resp.Get
	case CmdScan:
		e = resp.Scan
	case CmdPrewrite:
		e = resp.Prewrite
	case CmdCommit:
		e = resp.Commit
	case CmdBatchRollback:
		e = resp.BatchRollback
	case CmdCheckTxnStatus:
		e = resp.CheckTxnStatus
	case CmdResolveLock:
		e = resp.ResolveLock
	case CmdRawGet:
		e = resp.RawGet
	case CmdRawPut:
		e = resp.RawPut
	case CmdRawDelete:
		e = resp.RawDelete
	case CmdRawScan:
		e = resp.RawScan
	default:
		return nil, errors.Errorf("invalid response type %v", resp.Type)
	}
	if e == nil {
		return nil, errors.Errorf("%v response body missing", resp.Type)
	}
	return e.GetRegionError(), nil
}

// CallRPC executes one request against a storage node client and wraps the
// result. A returned error is a transport error; semantic errors live inside
// the response.
func CallRPC(ctx context.Context, client tikvpb.TikvClient, req *Request) (*Response, error) {
	resp := &Response{Type: req.Type}
	var err error
	switch req.Type {
	case CmdGet:
		resp.Get, err = client.KvGet(ctx, req.Get)
	case CmdScan:
		resp.Scan, err = client.KvScan(ctx, req.Scan)
	case CmdPrewrite:
		resp.Prewrite, err = client.KvPrewrite(ctx, req.Prewrite)
	case CmdCommit:
		resp.Commit, err = client.KvCommit(ctx, req.Commit)
	case CmdBatchRollback:
		resp.BatchRollback, err = client.KvBatchRollback(ctx, req.BatchRollback)
	case CmdCheckTxnStatus:
		resp.CheckTxnStatus, err = client.KvCheckTxnStatus(ctx, req.CheckTxnStatus)
	case CmdResolveLock:
		resp.ResolveLock, err = client.KvResolveLock(ctx, req.ResolveLock)
	case CmdRawGet:
		resp.RawGet, err = client.RawGet(ctx, req.RawGet)
	case CmdRawPut:
		resp.RawPut, err = client.RawPut(ctx, req.RawPut)
	case CmdRawDelete:
		resp.RawDelete, err = client.RawDelete(ctx, req.RawDelete)
	case CmdRawScan:
		resp.RawScan, err = client.RawScan(ctx, req.RawScan)
	default:
		return nil, errors.Errorf("invalid request type %v", req.Type)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return resp, nil
}

func (req *Request) String() string {
	return fmt.Sprintf("%v request", req.Type)
}

// Package rpc sends kv requests to storage node addresses over shared gRPC
// connections. It knows nothing about regions or transactions; callers hand
// it an address and a request and classify the response themselves.
package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/pingcap-incubator/tinykv-client/config"
	"github.com/pingcap-incubator/tinykv-client/metrics"
	"github.com/pingcap-incubator/tinykv-client/proto/pkg/tikvpb"
	"github.com/pingcap-incubator/tinykv-client/util/grpcutil"
)

// Client sends kv requests to storage node addresses. Implementations must
// be safe for concurrent use.
type Client interface {
	SendRequest(ctx context.Context, addr string, req *Request, timeout time.Duration) (*Response, error)
	Close() error
}

type connEntry struct {
	conn   *grpc.ClientConn
	client tikvpb.TikvClient
}

type rpcClient struct {
	connMu struct {
		sync.RWMutex
		conns  map[string]*connEntry
		closed bool
	}
	conf *config.Config
}

// NewRPCClient creates a Client that dials storage nodes lazily and shares
// one connection per address.
func NewRPCClient(conf *config.Config) Client {
	c := &rpcClient{conf: conf}
	c.connMu.conns = make(map[string]*connEntry)
	return c
}

func (c *rpcClient) getConn(addr string) (*connEntry, error) {
	c.connMu.RLock()
	if c.connMu.closed {
		c.connMu.RUnlock()
		return nil, errors.New("rpc client is closed")
	}
	entry, ok := c.connMu.conns[addr]
	c.connMu.RUnlock()
	if ok {
		return entry, nil
	}
	return c.createConn(addr)
}

func (c *rpcClient) createConn(addr string) (*connEntry, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.connMu.closed {
		return nil, errors.New("rpc client is closed")
	}
	if entry, ok := c.connMu.conns[addr]; ok {
		return entry, nil
	}

	sec := c.conf.Security
	conn, err := grpcutil.GetClientConn(addr, sec.CAPath, sec.CertPath, sec.KeyPath,
		grpc.WithInitialWindowSize(int32(c.conf.GrpcInitialWindowSize)),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                c.conf.GrpcKeepAliveTime.Duration,
			Timeout:             c.conf.GrpcKeepAliveTimeout.Duration,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, errors.Trace(err)
	}
	entry := &connEntry{conn: conn, client: tikvpb.NewTikvClient(conn)}
	c.connMu.conns[addr] = entry
	metrics.ConnPoolGauge.Set(float64(len(c.connMu.conns)))
	log.Debug("created store connection", zap.String("addr", addr))
	return entry, nil
}

// dropConn closes and forgets the connection to addr. Called after a
// transport failure so the next request redials.
func (c *rpcClient) dropConn(addr string) {
	c.connMu.Lock()
	entry, ok := c.connMu.conns[addr]
	if ok {
		delete(c.connMu.conns, addr)
		metrics.ConnPoolGauge.Set(float64(len(c.connMu.conns)))
	}
	c.connMu.Unlock()
	if ok {
		if err := entry.conn.Close(); err != nil {
			log.Warn("close store connection failed", zap.String("addr", addr), zap.Error(err))
		}
	}
}

// SendRequest sends a request to the storage node at addr, bounded by
// timeout. A non-nil error is a transport failure and the cached connection
// is dropped.
func (c *rpcClient) SendRequest(ctx context.Context, addr string, req *Request, timeout time.Duration) (*Response, error) {
	start := time.Now()
	reqType := req.Type.String()
	defer func() {
		metrics.RequestDurationHistogram.WithLabelValues(reqType).Observe(time.Since(start).Seconds())
	}()

	entry, err := c.getConn(addr)
	if err != nil {
		metrics.RequestCounter.WithLabelValues(reqType, "err").Inc()
		return nil, errors.Trace(err)
	}

	ctx1, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := CallRPC(ctx1, entry.client, req)
	if err != nil {
		metrics.RequestCounter.WithLabelValues(reqType, "err").Inc()
		c.dropConn(addr)
		return nil, errors.Trace(err)
	}
	metrics.RequestCounter.WithLabelValues(reqType, "ok").Inc()
	return resp, nil
}

func (c *rpcClient) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.connMu.closed {
		return nil
	}
	c.connMu.closed = true
	for addr, entry := range c.connMu.conns {
		if err := entry.conn.Close(); err != nil {
			log.Warn("close store connection failed", zap.String("addr", addr), zap.Error(err))
		}
	}
	c.connMu.conns = nil
	metrics.ConnPoolGauge.Set(0)
	return nil
}

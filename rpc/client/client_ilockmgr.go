package client

import (
	"github.com/ValentinKolb/crund/lib/lockmgr"
	"github.com/ValentinKolb/crund/rpc/common"
	"github.com/ValentinKolb/crund/rpc/serializer"
	"github.com/ValentinKolb/crund/rpc/transport"
)

// NewRPCLockMgr creates a new RPC ILockManager
// The function takes a shard ID, a config, a transport and a serializer as parameters.
// The returned close function closes the transport.
func NewRPCLockMgr(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (lockmgr.ILockManager, func() error, error) {
	adapter, err := newAdapter(shardId, config, transport, serializer)
	if err != nil {
		return nil, nil, err
	}
	return &rpcLockMgr{adapter}, transport.Close, nil
}

type rpcLockMgr struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the lockmgr package in interface.go)
// --------------------------------------------------------------------------

func (l *rpcLockMgr) AcquireLock(key string) (ok bool, ownerID []byte, err error) {
	return l.AcquireLocks([]string{key})
}

func (l *rpcLockMgr) AcquireLocks(keys []string) (ok bool, ownerID []byte, err error) {
	resp, err := l.invoke(common.NewAcquireRequest(keys))
	if err != nil {
		return false, nil, err
	}
	return resp.Ok, resp.Value, nil
}

func (l *rpcLockMgr) ReleaseLock(key string, ownerID []byte) (ok bool, err error) {
	return l.ReleaseLocks([]string{key}, ownerID)
}

func (l *rpcLockMgr) ReleaseLocks(keys []string, ownerID []byte) (ok bool, err error) {
	resp, err := l.invoke(common.NewReleaseRequest(keys, ownerID))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

package client

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/rpc/common"
	"github.com/ValentinKolb/crund/rpc/serializer"
	"github.com/ValentinKolb/crund/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation if an RPC client
// Used by the RPCStore and RPCLockMgr with composition pattern
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// newAdapter connects the transport and returns the adapter for the shard
func newAdapter(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (rpcClientAdapter, error) {
	if err := transport.Connect(config); err != nil {
		return rpcClientAdapter{}, store.NewError(store.RetCInternalError, fmt.Sprintf("connect: %v", err))
	}
	return rpcClientAdapter{
		shardId:    shardId,
		config:     config,
		transport:  transport,
		serializer: serializer,
	}, nil
}

// invoke sends a request to the shard of the adapter.
// It returns the response or a *store.Error: transport and decoding failures are internal errors,
// errors reported by the server keep their return code.
// This method also checks if the type of the response is the expected type.
func (a *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("rpc: serialize %s request: %v", req.MsgType, err))
	}

	respBytes, err := a.transport.Send(a.shardId, reqBytes)
	if err != nil {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("rpc: send %s request: %v", req.MsgType, err))
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("rpc: deserialize %s response: %v", req.MsgType, err))
	}

	// Check if the response is an error response
	if err := resp.ResponseErr(); err != nil {
		return nil, err
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, store.NewError(store.RetCInternalError,
			fmt.Sprintf("rpc: unexpected message type %s, expected %s", resp.MsgType, req.MsgType))
	}

	return resp, nil
}

package server

import (
	"github.com/ValentinKolb/crund/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses of one shard
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// If an error occurs, it is set in the response together with its return code
	Handle(req *common.Message) (resp *common.Message)
}

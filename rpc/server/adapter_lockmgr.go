package server

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/lockmgr"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/rpc/common"
)

// NewLockManagerServerAdapter creates the adapter that serves a lock manager
func NewLockManagerServerAdapter(locks lockmgr.ILockManager) IRPCServerAdapter {
	return &lockMgrServerAdapter{locks: locks}
}

type lockMgrServerAdapter struct {
	locks lockmgr.ILockManager
}

func (adapter *lockMgrServerAdapter) Handle(req *common.Message) (resp *common.Message) {
	// Check for nil lock manager
	if adapter.locks == nil {
		return common.NewErrorResponse(store.RetCInternalError, "handler: lock manager is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTLCKAcquire:
		ok, ownerID, err := adapter.locks.AcquireLocks(req.Keys)
		return common.NewAcquireResponse(ok, ownerID, err)
	case common.MsgTLCKRelease:
		ok, err := adapter.locks.ReleaseLocks(req.Keys, req.Value)
		return common.NewReleaseResponse(ok, err)
	default:
		return common.NewErrorResponse(store.RetCInvalidOperation,
			fmt.Sprintf("RPC LockManagerAdapter - Unsupported message type: %s", req.MsgType))
	}
}

package server

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/rpc/common"
)

// NewIStoreServerAdapter creates the adapter that serves a store.IStore.
// Every read request runs in its own read transaction, a commit request applies its ops in one write transaction.
func NewIStoreServerAdapter(s store.IStore) IRPCServerAdapter {
	return &iStoreServerAdapterImpl{store: s}
}

type iStoreServerAdapterImpl struct {
	store store.IStore
}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message) *common.Message {
	// Check for nil store
	if adapter.store == nil {
		return common.NewErrorResponse(store.RetCInternalError, "handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTGet:
		var value []byte
		var ok bool
		err := adapter.view(func(tx store.ITx) (err error) {
			value, ok, err = tx.Get(req.Key)
			return err
		})
		return common.NewGetResponse(value, ok, err)
	case common.MsgTHas:
		var ok bool
		err := adapter.view(func(tx store.ITx) (err error) {
			ok, err = tx.Has(req.Key)
			return err
		})
		return common.NewHasResponse(ok, err)
	case common.MsgTScan:
		keys := make([]string, 0)
		values := make([][]byte, 0)
		err := adapter.view(func(tx store.ITx) error {
			return tx.Scan(req.Key, func(key string, value []byte) bool {
				keys = append(keys, key)
				values = append(values, value)
				return true
			})
		})
		return common.NewScanResponse(keys, values, err)
	case common.MsgTCommit:
		return common.NewCommitResponse(adapter.commit(req.Ops))
	case common.MsgTInfo:
		info, err := adapter.store.GetDBInfo()
		if err != nil {
			return common.NewInfoResponse(nil, err)
		}
		meta, err := json.Marshal(info)
		if err != nil {
			return common.NewInfoResponse(nil, store.NewError(store.RetCInternalError, fmt.Sprintf("encode info: %v", err)))
		}
		return common.NewInfoResponse(meta, nil)
	default:
		return common.NewErrorResponse(store.RetCInvalidOperation,
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType))
	}
}

// view runs fn in a read transaction
func (adapter *iStoreServerAdapterImpl) view(fn func(tx store.ITx) error) error {
	tx, err := adapter.store.Begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}

// commit applies the ops of a remote transaction atomically
func (adapter *iStoreServerAdapterImpl) commit(ops []store.Op) error {
	tx, err := adapter.store.Begin(true)
	if err != nil {
		return err
	}
	if err := store.ApplyOps(tx, ops); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

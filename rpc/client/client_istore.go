package client

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/rpc/common"
	"github.com/ValentinKolb/crund/rpc/serializer"
	"github.com/ValentinKolb/crund/rpc/transport"
)

// NewRPCStore creates a new RPC store
// The function takes a shard ID, a config, a transport and a serializer as parameters.
// Transactions of the store are buffered: reads go to the server as they happen,
// writes are sent as one commit message.
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {
	adapter, err := newAdapter(shardId, config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &rpcStore{adapter}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (s *rpcStore) Begin(writable bool) (store.ITx, error) {
	return store.NewBufferedTx(s, writable, s.commit), nil
}

// GetDBInfo returns the info of the database behind the remote shard
func (s *rpcStore) GetDBInfo() (info db.DatabaseInfo, err error) {
	resp, err := s.invoke(common.NewInfoRequest())
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return db.DatabaseInfo{}, store.NewError(store.RetCInternalError, fmt.Sprintf("rpc: decode info: %v", err))
	}
	return info, nil
}

func (s *rpcStore) Close() error {
	return s.transport.Close()
}

// --------------------------------------------------------------------------
// Committed state access (docu see store.Reader)
// --------------------------------------------------------------------------

func (s *rpcStore) Get(key string) (value []byte, loaded bool, err error) {
	resp, err := s.invoke(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	if resp.Ok && resp.Value == nil {
		// json and gob drop empty values
		resp.Value = []byte{}
	}
	return resp.Value, resp.Ok, nil
}

func (s *rpcStore) Has(key string) (loaded bool, err error) {
	resp, err := s.invoke(common.NewHasRequest(key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (s *rpcStore) Scan(prefix string, fn func(key string, value []byte) bool) error {
	resp, err := s.invoke(common.NewScanRequest(prefix))
	if err != nil {
		return err
	}
	for i, key := range resp.Keys {
		var value []byte
		if i < len(resp.Values) {
			value = resp.Values[i]
		}
		if value == nil {
			value = []byte{}
		}
		if !fn(key, value) {
			return nil
		}
	}
	return nil
}

// commit sends the writes of a transaction, a transaction without writes needs no round trip
func (s *rpcStore) commit(ops []store.Op) error {
	if len(ops) == 0 {
		return nil
	}
	_, err := s.invoke(common.NewCommitRequest(ops))
	return err
}

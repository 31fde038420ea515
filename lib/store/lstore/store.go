package lstore

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/ValentinKolb/crund/lib/store"
)

type storeImpl struct {
	db db.KVDB
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
// The transactions of the store are the transactions of the database created by factory.
func NewLocalStore(factory db.Factory) (store.IStore, error) {
	database, err := factory()
	if err != nil {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("open database: %v", err))
	}
	return &storeImpl{db: database}, nil
}

// Wrap creates a local store on top of an already opened database
func Wrap(database db.KVDB) store.IStore {
	return &storeImpl{db: database}
}

// unsupported returns a *store.Error if the database lacks a feature
func (s *storeImpl) unsupported(feature db.Feature, op string) error {
	if s.db.SupportsFeature(feature) {
		return nil
	}
	return store.NewError(store.RetCUnsupportedOperation, op+" operation is not supported")
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Begin(writable bool) (store.ITx, error) {
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, store.WrapError(err)
	}
	return &txImpl{store: s, tx: tx}, nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}

func (s *storeImpl) Close() error {
	return store.WrapError(s.db.Close())
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// txImpl checks the features of the database before every operation and converts
// engine errors into *store.Error values.
//
// Thread-safety: A transaction must only be used by one goroutine.
type txImpl struct {
	store *storeImpl
	tx    db.Txn
}

func (t *txImpl) Set(key string, value []byte) error {
	if err := t.store.unsupported(db.FeatureSet, "Set"); err != nil {
		return err
	}
	return store.WrapError(t.tx.Set(key, value))
}

func (t *txImpl) SetIfUnset(key string, value []byte) error {
	if err := t.store.unsupported(db.FeatureSetIfUnset, "SetIfUnset"); err != nil {
		return err
	}
	return store.WrapError(t.tx.SetIfUnset(key, value))
}

func (t *txImpl) Delete(key string) error {
	if err := t.store.unsupported(db.FeatureDelete, "Delete"); err != nil {
		return err
	}
	return store.WrapError(t.tx.Delete(key))
}

func (t *txImpl) Get(key string) ([]byte, bool, error) {
	if err := t.store.unsupported(db.FeatureGet, "Get"); err != nil {
		return nil, false, err
	}
	value, loaded, err := t.tx.Get(key)
	return value, loaded, store.WrapError(err)
}

func (t *txImpl) Has(key string) (bool, error) {
	if err := t.store.unsupported(db.FeatureHas, "Has"); err != nil {
		return false, err
	}
	loaded, err := t.tx.Has(key)
	return loaded, store.WrapError(err)
}

func (t *txImpl) Scan(prefix string, fn func(key string, value []byte) bool) error {
	if err := t.store.unsupported(db.FeatureScan, "Scan"); err != nil {
		return err
	}
	return store.WrapError(t.tx.Scan(prefix, fn))
}

func (t *txImpl) Commit() error {
	return store.WrapError(t.tx.Commit())
}

func (t *txImpl) Rollback() error {
	return store.WrapError(t.tx.Rollback())
}

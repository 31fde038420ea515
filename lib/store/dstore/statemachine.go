package dstore

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"io"
	"time"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// KVStateMachine is a state machine implementation for Dragonboat RAFT
type KVStateMachine struct {
	replicaID uint64
	shardID   uint64
	database  db.KVDB // the actual dataStorage
}

// CreateStateMaschineFactory returns a function that can be used by dragonboat to create a new state machine for a node host.
// The database of every replica is opened with dbFactory, a failing factory aborts the replica start with a panic.
func CreateStateMaschineFactory(dbFactory db.Factory) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		database, err := dbFactory()
		if err != nil {
			panic(fmt.Sprintf("open database for shard %d replica %d: %v", shardID, replicaID, err))
		}
		return &KVStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			database:  database,
		}
	}
}

// Lookup handles read-only queries, each query runs in its own read transaction.
func (fsm *KVStateMachine) Lookup(itf interface{}) (interface{}, error) {

	// try to parse Query into Query struct
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	if q.Type == internal.QueryTGetDBInfo {
		return fsm.database.GetInfo(), nil
	}

	tx, err := fsm.database.Begin(false)
	if err != nil {
		return nil, store.WrapError(err)
	}
	defer tx.Rollback()

	switch q.Type {
	case internal.QueryTGet:
		if !fsm.database.SupportsFeature(db.FeatureGet) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Get operation is not supported")
		}
		val, ok, err := tx.Get(q.Key)
		if err != nil {
			return nil, store.WrapError(err)
		}
		return internal.QueryResult{
			Value: val,
			Ok:    ok,
		}, nil
	case internal.QueryTHas:
		if !fsm.database.SupportsFeature(db.FeatureHas) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Has operation is not supported")
		}
		ok, err := tx.Has(q.Key)
		if err != nil {
			return nil, store.WrapError(err)
		}
		return ok, nil
	case internal.QueryTScan:
		if !fsm.database.SupportsFeature(db.FeatureScan) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Scan operation is not supported")
		}
		var res internal.ScanResult
		err := tx.Scan(q.Key, func(key string, value []byte) bool {
			res.Keys = append(res.Keys, key)
			res.Values = append(res.Values, value)
			return true
		})
		if err != nil {
			return nil, store.WrapError(err)
		}
		return res, nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %d", q.Type))
	}
}

// apply runs all ops of a command in one write transaction
func (fsm *KVStateMachine) apply(cmd internal.Command) sm.Result {
	for _, op := range cmd.Ops {
		feat := op.Type.Feature()
		if feat == 0 {
			return sm.Result{
				Value: uint64(store.RetCInvalidOperation),
				Data:  []byte(fmt.Sprintf("unknown op type: %s", op.Type)),
			}
		}
		if !fsm.database.SupportsFeature(feat) {
			return sm.Result{
				Value: uint64(store.RetCUnsupportedOperation),
				Data:  []byte(fmt.Sprintf("%s operation is not supported", op.Type)),
			}
		}
	}

	tx, err := fsm.database.Begin(true)
	if err != nil {
		return sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(err.Error())}
	}
	if err := store.ApplyOps(tx, cmd.Ops); err != nil {
		tx.Rollback()
		return sm.Result{Value: uint64(store.ErrorCode(store.WrapError(err))), Data: []byte(err.Error())}
	}
	if err := tx.Commit(); err != nil {
		return sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(err.Error())}
	}
	return sm.Result{
		Value: uint64(store.RetCSuccess),
		Data:  []byte(fmt.Sprintf("applied %d ops", len(cmd.Ops))),
	}
}

// Update handles write commands on the KVDB instance.
// Every entry is the serialized write batch of one transaction.
func (fsm *KVStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	// Stats
	start := time.Now()

	for idx, e := range entries {
		if len(e.Cmd) == 0 {
			entries[idx].Result = sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte("empty command ignored")}
			continue
		}
		cmd := internal.Command{}
		if err := cmd.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(fmt.Sprintf("failed to deserialize command: %v", err))}
			continue
		}
		entries[idx].Result = fsm.apply(cmd)
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		log.Infof("State machine took long to update. Batch updated %d entries, took %.2fms", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// PrepareSnapshot opens the read transaction the snapshot is written from.
// Engines with snapshot reads (badger, bolt, leveldb, sql) produce a consistent cut, maple a fuzzy one.
func (fsm *KVStateMachine) PrepareSnapshot() (interface{}, error) {
	return fsm.database.Begin(false)
}

// SaveSnapshot writes the entries of the prepared transaction in the portable dump format
func (fsm *KVStateMachine) SaveSnapshot(ctx interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	tx, ok := ctx.(db.Txn)
	if !ok {
		return fmt.Errorf("invalid snapshot context %T", ctx)
	}
	defer tx.Rollback()
	return db.DumpTx(tx, writer)
}

// RecoverFromSnapshot replaces the database content with the snapshot
func (fsm *KVStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	return db.Restore(fsm.database, r)
}

// Close performs any necessary cleanup.
func (fsm *KVStateMachine) Close() error {
	return fsm.database.Close()
}

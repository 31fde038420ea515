// Package store provides a transactional interface for key-value storage with
// unified error handling. It is the abstraction the benchmark workloads run against:
// a workload only sees an IStore, the engine and the deployment (local, raft, rpc)
// behind it are selected by configuration.
//
// Key Components:
//
//   - IStore / ITx: A store hands out transactions. Writes of a transaction become
//     visible atomically on Commit, Rollback discards them.
//
//   - Error System: All errors returned by stores are *Error values with a typed
//     RetCode, so callers can distinguish unsupported operations from invalid
//     operations and internal failures.
//
//   - Op / ApplyOps: The write set of a transaction as an ordered list, used to ship
//     a transaction as one message (raft proposal, rpc request).
//
//   - NewBufferedTx: A client side transaction for stores that can only apply a
//     whole batch of writes at once. Reads observe the committed state merged
//     with the pending writes.
//
// Implementations:
//
//	- Local Store (lstore): Wraps a db.KVDB directly, the transactions are the
//	  transactions of the engine.
//	  Available in the "github.com/ValentinKolb/crund/lib/store/lstore" package.
//
//	- Distributed Store (dstore): Built on the Dragonboat RAFT consensus library.
//	  A commit is one raft proposal, reads are linearizable.
//	  Available in the "github.com/ValentinKolb/crund/lib/store/dstore" package.
//
//	- Remote Store: The rpc client implements IStore on top of a crund server,
//	  see "github.com/ValentinKolb/crund/rpc/client".
package store

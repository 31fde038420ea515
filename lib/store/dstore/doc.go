// Package dstore implements a distributed, fault-tolerant store using
// the Dragonboat RAFT consensus library. It provides a strongly consistent implementation
// of the store.IStore interface that can operate across multiple nodes.
//
// Architecture:
//
// The dstore implementation consists of three main components:
//
//   - Store Client: Implements the store.IStore interface and communicates with
//     the RAFT cluster. Transactions buffer their writes (store.NewBufferedTx) and
//     propose them as a single command on commit.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine implementation that processes
//     commands and queries on each node. The state machine owns the actual db.KVDB
//     instance and applies every command in one database transaction.
//
//   - Communication Protocol: Defined in the internal package, this consists of Command
//     and Query structures with serialization logic for transmitting operations across
//     the network.
//
// Consensus Model:
//
//	- Strong Consistency: A committed transaction is applied on every node in the
//	  same order. With 2N+1 nodes, up to N node failures can be tolerated.
//
//	- Leader-Based Processing: Commands are forwarded to the leader node,
//	  replicated to followers, and only considered committed when a majority of nodes
//	  have persisted them.
//
// Write Operations:
//
//	1. The writes of a transaction are collected as []store.Op
//	2. On Commit the ops are serialized into a Command and proposed via SyncPropose
//	3. Once committed, every node applies the ops in a single db transaction (Update in statemachine.go)
//	4. SetIfUnset is decided by the state machine against the replicated state
//
// Read Operations:
//
//   - Linearizable Reads: Get, Has and Scan use SyncRead which ensures that the node
//     has applied all committed log entries before processing the request. Reads inside
//     a transaction are read committed, there is no conflict detection between transactions.
//
//   - Stale Reads: GetDBInfo uses StaleRead.
//
// Error Handling and Retries:
//
//	- System Busy: When Dragonboat returns ErrSystemBusy, the operation is retried
//	  after a short delay, up to a fixed number of attempts.
//
//	- Timeouts: All operations have a configurable timeout.
//
//	- Feature Compatibility: The state machine verifies that the underlying db.KVDB
//	  implementation supports every op of a command before applying it.
//
// Snapshotting and Recovery:
//
//   - Snapshots: PrepareSnapshot opens a read transaction, SaveSnapshot writes the
//     entries visible to it with db.DumpTx. Engines with snapshot reads produce
//     consistent snapshots while commands keep being applied.
//
//   - Recovery: RecoverFromSnapshot replaces the database content with db.Restore,
//     the log entries committed after the snapshot are replayed afterwards.
//
// Usage:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	err = nh.StartConcurrentReplica(
//	    clusterMembers,
//	    false,
//	    dstore.CreateStateMaschineFactory(engines.Factory(engineConfig)),
//	    shardConfig)
//	if err != nil { ... }
//
//	s := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
//
// For scenarios where distributed consensus is not required, use the lstore package,
// which provides a single-node implementation of the same interface.
package dstore

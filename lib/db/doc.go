// Package db provides the interface of the transactional key-value databases crund
// benchmarks. Every storage engine is wrapped as a KVDB, so the layers above (stores,
// the raft state machine, the rpc server) work with any of them.
//
// Key Components:
//
//   - KVDB Interface: Begin opens a read-only or writable transaction (Txn). A Txn
//     provides Set, SetIfUnset, Get, Has, Delete and ordered prefix scans and ends with
//     Commit or Rollback. Rollback after Commit is a no-op.
//
//   - Feature Flags: The Feature type defines capability flags that engines advertise
//     through SupportsFeature. Callers check a flag before using an operation and report
//     RetCUnsupportedOperation otherwise.
//
//   - Implementation Identifiers: The Implementation type names the engines
//     ("maple", "badger", "bolt", "leveldb", "sqlite", "mysql", "postgres").
//
//   - Database Information: DatabaseInfo reports the engine, the number of keys, size
//     estimates and engine specific metadata. Sizes may be estimated, a precise count
//     can be expensive.
//
//   - Persistence: Dump and Restore move the content of any KVDB as a portable stream
//     (magic, version, entries). The raft state machine uses them for snapshots, so a
//     snapshot taken on one engine can be restored on another. Truncate and
//     DeletePrefix remove data in batches.
//
// Related Packages:
//
// The engines package opens an engine by name. The engines/maple package is the
// in-memory reference engine, the other engine packages wrap badger, bbolt, goleveldb
// and database/sql.
//
// The util package provides seeds, hashing, key range helpers and the size statistics
// reported in DatabaseInfo.
package db

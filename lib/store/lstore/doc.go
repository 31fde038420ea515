// Package lstore implements a local, single-node store based on the store.IStore interface.
// It is a thin wrapper around any db.KVDB implementation: every store transaction is a
// transaction of the underlying database, so the isolation and durability of the store
// are the ones of the engine.
//
// Implementation Details:
//
//   - Feature Detection: Before executing an operation, the store checks if the underlying
//     db.KVDB implementation supports the requested feature through the SupportsFeature
//     method. Unsupported operations return store.RetCUnsupportedOperation.
//
//   - Error Conversion: Engine errors (finished transaction, write on a read-only
//     transaction, closed database) are converted into *store.Error values with
//     store.WrapError.
//
//   - Composition Architecture: The database is created by a db.Factory, so the store
//     works with any engine without modification.
//
// Thread Safety:
//
//	The store can be used from multiple goroutines, a single transaction can not.
//	The underlying db.KVDB implementation provides the thread safety guarantees
//	for concurrent transactions.
//
// Usage Example:
//
//	factory := func() (db.KVDB, error) { return maple.NewMapleDB(nil), nil }
//	s, err := lstore.NewLocalStore(factory)
//	if err != nil { ... }
//
//	tx, err := s.Begin(true)
//	if err != nil { ... }
//	_ = tx.Set("a/0000000001", value)
//	err = tx.Commit()
//
// For distributed scenarios requiring consensus across multiple nodes, consider
// using the dstore package instead, which provides a RAFT-based implementation
// of the same interface.
package lstore

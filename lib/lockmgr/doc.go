// Package lockmgr implements a locking mechanism on top of stores that
// implement the store.IStore interface. It provides a simple way to coordinate
// access to shared resources across multiple processes or nodes.
//
// The lockmgr only ever stores in the provided IStore and has no other internal
// state. Therefor it is safe to be created multiple times on the same store.
// As long as the same store is used every time, all locks will work as expected.
//
// Core Functionality:
//   - Lock acquisition with ownership verification
//   - Lock vectors: a set of keys acquired all-or-nothing under one owner ID
//   - Safe release operations that verify ownership
//
// Implementation Approach:
//
//	Locks are stored under the key prefix "l/" and leverage the atomic
//	conditional write of the underlying store:
//
//	- Lock Acquisition: A write transaction calls SetIfUnset for every key,
//	  which guarantees that only one requester can create a key. The value
//	  contains a randomly generated 256 bit owner ID that identifies the holder.
//
//	- Lock Verification: After the commit a read transaction confirms which
//	  locks carry our owner ID. If only part of a vector was acquired, the
//	  acquired part is released again and the acquisition fails.
//
//	- Safe Release: Before deleting, the release verifies inside the same
//	  write transaction that the requester owns every lock of the vector.
//	  Locks that do not exist count as released.
//
// There are no lock timeouts, a crashed holder keeps its locks.
//
// Thread Safety:
//
//	The lockmgr is as thread-safe as the underlying store.IStore
//	implementation. With dstore the lockmgr provides distributed locking
//	with consensus-based guarantees.
//
// Usage Example:
//
//	locks := lockmgr.NewLockManager(s)
//
//	acquired, ownerID, err := locks.AcquireLocks([]string{"a/0000000001", "a/0000000002"})
//	if err != nil {
//	    // Handle error
//	}
//	if acquired {
//	    // Use the resources safely
//	    released, err := locks.ReleaseLocks([]string{"a/0000000001", "a/0000000002"}, ownerID)
//	}
//
// Performance Impact:
//
//	- AcquireLocks: one write transaction followed by one read transaction
//	- ReleaseLocks: one write transaction with a Get and a Delete per key
package lockmgr

// Package lockbench implements a benchmark load for lock managers.
//
// countA is the number of distinct locks, countB the size of a lock vector.
//
//	acqLock             acquire every lock, each must succeed
//	acqLockConflict     acquire every lock again with a new owner, each must fail
//	relLock             release every lock
//	acqLockVec          acquire the locks in vectors of countB keys
//	acqLockVecConflict  vectors of free keys plus one held key must fail and
//	                    must not leave any of the free keys locked
//	relLockVec          release every vector
//
// The lock manager runs its own store transactions, the transaction bracket of the
// driver is a no-op for this load.
package lockbench

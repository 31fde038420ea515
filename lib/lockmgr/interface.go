package lockmgr

// ILockManager defines the interface for a lock provider.
type ILockManager interface {
	// AcquireLock acquires the lock for the given key.
	// Return a boolean indicating whether the lock was acquired, an owner ID, and an error if any.
	AcquireLock(key string) (ok bool, ownerID []byte, err error)

	// AcquireLocks acquires the locks for all keys with a single owner ID, either all or none.
	// If one of the locks is held by someone else, the locks taken in the attempt are released
	// and ok is false.
	AcquireLocks(keys []string) (ok bool, ownerID []byte, err error)

	// ReleaseLock releases the lock for the given key.
	// Return a boolean indicating whether the lock was released, and an error if any.
	// The method will also return True is the lock did not exist.
	ReleaseLock(key string, ownerID []byte) (ok bool, err error)

	// ReleaseLocks releases the locks for all keys, either all or none.
	// Missing locks count as released, a lock held by another owner fails the whole call.
	ReleaseLocks(keys []string, ownerID []byte) (ok bool, err error)
}

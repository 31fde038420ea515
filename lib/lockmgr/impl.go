package lockmgr

import (
	"bytes"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("lockmgr")

type lockMgrImpl struct {
	store store.IStore
}

func NewLockManager(store store.IStore) ILockManager {
	return &lockMgrImpl{
		store: store,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lockmgr/interface.go)
// --------------------------------------------------------------------------

func (lm *lockMgrImpl) AcquireLock(key string) (bool, []byte, error) {
	return lm.AcquireLocks([]string{key})
}

func (lm *lockMgrImpl) AcquireLocks(keys []string) (bool, []byte, error) {
	keys = dedup(keys)
	if len(keys) == 0 {
		return false, nil, store.NewError(store.RetCInvalidOperation, "no lock keys given")
	}

	// Generate owner ID (256 bit random value)
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	// Try to acquire the locks (by setting the values only if they don't exist - atomic CAS operation)
	tx, err := lm.store.Begin(true)
	if err != nil {
		return false, nil, err
	}
	for _, key := range keys {
		if err := tx.SetIfUnset(lockKey(key), ownerID); err != nil {
			tx.Rollback()
			return false, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, nil, err
	}

	// Check which locks were acquired BY US
	owned, err := lm.owned(keys, ownerID)
	if err != nil {
		return false, nil, err
	}
	if len(owned) == len(keys) {
		return true, ownerID, nil
	}

	// Some locks were acquired BY SOMEONE ELSE, give back the partial acquisition
	if len(owned) > 0 {
		if _, err := lm.ReleaseLocks(owned, ownerID); err != nil {
			log.Warningf("Failed to release %d partially acquired locks: %v", len(owned), err)
			return false, nil, err
		}
	}
	return false, nil, nil
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID []byte) (bool, error) {
	return lm.ReleaseLocks([]string{key}, ownerID)
}

func (lm *lockMgrImpl) ReleaseLocks(keys []string, ownerID []byte) (bool, error) {
	tx, err := lm.store.Begin(true)
	if err != nil {
		return false, err
	}

	for _, key := range dedup(keys) {
		// Check if the lock exists
		value, ok, err := tx.Get(lockKey(key))
		if err != nil {
			tx.Rollback()
			return false, err
		}
		if !ok {
			continue
		}

		// Check if the lock is owned by us
		if !bytes.Equal(ownerID, value) {
			tx.Rollback()
			return false, nil
		}

		if err := tx.Delete(lockKey(key)); err != nil {
			tx.Rollback()
			return false, err
		}
	}

	// Release the locks
	err = tx.Commit()
	return err == nil, err
}

// owned returns the keys whose lock is held by ownerID
func (lm *lockMgrImpl) owned(keys []string, ownerID []byte) ([]string, error) {
	tx, err := lm.store.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	owned := make([]string, 0, len(keys))
	for _, key := range keys {
		value, found, err := tx.Get(lockKey(key))
		if err != nil {
			return nil, err
		}
		if found && bytes.Equal(value, ownerID) {
			owned = append(owned, key)
		}
	}
	return owned, nil
}

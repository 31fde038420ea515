package lockmgr

import (
	"github.com/ValentinKolb/crund/lib/db/engines/maple"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/lib/store/lstore"
	"testing"
)

func newStore(t *testing.T) store.IStore {
	s := lstore.Wrap(maple.NewMapleDB(nil))
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestAcquireRelease(t *testing.T) {
	lm := NewLockManager(newStore(t))

	ok, owner, err := lm.AcquireLock("res")
	if err != nil || !ok {
		t.Fatalf("Expected lock to be acquired, got ok=%v err=%v", ok, err)
	}
	if len(owner) != 32 {
		t.Errorf("Expected 32 byte owner ID, got %d", len(owner))
	}

	ok, _, err = lm.AcquireLock("res")
	if err != nil || ok {
		t.Errorf("Expected second acquisition to fail, got ok=%v err=%v", ok, err)
	}

	ok, err = lm.ReleaseLock("res", []byte("someone else"))
	if err != nil || ok {
		t.Errorf("Expected release by a foreign owner to fail, got ok=%v err=%v", ok, err)
	}

	ok, err = lm.ReleaseLock("res", owner)
	if err != nil || !ok {
		t.Errorf("Expected release to succeed, got ok=%v err=%v", ok, err)
	}

	ok, err = lm.ReleaseLock("res", owner)
	if err != nil || !ok {
		t.Errorf("Expected release of a missing lock to succeed, got ok=%v err=%v", ok, err)
	}

	if ok, _, _ := lm.AcquireLock("res"); !ok {
		t.Errorf("Expected lock to be free after release")
	}
}

func TestLockVectors(t *testing.T) {
	s := newStore(t)
	lm := NewLockManager(s)

	ok, holder, err := lm.AcquireLocks([]string{"b", "c"})
	if err != nil || !ok {
		t.Fatalf("Expected vector to be acquired, got ok=%v err=%v", ok, err)
	}

	// overlaps with c
	ok, _, err = lm.AcquireLocks([]string{"a", "c", "d"})
	if err != nil || ok {
		t.Fatalf("Expected overlapping vector to fail, got ok=%v err=%v", ok, err)
	}

	// no partial locks left behind
	tx, err := s.Begin(false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for _, k := range []string{"a", "d"} {
		if has, _ := tx.Has(lockKey(k)); has {
			t.Errorf("Expected lock %s to be released after the failed vector", k)
		}
	}
	tx.Rollback()

	if ok, err := lm.ReleaseLocks([]string{"b", "c"}, holder); err != nil || !ok {
		t.Errorf("Expected vector release to succeed, got ok=%v err=%v", ok, err)
	}
	if ok, _, _ := lm.AcquireLocks([]string{"a", "c", "d", "c"}); !ok {
		t.Errorf("Expected vector with duplicate keys to be acquired after release")
	}
}

func TestReleaseVectorAllOrNothing(t *testing.T) {
	lm := NewLockManager(newStore(t))

	_, mine, _ := lm.AcquireLock("mine")
	_, theirs, _ := lm.AcquireLock("theirs")

	if ok, err := lm.ReleaseLocks([]string{"mine", "theirs"}, mine); err != nil || ok {
		t.Fatalf("Expected release of a foreign lock to fail, got ok=%v err=%v", ok, err)
	}
	// "mine" must still be held
	if ok, _, _ := lm.AcquireLock("mine"); ok {
		t.Errorf("Expected failed vector release to keep all locks")
	}
	if ok, _ := lm.ReleaseLock("theirs", theirs); !ok {
		t.Errorf("Expected owner to release its lock")
	}
}

func TestAcquireNoKeys(t *testing.T) {
	lm := NewLockManager(newStore(t))
	if _, _, err := lm.AcquireLocks(nil); store.ErrorCode(err) != store.RetCInvalidOperation {
		t.Errorf("Expected RetCInvalidOperation, got %v", err)
	}
}

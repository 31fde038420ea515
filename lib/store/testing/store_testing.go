package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/crund/lib/store"
	"testing"
)

// StoreFactory creates a new, empty store
type StoreFactory func(t testing.TB) store.IStore

// RunStoreTests runs the conformance tests for a store.IStore implementation
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, open(t, factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, open(t, factory))
		})

		t.Run("SetIfUnset", func(t *testing.T) {
			testSetIfUnset(t, open(t, factory))
		})

		t.Run("ReadYourWrites", func(t *testing.T) {
			testReadYourWrites(t, open(t, factory))
		})

		t.Run("Rollback", func(t *testing.T) {
			testRollback(t, open(t, factory))
		})

		t.Run("Scan", func(t *testing.T) {
			testScan(t, open(t, factory))
		})

		t.Run("Errors", func(t *testing.T) {
			testErrors(t, open(t, factory))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, open(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func open(t *testing.T, factory StoreFactory) store.IStore {
	s := factory(t)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// update runs fn in a writable transaction and commits it
func update(t testing.TB, s store.IStore, fn func(tx store.ITx)) {
	t.Helper()
	tx, err := s.Begin(true)
	if err != nil {
		t.Fatalf("Begin(true) failed: %v", err)
	}
	fn(tx)
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

// get reads a key in its own read transaction
func get(t testing.TB, s store.IStore, key string) ([]byte, bool) {
	t.Helper()
	tx, err := s.Begin(false)
	if err != nil {
		t.Fatalf("Begin(false) failed: %v", err)
	}
	defer tx.Rollback()
	value, loaded, err := tx.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value, loaded
}

func mustSet(t testing.TB, tx store.ITx, key string, value []byte) {
	t.Helper()
	if err := tx.Set(key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	update(t, s, func(tx store.ITx) {
		mustSet(t, tx, "key1", []byte("value1"))
		mustSet(t, tx, "key2", []byte{})
	})

	if value, loaded := get(t, s, "key1"); !loaded || string(value) != "value1" {
		t.Errorf("Expected value1, got %q (loaded=%v)", value, loaded)
	}
	if value, loaded := get(t, s, "key2"); !loaded || len(value) != 0 {
		t.Errorf("Expected empty value, got %q (loaded=%v)", value, loaded)
	}
	if _, loaded := get(t, s, "missing"); loaded {
		t.Errorf("Expected missing key not to be found")
	}

	update(t, s, func(tx store.ITx) {
		mustSet(t, tx, "key1", []byte("updated"))
	})
	if value, _ := get(t, s, "key1"); string(value) != "updated" {
		t.Errorf("Expected updated, got %q", value)
	}
}

func testDelete(t *testing.T, s store.IStore) {
	update(t, s, func(tx store.ITx) {
		mustSet(t, tx, "key", []byte("value"))
	})
	update(t, s, func(tx store.ITx) {
		if err := tx.Delete("key"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := tx.Delete("never-existed"); err != nil {
			t.Fatalf("Delete of a missing key failed: %v", err)
		}
	})

	tx, err := s.Begin(false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Rollback()
	has, err := tx.Has("key")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if has {
		t.Errorf("Expected key to be deleted")
	}
}

func testSetIfUnset(t *testing.T, s store.IStore) {
	update(t, s, func(tx store.ITx) {
		mustSet(t, tx, "existing", []byte("old"))
	})
	update(t, s, func(tx store.ITx) {
		if err := tx.SetIfUnset("existing", []byte("new")); err != nil {
			t.Fatalf("SetIfUnset failed: %v", err)
		}
		if err := tx.SetIfUnset("fresh", []byte("new")); err != nil {
			t.Fatalf("SetIfUnset failed: %v", err)
		}
	})

	if value, _ := get(t, s, "existing"); string(value) != "old" {
		t.Errorf("Expected SetIfUnset to keep old, got %q", value)
	}
	if value, loaded := get(t, s, "fresh"); !loaded || string(value) != "new" {
		t.Errorf("Expected SetIfUnset to write new, got %q (loaded=%v)", value, loaded)
	}
}

func testReadYourWrites(t *testing.T, s store.IStore) {
	update(t, s, func(tx store.ITx) {
		mustSet(t, tx, "deleted", []byte("x"))
	})

	tx, err := s.Begin(true)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	mustSet(t, tx, "key", []byte("pending"))
	if err := tx.Delete("deleted"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if value, loaded, err := tx.Get("key"); err != nil || !loaded || string(value) != "pending" {
		t.Errorf("Expected pending write to be visible, got %q (loaded=%v, err=%v)", value, loaded, err)
	}
	if has, err := tx.Has("deleted"); err != nil || has {
		t.Errorf("Expected pending delete to be visible, got has=%v err=%v", has, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if value, _ := get(t, s, "key"); string(value) != "pending" {
		t.Errorf("Expected committed value, got %q", value)
	}
}

func testRollback(t *testing.T, s store.IStore) {
	tx, err := s.Begin(true)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	mustSet(t, tx, "key", []byte("value"))
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if _, loaded := get(t, s, "key"); loaded {
		t.Errorf("Expected rolled back write to be discarded")
	}
}

func testScan(t *testing.T, s store.IStore) {
	update(t, s, func(tx store.ITx) {
		for i := 0; i < 10; i++ {
			mustSet(t, tx, fmt.Sprintf("a/%02d", i), []byte{byte(i)})
		}
		mustSet(t, tx, "b/00", []byte("other"))
	})

	tx, err := s.Begin(true)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Rollback()
	mustSet(t, tx, "a/10", []byte{10})
	if err := tx.Delete("a/00"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var keys []string
	err = tx.Scan("a/", func(key string, value []byte) bool {
		keys = append(keys, key)
		if !bytes.Equal(value, []byte{byte(len(keys))}) {
			t.Errorf("Expected value %d for %s, got %v", len(keys), key, value)
		}
		return true
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(keys) != 10 || keys[0] != "a/01" || keys[9] != "a/10" {
		t.Errorf("Expected a/01..a/10 in order, got %v", keys)
	}

	count := 0
	if err := tx.Scan("a/", func(string, []byte) bool { count++; return count < 3 }); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected scan to stop after 3 keys, got %d", count)
	}
}

func testErrors(t *testing.T, s store.IStore) {
	tx, err := s.Begin(false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.Set("key", []byte("value")); store.ErrorCode(err) != store.RetCInvalidOperation {
		t.Errorf("Expected RetCInvalidOperation for a write on a read-only transaction, got %v", err)
	}
	tx.Rollback()

	tx, err = s.Begin(true)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit of an empty transaction failed: %v", err)
	}
	if err := tx.Set("key", []byte("value")); store.ErrorCode(err) != store.RetCInvalidOperation {
		t.Errorf("Expected RetCInvalidOperation for a write after commit, got %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("Expected Rollback after Commit to be a no-op, got %v", err)
	}
}

func testInfo(t *testing.T, s store.IStore) {
	update(t, s, func(tx store.ITx) {
		for i := 0; i < 3; i++ {
			mustSet(t, tx, fmt.Sprintf("info-%d", i), []byte("value"))
		}
	})
	info, err := s.GetDBInfo()
	if err != nil {
		t.Fatalf("GetDBInfo failed: %v", err)
	}
	if info.Keys != 3 {
		t.Errorf("Expected 3 keys, got %d", info.Keys)
	}
	if info.DbType == "" {
		t.Errorf("Expected DbType to be set")
	}
}

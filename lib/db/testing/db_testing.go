package testing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	"sync"
	"testing"
)

// DBFactory creates a new, empty instance of a KVDB implementation.
// Disk based engines should place their files in t.TempDir().
type DBFactory func(t testing.TB) db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory(t))
		})

		t.Run("SetIfUnset", func(t *testing.T) {
			testSetIfUnset(t, factory(t))
		})

		t.Run("ReadYourWrites", func(t *testing.T) {
			testReadYourWrites(t, factory(t))
		})

		t.Run("Rollback", func(t *testing.T) {
			testRollback(t, factory(t))
		})

		t.Run("Isolation", func(t *testing.T) {
			testIsolation(t, factory(t))
		})

		t.Run("Scan", func(t *testing.T) {
			testScan(t, factory(t))
		})

		t.Run("TxLifecycle", func(t *testing.T) {
			testTxLifecycle(t, factory(t))
		})

		t.Run("DumpRestore", func(t *testing.T) {
			testDumpRestore(t, factory)
		})

		t.Run("ConcurrentWriters", func(t *testing.T) {
			testConcurrentWriters(t, factory(t))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(t))
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// update runs fn in a writable transaction and commits it
func update(t testing.TB, database db.KVDB, fn func(tx db.Txn)) {
	t.Helper()
	tx, err := database.Begin(true)
	if err != nil {
		t.Fatalf("Begin(true) failed: %v", err)
	}
	fn(tx)
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

// view runs fn in a read-only transaction
func view(t testing.TB, database db.KVDB, fn func(tx db.Txn)) {
	t.Helper()
	tx, err := database.Begin(false)
	if err != nil {
		t.Fatalf("Begin(false) failed: %v", err)
	}
	defer tx.Rollback()
	fn(tx)
}

func mustSet(t testing.TB, tx db.Txn, key string, value []byte) {
	t.Helper()
	if err := tx.Set(key, value); err != nil {
		t.Fatalf("Set(%s) failed: %v", key, err)
	}
}

func mustGet(t testing.TB, tx db.Txn, key string) ([]byte, bool) {
	t.Helper()
	value, loaded, err := tx.Get(key)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", key, err)
	}
	return value, loaded
}

func mustHas(t testing.TB, tx db.Txn, key string) bool {
	t.Helper()
	loaded, err := tx.Has(key)
	if err != nil {
		t.Fatalf("Has(%s) failed: %v", key, err)
	}
	return loaded
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	update(t, database, func(tx db.Txn) { mustSet(t, tx, testKey, testValue1) })

	view(t, database, func(tx db.Txn) {
		result, exists := mustGet(t, tx, testKey)
		if !exists {
			t.Errorf("Expected key %s to exist after Set", testKey)
		}
		if !bytes.Equal(result, testValue1) {
			t.Errorf("Expected value %s, got %s", testValue1, result)
		}
	})

	update(t, database, func(tx db.Txn) { mustSet(t, tx, testKey, testValue2) })

	view(t, database, func(tx db.Txn) {
		result, exists := mustGet(t, tx, testKey)
		if !exists {
			t.Errorf("Expected key %s to exist after Set", testKey)
		}
		if !bytes.Equal(result, testValue2) {
			t.Errorf("Expected value %s, got %s", testValue2, result)
		}

		if _, exists := mustGet(t, tx, "nonexistent-key"); exists {
			t.Errorf("Expected nonexistent key to return exists=false")
		}

		retrievedValue, _ := mustGet(t, tx, testKey)
		retrievedValue[0] = 'X'
		originalValue, _ := mustGet(t, tx, testKey)
		if bytes.Equal(retrievedValue, originalValue) {
			t.Errorf("Get should return a copy, not a reference to the stored value")
		}
	})

	// the caller may reuse the value slice after Set
	buf := []byte("buffer-value")
	update(t, database, func(tx db.Txn) {
		mustSet(t, tx, "buffer-key", buf)
		buf[0] = 'X'
	})
	view(t, database, func(tx db.Txn) {
		result, _ := mustGet(t, tx, "buffer-key")
		if !bytes.Equal(result, []byte("buffer-value")) {
			t.Errorf("Set should copy the value, got %s", result)
		}
	})
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	update(t, database, func(tx db.Txn) {
		mustSet(t, tx, "delete-key", []byte("value"))
		mustSet(t, tx, "keep-key", []byte("value"))
	})

	update(t, database, func(tx db.Txn) {
		if err := tx.Delete("delete-key"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := tx.Delete("never-existed"); err != nil {
			t.Errorf("Deleting a missing key should not fail, got %v", err)
		}
	})

	view(t, database, func(tx db.Txn) {
		if _, exists := mustGet(t, tx, "delete-key"); exists {
			t.Errorf("Expected key to be deleted")
		}
		if _, exists := mustGet(t, tx, "keep-key"); !exists {
			t.Errorf("Expected other key to survive the delete")
		}
	})
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas)

	update(t, database, func(tx db.Txn) {
		mustSet(t, tx, "has-key", []byte("value"))
		mustSet(t, tx, "empty-key", []byte{})
	})

	view(t, database, func(tx db.Txn) {
		if !mustHas(t, tx, "has-key") {
			t.Errorf("Expected Has to return true for existing key")
		}
		if !mustHas(t, tx, "empty-key") {
			t.Errorf("Expected Has to return true for key with empty value")
		}
		if mustHas(t, tx, "missing-key") {
			t.Errorf("Expected Has to return false for missing key")
		}
	})
}

func testSetIfUnset(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetIfUnset|db.FeatureGet)

	update(t, database, func(tx db.Txn) {
		if err := tx.SetIfUnset("unset-key", []byte("first")); err != nil {
			t.Fatalf("SetIfUnset failed: %v", err)
		}
		// second write in the same transaction must not win either
		if err := tx.SetIfUnset("unset-key", []byte("second")); err != nil {
			t.Fatalf("SetIfUnset failed: %v", err)
		}
	})

	update(t, database, func(tx db.Txn) {
		if err := tx.SetIfUnset("unset-key", []byte("third")); err != nil {
			t.Fatalf("SetIfUnset failed: %v", err)
		}
	})

	view(t, database, func(tx db.Txn) {
		result, _ := mustGet(t, tx, "unset-key")
		if !bytes.Equal(result, []byte("first")) {
			t.Errorf("Expected SetIfUnset to keep the first value, got %s", result)
		}
	})

	// after a delete the key can be set again
	update(t, database, func(tx db.Txn) {
		if err := tx.Delete("unset-key"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := tx.SetIfUnset("unset-key", []byte("fourth")); err != nil {
			t.Fatalf("SetIfUnset failed: %v", err)
		}
	})
	view(t, database, func(tx db.Txn) {
		result, _ := mustGet(t, tx, "unset-key")
		if !bytes.Equal(result, []byte("fourth")) {
			t.Errorf("Expected SetIfUnset after Delete to write, got %s", result)
		}
	})
}

func testReadYourWrites(t *testing.T, database db.KVDB) {
	defer database.Close()

	update(t, database, func(tx db.Txn) { mustSet(t, tx, "ryw-deleted", []byte("old")) })

	update(t, database, func(tx db.Txn) {
		mustSet(t, tx, "ryw-key", []byte("pending"))
		value, exists := mustGet(t, tx, "ryw-key")
		if !exists || !bytes.Equal(value, []byte("pending")) {
			t.Errorf("Expected transaction to read its own write, got %s (exists=%v)", value, exists)
		}

		if err := tx.Delete("ryw-deleted"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if mustHas(t, tx, "ryw-deleted") {
			t.Errorf("Expected transaction to see its own delete")
		}
	})
}

func testRollback(t *testing.T, database db.KVDB) {
	defer database.Close()

	update(t, database, func(tx db.Txn) { mustSet(t, tx, "rb-key", []byte("committed")) })

	tx, err := database.Begin(true)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	mustSet(t, tx, "rb-key", []byte("rolled-back"))
	mustSet(t, tx, "rb-new", []byte("rolled-back"))
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	view(t, database, func(tx db.Txn) {
		value, _ := mustGet(t, tx, "rb-key")
		if !bytes.Equal(value, []byte("committed")) {
			t.Errorf("Expected rolled back write to be discarded, got %s", value)
		}
		if mustHas(t, tx, "rb-new") {
			t.Errorf("Expected rolled back insert to be discarded")
		}
	})
}

func testIsolation(t *testing.T, database db.KVDB) {
	defer database.Close()

	tx, err := database.Begin(true)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	mustSet(t, tx, "iso-key", []byte("uncommitted"))

	// read from another goroutine while the writer is still open
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reader, err := database.Begin(false)
		if err != nil {
			t.Errorf("Begin(false) failed: %v", err)
			return
		}
		defer reader.Rollback()
		if ok, err := reader.Has("iso-key"); err != nil || ok {
			t.Errorf("Expected uncommitted write to be invisible (ok=%v, err=%v)", ok, err)
		}
	}()
	wg.Wait()

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	view(t, database, func(tx db.Txn) {
		if !mustHas(t, tx, "iso-key") {
			t.Errorf("Expected committed write to be visible")
		}
	})
}

func testScan(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureScan)

	update(t, database, func(tx db.Txn) {
		for _, k := range []string{"s/3", "s/1", "s/2", "t/1", "r/1", "s/"} {
			mustSet(t, tx, k, []byte("v-"+k))
		}
	})

	collect := func(tx db.Txn, prefix string, limit int) string {
		var keys []string
		err := tx.Scan(prefix, func(key string, value []byte) bool {
			if !bytes.Equal(value, []byte("v-"+key)) {
				t.Errorf("Unexpected value for %s: %s", key, value)
			}
			keys = append(keys, key)
			return limit <= 0 || len(keys) < limit
		})
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		return fmt.Sprint(keys)
	}

	view(t, database, func(tx db.Txn) {
		if got := collect(tx, "s/", 0); got != "[s/ s/1 s/2 s/3]" {
			t.Errorf("Expected sorted prefix scan, got %s", got)
		}
		if got := collect(tx, "s/", 2); got != "[s/ s/1]" {
			t.Errorf("Expected scan to stop early, got %s", got)
		}
		if got := collect(tx, "", 0); got != "[r/1 s/ s/1 s/2 s/3 t/1]" {
			t.Errorf("Expected full scan, got %s", got)
		}
		if got := collect(tx, "x/", 0); got != "[]" {
			t.Errorf("Expected empty scan, got %s", got)
		}
	})

	// pending writes are part of the scan
	update(t, database, func(tx db.Txn) {
		mustSet(t, tx, "s/0", []byte("v-s/0"))
		if err := tx.Delete("s/2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if got := collect(tx, "s/", 0); got != "[s/ s/0 s/1 s/3]" {
			t.Errorf("Expected scan to include pending writes, got %s", got)
		}
	})
}

func testTxLifecycle(t *testing.T, database db.KVDB) {
	defer database.Close()

	reader, err := database.Begin(false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := reader.Set("ro-key", []byte("value")); !errors.Is(err, db.ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly for write on read-only transaction, got %v", err)
	}
	if err := reader.Rollback(); err != nil {
		t.Errorf("Rollback failed: %v", err)
	}

	tx, err := database.Begin(true)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	mustSet(t, tx, "lc-key", []byte("value"))
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("Rollback after Commit should be a no-op, got %v", err)
	}
	if err := tx.Commit(); !errors.Is(err, db.ErrTxDone) {
		t.Errorf("Expected ErrTxDone for second Commit, got %v", err)
	}
	if err := tx.Set("lc-key", []byte("value")); !errors.Is(err, db.ErrTxDone) {
		t.Errorf("Expected ErrTxDone for Set after Commit, got %v", err)
	}
	if _, _, err := tx.Get("lc-key"); !errors.Is(err, db.ErrTxDone) {
		t.Errorf("Expected ErrTxDone for Get after Commit, got %v", err)
	}
}

func testDumpRestore(t *testing.T, factory DBFactory) {
	source := factory(t)
	defer source.Close()

	const numKeys = 2500 // more than one restore batch
	update(t, source, func(tx db.Txn) {
		for i := 0; i < numKeys; i++ {
			mustSet(t, tx, fmt.Sprintf("key-%05d", i), []byte(fmt.Sprintf("value-%d", i)))
		}
	})

	var buf bytes.Buffer
	if err := db.Dump(source, &buf); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	target := factory(t)
	defer target.Close()
	update(t, target, func(tx db.Txn) { mustSet(t, tx, "stale-key", []byte("stale")) })

	if err := db.Restore(target, &buf); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	view(t, target, func(tx db.Txn) {
		if mustHas(t, tx, "stale-key") {
			t.Errorf("Expected Restore to replace existing content")
		}
		count := 0
		err := tx.Scan("", func(key string, value []byte) bool {
			count++
			return true
		})
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if count != numKeys {
			t.Errorf("Expected %d keys after restore, got %d", numKeys, count)
		}
		value, _ := mustGet(t, tx, "key-01234")
		if !bytes.Equal(value, []byte("value-1234")) {
			t.Errorf("Expected restored value, got %s", value)
		}
	})

	if err := db.Restore(target, bytes.NewReader([]byte("garbage"))); err == nil {
		t.Errorf("Expected Restore of invalid data to fail")
	}

	// a corrupt length prefix must fail instead of allocating
	header := []byte{'C', 'R', 'K', 'V', 1, 1}
	oversized := binary.AppendUvarint(append([]byte{}, header...), 1<<62)
	if err := db.Restore(target, bytes.NewReader(oversized)); err == nil {
		t.Errorf("Expected Restore of an oversized field to fail")
	}
	truncated := append(binary.AppendUvarint(append([]byte{}, header...), 10), 'k', 'e', 'y')
	if err := db.Restore(target, bytes.NewReader(truncated)); err == nil {
		t.Errorf("Expected Restore of a truncated dump to fail")
	}
}

func testConcurrentWriters(t *testing.T, database db.KVDB) {
	defer database.Close()

	const (
		workers    = 8
		increments = 25
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				tx, err := database.Begin(true)
				if err != nil {
					t.Errorf("Begin failed: %v", err)
					return
				}
				value, _, err := tx.Get("counter")
				if err != nil {
					tx.Rollback()
					t.Errorf("Get failed: %v", err)
					return
				}
				n := 0
				if value != nil {
					fmt.Sscanf(string(value), "%d", &n)
				}
				if err := tx.Set("counter", []byte(fmt.Sprintf("%d", n+1))); err != nil {
					tx.Rollback()
					t.Errorf("Set failed: %v", err)
					return
				}
				if err := tx.Commit(); err != nil {
					t.Errorf("Commit failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	view(t, database, func(tx db.Txn) {
		value, _ := mustGet(t, tx, "counter")
		if string(value) != fmt.Sprintf("%d", workers*increments) {
			t.Errorf("Expected serialized writers to produce %d, got %s", workers*increments, value)
		}
	})
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	largeValue := bytes.Repeat([]byte("x"), 1<<20)
	binaryKey := "bin/\x00\xff"

	update(t, database, func(tx db.Txn) {
		mustSet(t, tx, "empty-value", []byte{})
		mustSet(t, tx, binaryKey, []byte{0, 1, 2, 255})
		mustSet(t, tx, "unicode-ключ-🔑", []byte("unicode"))
	})

	// engines with a value size limit must refuse the value with ErrValueTooLarge
	storedLarge := true
	update(t, database, func(tx db.Txn) {
		if err := tx.Set("large-value", largeValue); errors.Is(err, db.ErrValueTooLarge) {
			storedLarge = false
		} else if err != nil {
			t.Fatalf("Set(large-value) failed: %v", err)
		}
	})

	view(t, database, func(tx db.Txn) {
		value, exists := mustGet(t, tx, "empty-value")
		if !exists || len(value) != 0 {
			t.Errorf("Expected empty value to exist with length 0, got %v (exists=%v)", value, exists)
		}
		value, exists = mustGet(t, tx, "large-value")
		if storedLarge && !bytes.Equal(value, largeValue) {
			t.Errorf("Expected 1MB value to round trip, got %d bytes", len(value))
		}
		if !storedLarge && exists {
			t.Errorf("Expected a refused value to not be stored")
		}
		value, _ = mustGet(t, tx, binaryKey)
		if !bytes.Equal(value, []byte{0, 1, 2, 255}) {
			t.Errorf("Expected binary value to round trip, got %v", value)
		}
		value, _ = mustGet(t, tx, "unicode-ключ-🔑")
		if string(value) != "unicode" {
			t.Errorf("Expected unicode key to work, got %s", value)
		}
	})

	info := database.GetInfo()
	if info.DbType == "" {
		t.Errorf("Expected GetInfo to report the database type")
	}
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	const numUsers = 200

	update(t, database, func(tx db.Txn) {
		for i := 0; i < numUsers; i++ {
			mustSet(t, tx, fmt.Sprintf("user/%04d", i), []byte(fmt.Sprintf("name-%d", i)))
			mustSet(t, tx, fmt.Sprintf("session/%04d", i), []byte("active"))
		}
	})

	// log out every second user
	update(t, database, func(tx db.Txn) {
		for i := 0; i < numUsers; i += 2 {
			if err := tx.Delete(fmt.Sprintf("session/%04d", i)); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
		}
	})

	view(t, database, func(tx db.Txn) {
		sessions := 0
		if err := tx.Scan("session/", func(string, []byte) bool { sessions++; return true }); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if sessions != numUsers/2 {
			t.Errorf("Expected %d active sessions, got %d", numUsers/2, sessions)
		}
		users := 0
		if err := tx.Scan("user/", func(string, []byte) bool { users++; return true }); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if users != numUsers {
			t.Errorf("Expected %d users, got %d", numUsers, users)
		}
	})
}

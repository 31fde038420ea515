package badgerdb

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/crund/lib/db"
	dbtesting "github.com/ValentinKolb/crund/lib/db/testing"
	"testing"
)

func newTestDB(t testing.TB, path string) db.KVDB {
	database, err := NewBadgerDB(Options{Path: path})
	if err != nil {
		t.Fatalf("NewBadgerDB failed: %v", err)
	}
	return database
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "BadgerDB(memory)", func(t testing.TB) db.KVDB {
		return newTestDB(t, "")
	})
	dbtesting.RunKVDBTests(t, "BadgerDB(disk)", func(t testing.TB) db.KVDB {
		return newTestDB(t, t.TempDir())
	})
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	database := newTestDB(t, dir)
	if !database.SupportsFeature(db.FeatureDurable) {
		t.Errorf("Expected on-disk badger to be durable")
	}

	tx, _ := database.Begin(true)
	tx.Set("durable-key", []byte("value"))
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	database.Close()

	database = newTestDB(t, dir)
	defer database.Close()
	tx, _ = database.Begin(false)
	defer tx.Rollback()
	value, ok, err := tx.Get("durable-key")
	if err != nil || !ok || string(value) != "value" {
		t.Errorf("Expected value to survive reopen, got %s (ok=%v, err=%v)", value, ok, err)
	}
}

func TestInMemoryValueLimit(t *testing.T) {
	database := newTestDB(t, "")
	defer database.Close()

	tx, err := database.Begin(true)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	large := bytes.Repeat([]byte("x"), 1<<20)
	if err := tx.Set("large", large); !errors.Is(err, db.ErrValueTooLarge) {
		t.Errorf("Expected ErrValueTooLarge for a 1MB value, got %v", err)
	}
	if err := tx.SetIfUnset("large", large); !errors.Is(err, db.ErrValueTooLarge) {
		t.Errorf("Expected ErrValueTooLarge from SetIfUnset, got %v", err)
	}
	small := bytes.Repeat([]byte("y"), 64<<10)
	if err := tx.Set("small", small); err != nil {
		t.Errorf("Expected a 64KB value to be accepted, got %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	tx, _ = database.Begin(false)
	defer tx.Rollback()
	if _, ok, _ := tx.Get("large"); ok {
		t.Errorf("Expected the refused value to be absent")
	}
	value, ok, err := tx.Get("small")
	if err != nil || !ok || !bytes.Equal(value, small) {
		t.Errorf("Expected the 64KB value to round trip (ok=%v, err=%v)", ok, err)
	}
}

func TestOnDiskLargeValue(t *testing.T) {
	database := newTestDB(t, t.TempDir())
	defer database.Close()

	large := bytes.Repeat([]byte("x"), 2<<20)
	tx, _ := database.Begin(true)
	if err := tx.Set("large", large); err != nil {
		t.Fatalf("Expected on-disk badger to accept a 2MB value, got %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	tx, _ = database.Begin(false)
	defer tx.Rollback()
	value, ok, err := tx.Get("large")
	if err != nil || !ok || !bytes.Equal(value, large) {
		t.Errorf("Expected the 2MB value to round trip (ok=%v, err=%v)", ok, err)
	}
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "BadgerDB", func(t testing.TB) db.KVDB {
		return newTestDB(t, "")
	})
}

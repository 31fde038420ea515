package boltdb

import (
	"github.com/ValentinKolb/crund/lib/db"
	dbtesting "github.com/ValentinKolb/crund/lib/db/testing"
	"path/filepath"
	"testing"
)

func newTestDB(t testing.TB, path string) db.KVDB {
	database, err := NewBoltDB(Options{Path: path, NoSync: true})
	if err != nil {
		t.Fatalf("NewBoltDB failed: %v", err)
	}
	return database
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "BoltDB", func(t testing.TB) db.KVDB {
		return newTestDB(t, filepath.Join(t.TempDir(), "bolt.db"))
	})
	dbtesting.RunKVDBTests(t, "BoltDB(temporary)", func(t testing.TB) db.KVDB {
		return newTestDB(t, "")
	})
}

func TestInfo(t *testing.T) {
	database := newTestDB(t, "")
	defer database.Close()

	tx, _ := database.Begin(true)
	tx.Set("k1", []byte("v"))
	tx.Set("k2", []byte("v"))
	tx.Commit()

	info := database.GetInfo()
	if info.Keys != 2 {
		t.Errorf("Expected 2 keys, got %d", info.Keys)
	}
	if database.SupportsFeature(db.FeatureDurable) {
		t.Errorf("Expected temporary bolt file to not be durable")
	}
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "BoltDB", func(t testing.TB) db.KVDB {
		return newTestDB(t, filepath.Join(t.TempDir(), "bolt.db"))
	})
}

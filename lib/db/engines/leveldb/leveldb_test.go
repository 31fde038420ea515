package leveldb

import (
	"github.com/ValentinKolb/crund/lib/db"
	dbtesting "github.com/ValentinKolb/crund/lib/db/testing"
	"testing"
)

func newTestDB(t testing.TB, path string) db.KVDB {
	database, err := NewLevelDB(Options{Path: path})
	if err != nil {
		t.Fatalf("NewLevelDB failed: %v", err)
	}
	return database
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "LevelDB(memory)", func(t testing.TB) db.KVDB {
		return newTestDB(t, "")
	})
	dbtesting.RunKVDBTests(t, "LevelDB(disk)", func(t testing.TB) db.KVDB {
		return newTestDB(t, t.TempDir())
	})
}

func TestSnapshotRead(t *testing.T) {
	database := newTestDB(t, "")
	defer database.Close()

	reader, err := database.Begin(false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer reader.Rollback()

	tx, _ := database.Begin(true)
	tx.Set("late-key", []byte("value"))
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if ok, _ := reader.Has("late-key"); ok {
		t.Errorf("Expected read transaction to keep its snapshot")
	}
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "LevelDB", func(t testing.TB) db.KVDB {
		return newTestDB(t, "")
	})
}

package maple

import (
	"github.com/ValentinKolb/crund/lib/db"
	dbtesting "github.com/ValentinKolb/crund/lib/db/testing"
	"testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MapleDB", func(testing.TB) db.KVDB {
		return NewMapleDB(nil)
	})
}

func TestSingleShard(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MapleDB(1 shard)", func(testing.TB) db.KVDB {
		return NewMapleDB(&DBOptions{NumShards: 1})
	})
}

func TestInfo(t *testing.T) {
	database := NewMapleDB(nil)
	defer database.Close()

	tx, _ := database.Begin(true)
	tx.Set("a", []byte("12345"))
	tx.Set("b", []byte("1"))
	tx.Commit()

	tx, _ = database.Begin(true)
	tx.Set("a", []byte("1"))
	tx.Delete("b")
	tx.Commit()

	info := database.GetInfo()
	if info.Keys != 1 {
		t.Errorf("Expected 1 key, got %d", info.Keys)
	}
	if info.SizeBytes != 2 {
		t.Errorf("Expected 2 bytes (key + value), got %d", info.SizeBytes)
	}
	if info.DbType != db.ImplMaple {
		t.Errorf("Expected db type %s, got %s", db.ImplMaple, info.DbType)
	}
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "MapleDB", func(testing.TB) db.KVDB {
		return NewMapleDB(nil)
	})
}

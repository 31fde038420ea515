package testing

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	"math/rand"
	"testing"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, factory(b))
	})

	b.Run("SetBatch", func(b *testing.B) {
		benchmarkSetBatch(b, factory(b))
	})

	b.Run("SetLargeValue", func(b *testing.B) {
		benchmarkSetLargeValue(b, factory(b))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory(b))
	})

	b.Run("Has(not)", func(b *testing.B) {
		benchmarkHasNot(b, factory(b))
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, factory(b))
	})

	b.Run("Scan", func(b *testing.B) {
		benchmarkScan(b, factory(b))
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory(b))
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// fill writes numKeys keys in batches of 1000 per transaction
func fill(b *testing.B, database db.KVDB, numKeys int) {
	for start := 0; start < numKeys; start += 1000 {
		update(b, database, func(tx db.Txn) {
			for i := start; i < start+1000 && i < numKeys; i++ {
				mustSet(b, tx, fmt.Sprintf("test-key-%d", i), []byte(fmt.Sprintf("test-value-%d", i)))
			}
		})
	}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for a single Set per transaction
func benchmarkSet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		update(b, database, func(tx db.Txn) {
			mustSet(b, tx, fmt.Sprintf("test-key-%d", i), []byte(fmt.Sprintf("test-value-%d", i)))
		})
	}
}

// Benchmark for 100 Sets per transaction, reported per Set
func benchmarkSetBatch(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	const batch = 100
	b.ResetTimer()
	for i := 0; i < b.N; i += batch {
		update(b, database, func(tx db.Txn) {
			for j := i; j < i+batch && j < b.N; j++ {
				mustSet(b, tx, fmt.Sprintf("test-key-%d", j), []byte(fmt.Sprintf("test-value-%d", j)))
			}
		})
	}
}

// Benchmark for Set operation with large values
func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	largeValue := make([]byte, 256*1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		update(b, database, func(tx db.Txn) {
			mustSet(b, tx, fmt.Sprintf("test-key-%d", i%100), largeValue)
		})
	}
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	numKeys := 10000
	fill(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			tx, err := database.Begin(false)
			if err != nil {
				b.Errorf("Begin failed: %v", err)
				return
			}
			tx.Get(fmt.Sprintf("test-key-%d", counter%numKeys))
			tx.Rollback()
			counter++
		}
	})
}

// Parallel benchmarking for Has operation on missing keys
func benchmarkHasNot(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHas)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			tx, err := database.Begin(false)
			if err != nil {
				b.Errorf("Begin failed: %v", err)
				return
			}
			tx.Has(fmt.Sprintf("missing-key-%d", counter))
			tx.Rollback()
			counter++
		}
	})
}

// Benchmarking for Delete operation
func benchmarkDelete(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureDelete)

	numKeys := 100000
	if b.N < numKeys {
		numKeys = b.N
	}
	fill(b, database, numKeys)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		update(b, database, func(tx db.Txn) {
			if err := tx.Delete(fmt.Sprintf("test-key-%d", i%numKeys)); err != nil {
				b.Fatalf("Delete failed: %v", err)
			}
		})
	}
}

// Benchmarking for a prefix scan over about 111 keys
func benchmarkScan(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureScan)

	fill(b, database, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		view(b, database, func(tx db.Txn) {
			prefix := fmt.Sprintf("test-key-%d", 1+i%9)
			if err := tx.Scan(prefix, func(string, []byte) bool { return true }); err != nil {
				b.Fatalf("Scan failed: %v", err)
			}
		})
	}
}

// Benchmarking a mix of 80% reads and 20% writes
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	numKeys := 10000
	fill(b, database, numKeys)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := fmt.Sprintf("test-key-%d", r.Intn(numKeys))
			writable := r.Intn(100) < 20
			tx, err := database.Begin(writable)
			if err != nil {
				b.Errorf("Begin failed: %v", err)
				return
			}
			if writable {
				tx.Set(key, []byte("updated"))
				if err := tx.Commit(); err != nil {
					b.Errorf("Commit failed: %v", err)
					return
				}
			} else {
				tx.Get(key)
				tx.Rollback()
			}
		}
	})
}

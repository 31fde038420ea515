package sqldb

import (
	"github.com/ValentinKolb/crund/lib/db"
	dbtesting "github.com/ValentinKolb/crund/lib/db/testing"
	"os"
	"path/filepath"
	"testing"
)

func newSQLite(t testing.TB, path string) db.KVDB {
	database, err := NewSQLDB(Options{Dialect: DialectSQLite, DSN: path})
	if err != nil {
		t.Fatalf("NewSQLDB failed: %v", err)
	}
	return database
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "SQLite", func(t testing.TB) db.KVDB {
		return newSQLite(t, filepath.Join(t.TempDir(), "kv.db"))
	})
}

// TestMySQL runs against a real server when CRUND_TEST_MYSQL_DSN is set
func TestMySQL(t *testing.T) {
	dsn := os.Getenv("CRUND_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("CRUND_TEST_MYSQL_DSN not set")
	}
	dbtesting.RunKVDBTests(t, "MySQL", func(t testing.TB) db.KVDB {
		database, err := NewSQLDB(Options{Dialect: DialectMySQL, DSN: dsn})
		if err != nil {
			t.Fatalf("NewSQLDB failed: %v", err)
		}
		if err := db.Truncate(database); err != nil {
			t.Fatalf("Truncate failed: %v", err)
		}
		return database
	})
}

// TestPostgres runs against a real server when CRUND_TEST_POSTGRES_DSN is set
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("CRUND_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CRUND_TEST_POSTGRES_DSN not set")
	}
	dbtesting.RunKVDBTests(t, "Postgres", func(t testing.TB) db.KVDB {
		database, err := NewSQLDB(Options{Dialect: DialectPostgres, DSN: dsn})
		if err != nil {
			t.Fatalf("NewSQLDB failed: %v", err)
		}
		if err := db.Truncate(database); err != nil {
			t.Fatalf("Truncate failed: %v", err)
		}
		return database
	})
}

func TestTemporarySQLite(t *testing.T) {
	database := newSQLite(t, "")
	if database.SupportsFeature(db.FeatureDurable) {
		t.Errorf("Expected temporary sqlite database to not be durable")
	}
	tx, _ := database.Begin(true)
	tx.Set("k", []byte("value"))
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	info := database.GetInfo()
	if info.Keys != 1 || info.SizeBytes != 6 {
		t.Errorf("Expected 1 key with 6 bytes, got %d keys with %d bytes", info.Keys, info.SizeBytes)
	}
	if err := database.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestQueries(t *testing.T) {
	q := dialects[DialectPostgres].queries("bench", "")
	if q.get != "SELECT v FROM bench WHERE k = $1" {
		t.Errorf("Unexpected postgres query: %s", q.get)
	}
	if q.scanRange != "SELECT k, v FROM bench WHERE k >= $1 AND k < $2 ORDER BY k" {
		t.Errorf("Unexpected postgres query: %s", q.scanRange)
	}

	q = dialects[DialectMySQL].queries("kv", "NDBCLUSTER")
	want := "CREATE TABLE IF NOT EXISTS kv (k VARBINARY(255) NOT NULL PRIMARY KEY, v LONGBLOB NOT NULL) ENGINE=NDBCLUSTER"
	if q.createTable != want {
		t.Errorf("Unexpected mysql create table: %s", q.createTable)
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN("crund", "secret", "localhost", "crunddb")
	if dsn != "crund:secret@tcp(localhost:3306)/crunddb" {
		t.Errorf("Unexpected dsn: %s", dsn)
	}
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "SQLite", func(t testing.TB) db.KVDB {
		return newSQLite(t, filepath.Join(t.TempDir(), "kv.db"))
	})
}

package engines

import (
	"github.com/ValentinKolb/crund/lib/db"
	"path/filepath"
	"testing"
)

func TestOpenAllEmbedded(t *testing.T) {
	for _, impl := range []db.Implementation{db.ImplMaple, db.ImplBadger, db.ImplBolt, db.ImplLevelDB, db.ImplSQLite} {
		t.Run(string(impl), func(t *testing.T) {
			database, err := Open(Config{Engine: impl, Path: t.TempDir()})
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer database.Close()

			if got := database.GetInfo().DbType; got != impl {
				t.Errorf("Expected db type %s, got %s", impl, got)
			}
			if impl != db.ImplMaple && !database.SupportsFeature(db.FeatureDurable) {
				t.Errorf("Expected engine with a data directory to be durable")
			}
		})
	}
}

func TestOpenUnknown(t *testing.T) {
	if _, err := Open(Config{Engine: "rocks"}); err == nil {
		t.Errorf("Expected unknown engine to fail")
	}
}

func TestSub(t *testing.T) {
	cfg := Config{Engine: db.ImplBadger, Path: "/data"}.Sub("shard-1")
	if cfg.Path != filepath.Join("/data", "shard-1") {
		t.Errorf("Unexpected path %s", cfg.Path)
	}
	cfg = Config{Engine: db.ImplPostgres}.Sub("shard-1")
	if cfg.Table != "kv_shard_1" {
		t.Errorf("Unexpected table %s", cfg.Table)
	}
	cfg = Config{Engine: db.ImplSQLite, DSN: "/tmp/bench.db"}.Sub("r2")
	if cfg.DSN != "/tmp/bench-r2.db" {
		t.Errorf("Unexpected dsn %s", cfg.DSN)
	}
}

// Package engines selects and opens a db.KVDB implementation by name.
package engines

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/ValentinKolb/crund/lib/db/engines/badgerdb"
	"github.com/ValentinKolb/crund/lib/db/engines/boltdb"
	"github.com/ValentinKolb/crund/lib/db/engines/leveldb"
	"github.com/ValentinKolb/crund/lib/db/engines/maple"
	"github.com/ValentinKolb/crund/lib/db/engines/sqldb"
	"path/filepath"
	"strings"
)

// Config describes which engine to open and where
type Config struct {
	Engine     db.Implementation
	Path       string // data directory (file engines), empty = in-memory or temporary
	DSN        string // data source name of the sql engines
	Table      string // sql table name
	NDB        bool   // mysql: ENGINE=NDBCLUSTER
	SyncWrites bool
	Shards     int // maple shards
}

// Names lists the supported engine names
func Names() []string {
	return []string{
		string(db.ImplMaple), string(db.ImplBadger), string(db.ImplBolt), string(db.ImplLevelDB),
		string(db.ImplSQLite), string(db.ImplMySQL), string(db.ImplPostgres),
	}
}

// Sub returns a copy of the config whose files live in a subdirectory of Path,
// used when one process hosts several databases of the same engine.
// For the sql engines the name becomes a table suffix.
func (c Config) Sub(name string) Config {
	if c.Path != "" {
		c.Path = filepath.Join(c.Path, name)
	}
	if c.Engine == db.ImplSQLite && c.DSN != "" && !strings.Contains(c.DSN, "?") {
		c.DSN = strings.TrimSuffix(c.DSN, ".db") + "-" + name + ".db"
	} else if c.Engine == db.ImplMySQL || c.Engine == db.ImplPostgres {
		table := c.Table
		if table == "" {
			table = "kv"
		}
		c.Table = table + "_" + strings.NewReplacer("-", "_", "/", "_").Replace(name)
	}
	return c
}

// Open opens the configured engine
func Open(cfg Config) (db.KVDB, error) {
	switch cfg.Engine {
	case db.ImplMaple, "":
		return maple.NewMapleDB(&maple.DBOptions{NumShards: cfg.Shards}), nil
	case db.ImplBadger:
		return badgerdb.NewBadgerDB(badgerdb.Options{Path: cfg.Path, SyncWrites: cfg.SyncWrites})
	case db.ImplBolt:
		path := cfg.Path
		if path != "" {
			path = filepath.Join(path, "crund.bolt")
		}
		return boltdb.NewBoltDB(boltdb.Options{Path: path, NoSync: !cfg.SyncWrites})
	case db.ImplLevelDB:
		return leveldb.NewLevelDB(leveldb.Options{Path: cfg.Path, SyncWrites: cfg.SyncWrites})
	case db.ImplSQLite:
		dsn := cfg.DSN
		if dsn == "" && cfg.Path != "" {
			dsn = filepath.Join(cfg.Path, "crund.sqlite")
		}
		return sqldb.NewSQLDB(sqldb.Options{Dialect: sqldb.DialectSQLite, DSN: dsn, Table: cfg.Table})
	case db.ImplMySQL:
		return sqldb.NewSQLDB(sqldb.Options{Dialect: sqldb.DialectMySQL, DSN: cfg.DSN, Table: cfg.Table, NDB: cfg.NDB})
	case db.ImplPostgres:
		return sqldb.NewSQLDB(sqldb.Options{Dialect: sqldb.DialectPostgres, DSN: cfg.DSN, Table: cfg.Table})
	default:
		return nil, fmt.Errorf("unknown engine %q (supported: %s)", cfg.Engine, strings.Join(Names(), ", "))
	}
}

// Factory returns a db.Factory opening the configured engine
func Factory(cfg Config) db.Factory {
	return func() (db.KVDB, error) {
		return Open(cfg)
	}
}

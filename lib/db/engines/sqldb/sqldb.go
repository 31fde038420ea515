package sqldb

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/ValentinKolb/crund/lib/db/util"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/lni/dragonboat/v4/logger"
	_ "modernc.org/sqlite"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

var log = logger.GetLogger("engine")

// Options configures the SQL engine
type Options struct {
	Dialect Dialect
	// DSN is the driver specific data source name. For sqlite it is a file path,
	// an empty sqlite DSN creates a temporary database removed on Close.
	DSN   string
	Table string // table name, default "kv"
	// NDB creates the mysql table with ENGINE=NDBCLUSTER (MySQL Cluster)
	NDB          bool
	MaxOpenConns int
}

// sqlImpl implements db.KVDB on a single table with a binary key and value column.
// Writable transactions are serialized inside the process.
type sqlImpl struct {
	db        *sql.DB
	opts      Options
	dialect   dialect
	q         queries
	writer    sync.Mutex
	temporary string
	closed    atomic.Bool
}

// NewSQLDB connects to the database and creates the table if needed
func NewSQLDB(opts Options) (db.KVDB, error) {
	d, ok := dialects[opts.Dialect]
	if !ok {
		return nil, fmt.Errorf("unknown sql dialect %q", opts.Dialect)
	}
	if opts.Table == "" {
		opts.Table = "kv"
	}

	impl := &sqlImpl{opts: opts, dialect: d}
	dsn := opts.DSN
	if opts.Dialect == DialectSQLite {
		if dsn == "" {
			dir, err := os.MkdirTemp("", "crund-sqlite-")
			if err != nil {
				return nil, err
			}
			impl.temporary = dir
			dsn = filepath.Join(dir, "crund.db")
		} else if !strings.Contains(dsn, "?") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0700); err != nil {
				return nil, err
			}
		}
		dsn = sqliteDSN(dsn)
	}

	mysqlEngine := "InnoDB"
	if opts.NDB {
		mysqlEngine = "NDBCLUSTER"
	}
	impl.q = d.queries(opts.Table, mysqlEngine)

	sqlDB, err := sql.Open(d.driver, dsn)
	if err != nil {
		impl.removeTemporary()
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		impl.removeTemporary()
		return nil, fmt.Errorf("connect %s: %w", d.driver, err)
	}
	if _, err := sqlDB.Exec(impl.q.createTable); err != nil {
		sqlDB.Close()
		impl.removeTemporary()
		return nil, fmt.Errorf("error creating table with %q: %w", impl.q.createTable, err)
	}
	impl.db = sqlDB
	log.Infof("opened %s table %s", d.driver, opts.Table)
	return impl, nil
}

func (s *sqlImpl) removeTemporary() {
	if s.temporary != "" {
		os.RemoveAll(s.temporary)
	}
}

func (s *sqlImpl) Begin(writable bool) (db.Txn, error) {
	if s.closed.Load() {
		return nil, db.ErrClosed
	}
	if writable {
		s.writer.Lock()
	}
	tx, err := s.db.Begin()
	if err != nil {
		if writable {
			s.writer.Unlock()
		}
		return nil, err
	}
	return &sqlTx{parent: s, tx: tx, writable: writable}, nil
}

func (s *sqlImpl) features() db.Feature {
	if s.temporary == "" {
		return db.FeatureAll | db.FeatureDurable
	}
	return db.FeatureAll
}

func (s *sqlImpl) SupportsFeature(feature db.Feature) bool {
	return feature&s.features() == feature
}

func (s *sqlImpl) GetInfo() db.DatabaseInfo {
	var keys, size int64
	if err := s.db.QueryRow(s.q.info).Scan(&keys, &size); err != nil {
		log.Warningf("info query failed: %v", err)
	}
	stats := s.db.Stats()
	return db.DatabaseInfo{
		Keys:              int(keys),
		SizeBytes:         int(size),
		DbType:            s.dialect.impl,
		SupportedFeatures: db.FeatureList(s.features()),
		Metadata: map[string]interface{}{
			"table":            s.opts.Table,
			"ndb":              s.opts.NDB,
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
		},
	}
}

func (s *sqlImpl) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.db.Close()
	s.removeTemporary()
	return err
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

type sqlTx struct {
	parent   *sqlImpl
	tx       *sql.Tx
	writable bool
	done     bool
}

func (tx *sqlTx) checkWrite() error {
	if tx.done {
		return db.ErrTxDone
	}
	if !tx.writable {
		return db.ErrReadOnly
	}
	return nil
}

// nonNil keeps empty values out of NOT NULL columns
func nonNil(value []byte) []byte {
	if value == nil {
		return []byte{}
	}
	return value
}

func (tx *sqlTx) Set(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	_, err := tx.tx.Exec(tx.parent.q.upsert, []byte(key), nonNil(value))
	return err
}

func (tx *sqlTx) SetIfUnset(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	_, err := tx.tx.Exec(tx.parent.q.insertNew, []byte(key), nonNil(value))
	return err
}

func (tx *sqlTx) Delete(key string) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	_, err := tx.tx.Exec(tx.parent.q.del, []byte(key))
	return err
}

func (tx *sqlTx) Get(key string) ([]byte, bool, error) {
	if tx.done {
		return nil, false, db.ErrTxDone
	}
	var value []byte
	err := tx.tx.QueryRow(tx.parent.q.get, []byte(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return nonNil(value), true, nil
}

func (tx *sqlTx) Has(key string) (bool, error) {
	if tx.done {
		return false, db.ErrTxDone
	}
	var one int
	err := tx.tx.QueryRow(tx.parent.q.has, []byte(key)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

type row struct {
	key   string
	value []byte
}

// Scan reads all matching rows before calling fn, some drivers do not allow
// statements on the transaction while a result set is open.
func (tx *sqlTx) Scan(prefix string, fn func(key string, value []byte) bool) error {
	if tx.done {
		return db.ErrTxDone
	}
	start := []byte(prefix)
	end := util.PrefixEnd(start)

	var (
		rows *sql.Rows
		err  error
	)
	if end == nil {
		rows, err = tx.tx.Query(tx.parent.q.scanFrom, start)
	} else {
		rows, err = tx.tx.Query(tx.parent.q.scanRange, start, end)
	}
	if err != nil {
		return err
	}

	var result []row
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return err
		}
		if !bytes.HasPrefix(k, start) {
			continue
		}
		result = append(result, row{key: string(k), value: nonNil(v)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, r := range result {
		if !fn(r.key, r.value) {
			return nil
		}
	}
	return nil
}

func (tx *sqlTx) Commit() error {
	if tx.done {
		return db.ErrTxDone
	}
	tx.done = true
	if tx.writable {
		defer tx.parent.writer.Unlock()
	}
	if err := tx.tx.Commit(); err != nil {
		return fmt.Errorf("%s commit: %w", tx.parent.dialect.driver, err)
	}
	return nil
}

func (tx *sqlTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.writable {
		defer tx.parent.writer.Unlock()
	}
	return tx.tx.Rollback()
}

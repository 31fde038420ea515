package boltdb

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	bolt "go.etcd.io/bbolt"
	"os"
	"path/filepath"
	"time"
)

var bucketName = []byte("crund")

// Options configures the bolt engine
type Options struct {
	Path    string // database file, empty = temporary file removed on Close
	NoSync  bool   // skip fsync on commit
	Timeout time.Duration
}

// boltImpl implements db.KVDB with a single bolt bucket.
// Bolt itself allows one writer and many readers.
type boltImpl struct {
	db        *bolt.DB
	opts      Options
	temporary string
}

// NewBoltDB opens (or creates) a bolt database file
func NewBoltDB(opts Options) (db.KVDB, error) {
	impl := &boltImpl{opts: opts}
	path := opts.Path
	if path == "" {
		dir, err := os.MkdirTemp("", "crund-bolt-")
		if err != nil {
			return nil, err
		}
		impl.temporary = dir
		path = filepath.Join(dir, "crund.db")
	} else if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second
	}

	bdb, err := bolt.Open(path, 0600, &bolt.Options{Timeout: opts.Timeout, NoSync: opts.NoSync})
	if err != nil {
		return nil, fmt.Errorf("open bolt at %q: %w", path, err)
	}
	err = bdb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	impl.db = bdb
	return impl, nil
}

func (b *boltImpl) Begin(writable bool) (db.Txn, error) {
	btx, err := b.db.Begin(writable)
	if err == bolt.ErrDatabaseNotOpen {
		return nil, db.ErrClosed
	}
	if err != nil {
		return nil, err
	}
	return &boltTx{tx: btx, bucket: btx.Bucket(bucketName), writable: writable}, nil
}

func (b *boltImpl) features() db.Feature {
	if b.temporary == "" {
		return db.FeatureAll | db.FeatureDurable
	}
	return db.FeatureAll
}

func (b *boltImpl) SupportsFeature(feature db.Feature) bool {
	return feature&b.features() == feature
}

func (b *boltImpl) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType:            db.ImplBolt,
		SupportedFeatures: db.FeatureList(b.features()),
	}
	b.db.View(func(tx *bolt.Tx) error {
		info.SizeBytes = int(tx.Size())
		info.Keys = tx.Bucket(bucketName).Stats().KeyN
		return nil
	})
	info.Metadata = map[string]interface{}{
		"path":      b.db.Path(),
		"temporary": b.temporary != "",
		"no_sync":   b.opts.NoSync,
	}
	return info
}

func (b *boltImpl) Close() error {
	err := b.db.Close()
	if b.temporary != "" {
		os.RemoveAll(b.temporary)
	}
	return err
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

type boltTx struct {
	tx       *bolt.Tx
	bucket   *bolt.Bucket
	writable bool
	done     bool
}

func (tx *boltTx) checkWrite() error {
	if tx.done {
		return db.ErrTxDone
	}
	if !tx.writable {
		return db.ErrReadOnly
	}
	return nil
}

func (tx *boltTx) Set(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	// bolt references the value until commit
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	return tx.bucket.Put([]byte(key), valueCopy)
}

func (tx *boltTx) SetIfUnset(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	if _, ok := tx.lookup(key); ok {
		return nil
	}
	return tx.Set(key, value)
}

func (tx *boltTx) Delete(key string) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	return tx.bucket.Delete([]byte(key))
}

// lookup uses a cursor so empty values are told apart from missing keys.
// The returned slice is only valid during the transaction.
func (tx *boltTx) lookup(key string) ([]byte, bool) {
	k, v := tx.bucket.Cursor().Seek([]byte(key))
	if k == nil || !bytes.Equal(k, []byte(key)) {
		return nil, false
	}
	return v, true
}

func (tx *boltTx) Get(key string) ([]byte, bool, error) {
	if tx.done {
		return nil, false, db.ErrTxDone
	}
	v, ok := tx.lookup(key)
	if !ok {
		return nil, false, nil
	}
	value := make([]byte, len(v))
	copy(value, v)
	return value, true, nil
}

func (tx *boltTx) Has(key string) (bool, error) {
	if tx.done {
		return false, db.ErrTxDone
	}
	_, ok := tx.lookup(key)
	return ok, nil
}

func (tx *boltTx) Scan(prefix string, fn func(key string, value []byte) bool) error {
	if tx.done {
		return db.ErrTxDone
	}
	p := []byte(prefix)
	c := tx.bucket.Cursor()
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		value := make([]byte, len(v))
		copy(value, v)
		if !fn(string(k), value) {
			return nil
		}
	}
	return nil
}

func (tx *boltTx) Commit() error {
	if tx.done {
		return db.ErrTxDone
	}
	tx.done = true
	if !tx.writable {
		return tx.tx.Rollback()
	}
	if err := tx.tx.Commit(); err != nil {
		return fmt.Errorf("bolt commit: %w", err)
	}
	return nil
}

func (tx *boltTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	return tx.tx.Rollback()
}

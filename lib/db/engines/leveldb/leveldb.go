package leveldb

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Options configures the leveldb engine
type Options struct {
	Path       string // directory of the database, empty = in-memory storage
	SyncWrites bool
	CacheMB    int // block cache size, 0 = leveldb default
}

// levelImpl implements db.KVDB on goleveldb.
// Writable transactions use leveldb transactions (one at a time), read-only
// transactions read from a snapshot.
type levelImpl struct {
	db        *leveldb.DB
	opts      Options
	writeOpts *opt.WriteOptions
}

// NewLevelDB opens (or creates) a leveldb database
func NewLevelDB(opts Options) (db.KVDB, error) {
	lopts := &opt.Options{
		Filter: filter.NewBloomFilter(10),
	}
	if opts.CacheMB > 0 {
		lopts.BlockCacheCapacity = opts.CacheMB * opt.MiB
	}

	var (
		ldb *leveldb.DB
		err error
	)
	if opts.Path == "" {
		ldb, err = leveldb.Open(storage.NewMemStorage(), lopts)
	} else {
		ldb, err = leveldb.OpenFile(opts.Path, lopts)
	}
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %q: %w", opts.Path, err)
	}
	return &levelImpl{
		db:        ldb,
		opts:      opts,
		writeOpts: &opt.WriteOptions{Sync: opts.SyncWrites},
	}, nil
}

func (l *levelImpl) Begin(writable bool) (db.Txn, error) {
	if writable {
		tr, err := l.db.OpenTransaction()
		if errors.Is(err, leveldb.ErrClosed) {
			return nil, db.ErrClosed
		}
		if err != nil {
			return nil, err
		}
		return &levelTx{reader: tr, tr: tr, writable: true}, nil
	}
	snap, err := l.db.GetSnapshot()
	if errors.Is(err, leveldb.ErrClosed) {
		return nil, db.ErrClosed
	}
	if err != nil {
		return nil, err
	}
	return &levelTx{reader: snap, snap: snap}, nil
}

func (l *levelImpl) features() db.Feature {
	if l.opts.Path != "" {
		return db.FeatureAll | db.FeatureDurable
	}
	return db.FeatureAll
}

func (l *levelImpl) SupportsFeature(feature db.Feature) bool {
	return feature&l.features() == feature
}

func (l *levelImpl) GetInfo() db.DatabaseInfo {
	var stats leveldb.DBStats
	metadata := map[string]interface{}{
		"path":      l.opts.Path,
		"in_memory": l.opts.Path == "",
	}
	size := 0
	if err := l.db.Stats(&stats); err == nil {
		for _, s := range stats.LevelSizes {
			size += int(s)
		}
		metadata["levels"] = len(stats.LevelSizes)
		metadata["alive_snapshots"] = stats.AliveSnapshots
		metadata["block_cache_bytes"] = stats.BlockCacheSize
	}
	return db.DatabaseInfo{
		SizeBytes:         size,
		DbType:            db.ImplLevelDB,
		SupportedFeatures: db.FeatureList(l.features()),
		Metadata:          metadata,
	}
}

func (l *levelImpl) Close() error {
	return l.db.Close()
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// reader is the read interface shared by leveldb transactions and snapshots
type reader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *opt.ReadOptions) (bool, error)
}

type levelTx struct {
	reader   reader
	tr       *leveldb.Transaction
	snap     *leveldb.Snapshot
	writable bool
	done     bool
}

func (tx *levelTx) checkWrite() error {
	if tx.done {
		return db.ErrTxDone
	}
	if !tx.writable {
		return db.ErrReadOnly
	}
	return nil
}

func (tx *levelTx) Set(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	return tx.tr.Put([]byte(key), value, nil)
}

func (tx *levelTx) SetIfUnset(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	if ok, err := tx.tr.Has([]byte(key), nil); err != nil || ok {
		return err
	}
	return tx.tr.Put([]byte(key), value, nil)
}

func (tx *levelTx) Delete(key string) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	return tx.tr.Delete([]byte(key), nil)
}

func (tx *levelTx) Get(key string) ([]byte, bool, error) {
	if tx.done {
		return nil, false, db.ErrTxDone
	}
	value, err := tx.reader.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (tx *levelTx) Has(key string) (bool, error) {
	if tx.done {
		return false, db.ErrTxDone
	}
	return tx.reader.Has([]byte(key), nil)
}

func (tx *levelTx) Scan(prefix string, fn func(key string, value []byte) bool) error {
	if tx.done {
		return db.ErrTxDone
	}
	slice := util.BytesPrefix([]byte(prefix))
	var it interface {
		Next() bool
		Key() []byte
		Value() []byte
		Release()
		Error() error
	}
	if tx.writable {
		it = tx.tr.NewIterator(slice, nil)
	} else {
		it = tx.snap.NewIterator(slice, nil)
	}
	defer it.Release()

	for it.Next() {
		// iterator buffers are reused
		value := make([]byte, len(it.Value()))
		copy(value, it.Value())
		if !fn(string(it.Key()), value) {
			return nil
		}
	}
	return it.Error()
}

func (tx *levelTx) Commit() error {
	if tx.done {
		return db.ErrTxDone
	}
	tx.done = true
	if !tx.writable {
		tx.snap.Release()
		return nil
	}
	if err := tx.tr.Commit(); err != nil {
		tx.tr.Discard()
		return fmt.Errorf("leveldb commit: %w", err)
	}
	return nil
}

func (tx *levelTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.writable {
		tx.tr.Discard()
	} else {
		tx.snap.Release()
	}
	return nil
}

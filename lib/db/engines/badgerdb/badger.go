package badgerdb

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	badger "github.com/dgraph-io/badger/v3"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
)

var log = logger.GetLogger("badger")

// Options configures the badger engine
type Options struct {
	Path       string // directory of the database, empty = in-memory
	SyncWrites bool   // fsync every commit
}

// badgerImpl implements db.KVDB on top of badger.
// Writable transactions are serialized with a mutex, so badger never reports a conflict on commit.
type badgerImpl struct {
	db     *badger.DB
	opts   Options
	writer sync.Mutex

	// maxValue is the exclusive size limit of values, 0 = unlimited.
	// In-memory badger has no value log, values at or above the value threshold can not be stored.
	maxValue int
}

// NewBadgerDB opens (or creates) a badger database
func NewBadgerDB(opts Options) (db.KVDB, error) {
	bopts := badger.DefaultOptions(opts.Path).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(log)
	maxValue := 0
	if opts.Path == "" {
		bopts = bopts.WithInMemory(true)
		maxValue = int(bopts.ValueThreshold)
	}
	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}
	return &badgerImpl{db: bdb, opts: opts, maxValue: maxValue}, nil
}

func (b *badgerImpl) Begin(writable bool) (db.Txn, error) {
	if b.db.IsClosed() {
		return nil, db.ErrClosed
	}
	if writable {
		b.writer.Lock()
	}
	return &badgerTx{parent: b, tx: b.db.NewTransaction(writable), writable: writable}, nil
}

func (b *badgerImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureAll
	if b.opts.Path != "" {
		supported |= db.FeatureDurable
	}
	return feature&supported == feature
}

func (b *badgerImpl) GetInfo() db.DatabaseInfo {
	lsm, vlog := b.db.Size()
	features := db.FeatureAll
	if b.opts.Path != "" {
		features |= db.FeatureDurable
	}
	return db.DatabaseInfo{
		SizeBytes:         int(lsm + vlog),
		DbType:            db.ImplBadger,
		SupportedFeatures: db.FeatureList(features),
		Metadata: map[string]interface{}{
			"path":        b.opts.Path,
			"lsm_bytes":   lsm,
			"vlog_bytes":  vlog,
			"in_memory":   b.opts.Path == "",
			"sync_writes": b.opts.SyncWrites,
			"max_value":   b.maxValue,
		},
	}
}

func (b *badgerImpl) Close() error {
	return b.db.Close()
}

func (b *badgerImpl) checkValue(value []byte) error {
	if b.maxValue > 0 && len(value) >= b.maxValue {
		return fmt.Errorf("%w: %d bytes, in-memory badger stores less than %d", db.ErrValueTooLarge, len(value), b.maxValue)
	}
	return nil
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

type badgerTx struct {
	parent   *badgerImpl
	tx       *badger.Txn
	writable bool
	done     bool
}

func (tx *badgerTx) checkWrite() error {
	if tx.done {
		return db.ErrTxDone
	}
	if !tx.writable {
		return db.ErrReadOnly
	}
	return nil
}

func (tx *badgerTx) Set(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	if err := tx.parent.checkValue(value); err != nil {
		return err
	}
	// badger keeps the slice until commit
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	return tx.tx.Set([]byte(key), valueCopy)
}

func (tx *badgerTx) SetIfUnset(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	if err := tx.parent.checkValue(value); err != nil {
		return err
	}
	if ok, err := tx.Has(key); err != nil || ok {
		return err
	}
	return tx.Set(key, value)
}

func (tx *badgerTx) Delete(key string) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	return tx.tx.Delete([]byte(key))
}

func (tx *badgerTx) Get(key string) ([]byte, bool, error) {
	if tx.done {
		return nil, false, db.ErrTxDone
	}
	item, err := tx.tx.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (tx *badgerTx) Has(key string) (bool, error) {
	if tx.done {
		return false, db.ErrTxDone
	}
	_, err := tx.tx.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (tx *badgerTx) Scan(prefix string, fn func(key string, value []byte) bool) error {
	if tx.done {
		return db.ErrTxDone
	}
	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 10
	opts.Prefix = []byte(prefix)
	it := tx.tx.NewIterator(opts)
	defer it.Close()

	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if value == nil {
			value = []byte{}
		}
		if !fn(string(item.KeyCopy(nil)), value) {
			return nil
		}
	}
	return nil
}

func (tx *badgerTx) Commit() error {
	if tx.done {
		return db.ErrTxDone
	}
	tx.done = true
	if !tx.writable {
		tx.tx.Discard()
		return nil
	}
	defer tx.parent.writer.Unlock()
	if err := tx.tx.Commit(); err != nil {
		return fmt.Errorf("badger commit: %w", err)
	}
	return nil
}

func (tx *badgerTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.tx.Discard()
	if tx.writable {
		tx.parent.writer.Unlock()
	}
	return nil
}

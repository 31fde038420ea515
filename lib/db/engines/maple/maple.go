package maple

import (
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/ValentinKolb/crund/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/crund/lib/db/util"
	"runtime"
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements an in-memory transactional database with sharded data
type mapleImpl struct {
	numShards int               // Number of shards
	seed      uint64            // Seed for hash function
	shards    []*internal.Shard // Array of shards

	writer   sync.Mutex   // held by the single open writable transaction
	commitMu sync.RWMutex // writers apply under Lock, readers read under RLock

	keys      atomic.Int64
	sizeBytes atomic.Int64
	closed    atomic.Bool
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = number of CPUs)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}

	seed := util.GenerateSeed()
	shards := make([]*internal.Shard, opts.NumShards)
	for i := 0; i < opts.NumShards; i++ {
		shards[i] = internal.NewShard(seed)
	}

	return &mapleImpl{
		numShards: opts.NumShards,
		seed:      seed,
		shards:    shards,
	}
}

// shardFor returns the shard responsible for a key
func (maple *mapleImpl) shardFor(key string) *internal.Shard {
	return internal.GetShard(util.HashString(key, maple.seed), maple.shards)
}

// --------------------------------------------------------------------------
// KVDB Interface Methods
// --------------------------------------------------------------------------

// Begin starts a transaction. Writable transactions are serialized: Begin(true) blocks
// until the previous writable transaction has finished. Read transactions never block
// writers and observe every commit that finished before a read operation started.
func (maple *mapleImpl) Begin(writable bool) (db.Txn, error) {
	if maple.closed.Load() {
		return nil, db.ErrClosed
	}
	tx := &mapleTx{db: maple, writable: writable}
	if writable {
		maple.writer.Lock()
		tx.writes = make(internal.WriteSet)
	}
	return tx, nil
}

func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	return feature&db.FeatureAll == feature
}

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	histogram := util.NewSizeHistogram()
	samplesPerShard := 100
	shardSizes := make([]int64, len(maple.shards))

	for i, shard := range maple.shards {
		count := 0
		shard.Data.Range(func(_ string, value []byte) bool {
			histogram.AddSample(len(value))
			count++
			return count < samplesPerShard
		})
		shardSizes[i] = int64(shard.Data.Size())
	}

	boundaries, distribution := histogram.SizeDistribution()

	return db.DatabaseInfo{
		Keys:              int(maple.keys.Load()),
		SizeBytes:         int(maple.sizeBytes.Load()),
		DbType:            db.ImplMaple,
		SupportedFeatures: db.FeatureList(db.FeatureAll),
		Metadata: map[string]interface{}{
			"shards":             maple.numShards,
			"shard_distribution": util.NewDistributionStats(shardSizes),
			"median_value_size":  histogram.MedianEstimate(),
			"size_boundaries":    boundaries,
			"size_distribution":  distribution,
		},
	}
}

// Close drops all data, the database can not be used afterward
func (maple *mapleImpl) Close() error {
	if maple.closed.Swap(true) {
		return nil
	}
	maple.commitMu.Lock()
	defer maple.commitMu.Unlock()
	for _, shard := range maple.shards {
		shard.Data.Clear()
	}
	return nil
}

// --------------------------------------------------------------------------
// Committed state access
// --------------------------------------------------------------------------

func (maple *mapleImpl) load(key string) ([]byte, bool) {
	maple.commitMu.RLock()
	defer maple.commitMu.RUnlock()
	return maple.shardFor(key).Data.Load(key)
}

// apply writes the buffered changes of a transaction into the shards
func (maple *mapleImpl) apply(ws internal.WriteSet) {
	maple.commitMu.Lock()
	defer maple.commitMu.Unlock()

	for key, w := range ws {
		shard := maple.shardFor(key)
		old, existed := shard.Data.Load(key)
		switch w.Type {
		case internal.WriteTSet:
			shard.Data.Store(key, w.Value)
			if existed {
				maple.sizeBytes.Add(int64(len(w.Value) - len(old)))
			} else {
				maple.keys.Add(1)
				maple.sizeBytes.Add(int64(len(key) + len(w.Value)))
			}
		case internal.WriteTDelete:
			if existed {
				shard.Data.Delete(key)
				maple.keys.Add(-1)
				maple.sizeBytes.Add(-int64(len(key) + len(old)))
			}
		}
	}
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

type mapleTx struct {
	db       *mapleImpl
	writable bool
	writes   internal.WriteSet
	done     bool
}

func (tx *mapleTx) checkWrite() error {
	if tx.done {
		return db.ErrTxDone
	}
	if !tx.writable {
		return db.ErrReadOnly
	}
	return nil
}

func (tx *mapleTx) Set(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	tx.writes[key] = internal.Write{Type: internal.WriteTSet, Value: valueCopy}
	return nil
}

func (tx *mapleTx) SetIfUnset(key string, value []byte) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	if _, loaded, _ := tx.lookup(key); loaded {
		return nil
	}
	return tx.Set(key, value)
}

func (tx *mapleTx) Delete(key string) error {
	if err := tx.checkWrite(); err != nil {
		return err
	}
	tx.writes[key] = internal.Write{Type: internal.WriteTDelete}
	return nil
}

// lookup resolves a key against the write set first, then the committed state
func (tx *mapleTx) lookup(key string) ([]byte, bool, error) {
	if tx.done {
		return nil, false, db.ErrTxDone
	}
	if value, loaded, found := tx.writes.Lookup(key); found {
		return value, loaded, nil
	}
	value, loaded := tx.db.load(key)
	return value, loaded, nil
}

func (tx *mapleTx) Get(key string) ([]byte, bool, error) {
	value, loaded, err := tx.lookup(key)
	if err != nil || !loaded {
		return nil, false, err
	}
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	return valueCopy, true, nil
}

func (tx *mapleTx) Has(key string) (bool, error) {
	_, loaded, err := tx.lookup(key)
	return loaded, err
}

func (tx *mapleTx) Scan(prefix string, fn func(key string, value []byte) bool) error {
	if tx.done {
		return db.ErrTxDone
	}
	tx.db.commitMu.RLock()
	keys := internal.CollectPrefix(tx.db.shards, tx.writes, prefix)
	tx.db.commitMu.RUnlock()

	for _, key := range keys {
		value, loaded, err := tx.Get(key)
		if err != nil {
			return err
		}
		if !loaded {
			continue // deleted by a concurrent commit
		}
		if !fn(key, value) {
			return nil
		}
	}
	return nil
}

func (tx *mapleTx) Commit() error {
	if tx.done {
		return db.ErrTxDone
	}
	tx.done = true
	if tx.writable {
		tx.db.apply(tx.writes)
		tx.writes = nil
		tx.db.writer.Unlock()
	}
	return nil
}

func (tx *mapleTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.writable {
		tx.writes = nil
		tx.db.writer.Unlock()
	}
	return nil
}

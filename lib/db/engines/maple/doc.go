// Package maple implements an in-memory transactional key-value database (KVDB).
// It is the reference engine of crund: it has no I/O cost, so benchmark numbers
// measured against it show the overhead of the layers above the storage engine.
//
// Key Components:
//
//   - mapleImpl: The database structure implementing db.KVDB. It manages the shards,
//     serializes writable transactions and tracks the number of keys and their size.
//
//   - Shard: A partition of the database that manages a subset of the key space.
//     Each shard is an xsync.MapOf keyed by the string key. Keys are placed on
//     shards in a two-step process:
//     1. String keys are converted to 64-bit integers using the HashString function
//     with a database-specific seed
//     2. The integer key is right-shifted by 7 bits to use higher-quality bits for
//     distribution
//
//   - mapleTx: A transaction. Writable transactions buffer their changes in a write
//     set and apply it atomically on commit, so a rolled back transaction never
//     touches the shards. Reads inside a writable transaction see its own writes.
//
// Isolation:
//
//   - Only one writable transaction can be open at a time (Begin(true) blocks), which
//     makes writable transactions serializable.
//   - Read-only transactions do not take the writer lock. Each read observes the
//     committed state at the time of the read (read committed).
//
// Scans collect the matching keys from all shards, merge them with the write set and
// return them in ascending key order.
//
// GetInfo samples up to 100 entries per shard for the value size distribution and
// reports the shard balance via util.NewDistributionStats.
package maple

package db

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple    Implementation = "maple"
	ImplBadger   Implementation = "badger"
	ImplBolt     Implementation = "bolt"
	ImplLevelDB  Implementation = "leveldb"
	ImplSQLite   Implementation = "sqlite"
	ImplMySQL    Implementation = "mysql"
	ImplPostgres Implementation = "postgres"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet        Feature = 1 << iota // Support for Set operations
	FeatureSetIfUnset                     // Support for SetIfUnset operations
	FeatureGet                            // Support for Get operations
	FeatureHas                            // Support for Has operations
	FeatureDelete                         // Support for Delete operations
	FeatureScan                           // Support for prefix scans
	FeatureDurable                        // Committed transactions survive a restart
)

// FeatureAll is the set of features every transactional engine in this module provides
const FeatureAll = FeatureSet | FeatureSetIfUnset | FeatureGet | FeatureHas | FeatureDelete | FeatureScan

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureSetIfUnset:
		return "SetIfUnset"
	case FeatureGet:
		return "Get"
	case FeatureHas:
		return "Has"
	case FeatureDelete:
		return "Delete"
	case FeatureScan:
		return "Scan"
	case FeatureDurable:
		return "Durable"
	default:
		return "Unknown"
	}
}

// FeatureList splits a feature mask into its single flags
func FeatureList(mask Feature) []Feature {
	var features []Feature
	for f := FeatureSet; f <= FeatureDurable; f <<= 1 {
		if mask&f != 0 {
			features = append(features, f)
		}
	}
	return features
}

type DatabaseInfo struct {
	Keys              int            `json:"keys"`
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for transactional key-value database implementations.
// All reads and writes happen inside a transaction obtained with Begin.
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type KVDB interface {

	// Begin starts a new transaction. Writes are only allowed on writable transactions.
	// Implementations may serialize writable transactions.
	Begin(writable bool) (tx Txn, err error)

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close closes the database. Open transactions must be finished before.
	Close() (err error)
}

// Txn is a single transaction on a KVDB.
// Exactly one of Commit or Rollback ends the transaction, a Rollback after a Commit is a no-op.
type Txn interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates the value of a key.
	Set(key string, value []byte) (err error)

	// SetIfUnset inserts the value only if the key does not exist yet.
	SetIfUnset(key string, value []byte) (err error)

	// Delete removes a key, deleting a missing key is not an error.
	Delete(key string) (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	// The returned slice is owned by the caller.
	Get(key string) (value []byte, loaded bool, err error)

	// Has checks whether a key exists.
	Has(key string) (loaded bool, err error)

	// Scan calls fn for every key starting with prefix in ascending key order.
	// Returning false from fn stops the scan.
	Scan(prefix string, fn func(key string, value []byte) bool) (err error)

	// --------------------------------------------------------------------------
	// Transaction Control
	// --------------------------------------------------------------------------

	// Commit makes the writes of the transaction visible.
	Commit() (err error)

	// Rollback discards the transaction.
	Rollback() (err error)
}

// Factory creates a new database instance
type Factory func() (KVDB, error)

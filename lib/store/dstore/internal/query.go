package internal

import "fmt"

// QueryType defines the read operations of the state machine.
type QueryType uint8

const (
	QueryTGet       QueryType = iota // Get the value of a key.
	QueryTHas                        // Check if a key exists.
	QueryTScan                       // All entries with a key prefix.
	QueryTGetDBInfo                  // Get information about the database.
)

func (qt QueryType) String() string {
	switch qt {
	case QueryTGet:
		return "Get"
	case QueryTHas:
		return "Has"
	case QueryTScan:
		return "Scan"
	case QueryTGetDBInfo:
		return "GetDBInfo"
	default:
		return fmt.Sprintf("Unknown(%d)", qt)
	}
}

// Query is passed to the state machine by SyncRead and StaleRead, it is never serialized
type Query struct {
	Type QueryType
	Key  string // key or prefix
}

// QueryResult is the result of a Get query
type QueryResult struct {
	Value []byte
	Ok    bool
}

// ScanResult is the result of a Scan query, keys are sorted ascending
type ScanResult struct {
	Keys   []string
	Values [][]byte
}

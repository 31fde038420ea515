// Package internal provides the communication protocol structures and serialization
// logic for the dstore package.
//
//   - Command: the write batch of one committed transaction. Commands are serialized,
//     proposed to the RAFT cluster and applied by the state machine inside a single
//     database transaction, so a batch is either applied completely or not at all.
//
//   - Query: read operations (Get, Has, Scan, GetDBInfo). Queries are executed locally
//     on the state machine and therefore do not require serialization.
//
// Command Format:
//
//	- 1 byte: format version (currently 1)
//	- 4 bytes: number of ops (uint32, big endian)
//	- per op:
//	  - 1 byte: op type (store.OpSet, store.OpSetIfUnset, store.OpDelete)
//	  - 4 bytes: key length, followed by the key
//	  - 4 bytes: value length, followed by the value (length 0 for deletes)
package internal

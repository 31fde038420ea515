// Package rpc is the network layer of crund. It lets a benchmark run against a store or a
// lock manager that lives in another process, so that the cost of the network and of
// the serialization becomes part of the measurement.
//
// The package is organized into several subpackages:
//
//   - common: The Message protocol, the server and client configuration and the logger setup.
//
//   - transport: Pluggable transports (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization (Binary, JSON, GOB).
//
//   - client: store.IStore and lockmgr.ILockManager implementations that forward
//     every operation to a server shard.
//
//   - server: The server hosting the shards and the adapters that answer requests.
package rpc

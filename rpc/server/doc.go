// Package server implements the RPC server that hosts crund shards. Every shard is a store
// or a lock manager with its own database, a benchmark run can point its store and its
// lock manager at shards of one or more servers.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface of all server adapters. Handle answers one request
//     message with one response message.
//
//   - NewIStoreServerAdapter: Adapter that translates Get, Has, Scan, Commit and Info
//     requests to transactions of a store.IStore. A commit is applied in a single
//     write transaction.
//
//   - NewLockManagerServerAdapter: Adapter that serves lock vectors from a
//     lockmgr.ILockManager.
//
//   - NewRPCServer: Creates a server with the given transport and serializer. Serve
//     blocks until Shutdown is called.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 100, Type: common.ShardTypeLocalIStore},
//	    {ShardID: 200, Type: common.ShardTypeLocalILockManager},
//	  },
//	  Engine:        engines.Config{Engine: db.ImplBadger, Path: "/var/lib/crund"},
//	  TimeoutSecond: 5,
//	  Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	}
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Shard types:
//
//   - lstore: A store on a local database of the configured engine.
//
//   - dstore: A store replicated with Raft. RTTMillisecond, SnapshotEntries,
//     CompactionOverhead, DataDir, ReplicaID and ClusterMembers must be configured.
//
//   - lockmgr(lstore) and lockmgr(dstore): A lock manager on top of a local or a
//     replicated store.
//
// Every shard gets a database of its own, file based engines use a sub directory
// shard-<id> of the configured path.
//
// Metrics:
//
//	The server counts requests and errors per shard and message type and records the
//	request duration. If MetricsEndpoint is set the counters are served in prometheus
//	format on <MetricsEndpoint>/metrics.
package server

// Package common provides the data structures shared by the rpc client, server,
// serializers and transports of crund.
//
// Key Components:
//
//   - Message: The single structure used for all requests and responses. A remote
//     transaction reads with Get, Has and Scan messages and commits with one Commit
//     message carrying the ordered batch of store.Op writes. Lock vectors travel in
//     the Keys field. Errors keep their store.RetCode, ResponseErr turns them back
//     into a *store.Error on the client.
//
//   - MessageType: Enumeration of all message types. JSON encodes it as a string.
//
//   - ServerConfig: Shards, storage engine, RAFT parameters and transport settings of
//     a server. Provides the conversion to Dragonboat configurations.
//
//   - ClientConfig: Endpoints, timeouts, retries and connection pool size of a client.
//
//   - Logger: Implementation of dragonboat's logger.ILogger that prints
//     "LEVEL | name | message" lines. InitLoggers installs it for the raft library
//     and for the crund loggers (bench, store, rpc, transport/rpc, engine, badger, lockmgr).
package common

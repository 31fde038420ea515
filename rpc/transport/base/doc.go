// Package base implements the framed, multiplexed stream transport shared by the tcp
// and unix transports. The protocol specific parts (dialing, listening and socket
// options) are supplied as an IClientConnector or IServerConnector.
//
// Frame layout (big endian):
//
//	shardID uint64 | requestID uint64 | length uint32 | payload
//
// Client:
//
//   - ConnectionsPerEndpoint connections per endpoint, picked round robin.
//   - Each connection has one reader goroutine that hands responses to the waiting
//     Send by requestID (xsync map of pending requests).
//   - TimeoutSecond bounds a single request. Send makes up to RetryCount attempts
//     with exponential backoff.
//   - A broken connection fails all its pending requests, its reader redials it.
//
// Server:
//
//   - One goroutine per accepted connection reads frames, up to WorkersPerConn
//     requests per connection are handled concurrently (default 4).
//   - Read buffers come from a sync.Pool sized BufferSize.
//   - Writes of one connection are serialized, header and payload go out in a
//     single net.Buffers write.
//   - Shutdown closes the listener and every open connection.
//
// Idle reads have no deadline on either side. A benchmark may pause between
// operations (forced GC, cache clearing) for a long time.
package base

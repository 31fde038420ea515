// Package transport defines the interfaces for RPC communication between crund
// clients and servers. All transports carry opaque, already serialized messages
// addressed to a shard.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and routes them to appropriate handlers. Listen blocks until
//     Shutdown, which lets tests and the serve command stop a server cleanly.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Implementations live in the subpackages tcp, unix (both built on base) and http.
package transport

// Package http carries crund RPC messages over plain HTTP. It is the slowest of the
// transports but the easiest to put behind a proxy or inspect with curl.
//
// Every request is a POST to /<shardId> with the serialized message as body, the
// response body is the serialized reply. A status other than 200 is reported to the
// caller as a transport error.
//
// The client spreads requests round robin over the configured endpoints and retries
// a failed POST up to RetryCount times. The server wraps its handler in a small
// logging middleware (debug level) and drains open requests on Shutdown.
//
// Buffer sizes, TCP options and WorkersPerConn are ignored, net/http manages its
// own connections.
package http

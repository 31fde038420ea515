// Package unix runs the framed base transport over Unix domain sockets. Use it when
// the benchmark driver and the crund server share a host and the network stack
// should not be part of the measurement.
//
// The endpoint is a socket path. A stale socket file left by a crashed server is
// removed before listening. The default buffer size is 64 KB.
package unix

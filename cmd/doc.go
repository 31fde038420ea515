// Package cmd implements the command-line interface of crund. It provides a
// hierarchical command structure for running benchmarks, hosting stores for remote
// benchmarks and inspecting stores by hand.
//
// The package is organized into several subpackages:
//
//   - run: The benchmark driver (crud and lock loads, reports)
//   - serve: Commands for starting and configuring the crund server
//   - kv: Commands for key-value store operations (get, set, delete, etc.)
//   - lock: Commands for locking operations (acquire, release)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as an environment variable CRUND_<FLAG> (e.g.
// CRUND_LOG_LEVEL=debug), .env and .env.local files are loaded on start.
//
// See crund -help for a list of all commands.
package cmd

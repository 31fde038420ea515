// Package client implements RPC clients for crund servers. It provides implementations
// of the store.IStore and lockmgr.ILockManager interfaces that forward every operation
// to a shard of a remote server.
//
// Key Components:
//
//   - NewRPCStore: Creates a client implementing store.IStore. Transactions are
//     store.NewBufferedTx transactions: Get, Has and Scan are sent to the server when
//     they are called (read committed), the writes are collected and sent as a single
//     commit message that the server applies in one transaction. A transaction
//     without writes commits without a round trip.
//
//   - NewRPCLockMgr: Creates a client implementing lockmgr.ILockManager. Lock vectors
//     are acquired and released in a single request.
//
// Errors:
//
//	All errors are *store.Error values. Errors reported by the server keep their return
//	code, so an unsupported operation of the remote engine is RetCUnsupportedOperation
//	on the client as well. Transport failures are RetCInternalError.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:  []string{"localhost:8080"},
//	    RetryCount: 3,
//	  },
//	}
//
//	s, err := client.NewRPCStore(100, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	tx, _ := s.Begin(true)
//	tx.Set("mykey", []byte("myvalue"))
//	err = tx.Commit()
//
//	locks, closeLocks, err := client.NewRPCLockMgr(200, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	ok, ownerID, _ := locks.AcquireLocks([]string{"a", "b"})
//	if ok {
//	  locks.ReleaseLocks([]string{"a", "b"}, ownerID)
//	}
//
// Thread Safety:
//
//	Stores and lock managers can be shared between goroutines, a single transaction
//	must only be used by one goroutine at a time.
package client

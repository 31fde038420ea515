package server

import (
	"errors"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/ValentinKolb/crund/lib/db/engines"
	"github.com/ValentinKolb/crund/lib/store"
	storetesting "github.com/ValentinKolb/crund/lib/store/testing"
	"github.com/ValentinKolb/crund/rpc/client"
	"github.com/ValentinKolb/crund/rpc/common"
	"github.com/ValentinKolb/crund/rpc/serializer"
	"github.com/ValentinKolb/crund/rpc/transport"
	"github.com/ValentinKolb/crund/rpc/transport/http"
	"github.com/ValentinKolb/crund/rpc/transport/tcp"
	"github.com/ValentinKolb/crund/rpc/transport/unix"
	"path/filepath"
	"testing"
	"time"
)

const (
	storeShard = 1
	lockShard  = 2
)

// setup describes one transport / serializer combination
type setup struct {
	name       string
	server     func() transport.IRPCServerTransport
	client     func() transport.IRPCClientTransport
	serializer func() serializer.IRPCSerializer
	endpoint   func(t testing.TB) string
}

func tcpEndpoint(testing.TB) string { return "127.0.0.1:0" }

func setups() []setup {
	return []setup{
		{"TCP-Binary", tcp.NewTCPServerTransport, tcp.NewTCPClientTransport, serializer.NewBinarySerializer, tcpEndpoint},
		{"TCP-GOB", tcp.NewTCPServerTransport, tcp.NewTCPClientTransport, serializer.NewGOBSerializer, tcpEndpoint},
		{"Unix-Binary", unix.NewUnixServerTransport, unix.NewUnixClientTransport, serializer.NewBinarySerializer,
			func(t testing.TB) string { return filepath.Join(t.TempDir(), "crund.sock") }},
		{"HTTP-JSON", http.NewHttpServerTransport, http.NewHttpClientTransport, serializer.NewJSONSerializer, tcpEndpoint},
	}
}

// startServer starts a server with a store and a lock manager shard on maple
// and returns it together with the address it listens on
func startServer(t testing.TB, s setup) (*RPCServer, string) {
	t.Helper()
	config := common.ServerConfig{
		Shards: []common.ServerShard{
			{ShardID: storeShard, Type: common.ShardTypeLocalIStore},
			{ShardID: lockShard, Type: common.ShardTypeLocalILockManager},
		},
		Engine:        engines.Config{Engine: db.ImplMaple},
		TimeoutSecond: 5,
		LogLevel:      "warning",
		Transport:     common.ServerTransportConfig{Endpoint: s.endpoint(t)},
	}

	srv := NewRPCServer(config, s.server(), s.serializer())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve()
	}()

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == "" {
		select {
		case err := <-errCh:
			t.Fatalf("Serve failed: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("Server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return srv, srv.Addr()
}

func clientConfig(addr string) common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{addr},
			RetryCount: 2,
		},
	}
}

// serverStore shuts the server down together with the client
type serverStore struct {
	store.IStore
	srv *RPCServer
}

func (s *serverStore) Close() error {
	return errors.Join(s.IStore.Close(), s.srv.Shutdown())
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRPCStore(t *testing.T) {
	for _, s := range setups() {
		storetesting.RunStoreTests(t, s.name, func(t testing.TB) store.IStore {
			srv, addr := startServer(t, s)
			rpcStore, err := client.NewRPCStore(storeShard, clientConfig(addr), s.client(), s.serializer())
			if err != nil {
				srv.Shutdown()
				t.Fatalf("NewRPCStore failed: %v", err)
			}
			return &serverStore{IStore: rpcStore, srv: srv}
		})
	}
}

func TestRPCLockManager(t *testing.T) {
	for _, s := range setups() {
		t.Run(s.name, func(t *testing.T) {
			srv, addr := startServer(t, s)
			defer srv.Shutdown()

			locks, closeLocks, err := client.NewRPCLockMgr(lockShard, clientConfig(addr), s.client(), s.serializer())
			if err != nil {
				t.Fatalf("NewRPCLockMgr failed: %v", err)
			}
			defer closeLocks()

			ok, owner, err := locks.AcquireLocks([]string{"a", "b"})
			if err != nil || !ok {
				t.Fatalf("Expected locks to be acquired, got ok=%v err=%v", ok, err)
			}
			if len(owner) != 32 {
				t.Errorf("Expected 32 byte owner ID, got %d", len(owner))
			}

			if ok, _, err := locks.AcquireLocks([]string{"b", "c"}); err != nil || ok {
				t.Errorf("Expected overlapping lock vector to fail, got ok=%v err=%v", ok, err)
			}
			if ok, _, err := locks.AcquireLock("c"); err != nil || !ok {
				t.Errorf("Expected c to be free after the failed vector, got ok=%v err=%v", ok, err)
			}

			if ok, err := locks.ReleaseLocks([]string{"a", "b"}, []byte("someone else")); err != nil || ok {
				t.Errorf("Expected release by a foreign owner to fail, got ok=%v err=%v", ok, err)
			}
			if ok, err := locks.ReleaseLocks([]string{"a", "b"}, owner); err != nil || !ok {
				t.Errorf("Expected release to succeed, got ok=%v err=%v", ok, err)
			}
			if ok, _, err := locks.AcquireLock("a"); err != nil || !ok {
				t.Errorf("Expected a to be free after release, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestUnknownShard(t *testing.T) {
	s := setups()[0]
	srv, addr := startServer(t, s)
	defer srv.Shutdown()

	rpcStore, err := client.NewRPCStore(99, clientConfig(addr), s.client(), s.serializer())
	if err != nil {
		t.Fatalf("NewRPCStore failed: %v", err)
	}
	defer rpcStore.Close()

	tx, err := rpcStore.Begin(false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Rollback()
	if _, _, err := tx.Get("key"); store.ErrorCode(err) != store.RetCInvalidOperation {
		t.Errorf("Expected RetCInvalidOperation for an unknown shard, got %v", err)
	}
}

func TestWrongShardType(t *testing.T) {
	s := setups()[0]
	srv, addr := startServer(t, s)
	defer srv.Shutdown()

	// a store client talking to the lock manager shard
	rpcStore, err := client.NewRPCStore(lockShard, clientConfig(addr), s.client(), s.serializer())
	if err != nil {
		t.Fatalf("NewRPCStore failed: %v", err)
	}
	defer rpcStore.Close()

	if _, err := rpcStore.GetDBInfo(); store.ErrorCode(err) != store.RetCInvalidOperation {
		t.Errorf("Expected RetCInvalidOperation, got %v", err)
	}
}

func TestHandleInvalidRequest(t *testing.T) {
	s := setups()[0]
	srv, _ := startServer(t, s)
	defer srv.Shutdown()

	var resp common.Message
	if err := srv.serializer.Deserialize(srv.handle(storeShard, []byte{0xff}), &resp); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if resp.MsgType != common.MsgTError || resp.Code != store.RetCInternalError {
		t.Errorf("Expected internal error response, got %s (code %d)", resp.MsgType, resp.Code)
	}
}

func TestServeWithoutShards(t *testing.T) {
	srv := NewRPCServer(common.ServerConfig{
		Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0"},
	}, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
	if err := srv.Serve(); err == nil {
		t.Errorf("Expected Serve without shards to fail")
	}
}

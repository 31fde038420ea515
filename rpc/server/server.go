package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/crund/lib/db/engines"
	"github.com/ValentinKolb/crund/lib/lockmgr"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/lib/store/dstore"
	"github.com/ValentinKolb/crund/lib/store/lstore"
	"github.com/ValentinKolb/crund/rpc/common"
	"github.com/ValentinKolb/crund/rpc/serializer"
	"github.com/ValentinKolb/crund/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"net/http"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("rpc")

const defaultTimeout = 5 * time.Second

// serverShard is a struct that represents a shard in the RPC server
// It contains the store it encapsulates and the adapter
// that handles requests for the store
type serverShard struct {
	Type    common.ServerShardType
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
	}
}

// RPCServer hosts stores and lock managers as numbered shards
type RPCServer struct {
	config        common.ServerConfig
	transport     transport.IRPCServerTransport
	serializer    serializer.IRPCSerializer
	shards        *xsync.MapOf[uint64, serverShard]
	nodeHost      *dragonboat.NodeHost
	metricsServer *http.Server
	shutdownOnce  sync.Once
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer.
// It blocks until Shutdown is called.
func (s *RPCServer) Serve() error {
	if err := s.init(); err != nil {
		s.closeShards()
		return err
	}
	return s.transport.Listen(s.config)
}

// Addr returns the address of the transport listener, empty until the server listens
func (s *RPCServer) Addr() string {
	return s.transport.Addr()
}

// Shutdown stops the transport and the metrics endpoint and closes all shards
func (s *RPCServer) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.transport.Shutdown()
		if s.metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = errors.Join(err, s.metricsServer.Shutdown(ctx))
			cancel()
		}
		s.closeShards()
		Logger.Infof("RPC server stopped")
	})
	return err
}

// --------------------------------------------------------------------------
// Request handling
// --------------------------------------------------------------------------

// handle is the transport handler: it decodes a request, lets the adapter of the shard
// answer it and encodes the response. Failures become error responses.
func (s *RPCServer) handle(shardId uint64, req []byte) []byte {
	start := time.Now()
	var msg common.Message
	var respMsg *common.Message

	if shard, ok := s.shards.Load(shardId); !ok {
		// Case shard does not exist -> error
		respMsg = common.NewErrorResponse(store.RetCInvalidOperation, fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(store.RetCInternalError, fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		// Let the adapter handle the request
		respMsg = shard.Adapter.Handle(&msg)
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`crund_rpc_requests_total{shard="%d",type="%s"}`, shardId, msg.MsgType)).Inc()
	if respMsg.Err != "" {
		metrics.GetOrCreateCounter(fmt.Sprintf(`crund_rpc_errors_total{shard="%d",type="%s"}`, shardId, msg.MsgType)).Inc()
		Logger.Debugf("request %s on shard %d failed: %s", msg.MsgType, shardId, respMsg.Err)
	}

	// Return result
	resp, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize %s response: %v", respMsg.MsgType, err)
		resp, _ = s.serializer.Serialize(*common.NewErrorResponse(store.RetCInternalError,
			fmt.Sprintf("failed to serialize response: %s", err)))
	}
	metrics.GetOrCreateHistogram(fmt.Sprintf(`crund_rpc_request_duration_seconds{type="%s"}`, msg.MsgType)).
		Update(time.Since(start).Seconds())
	return resp
}

// --------------------------------------------------------------------------
// Setup
// --------------------------------------------------------------------------

func (s *RPCServer) init() error {

	// Init logger
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	if len(s.config.Shards) == 0 {
		return fmt.Errorf("no shards configured")
	}

	// Create the Dragonboat NodeHost, only needed for remote shards
	if s.config.HasRemoteShard() {
		if _, ok := s.config.ClusterMembers[s.config.ReplicaID]; !ok {
			return fmt.Errorf("replica %d is not a cluster member", s.config.ReplicaID)
		}
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nodeHost
	}

	// Configure the timeout for the distributed store
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	/*
		Note: A single RPC Server can have any number of remote and or local shards.
		Each shard can be a store or a lock manager and has its own database.
		The following loop creates all the shards and stores them for the RPC server.
	*/

	for _, shardConfig := range s.config.Shards {
		if _, exists := s.shards.Load(shardConfig.ShardID); exists {
			return fmt.Errorf("duplicate shard id %d", shardConfig.ShardID)
		}

		dbFactory := engines.Factory(s.config.Engine.Sub(fmt.Sprintf("shard-%d", shardConfig.ShardID)))

		var shardStore store.IStore
		if shardConfig.Type.IsRemote() {
			// Start Raft for the shard
			if err := s.nodeHost.StartConcurrentReplica(s.config.ClusterMembers, false,
				dstore.CreateStateMaschineFactory(dbFactory), s.config.ToDragonboatConfig(shardConfig.ShardID)); err != nil {
				return fmt.Errorf("failed to start shard %d: %w", shardConfig.ShardID, err)
			}
			shardStore = dstore.NewDistributedStore(s.nodeHost, shardConfig.ShardID, timeout)
		} else {
			localStore, err := lstore.NewLocalStore(dbFactory)
			if err != nil {
				return fmt.Errorf("failed to open store for shard %d: %w", shardConfig.ShardID, err)
			}
			shardStore = localStore
		}

		// Choose the appropriate adapter based on the shard type
		var adapter IRPCServerAdapter
		if shardConfig.Type.IsLockManager() {
			adapter = NewLockManagerServerAdapter(lockmgr.NewLockManager(shardStore))
		} else {
			adapter = NewIStoreServerAdapter(shardStore)
		}

		s.shards.Store(shardConfig.ShardID, serverShard{
			Type:    shardConfig.Type,
			Store:   shardStore,
			Adapter: adapter,
		})
		Logger.Infof("created %s shard %d (engine %s)", shardConfig.Type, shardConfig.ShardID, s.config.Engine.Engine)
	}

	if s.config.MetricsEndpoint != "" {
		s.serveMetrics()
	}

	Logger.Infof("crund setup completed successfully")

	// Configure the transport layer
	s.transport.RegisterHandler(s.handle)

	return nil
}

// serveMetrics exposes the global metrics set in prometheus format on /metrics
func (s *RPCServer) serveMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	s.metricsServer = &http.Server{Addr: s.config.MetricsEndpoint, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		Logger.Infof("Serving metrics on %s/metrics", s.config.MetricsEndpoint)
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics endpoint failed: %v", err)
		}
	}()
}

// closeShards closes the stores of all shards and the node host
func (s *RPCServer) closeShards() {
	s.shards.Range(func(id uint64, shard serverShard) bool {
		if err := shard.Store.Close(); err != nil {
			Logger.Warningf("failed to close shard %d: %v", id, err)
		}
		s.shards.Delete(id)
		return true
	})
	if s.nodeHost != nil {
		s.nodeHost.Close()
		s.nodeHost = nil
	}
}

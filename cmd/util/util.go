package util

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/db"
	"github.com/ValentinKolb/crund/lib/db/engines"
	"github.com/ValentinKolb/crund/lib/lockmgr"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/lib/store/lstore"
	"github.com/ValentinKolb/crund/rpc/client"
	"github.com/ValentinKolb/crund/rpc/common"
	"github.com/ValentinKolb/crund/rpc/serializer"
	"github.com/ValentinKolb/crund/rpc/transport"
	"github.com/ValentinKolb/crund/rpc/transport/http"
	"github.com/ValentinKolb/crund/rpc/transport/tcp"
	"github.com/ValentinKolb/crund/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// StoreLocal and StoreRPC select where the store of a command lives
	StoreLocal = "local"
	StoreRPC   = "rpc"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads .env files and makes every flag settable as CRUND_<FLAG>
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("crund")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper and initializes the loggers
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// SplitList splits a comma separated flag value, empty entries are dropped
func SplitList(value string) []string {
	var list []string
	for _, entry := range strings.Split(value, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			list = append(list, entry)
		}
	}
	return list
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// SetupEngineFlags adds the flags selecting and configuring a storage engine
func SetupEngineFlags(cmd *cobra.Command) {
	key := "engine"
	cmd.PersistentFlags().String(key, string(db.ImplMaple), WrapString(fmt.Sprintf("The storage engine (%s)", strings.Join(engines.Names(), ", "))))

	key = "engine-path"
	cmd.PersistentFlags().String(key, "", WrapString("Data directory of the file based engines (badger, bolt, leveldb, sqlite). Empty means in-memory or a temporary directory"))

	key = "engine-dsn"
	cmd.PersistentFlags().String(key, "", WrapString("Data source name of the sql engines (e.g. user:pw@tcp(localhost:3306)/crund for mysql)"))

	key = "engine-table"
	cmd.PersistentFlags().String(key, "kv", WrapString("Table used by the sql engines"))

	key = "engine-ndb"
	cmd.PersistentFlags().Bool(key, false, WrapString("Create the mysql table with ENGINE=NDBCLUSTER"))

	key = "engine-sync-writes"
	cmd.PersistentFlags().Bool(key, false, WrapString("Sync every commit to disk (badger, bolt, leveldb)"))

	key = "engine-shards"
	cmd.PersistentFlags().Int(key, 0, WrapString("Number of shards of the maple engine, 0 selects the default"))
}

// GetEngineConfig reads the engine configuration from viper
func GetEngineConfig() engines.Config {
	return engines.Config{
		Engine:     db.Implementation(strings.ToLower(viper.GetString("engine"))),
		Path:       viper.GetString("engine-path"),
		DSN:        viper.GetString("engine-dsn"),
		Table:      viper.GetString("engine-table"),
		NDB:        viper.GetBool("engine-ndb"),
		SyncWrites: viper.GetBool("engine-sync-writes"),
		Shards:     viper.GetInt("engine-shards"),
	}
}

// --------------------------------------------------------------------------
// RPC Client
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "localhost:8080", WrapString("The address of the crund server. For transports that support load balancing, multiple endpoints can be specified as a comma-separated list"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint - for transports that support this feature"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry the request"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			RetryCount:             viper.GetInt("transport-retries"),
			Endpoints:              SplitList(viper.GetString("transport-endpoints")),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			TCPNoDelay:             viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec:        viper.GetInt("transport-tcp-keepalive"),
			WriteBufferSize:        viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:         viper.GetInt("transport-read-buffer") * 1024,
		},
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.New(viper.GetString("serializer"))
}

// GetTransport creates a client transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates a server transport based on configuration
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetShardID retrieves the configured shard ID
func GetShardID(key string) uint64 {
	return viper.GetUint64(key)
}

// --------------------------------------------------------------------------
// Store and lock manager factories
// --------------------------------------------------------------------------

// OpenStore opens the store selected by the "store" flag: a local database of the
// configured engine (name selects its sub directory) or the remote shard stored under shardKey
func OpenStore(name, shardKey string) (store.IStore, error) {
	switch viper.GetString("store") {
	case StoreLocal:
		return lstore.NewLocalStore(engines.Factory(GetEngineConfig().Sub(name)))
	case StoreRPC:
		s, t, err := rpcParts()
		if err != nil {
			return nil, err
		}
		return client.NewRPCStore(GetShardID(shardKey), *GetClientConfig(), t, s)
	default:
		return nil, fmt.Errorf("invalid store %q (expected %s or %s)", viper.GetString("store"), StoreLocal, StoreRPC)
	}
}

// OpenLockManager opens the lock manager selected by the "store" flag. The returned
// function releases it.
func OpenLockManager(name, shardKey string) (lockmgr.ILockManager, func() error, error) {
	switch viper.GetString("store") {
	case StoreLocal:
		s, err := lstore.NewLocalStore(engines.Factory(GetEngineConfig().Sub(name)))
		if err != nil {
			return nil, nil, err
		}
		return lockmgr.NewLockManager(s), s.Close, nil
	case StoreRPC:
		return OpenRPCLockManager(shardKey)
	default:
		return nil, nil, fmt.Errorf("invalid store %q (expected %s or %s)", viper.GetString("store"), StoreLocal, StoreRPC)
	}
}

// OpenRPCLockManager connects to the lock manager shard stored under shardKey
func OpenRPCLockManager(shardKey string) (lockmgr.ILockManager, func() error, error) {
	s, t, err := rpcParts()
	if err != nil {
		return nil, nil, err
	}
	return client.NewRPCLockMgr(GetShardID(shardKey), *GetClientConfig(), t, s)
}

func rpcParts() (serializer.IRPCSerializer, transport.IRPCClientTransport, error) {
	s, err := GetSerializer()
	if err != nil {
		return nil, nil, err
	}
	t, err := GetTransport()
	if err != nil {
		return nil, nil, err
	}
	return s, t, nil
}

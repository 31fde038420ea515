package kv

import (
	"github.com/ValentinKolb/crund/cmd/util"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/spf13/cobra"
)

var (
	kvStore store.IStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:   "kv",
		Short: "Perform key-value store operations",
		Long: `Perform single key-value operations against a store, e.g. to inspect what a benchmark left behind.
With --store=rpc the operations go to a shard of a crund server, with --store=local to a database of the configured engine.`,
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
		SilenceUsage:       true,
	}
)

func init() {
	// Add common RPC and engine flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)
	util.SetupEngineFlags(KeyValueCommands)

	KeyValueCommands.PersistentFlags().String("store", util.StoreRPC, util.WrapString("Where the store lives (rpc, local)"))

	// Set default shard ID for key value operations (different from Lock default)
	KeyValueCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(setIfUnsetCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(scanCmd)
	KeyValueCommands.AddCommand(infoCmd)
}

// setupKVClient opens the store
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	kvStore, err = util.OpenStore("crud", "shard")
	return err
}

func closeKVClient(_ *cobra.Command, _ []string) error {
	if kvStore == nil {
		return nil
	}
	return kvStore.Close()
}

package cmd

import (
	"fmt"
	"github.com/ValentinKolb/crund/cmd/kv"
	"github.com/ValentinKolb/crund/cmd/lock"
	"github.com/ValentinKolb/crund/cmd/run"
	"github.com/ValentinKolb/crund/cmd/serve"
	"github.com/ValentinKolb/crund/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "crund",
		Short: "CRUD benchmark driver for transactional key-value stores",
		Long: fmt.Sprintf(`crund (v%s)

A benchmark driver that measures create, read, update and delete
operations against pluggable transactional key-value stores: embedded
engines, remote stores over RPC and stores replicated with RAFT.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of crund",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("crund v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(run.RunCmd)
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package lock

import (
	"encoding/hex"
	"fmt"
	"github.com/ValentinKolb/crund/cmd/util"
	"github.com/ValentinKolb/crund/lib/lockmgr"
	"github.com/spf13/cobra"
)

var (
	rpcLockMgr   lockmgr.ILockManager
	closeLockMgr func() error

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:                "lock",
		Short:              "Perform lock operations",
		PersistentPreRunE:  setupLockClient,
		PersistentPostRunE: closeLockClient,
		SilenceUsage:       true,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [key...]",
		Short: "Acquire a lock or a lock vector",
		Long:  "Acquire the locks of all given keys. Either all locks are acquired or none.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [ownerID] [key...]",
		Short: "Release previously acquired locks",
		Long:  "Release locks using the owner ID and the keys. The owner ID is the hex string returned by the acquire command.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runRelease,
	}
)

func init() {
	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)

	// Add common RPC flags to the lock command, locks are always remote:
	// a local lock manager would not outlive the command
	util.SetupRPCClientFlags(LockCommands)

	// Set default shard ID for lock operations (different from KV default)
	LockCommands.PersistentFlags().Int("shard", 200, util.WrapString("ID of the shard to connect to"))
}

// setupLockClient initializes the lock manager client
func setupLockClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	rpcLockMgr, closeLockMgr, err = util.OpenRPCLockManager("shard")
	return err
}

func closeLockClient(_ *cobra.Command, _ []string) error {
	if closeLockMgr == nil {
		return nil
	}
	return closeLockMgr()
}

// runAcquire handles the acquire lock command
func runAcquire(_ *cobra.Command, args []string) error {
	// Attempt to acquire the locks
	acquired, ownerID, err := rpcLockMgr.AcquireLocks(args)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	if !acquired {
		fmt.Printf("acquired=false\n")
		return nil
	}

	// Convert owner ID to hex string for display
	fmt.Printf("acquired=true, ownerId=%s\n", hex.EncodeToString(ownerID))
	return nil
}

// runRelease handles the release lock command
func runRelease(_ *cobra.Command, args []string) error {
	// Convert hex string owner ID back to bytes
	ownerID, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("invalid owner ID format: %v", err)
	}

	// Attempt to release the locks
	released, err := rpcLockMgr.ReleaseLocks(args[1:], ownerID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Printf("released=%v\n", released)
	return nil
}

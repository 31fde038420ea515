package run

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/crund/cmd/util"
	"github.com/ValentinKolb/crund/lib/bench"
	"github.com/ValentinKolb/crund/lib/bench/crud"
	"github.com/ValentinKolb/crund/lib/bench/lockbench"
	"github.com/ValentinKolb/crund/lib/lockmgr"
	"github.com/ValentinKolb/crund/lib/model/codec"
	"github.com/ValentinKolb/crund/lib/report"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/ValentinKolb/crund/rpc/common"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

var (
	log = logger.GetLogger("bench")

	// RunCmd runs the benchmark driver
	RunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark driver",
		Long: `Run the crud and lock loads over the cross product of the A and B ranges.
Every operation runs in its own transaction, the driver records its real time and heap delta.
Any error aborts the whole run with a non-zero exit code.

Settings can be given as flags, as environment variables (CRUND_<FLAG>) or in a config file (--config).
A .properties or .env file holds key=value lines, the keys are the flag names ('_' and '.' may be used instead of '-').
Files ending in .yaml, .json or .toml are read by viper.`,
		PreRunE:      processConfig,
		RunE:         run,
		SilenceUsage: true,
	}
)

func init() {
	key := "config"
	RunCmd.Flags().String(key, "", util.WrapString("Config file with the run settings (.properties, .env, .yaml, .json, .toml)"))

	// scale ranges
	defaults := bench.DefaultConfig()
	key = "a-start"
	RunCmd.Flags().Int(key, defaults.A.Start, util.WrapString("First number of A entities (lock keys for the lock load)"))
	key = "a-end"
	RunCmd.Flags().Int(key, defaults.A.End, util.WrapString("Largest number of A entities"))
	key = "a-scale"
	RunCmd.Flags().Int(key, defaults.A.Scale, util.WrapString("Factor between two A scales"))
	key = "b-start"
	RunCmd.Flags().Int(key, defaults.B.Start, util.WrapString("First number of B entities (lock vector size for the lock load)"))
	key = "b-end"
	RunCmd.Flags().Int(key, defaults.B.End, util.WrapString("Largest number of B entities"))
	key = "b-scale"
	RunCmd.Flags().Int(key, defaults.B.Scale, util.WrapString("Factor between two B scales"))

	// runs
	key = "warmup-runs"
	RunCmd.Flags().Int(key, defaults.WarmupRuns, util.WrapString("Runs whose samples are not part of the report"))
	key = "hot-runs"
	RunCmd.Flags().Int(key, defaults.HotRuns, util.WrapString("Measured runs"))
	key = "include"
	RunCmd.Flags().String(key, "", util.WrapString("Comma separated operations to run, empty runs all"))
	key = "exclude"
	RunCmd.Flags().String(key, "", util.WrapString("Comma separated operations to skip"))
	key = "renew-connection"
	RunCmd.Flags().Bool(key, defaults.RenewConnection, util.WrapString("Reconnect to the store for every run"))
	key = "renew-operations"
	RunCmd.Flags().Bool(key, defaults.RenewOperations, util.WrapString("Re-create the operations for every run"))
	key = "clear-cache"
	RunCmd.Flags().Bool(key, defaults.ClearCache, util.WrapString("Clear the persistence context (identity map) before every operation"))
	key = "full-gc"
	RunCmd.Flags().Bool(key, defaults.FullGC, util.WrapString("Force a garbage collection before every measurement"))

	// loads
	key = "loads"
	RunCmd.Flags().String(key, "crud,lock", util.WrapString("Comma separated loads to run (crud, lock)"))
	key = "codecs"
	RunCmd.Flags().String(key, "binary", util.WrapString(fmt.Sprintf("Comma separated entity codecs, the crud load runs once per codec (%s)", strings.Join(codec.Names(), ", "))))
	key = "cache-size"
	RunCmd.Flags().Int(key, 0, util.WrapString("Size of the identity map of the crud load, 0 selects the default"))
	crudDefaults := crud.DefaultOptions()
	key = "max-varbinary"
	RunCmd.Flags().Int(key, crudDefaults.MaxVarbinaryBytes, util.WrapString("Largest varbinary length in bytes, 0 disables the varbinary operations"))
	key = "max-varchar"
	RunCmd.Flags().Int(key, crudDefaults.MaxVarcharChars, util.WrapString("Largest varchar length in characters, 0 disables the varchar operations"))

	// store
	key = "store"
	RunCmd.Flags().String(key, util.StoreLocal, util.WrapString("Where the stores live: local runs against an embedded engine, rpc against the shards of a crund server"))
	key = "shard"
	RunCmd.Flags().Int(key, 100, util.WrapString("(rpc) ID of the store shard used by the crud load"))
	key = "lock-shard"
	RunCmd.Flags().Int(key, 200, util.WrapString("(rpc) ID of the lock manager shard used by the lock load"))
	util.SetupEngineFlags(RunCmd)
	util.SetupRPCClientFlags(RunCmd)

	// output
	key = "format"
	RunCmd.Flags().String(key, string(report.FormatTable), util.WrapString("Format of the report on stdout (table, csv, json, log)"))
	key = "log-file"
	RunCmd.Flags().String(key, "", util.WrapString("Write the CRUND log (tab separated real time and memory sections) to this file"))
	key = "csv"
	RunCmd.Flags().String(key, "", util.WrapString("Write the summary as CSV to this file"))
	key = "json"
	RunCmd.Flags().String(key, "", util.WrapString("Write all samples and the summary as JSON to this file"))
	key = "metrics-out"
	RunCmd.Flags().String(key, "", util.WrapString("Write the driver metrics in prometheus text format to this file"))
}

// processConfig binds the flags, reads the config file and initializes the loggers
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if path := viper.GetString("config"); path != "" {
		if err := readConfigFile(path); err != nil {
			return err
		}
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// readConfigFile merges a config file below flags and environment variables
func readConfigFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".properties", ".env", "":
		values, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		normalize := strings.NewReplacer("_", "-", ".", "-")
		settings := make(map[string]any, len(values))
		for key, value := range values {
			settings[normalize.Replace(strings.ToLower(key))] = value
		}
		return viper.MergeConfigMap(settings)
	default:
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}
}

// benchConfig reads the driver configuration from viper
func benchConfig() bench.Config {
	return bench.Config{
		A:               bench.Range{Start: viper.GetInt("a-start"), End: viper.GetInt("a-end"), Scale: viper.GetInt("a-scale")},
		B:               bench.Range{Start: viper.GetInt("b-start"), End: viper.GetInt("b-end"), Scale: viper.GetInt("b-scale")},
		WarmupRuns:      viper.GetInt("warmup-runs"),
		HotRuns:         viper.GetInt("hot-runs"),
		Include:         util.SplitList(viper.GetString("include")),
		Exclude:         util.SplitList(viper.GetString("exclude")),
		RenewConnection: viper.GetBool("renew-connection"),
		RenewOperations: viper.GetBool("renew-operations"),
		ClearCache:      viper.GetBool("clear-cache"),
		FullGC:          viper.GetBool("full-gc"),
	}
}

// loads creates the selected loads in the order of the loads flag
func loads() ([]bench.ILoad, error) {
	var result []bench.ILoad
	for _, name := range util.SplitList(viper.GetString("loads")) {
		switch strings.ToLower(name) {
		case "crud":
			for _, codecName := range util.SplitList(viper.GetString("codecs")) {
				c, err := codec.New(codecName)
				if err != nil {
					return nil, err
				}
				load, err := crud.NewLoad(crud.Options{
					Store: func(context.Context) (store.IStore, error) {
						return util.OpenStore("crud", "shard")
					},
					Codec:             c,
					CacheSize:         viper.GetInt("cache-size"),
					MaxVarbinaryBytes: viper.GetInt("max-varbinary"),
					MaxVarcharChars:   viper.GetInt("max-varchar"),
				})
				if err != nil {
					return nil, err
				}
				result = append(result, load)
			}
		case "lock":
			load, err := lockbench.NewLoad("lock", func(context.Context) (lockmgr.ILockManager, func() error, error) {
				return util.OpenLockManager("locks", "lock-shard")
			})
			if err != nil {
				return nil, err
			}
			result = append(result, load)
		default:
			return nil, fmt.Errorf("unknown load %q (expected crud or lock)", name)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no loads selected")
	}
	return result, nil
}

// run executes the driver and writes the reports
func run(_ *cobra.Command, _ []string) error {
	cfg := benchConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	selected, err := loads()
	if err != nil {
		return err
	}

	// Print configuration
	fmt.Println("Configuration:")
	fmt.Printf("  %-12s: %s\n", "A", cfg.A)
	fmt.Printf("  %-12s: %s\n", "B", cfg.B)
	fmt.Printf("  %-12s: %d warmup, %d hot\n", "Runs", cfg.WarmupRuns, cfg.HotRuns)
	fmt.Printf("  %-12s: %s\n", "Store", viper.GetString("store"))
	if viper.GetString("store") == util.StoreLocal {
		fmt.Printf("  %-12s: %s\n", "Engine", util.GetEngineConfig().Engine)
	} else {
		fmt.Println(util.GetClientConfig().String())
	}
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := bench.NewDriver(cfg, selected...)
	res, err := driver.Run(ctx)
	if err != nil {
		log.Errorf("benchmark aborted: %v", err)
		return err
	}

	if err := report.Write(os.Stdout, report.Format(viper.GetString("format")), res); err != nil {
		return err
	}

	outputs := []struct {
		flag  string
		write func(w io.Writer) error
	}{
		{"log-file", func(w io.Writer) error { return report.WriteLog(w, res) }},
		{"csv", func(w io.Writer) error { return report.WriteCSV(w, report.Summarize(res)) }},
		{"json", func(w io.Writer) error { return report.WriteJSON(w, res) }},
		{"metrics-out", func(w io.Writer) error { driver.WriteMetrics(w); return nil }},
	}
	for _, out := range outputs {
		if path := viper.GetString(out.flag); path != "" {
			if err := writeFile(path, out.write); err != nil {
				return err
			}
			fmt.Printf("%s written to %s\n", out.flag, path)
		}
	}
	return nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

package kv

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/crund/lib/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"os"
)

var (
	scanLimit int

	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := update(func(tx store.ITx) error {
				return tx.Set(args[0], []byte(args[1]))
			}); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	setIfUnsetCmd = &cobra.Command{
		Use:   "setIfUnset [key] [value]",
		Short: "Sets the value for a key if the key is not already set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := update(func(tx store.ITx) error {
				return tx.SetIfUnset(args[0], []byte(args[1]))
			}); err != nil {
				return err
			}
			fmt.Println("setIfUnset successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return view(func(tx store.ITx) error {
				resp, ok, err := tx.Get(key)
				if err != nil {
					return err
				}
				fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
				return nil
			})
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := update(func(tx store.ITx) error {
				return tx.Delete(args[0])
			}); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return view(func(tx store.ITx) error {
				found, err := tx.Has(key)
				if err != nil {
					return err
				}
				fmt.Printf("key=%s, found=%t\n", key, found)
				return nil
			})
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan [prefix]",
		Short: "Lists the keys starting with a prefix in key order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return view(func(tx store.ITx) error {
				count := 0
				err := tx.Scan(prefix, func(key string, value []byte) bool {
					count++
					fmt.Printf("%s (%s)\n", key, humanize.IBytes(uint64(len(value))))
					return scanLimit <= 0 || count < scanLimit
				})
				if err != nil {
					return err
				}
				fmt.Printf("%d keys\n", count)
				return nil
			})
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints the info of the database behind the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := kvStore.GetDBInfo()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
)

func init() {
	scanCmd.Flags().IntVar(&scanLimit, "limit", 100, "Maximum number of keys to print (0 for all)")
}

// update runs fn in a writable transaction and commits it
func update(fn func(tx store.ITx) error) error {
	tx, err := kvStore.Begin(true)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// view runs fn in a read-only transaction
func view(fn func(tx store.ITx) error) error {
	tx, err := kvStore.Begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pingcap-incubator/tinykv-client/config"
	"github.com/pingcap-incubator/tinykv-client/metrics"
	"github.com/pingcap-incubator/tinykv-client/rawkv"
	"github.com/pingcap-incubator/tinykv-client/txnkv"
)

var (
	pdAddrs    []string
	configFile string
	timeout    time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tinykv-client-cli",
		Short: "Command line client for a tinykv cluster",
	}
	rootCmd.PersistentFlags().StringSliceVar(&pdAddrs, "pd", []string{"127.0.0.1:2379"}, "placement driver addresses")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (toml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per command timeout")

	rootCmd.AddCommand(
		newRawGetCommand(),
		newRawPutCommand(),
		newRawDeleteCommand(),
		newRawScanCommand(),
		newTxnGetCommand(),
		newTxnPutCommand(),
		newTxnDeleteCommand(),
		newTxnScanCommand(),
		newShellCommand(),
	)

	metrics.RegisterMetrics()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	conf := config.NewDefaultConfig()
	if configFile != "" {
		if err := conf.LoadFromFile(configFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	conf.PDAddrs = pdAddrs
	return *conf
}

func withRawClient(f func(ctx context.Context, c *rawkv.Client) error) error {
	conf := loadConfig()
	c, err := rawkv.NewClient(conf.PDAddrs, conf)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f(ctx, c)
}

func withTxnClient(f func(ctx context.Context, c *txnkv.Client) error) error {
	conf := loadConfig()
	c, err := txnkv.NewClient(conf.PDAddrs, conf)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f(ctx, c)
}

func newRawGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "raw-get key",
		Short: "Get a key without a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRawClient(func(ctx context.Context, c *rawkv.Client) error {
				v, err := c.Get(ctx, []byte(args[0]))
				if err != nil {
					return err
				}
				fmt.Printf("%s\n", v)
				return nil
			})
		},
	}
}

func newRawPutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "raw-put key value",
		Short: "Put a key without a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRawClient(func(ctx context.Context, c *rawkv.Client) error {
				return c.Put(ctx, []byte(args[0]), []byte(args[1]))
			})
		},
	}
}

func newRawDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "raw-delete key",
		Short: "Delete a key without a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRawClient(func(ctx context.Context, c *rawkv.Client) error {
				return c.Delete(ctx, []byte(args[0]))
			})
		},
	}
}

func newRawScanCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "raw-scan start [end]",
		Short: "Scan keys without a transaction",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRawClient(func(ctx context.Context, c *rawkv.Client) error {
				var end []byte
				if len(args) == 2 {
					end = []byte(args[1])
				}
				keys, values, err := c.Scan(ctx, []byte(args[0]), end, limit)
				if err != nil {
					return err
				}
				for i := range keys {
					fmt.Printf("%s\t%s\n", keys[i], values[i])
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "max pairs to return")
	return cmd
}

func newTxnGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get key",
		Short: "Get a key at a fresh snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTxnClient(func(ctx context.Context, c *txnkv.Client) error {
				txn, err := c.Begin(ctx)
				if err != nil {
					return err
				}
				v, err := txn.Get(ctx, []byte(args[0]))
				if err != nil {
					return err
				}
				fmt.Printf("%s\n", v)
				return nil
			})
		},
	}
}

func newTxnPutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "put key value",
		Short: "Put a key in a single key transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTxnClient(func(ctx context.Context, c *txnkv.Client) error {
				txn, err := c.Begin(ctx)
				if err != nil {
					return err
				}
				if err := txn.Set([]byte(args[0]), []byte(args[1])); err != nil {
					return err
				}
				return txn.Commit(ctx)
			})
		},
	}
}

func newTxnDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete key",
		Short: "Delete a key in a single key transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTxnClient(func(ctx context.Context, c *txnkv.Client) error {
				txn, err := c.Begin(ctx)
				if err != nil {
					return err
				}
				if err := txn.Delete([]byte(args[0])); err != nil {
					return err
				}
				return txn.Commit(ctx)
			})
		},
	}
}

func newTxnScanCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "scan start [end]",
		Short: "Scan keys at a fresh snapshot",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTxnClient(func(ctx context.Context, c *txnkv.Client) error {
				ts, err := c.GetTimestamp(ctx)
				if err != nil {
					return err
				}
				var end []byte
				if len(args) == 2 {
					end = []byte(args[1])
				}
				it, err := c.GetSnapshot(ts).Iter(ctx, []byte(args[0]), end)
				if err != nil {
					return err
				}
				defer it.Close()
				for i := 0; it.Valid() && i < limit; i++ {
					fmt.Printf("%s\t%s\n", it.Key(), it.Value())
					if err := it.Next(); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "max pairs to print")
	return cmd
}

package main

import (
	"fmt"

	"github.com/deepnoodle-ai/pyreg/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the daemon's compiled program cache",
		Long: `Inspect or clear the daemon's compiled program cache.

These commands use the daemon's HTTP front end, so the daemon must be
started with --http and the same address passed here.`,
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cacheClient()
			if err != nil {
				return err
			}
			stats, err := client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			data, err := marshalJSON(stats)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cacheClient()
			if err != nil {
				return err
			}
			if err := client.ClearCache(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}

	cmd.AddCommand(stats, clear)
	return cmd
}

func cacheClient() (*daemon.Client, error) {
	if viper.GetString("http") == "" {
		return nil, fmt.Errorf("the daemon HTTP address is required (--http or PYREG_HTTP)")
	}
	return daemon.NewClient(daemonConfig())
}

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/deepnoodle-ai/pyreg/daemon"
	"github.com/spf13/cobra"
)

const detachTimeout = 5 * time.Second

func newDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the pyreg daemon",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := daemonConfig()
			client, err := daemon.NewClient(cfg)
			if err != nil {
				return err
			}
			if client.Running() {
				return errors.New("Daemon is already running")
			}
			if detach, _ := cmd.Flags().GetBool("detach"); detach {
				return startDetached(cmd, client)
			}
			server, err := daemon.NewServer(cfg)
			if err != nil {
				return err
			}
			return server.Serve(cmd.Context())
		},
	}
	start.Flags().BoolP("detach", "d", false, "Run the daemon in the background")

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := daemon.NewClient(daemonConfig())
			if err != nil {
				return err
			}
			if err := client.Stop(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := daemon.NewClient(daemonConfig())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.Status())
			return nil
		},
	}

	cmd.AddCommand(start, stop, status)
	return cmd
}

// startDetached re-executes this binary as a foreground daemon and waits
// until it accepts connections.
func startDetached(cmd *cobra.Command, client *daemon.Client) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}
	args := []string{"daemon", "start"}
	for _, name := range []string{"socket", "pid-file", "http", "log-level", "cache-size", "max-steps"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			args = append(args, "--"+name, f.Value.String())
		}
	}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	child := exec.Command(self, args...)
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	deadline := time.Now().Add(detachTimeout)
	for time.Now().Before(deadline) {
		if client.Running() {
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon started with PID %d\n", child.Process.Pid)
			return child.Process.Release()
		}
		time.Sleep(20 * time.Millisecond)
	}
	child.Process.Kill()
	return errors.New("Failed to start daemon: initialization error")
}

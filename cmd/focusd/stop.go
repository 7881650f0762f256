package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/focusd/focusd/internal/daemon"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the tracking daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		dm := daemon.New(cfg.Daemon.PIDFile)

		// Give the daemon its own flush budget plus a little slack.
		pid, err := dm.Stop(cfg.Daemon.ShutdownTimeout + 2*cfg.Tracker.PollInterval)
		if errors.Is(err, daemon.ErrNotRunning) {
			fmt.Println("Daemon is not running")
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to stop daemon")
		}

		color.New(color.FgGreen).Printf("Daemon stopped (PID: %d)\n", pid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

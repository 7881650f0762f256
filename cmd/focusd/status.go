package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/focusd/focusd/internal/daemon"
	"github.com/focusd/focusd/pkg/detector"
	"github.com/focusd/focusd/pkg/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status, the focused window and today's totals",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return err
	}

	if running {
		green.Printf("Status: Running (PID: %d)\n", pid)
	} else {
		red.Println("Status: Not running")
	}
	fmt.Printf("Poll Interval: %v\n", cfg.Tracker.PollInterval)
	fmt.Printf("Idle Threshold: %v\n", cfg.Tracker.IdleThreshold)

	printCurrentWindow(cyan)

	ctx := commandContext(cmd)
	db, repo, err := openRepository(cliLogger())
	if err != nil {
		fmt.Printf("\nCould not open database: %v\n", err)
		return nil
	}
	defer db.Close()

	if latest, err := repo.Latest(ctx); err == nil && latest != nil {
		cyan.Println("\nLast Recorded:")
		fmt.Printf("  App: %s\n", latest.AppIdentifier)
		fmt.Printf("  Title: %s\n", latest.WindowTitle)
		fmt.Printf("  Duration: %s\n", utils.FormatDuration(latest.DurationSeconds))
		fmt.Printf("  Updated: %s\n", utils.Ago(latest.UpdatedAt))
	}

	if open, err := repo.OpenAfkInterval(ctx); err == nil && open != nil {
		color.New(color.FgYellow).Printf("\nAway since %s\n", utils.Ago(open.StartTime))
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	totals, err := repo.TodayAppTotals(ctx, time.Now().In(loc))
	if err != nil {
		return err
	}
	if len(totals) > 0 {
		cyan.Println("\nToday:")
		for i, app := range totals {
			if i == 5 {
				fmt.Printf("  ... and %d more\n", len(totals)-i)
				break
			}
			fmt.Printf("  %-30s %s\n", app.AppName, utils.FormatDuration(app.TotalSeconds))
		}
	}

	return nil
}

func printCurrentWindow(heading *color.Color) {
	kind, err := detector.Resolve(cfg.Source.Focus)
	if err != nil {
		fmt.Printf("\nCould not detect current window: %v\n", err)
		return
	}
	det, err := detector.New(kind)
	if err != nil {
		fmt.Printf("\nCould not detect current window: %v\n", err)
		return
	}
	defer det.Close()

	windowInfo, err := det.GetFocusedWindow()
	if err == nil && windowInfo != nil {
		heading.Println("\nCurrent Window:")
		fmt.Printf("  App: %s\n", windowInfo.AppName)
		fmt.Printf("  Title: %s\n", windowInfo.WindowTitle)
		if windowInfo.ProcessName != "" {
			fmt.Printf("  Process: %s\n", windowInfo.ProcessName)
		}
		if windowInfo.Workspace != "" {
			fmt.Printf("  Workspace: %s\n", windowInfo.Workspace)
		}
		fmt.Printf("  Display: %s\n", windowInfo.DisplayServer)
	}

	idle, err := detector.NewIdle()
	if err != nil {
		return
	}
	defer idle.Close()

	idleInfo, err := idle.GetIdleInfo()
	if err == nil && idleInfo != nil {
		heading.Println("\nSystem State:")
		fmt.Printf("  Away: %v\n", idleInfo.IdleFor(cfg.GetIdleThresholdSeconds()))
		fmt.Printf("  Locked: %v\n", idleInfo.IsLocked)
		fmt.Printf("  Idle Time: %ds\n", idleInfo.IdleTime)
	}
}

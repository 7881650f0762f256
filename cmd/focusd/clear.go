package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/focusd/focusd/internal/reporter"
)

var (
	clearYes    bool
	clearBefore string
	errorsLimit int
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete tracking data",
	Example: `  focusd clear
  focusd clear --before "30 days ago" --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := commandContext(cmd)

		if clearBefore != "" {
			before, err := reporter.New(cfg, repo).ParseTime(clearBefore, time.Now())
			if err != nil {
				return err
			}
			if !confirm(fmt.Sprintf("Delete tracking data before %s (%s)?", before.Format("2006-01-02 15:04"), humanize.Time(before))) {
				fmt.Println("Operation cancelled")
				return nil
			}
			n, err := repo.DeleteBefore(ctx, before)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %s records\n", humanize.Comma(n))
			return nil
		}

		if !confirm("This will delete all tracking data. Are you sure?") {
			fmt.Println("Operation cancelled")
			return nil
		}
		if err := repo.Clear(ctx); err != nil {
			return err
		}

		color.New(color.FgGreen).Println("Database cleared successfully")
		return nil
	},
}

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Show recent persistence errors recorded by the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		logs, err := repo.ListErrorLogs(commandContext(cmd), errorsLimit)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			fmt.Println("No errors recorded")
			return nil
		}

		red := color.New(color.FgRed)
		for _, l := range logs {
			fmt.Printf("%-16s ", humanize.Time(l.Timestamp))
			red.Printf("%-12s ", l.Kind)
			fmt.Println(l.ErrorMsg)
		}
		return nil
	},
}

func confirm(prompt string) bool {
	if clearYes {
		return true
	}
	fmt.Printf("%s (yes/no): ", prompt)
	response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "yes" || response == "y"
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")
	clearCmd.Flags().StringVar(&clearBefore, "before", "", "Only delete data older than this time")
	errorsCmd.Flags().IntVarP(&errorsLimit, "limit", "n", 20, "Number of entries to show")
	rootCmd.AddCommand(clearCmd, errorsCmd)
}

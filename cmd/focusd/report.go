package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/focusd/focusd/internal/models"
	"github.com/focusd/focusd/internal/reporter"
)

var (
	reportJSON  bool
	reportSince string
)

var reportCmd = &cobra.Command{
	Use:   "report [day|yesterday|week|month]",
	Short: "Generate a time report",
	Example: `  focusd report
  focusd report week --json
  focusd report --since "last monday"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		periodType := "day"
		if len(args) > 0 {
			periodType = args[0]
		}

		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := commandContext(cmd)
		rep := reporter.New(cfg, repo)

		var report *models.Report
		if reportSince != "" {
			report, err = rep.GenerateSince(ctx, reportSince)
		} else {
			report, err = rep.GenerateReport(ctx, periodType)
		}
		if err != nil {
			return err
		}

		if reportJSON {
			out, err := rep.FormatReportJSON(report)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}

		fmt.Println(rep.FormatReportText(report))
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output JSON")
	reportCmd.Flags().StringVar(&reportSince, "since", "", `Report from a point in time, e.g. "2026-01-02" or "3 days ago"`)
	rootCmd.AddCommand(reportCmd)
}

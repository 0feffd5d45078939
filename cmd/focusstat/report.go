package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/actionsum/focusstat/internal/reporter"
)

var (
	reportJSON    bool
	reportBuckets bool
)

var reportCmd = &cobra.Command{
	Use:       "report [day|week|month]",
	Short:     "Print persisted time per category",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"day", "week", "month"},
	RunE: func(cmd *cobra.Command, args []string) error {
		periodType := "day"
		if len(args) > 0 {
			periodType = args[0]
		}

		repo, db, err := openRepository()
		if err != nil {
			return err
		}
		defer db.Close()

		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		rep := reporter.New(repo, loc)

		report, err := rep.GenerateReport(periodType, reportBuckets)
		if err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}

		if reportJSON {
			jsonStr, err := rep.FormatReportJSON(report)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), jsonStr)
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), rep.FormatReportText(report))
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the report as JSON")
	reportCmd.Flags().BoolVar(&reportBuckets, "buckets", false, "include the per-bucket breakdown")
}

package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/medlingo/transqa/internal/report"
	"github.com/medlingo/transqa/internal/store"
)

var (
	reportType   string
	reportFormat string
	reportOutput string
	reportLimit  int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export validation or alert reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		switch reportType {
		case "validation":
			results, err := st.ListResults(ctx, store.ResultFilter{Limit: reportLimit})
			if err != nil {
				return eris.Wrap(err, "list results")
			}
			rep := report.NewValidationReport(results)
			return writeReport(reportOutput, reportFormat, rep.WriteJSON, rep.WriteCSV)
		case "alerts":
			alerts, err := st.ListAlerts(ctx, "", reportLimit)
			if err != nil {
				return eris.Wrap(err, "list alerts")
			}
			rep := report.NewAlertReport(alerts)
			return writeReport(reportOutput, reportFormat, rep.WriteJSON, rep.WriteCSV)
		default:
			return eris.Errorf("unsupported report type: %s", reportType)
		}
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportType, "type", "validation", "report type: validation or alerts")
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "output format: json or csv")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "output file (default stdout)")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 500, "maximum records to load")
	rootCmd.AddCommand(reportCmd)
}

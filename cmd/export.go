package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/foodredist/app"
	"github.com/kilianp07/foodredist/core/store"
	"github.com/kilianp07/foodredist/pkg/export"
)

var exportOpts struct {
	format, start, end, runID, charityID string
	limit                                int
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the redistribution log as CSV or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := store.Query{RunID: exportOpts.runID, CharityID: exportOpts.charityID, Limit: exportOpts.limit}
		var err error
		if q.Start, err = parseTimeFlag("start", exportOpts.start); err != nil {
			return err
		}
		if q.End, err = parseTimeFlag("end", exportOpts.end); err != nil {
			return err
		}
		return withService(cmd.Context(), cmd, func(svc *app.Service) error {
			records, err := svc.Allocations(cmd.Context(), q)
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), exportOpts.format, records)
		})
	},
}

func parseTimeFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.format, "format", "csv", "csv or json")
	f.StringVar(&exportOpts.start, "start", "", "earliest pickup (RFC3339)")
	f.StringVar(&exportOpts.end, "end", "", "latest pickup (RFC3339)")
	f.StringVar(&exportOpts.runID, "run", "", "only this run")
	f.StringVar(&exportOpts.charityID, "charity", "", "only this charity")
	f.IntVar(&exportOpts.limit, "limit", 0, "maximum number of records")
	rootCmd.AddCommand(exportCmd)
}

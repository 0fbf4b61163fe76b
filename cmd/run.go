package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/foodredist/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one redistribution run and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withService(ctx, cmd, func(svc *app.Service) error {
			res, runErr := svc.RunOnce(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			return runErr
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

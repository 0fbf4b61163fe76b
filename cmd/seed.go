package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/foodredist/app"
	"github.com/kilianp07/foodredist/infra/logger"
	"github.com/kilianp07/foodredist/infra/snapshot"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a surplus and charity snapshot file into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := snapshot.Load(seedFile)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		return withService(cmd.Context(), cmd, func(svc *app.Service) error {
			log := logger.New("seed")
			for _, w := range snap.Warnings {
				log.Warnf("%s: %v", seedFile, w)
			}
			if err := svc.Seed(cmd.Context(), snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d charities (%d unverified) and %d surplus items\n",
				len(snap.Charities)+len(snap.Unverified), len(snap.Unverified), len(snap.Surplus))
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "snapshot file (YAML or JSON)")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}

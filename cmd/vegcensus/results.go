package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vegcensus/internal/infra/persistence"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored run results",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		store, err := persistence.Open(persistence.Driver(cfg.Storage.Driver),
			cfg.Storage.SQLitePath, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open result store: %w", err)
		}
		defer func() { _ = store.Close() }()

		records, err := store.ListResults(cmd.Context())
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tplot_years=%d\n",
				rec.RunID, rec.SiteID, rec.GeneratedAt.Format(time.RFC3339), rec.PlotYears)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List sites available under the data directory",
	Long: `sites scans the data directory for site subdirectories that contain
an apparent-individual survey table and prints their codes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		sites, err := discoverSites(cfg.DataDir)
		if err != nil {
			return err
		}
		for _, site := range sites {
			fmt.Fprintln(cmd.OutOrStdout(), site)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}

func discoverSites(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	var sites []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		snapshot := filepath.Join(dataDir, entry.Name(), "vst_apparentindividual.csv")
		if _, err := os.Stat(snapshot); err == nil {
			sites = append(sites, entry.Name())
		}
	}
	sort.Strings(sites)
	return sites, nil
}

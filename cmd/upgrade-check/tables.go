package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

var tablesPath string

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Check and print the strictly-worse table",
	Long: `Loads the lookup tables from --path (default: validation.tables_path, or the
built-in tables) and prints the strictly-worse pairs. A malformed file is an error.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := tablesPath
		if path == "" {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path = cfg.Validation.TablesPath
		}
		return runTables(cmd.OutOrStdout(), path)
	},
}

func init() {
	tablesCmd.Flags().StringVar(&tablesPath, "path", "", "Tables file to check")
	rootCmd.AddCommand(tablesCmd)
}

func runTables(w io.Writer, path string) error {
	tables := upgrades.DefaultTables()
	source := "built-in"
	if path != "" {
		var err error
		if tables, err = upgrades.LoadTables(path); err != nil {
			return err
		}
		source = path
	}

	pairs := tables.Pairs()
	if jsonOutput {
		return writeJSON(w, map[string]any{"source": source, "strictly_worse": pairs})
	}

	fmt.Fprintf(w, "%s: %d strictly-worse pairs\n", source, len(pairs))
	for _, p := range pairs {
		fmt.Fprintf(w, "  %s  <  %s\n", p.Inferior, p.Superior)
	}
	return nil
}

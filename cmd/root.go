package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/casimage-etl/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "casimage-etl",
	Short: "Batch ETL for archived radiology case exports",
	Long: "Extracts a legacy CASIMAGE ZIP export, parses and cleans the case " +
		"documents, writes CSV/Parquet/XLSX exports plus a schema mapping, and " +
		"loads a star-schema warehouse into SQLite or PostgreSQL.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	// Bare invocation runs the full pipeline, same as `run`.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

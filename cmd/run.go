package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/casimage-etl/internal/pipeline"
)

var (
	runDataDir   string
	runOutputDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full export pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd)
	},
}

// runPipeline executes the pipeline with any flag overrides applied and
// prints the run report as JSON.
func runPipeline(cmd *cobra.Command) error {
	if runDataDir != "" {
		cfg.Paths.DataDir = runDataDir
	}
	if runOutputDir != "" {
		cfg.Paths.OutputDir = runOutputDir
	}

	report, err := pipeline.New(cfg).Run(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().StringVar(&runDataDir, "data-dir", "", "directory holding the input ZIP archive")
		c.Flags().StringVar(&runOutputDir, "output-dir", "", "directory for exports and the SQLite warehouse")
	}
	rootCmd.AddCommand(runCmd)
}

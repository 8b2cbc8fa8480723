package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/casimage-etl/internal/pipeline"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Parse the export and emit the schema mapping only",
	Long: "Extracts and parses the archive, then writes mapping.json to the " +
		"output directory without cleaning, exporting, or loading anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := pipeline.New(cfg).ProposeMapping(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	},
}

func init() {
	rootCmd.AddCommand(mappingCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fillupt/eyestate/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		inDir  string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Convert recording CSV files to parquet",
		Long: `Converts tracker recording CSV files into parquet files for analysis
tooling. Files that do not parse as recordings are skipped.`,
		Example: `  eyestate export --in /data/sessions --out /data/sessions/parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := export.ConvertDir(inDir, outDir)
			if err != nil {
				return err
			}
			fmt.Printf("Converted %d recording(s) to %s\n", n, outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&inDir, "in", ".", "Directory containing recording CSV files")
	cmd.Flags().StringVar(&outDir, "out", "parquet", "Output directory for parquet files")

	return cmd
}

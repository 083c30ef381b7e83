package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/errs"
	"factoryqc/internal/usecase/kpi"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load product lines, machines and defect codes from a YAML or TOML file",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		file, _ := cmd.Flags().GetString("file")
		ctx := logging.WithAttrs(cmd.Context(), slog.String("seed_file", file))

		seed, err := kpi.LoadSeedFile(file)
		if err != nil {
			return err
		}
		result, err := deps.Service.SeedMasterData(ctx, seed)
		if err != nil {
			return errs.Wrap(err, "seed master data")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", result); err != nil {
			return errs.Wrap(err, "write seed output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("file", "configs/master_data.yaml", "Master data file (.yaml, .yml or .toml)")
}

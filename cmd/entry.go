package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"factoryqc/internal/errs"
	"factoryqc/internal/usecase/kpi"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Record one inspection result (GOOD, REWORK or SCRAP)",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		flags := cmd.Flags()
		input := kpi.RecordEventInput{}
		input.MachineCode, _ = flags.GetString("machine")
		input.PartNumber, _ = flags.GetString("part")
		input.LotNumber, _ = flags.GetString("lot")
		input.Quantity, _ = flags.GetInt64("qty")
		input.Disposition, _ = flags.GetString("disposition")
		input.DefectCode, _ = flags.GetString("defect")
		input.ProductLineCode, _ = flags.GetString("line")
		input.OperatorName, _ = flags.GetString("operator")
		input.Shift, _ = flags.GetString("shift")

		result, err := deps.Service.RecordEvent(cmd.Context(), input)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		event := result.Event
		if _, err := fmt.Fprintf(out, "event %d: %s %s x%d consecutive_ng=%d\n",
			event.ID, event.MachineCode, event.Disposition, event.Quantity, result.ConsecutiveNG); err != nil {
			return errs.Wrap(err, "write entry output")
		}
		if result.AndonTriggered && result.Alert != nil {
			_, _ = fmt.Fprintf(out, "ANDON %s raised on %s (level %d)\n",
				result.Alert.AlertNumber, result.Alert.MachineCode, result.Alert.EscalationLevel)
		}
		if len(result.Warnings) > 0 {
			_, _ = fmt.Fprintf(out, "warnings: %s\n", strings.Join(result.Warnings, "; "))
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.Flags().String("machine", "", "Machine code")
	entryCmd.Flags().String("part", "", "Part number")
	entryCmd.Flags().String("lot", "", "Lot number")
	entryCmd.Flags().Int64("qty", 1, "Units covered by this result")
	entryCmd.Flags().String("disposition", "GOOD", "GOOD, REWORK or SCRAP")
	entryCmd.Flags().String("defect", "", "Defect code, required for REWORK and SCRAP")
	entryCmd.Flags().String("line", "", "Product line code, defaults to the machine's line")
	entryCmd.Flags().String("operator", "", "Operator name")
	entryCmd.Flags().String("shift", "", "Shift A, B or C")
	_ = entryCmd.MarkFlagRequired("machine")
	_ = entryCmd.MarkFlagRequired("part")
	_ = entryCmd.MarkFlagRequired("operator")
}

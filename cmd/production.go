package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"factoryqc/internal/errs"
	"factoryqc/internal/usecase/kpi"
)

var productionCmd = &cobra.Command{
	Use:   "production",
	Short: "Add a production report to its daily summary",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		flags := cmd.Flags()
		input := kpi.SubmitProductionInput{}
		input.ProductionDate, _ = flags.GetString("date")
		input.MachineCode, _ = flags.GetString("machine")
		input.PartNumber, _ = flags.GetString("part")
		input.Shift, _ = flags.GetString("shift")
		input.TotalProduced, _ = flags.GetInt64("total")
		input.GoodQty, _ = flags.GetInt64("good")
		input.ReworkQty, _ = flags.GetInt64("rework")
		input.ScrapQty, _ = flags.GetInt64("scrap")
		input.ReworkGoodQty, _ = flags.GetInt64("rework-good")
		input.ReworkScrapQty, _ = flags.GetInt64("rework-scrap")
		input.ReworkPendingQty, _ = flags.GetInt64("rework-pending")
		input.OperatorName, _ = flags.GetString("operator")
		input.Notes, _ = flags.GetString("notes")

		rawDefects, _ := flags.GetStringArray("defect")
		for _, raw := range rawDefects {
			item, err := parseDefectFlag(raw)
			if err != nil {
				return err
			}
			input.DefectItems = append(input.DefectItems, item)
		}

		result, err := deps.Service.SubmitProduction(cmd.Context(), input)
		if err != nil {
			return err
		}

		s := result.Summary
		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out,
			"summary %d %s %s %s shift=%s total=%d good=%d rework=%d scrap=%d good%%=%.2f reject%%=%.2f defects=%d\n",
			s.ID, s.ProductionDate, s.MachineCode, s.PartNumber, s.Shift,
			s.TotalProduced, s.GoodQty, s.ReworkQty, s.ScrapQty, s.GoodPct, s.RejectPct, len(result.Defects),
		); err != nil {
			return errs.Wrap(err, "write production output")
		}
		for _, warning := range result.Warnings {
			_, _ = fmt.Fprintf(out, "warning: %s\n", warning)
		}
		return nil
	}),
}

// parseDefectFlag reads CODE:TYPE[:QTY]. TYPE is rework or scrap; QTY defaults to 1.
func parseDefectFlag(raw string) (kpi.DefectItemInput, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return kpi.DefectItemInput{}, errs.Validation("defect %q must be CODE:TYPE[:QTY]", raw)
	}
	item := kpi.DefectItemInput{
		DefectCode: strings.TrimSpace(parts[0]),
		DefectType: strings.TrimSpace(parts[1]),
		Quantity:   1,
	}
	if len(parts) == 3 {
		qty, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
		if err != nil || qty < 0 {
			return kpi.DefectItemInput{}, errs.Validation("defect %q has an invalid quantity", raw)
		}
		item.Quantity = qty
	}
	return item, nil
}

func init() {
	rootCmd.AddCommand(productionCmd)
	flags := productionCmd.Flags()
	flags.String("date", "", "Production date YYYY-MM-DD, defaults to today")
	flags.String("machine", "", "Machine code")
	flags.String("part", "", "Part number")
	flags.String("shift", "", "Shift A, B or C")
	flags.Int64("total", 0, "Units produced")
	flags.Int64("good", 0, "Units good at first pass")
	flags.Int64("rework", 0, "Units sent to rework")
	flags.Int64("scrap", 0, "Units scrapped at first pass")
	flags.Int64("rework-good", 0, "Reworked units recovered")
	flags.Int64("rework-scrap", 0, "Reworked units scrapped")
	flags.Int64("rework-pending", 0, "Reworked units still pending")
	flags.String("operator", "", "Operator name")
	flags.String("notes", "", "Free text notes")
	flags.StringArray("defect", nil, "Defect line CODE:TYPE[:QTY], repeatable")
	_ = productionCmd.MarkFlagRequired("machine")
	_ = productionCmd.MarkFlagRequired("part")
}

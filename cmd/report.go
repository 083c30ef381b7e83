package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"factoryqc/internal/errs"
	"factoryqc/internal/usecase/kpi"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print quality reports",
}

var reportParetoCmd = &cobra.Command{
	Use:   "pareto",
	Short: "Defect Pareto over a date window",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		result, err := deps.Service.Pareto(cmd.Context(), rangeFlags(cmd))
		if err != nil {
			return err
		}
		return writePareto(cmd.OutOrStdout(), result)
	}),
}

var reportTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Monthly and daily inspection trend with claim PPM",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		months, _ := cmd.Flags().GetInt("months")
		result, err := deps.Service.Trend(cmd.Context(), months)
		if err != nil {
			return err
		}
		return writeTrend(cmd.OutOrStdout(), result)
	}),
}

var reportDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Headline KPIs, open alerts and top defects",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		result, err := deps.Service.Dashboard(cmd.Context(), rangeFlags(cmd))
		if err != nil {
			return err
		}
		return writeDashboard(cmd.OutOrStdout(), result)
	}),
}

func rangeFlags(cmd *cobra.Command) kpi.RangeInput {
	flags := cmd.Flags()
	input := kpi.RangeInput{}
	input.Range, _ = flags.GetString("range")
	input.From, _ = flags.GetString("from")
	input.To, _ = flags.GetString("to")
	input.Shift, _ = flags.GetString("shift")
	input.LineCode, _ = flags.GetString("line")
	input.MachineCode, _ = flags.GetString("machine")
	input.Category, _ = flags.GetString("category")
	return input
}

func newReportTable(headers ...string) *table.Table {
	return table.New().Border(lipgloss.NormalBorder()).Headers(headers...)
}

func writePareto(w io.Writer, result kpi.ParetoResult) error {
	if _, err := fmt.Fprintf(w, "pareto %s..%s source=%s total=%d\n", result.From, result.To, result.Source, result.Total); err != nil {
		return errs.Wrap(err, "write pareto header")
	}
	if len(result.ByDefect) > 0 {
		t := newReportTable("DEFECT", "NAME", "CATEGORY", "QTY", "PCT", "CUM PCT")
		for _, row := range result.ByDefect {
			t.Row(row.DefectCode, row.DefectName, row.Category,
				fmt.Sprint(row.Quantity), fmt.Sprintf("%.2f", row.Pct), fmt.Sprintf("%.2f", row.CumulativePct))
		}
		_, _ = fmt.Fprintln(w, t.String())
	}
	if len(result.ByMachinePart) > 0 {
		t := newReportTable("MACHINE", "PART", "SCRAP", "REWORK", "QTY", "PCT", "CUM PCT")
		for _, row := range result.ByMachinePart {
			t.Row(row.MachineCode, row.PartNumber, fmt.Sprint(row.ScrapQty), fmt.Sprint(row.ReworkQty),
				fmt.Sprint(row.Quantity), fmt.Sprintf("%.2f", row.Pct), fmt.Sprintf("%.2f", row.CumulativePct))
		}
		_, _ = fmt.Fprintln(w, t.String())
	}
	return nil
}

func writeTrend(w io.Writer, result kpi.TrendResult) error {
	t := newReportTable("MONTH", "TOTAL", "GOOD", "REWORK", "SCRAP", "REWORK %", "SCRAP %", "FPY %", "CLAIM PPM")
	ppm := make(map[string]float64, len(result.ClaimPPM))
	for _, point := range result.ClaimPPM {
		ppm[point.Month] = point.PPM
	}
	for _, point := range result.Months {
		t.Row(point.Period, fmt.Sprint(point.Total), fmt.Sprint(point.Good), fmt.Sprint(point.Rework), fmt.Sprint(point.Scrap),
			fmt.Sprintf("%.2f", point.ReworkPct), fmt.Sprintf("%.2f", point.ScrapPct), fmt.Sprintf("%.2f", point.FPYPct),
			fmt.Sprintf("%.0f", ppm[point.Period]))
	}
	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return errs.Wrap(err, "write trend table")
	}
	return nil
}

func writeDashboard(w io.Writer, result kpi.DashboardResult) error {
	p := result.Production
	i := result.Inspections
	if _, err := fmt.Fprintf(w,
		"dashboard %s..%s\nproduction total=%d good%%=%.2f reject%%=%.2f rework%%=%.2f scrap%%=%.2f fpy%%=%.2f\n"+
			"inspections total=%d scrap%%=%.2f fpy%%=%.2f\nopen alerts=%d pareto source=%s\n",
		result.From, result.To,
		p.TotalProduced, p.GoodPct, p.RejectPct, p.ReworkPct, p.ScrapPct, p.FPYPct,
		i.Total, i.ScrapPct, i.FPYPct,
		result.OpenAlerts, result.ParetoSource,
	); err != nil {
		return errs.Wrap(err, "write dashboard")
	}
	if len(result.TopDefects) > 0 {
		t := newReportTable("DEFECT", "QTY", "PCT")
		for _, row := range result.TopDefects {
			t.Row(row.DefectCode, fmt.Sprint(row.Quantity), fmt.Sprintf("%.2f", row.Pct))
		}
		_, _ = fmt.Fprintln(w, t.String())
	}
	return nil
}

func addRangeFlags(cmd *cobra.Command, defaultRange string) {
	flags := cmd.Flags()
	flags.String("range", defaultRange, "today, mtd or ytd")
	flags.String("from", "", "Window start YYYY-MM-DD, overrides --range")
	flags.String("to", "", "Window end YYYY-MM-DD, overrides --range")
	flags.String("shift", "", "Shift filter")
	flags.String("line", "", "Product line filter")
	flags.String("machine", "", "Machine filter")
	flags.String("category", "", "Defect category filter")
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportParetoCmd, reportTrendCmd, reportDashboardCmd)

	addRangeFlags(reportParetoCmd, "mtd")
	addRangeFlags(reportDashboardCmd, "today")
	reportTrendCmd.Flags().Int("months", 6, "Months to include, current month counted")
}

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

var andonCmd = &cobra.Command{
	Use:   "andon",
	Short: "List, acknowledge and resolve Andon alerts",
}

var andonListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts, newest first",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		flags := cmd.Flags()
		input := kpi.ListAlertsInput{}
		input.Status, _ = flags.GetString("status")
		input.MachineCode, _ = flags.GetString("machine")
		input.OpenOnly, _ = flags.GetBool("open")
		input.Limit, _ = flags.GetInt("limit")

		alerts, err := deps.Service.ListAlerts(cmd.Context(), input)
		if err != nil {
			return err
		}
		return writeAlerts(cmd.OutOrStdout(), alerts)
	}),
}

var andonAckCmd = &cobra.Command{
	Use:   "ack <id|AND-number>",
	Short: "Acknowledge a triggered alert",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		assignee, _ := cmd.Flags().GetString("assignee")
		alert, err := deps.Service.Acknowledge(cmd.Context(), kpi.AcknowledgeInput{
			Ref:      cmd.Flags().Arg(0),
			Assignee: assignee,
		})
		if err != nil {
			return err
		}
		return writeAlerts(cmd.OutOrStdout(), []kpi.AlertView{alert})
	}),
}

var andonResolveCmd = &cobra.Command{
	Use:   "resolve <id|AND-number>",
	Short: "Resolve an open alert",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		flags := cmd.Flags()
		input := kpi.ResolveInput{Ref: flags.Arg(0)}
		input.ResolvedBy, _ = flags.GetString("by")
		input.RootCause, _ = flags.GetString("root-cause")
		input.ActionTaken, _ = flags.GetString("action")

		alert, err := deps.Service.Resolve(cmd.Context(), input)
		if err != nil {
			return err
		}
		return writeAlerts(cmd.OutOrStdout(), []kpi.AlertView{alert})
	}),
}

func writeAlerts(w io.Writer, alerts []kpi.AlertView) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ALERT", "MACHINE", "STATUS", "NG", "LEVEL", "TRIGGERED", "ASSIGNEE", "RESPONSE MIN")
	for _, alert := range alerts {
		response := "-"
		if alert.ResponseMinutes != nil {
			response = fmt.Sprintf("%.1f", *alert.ResponseMinutes)
		}
		t.Row(
			alert.AlertNumber,
			alert.MachineCode,
			alert.Status,
			fmt.Sprint(alert.ConsecutiveNG),
			fmt.Sprint(alert.EscalationLevel),
			alert.TriggeredAt.Format("2006-01-02 15:04"),
			firstNonEmpty(alert.Assignee, "-"),
			response,
		)
	}
	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return errs.Wrap(err, "write alert table")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(andonCmd)
	andonCmd.AddCommand(andonListCmd, andonAckCmd, andonResolveCmd)

	andonListCmd.Flags().String("status", "", "Filter by status (triggered|acknowledged|resolved)")
	andonListCmd.Flags().String("machine", "", "Filter by machine code")
	andonListCmd.Flags().Bool("open", false, "Only triggered and acknowledged alerts")
	andonListCmd.Flags().Int("limit", 0, "Maximum rows, 0 for the default")

	andonAckCmd.Flags().String("assignee", "", "Who takes the alert")
	_ = andonAckCmd.MarkFlagRequired("assignee")

	andonResolveCmd.Flags().String("by", "", "Who resolved the alert")
	andonResolveCmd.Flags().String("root-cause", "", "Root cause")
	andonResolveCmd.Flags().String("action", "", "Action taken")
	_ = andonResolveCmd.MarkFlagRequired("by")
}

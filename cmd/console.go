package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/errs"
	"factoryqc/internal/usecase/andonconsole"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Terminal console commands",
}

var consoleAndonCmd = &cobra.Command{
	Use:   "andon",
	Short: "Start the Andon board for shift leads",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		machine, _ := cmd.Flags().GetString("machine")
		operator, _ := cmd.Flags().GetString("operator")
		showResolved, _ := cmd.Flags().GetBool("all")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		model := andonconsole.NewAndonModel(ctx, deps.Service, andonconsole.Options{
			MachineCode:     machine,
			Operator:        operator,
			ShowResolved:    showResolved,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run andon console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.AddCommand(consoleAndonCmd)
	consoleAndonCmd.Flags().String("machine", "", "Only alerts of this machine")
	consoleAndonCmd.Flags().String("operator", "", "Name prefilled for acknowledge and resolve")
	consoleAndonCmd.Flags().Bool("all", false, "Include resolved alerts")
	consoleAndonCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
}

package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"plant-care/internal/ui"
)

const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "plantcare",
	Short:         "Plant care task scheduler",
	Long:          "plantcare tracks due dates of plant care tasks and sends push reminders for overdue ones.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("PLANTCARE_CONFIG"), "path to YAML config (env PLANTCARE_CONFIG)")

	rootCmd.AddCommand(
		newServeCmd(),
		newRunOnceCmd(),
		newStatsCmd(),
		newCompleteCmd(),
		newHealthCmd(),
		newTaskCmd(),
		newNotifyCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}

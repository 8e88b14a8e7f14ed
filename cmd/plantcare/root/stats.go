package root

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"plant-care/internal/ui"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show overdue task counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := a.finder.GetOverdueTaskStats(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconClock, "Overdue tasks"))
			fmt.Fprintln(out, ui.LabelValue("Total", stats.TotalOverdueTasks))
			fmt.Fprintln(out, ui.LabelValue("Users", stats.UsersWithOverdueTasks))
			if len(stats.TasksByType) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("nothing overdue"))
				return nil
			}

			keys := make([]string, 0, len(stats.TasksByType))
			for k := range stats.TasksByType {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintln(out, "")
			fmt.Fprintln(out, ui.H2.Render(ui.IconGauge+" By type"))
			for _, k := range keys {
				fmt.Fprintf(out, "- %s %d\n", ui.Key.Render(k+":"), stats.TasksByType[k])
			}
			return nil
		},
	}
}

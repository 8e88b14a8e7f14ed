package root

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"plant-care/internal/service"
	"plant-care/internal/ui"
)

func newRunOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Run a single notification cycle and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			scheduler, err := a.newScheduler(ctx)
			if err != nil {
				return err
			}

			if a.cfg.Scheduler.CycleTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.cfg.Scheduler.CycleTimeout)
				defer cancel()
			}
			report, _ := scheduler.RunCycle(ctx)
			printCycle(cmd.OutOrStdout(), report)
			if report.Error != "" {
				return fmt.Errorf("cycle finished with error: %s", report.Error)
			}
			return nil
		},
	}
}

func printCycle(w io.Writer, r service.CycleReport) {
	fmt.Fprintln(w, ui.Heading(ui.IconLoop, "Notification cycle"))
	fmt.Fprintln(w, ui.LabelValue("Run", ui.Muted.Render(r.RunID)))
	fmt.Fprintln(w, ui.LabelValue("Index", r.Index))
	fmt.Fprintln(w, ui.LabelValue("Overdue", fmt.Sprintf("%d tasks across %d users", r.OverdueTasks, r.Users)))
	fmt.Fprintf(w, "%s %s sent  %s %s skipped  %s %s failed  %s\n",
		ui.IconDone, ui.Count(r.Sent, ui.Good),
		ui.IconSkip, ui.Count(r.Skipped, ui.Warn),
		ui.IconFail, ui.Count(r.Failed, ui.Bad),
		ui.Muted.Render(r.Duration().String()))

	if len(r.Results) == 0 {
		return
	}
	fmt.Fprintln(w, "")
	for _, res := range r.Results {
		switch {
		case res.Skipped:
			fmt.Fprintf(w, "- user %d %s\n", res.UserID, ui.Muted.Render(res.Reason))
		case res.Success:
			fmt.Fprintf(w, "- user %d task %d %s\n", res.UserID, res.TaskID, ui.Good.Render("sent"))
		default:
			fmt.Fprintf(w, "- user %d task %d %s %s\n", res.UserID, res.TaskID, ui.Bad.Render("failed"), res.Error)
		}
	}
}

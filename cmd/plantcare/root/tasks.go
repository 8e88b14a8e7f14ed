package root

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"plant-care/internal/model"
	"plant-care/internal/service"
	"plant-care/internal/ui"
)

func parseID(raw, what string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return uint(id), nil
}

func newCompleteCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task done now and schedule its next occurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			var completedAt time.Time
			if at != "" {
				completedAt, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
			}

			a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			task, err := a.taskSvc.CompleteTask(context.Background(), taskID, completedAt)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), ui.IconDone, "done", task)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "completion time (RFC3339); defaults to now")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health <plant-id>",
		Short: "Show a plant's health score, care streak and badge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plantID, err := parseID(args[0], "plant")
			if err != nil {
				return err
			}
			a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			h, err := a.taskSvc.PlantHealth(context.Background(), plantID)
			if err != nil {
				return err
			}
			body := fmt.Sprintf("%s\n%s\n%s",
				ui.LabelValue("Health", ui.IconHeart+" "+ui.Score(h.Score)),
				ui.LabelValue("Streak", fmt.Sprintf("%d days", h.Streak)),
				ui.LabelValue("Badge", ui.Gold.Render(h.Badge.Text)))
			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconPlant, h.Name))
			fmt.Fprintln(cmd.OutOrStdout(), ui.Panel.Render(body))
			return nil
		},
	}
}

func printTask(w io.Writer, icon, verb string, task *model.Task) {
	label, _ := task.TaskKey.Label()
	fmt.Fprintln(w, ui.Good.Render(fmt.Sprintf("%s %s %s", icon, label, verb)))
	fmt.Fprintln(w, ui.LabelValue("Task", task.ID))
	if task.Active {
		fmt.Fprintln(w, ui.LabelValue("Next due", task.NextDueOn.Local().Format("Mon 2006-01-02 15:04")))
	} else {
		fmt.Fprintln(w, ui.LabelValue("Next due", ui.Muted.Render("paused")))
	}
	fmt.Fprintln(w, ui.LabelValue("Every", fmt.Sprintf("%d days", task.FrequencyDays)))
}

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create and manage care tasks",
	}
	cmd.AddCommand(newTaskAddCmd(), newTaskFrequencyCmd(), newTaskActiveCmd(false), newTaskActiveCmd(true))
	return cmd
}

func newTaskAddCmd() *cobra.Command {
	var (
		every int
		first string
	)
	cmd := &cobra.Command{
		Use:   "add <plant-id> <task-key>",
		Short: "Add a recurring task to a plant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plantID, err := parseID(args[0], "plant")
			if err != nil {
				return err
			}
			input := service.TaskInput{PlantID: plantID, TaskKey: args[1], FrequencyDays: every}
			if first != "" {
				due, err := time.Parse(time.RFC3339, first)
				if err != nil {
					return fmt.Errorf("--first must be RFC3339: %w", err)
				}
				input.FirstDueOn = &due
			}

			a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			task, err := a.taskSvc.CreateTask(context.Background(), input)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), ui.IconDrop, "added", task)
			return nil
		},
	}
	cmd.Flags().IntVar(&every, "every", 7, "frequency in days")
	cmd.Flags().StringVar(&first, "first", "", "first due time (RFC3339); defaults to now plus the frequency")
	return cmd
}

func newTaskFrequencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frequency <task-id> <days>",
		Short: "Change how often a task recurs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			days, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid frequency %q", args[1])
			}

			a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			task, err := a.taskSvc.UpdateFrequency(context.Background(), taskID, days)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), ui.IconClock, "rescheduled", task)
			return nil
		},
	}
}

// newTaskActiveCmd builds "resume" when active is true and "pause" otherwise.
func newTaskActiveCmd(active bool) *cobra.Command {
	use, short, icon := "pause", "Pause a task; paused tasks are never overdue", ui.IconSkip
	if active {
		use, short, icon = "resume", "Resume a paused task", ui.IconRunning
	}
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.taskSvc.SetActive(context.Background(), taskID, active); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(fmt.Sprintf("%s task %d %sd", icon, taskID, use)))
			return nil
		},
	}
}

func newNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Turn push reminders on or off for a user",
	}
	cmd.AddCommand(newNotifyToggleCmd(true), newNotifyToggleCmd(false))
	return cmd
}

func newNotifyToggleCmd(enabled bool) *cobra.Command {
	use, short, icon := "disable", "Stop push reminders for a user", ui.IconSkip
	if enabled {
		use, short, icon = "enable", "Start push reminders; tasks already overdue stay quiet", ui.IconRunning
	}
	return &cobra.Command{
		Use:   use + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.taskSvc.SetNotificationsEnabled(context.Background(), userID, enabled); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(fmt.Sprintf("%s notifications %sd for user %d", icon, use, userID)))
			return nil
		},
	}
}

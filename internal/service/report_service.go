package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
)

// SentCounter counts notifications logged since a point in time.
type SentCounter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// ReportService builds human-readable HTML summaries for operators.
type ReportService struct {
	finder    *OverdueService
	scheduler *SchedulerService
	sent      SentCounter
	now       Clock
}

func NewReportService(finder *OverdueService, scheduler *SchedulerService, sent SentCounter, clock Clock) *ReportService {
	if clock == nil {
		clock = systemClock
	}
	return &ReportService{finder: finder, scheduler: scheduler, sent: sent, now: clock}
}

// DailyDigest combines the current overdue stats with the number of
// notifications sent over the last 24 hours.
func (s *ReportService) DailyDigest(ctx context.Context) (string, error) {
	now := s.now()
	stats, statsErr := s.finder.GetOverdueTaskStats(ctx)
	sent, err := s.sent.CountSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("🌿 <b>Daily care digest</b>\n")
	b.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("📨 Notifications sent (24h): <b>%d</b>\n\n", sent))
	if statsErr != nil {
		b.WriteString(fmt.Sprintf("⚠️ Overdue query failed: %s\n", html.EscapeString(statsErr.Error())))
	}
	b.WriteString(FormatStats(stats))
	b.WriteString("\n")
	b.WriteString(FormatStatus(s.scheduler.Status(), now))
	return strings.TrimSpace(b.String()), nil
}

// FormatStats renders overdue counts, task types sorted by count.
func FormatStats(stats OverdueStats) string {
	var b strings.Builder
	b.WriteString("⏰ <b>Overdue tasks</b>\n")
	b.WriteString(fmt.Sprintf("Total: <b>%d</b> · Users: <b>%d</b>\n", stats.TotalOverdueTasks, stats.UsersWithOverdueTasks))
	if len(stats.TasksByType) == 0 {
		b.WriteString("— nothing overdue\n")
		return b.String()
	}

	keys := make([]string, 0, len(stats.TasksByType))
	for k := range stats.TasksByType {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ci, cj := stats.TasksByType[keys[i]], stats.TasksByType[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("• %s: %d\n", html.EscapeString(k), stats.TasksByType[k]))
	}
	return b.String()
}

// FormatStatus renders the scheduler state and the last cycle, if any.
func FormatStatus(st SchedulerStatus, now time.Time) string {
	var b strings.Builder

	state := "⏸ stopped"
	if st.Running {
		state = "▶️ running"
	}
	if st.Processing {
		state += " (processing)"
	}
	b.WriteString("🛠 <b>Scheduler</b>\n")
	b.WriteString(fmt.Sprintf("State: %s\n", state))
	b.WriteString(fmt.Sprintf("Interval: %s · Index: %d\n", st.Interval, st.NotificationIndex))
	if !st.NextRun.IsZero() {
		b.WriteString(fmt.Sprintf("Next run: %s (in %s)\n", st.NextRun.Format("15:04:05"), st.NextRun.Sub(now).Round(time.Second)))
	}
	if st.LastCycle != nil {
		b.WriteString(FormatCycle(*st.LastCycle))
	}
	return b.String()
}

func FormatCycle(r CycleReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Last cycle %s: %d overdue, %d users → ✅ %d sent, ⏭ %d skipped, ❌ %d failed (%s)\n",
		r.StartedAt.Format("15:04:05"), r.OverdueTasks, r.Users, r.Sent, r.Skipped, r.Failed, r.Duration().Round(time.Millisecond)))
	if r.Error != "" {
		b.WriteString(fmt.Sprintf("⚠️ %s\n", html.EscapeString(r.Error)))
	}
	return b.String()
}

package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"plant-care/internal/model"
)

// OverdueStore is the task-store query the finder depends on.
type OverdueStore interface {
	FindActiveOverdue(ctx context.Context, now time.Time, userID *uint) ([]model.OverdueRow, error)
}

// OverdueTask is an overdue task with everything the dispatcher needs,
// denormalized so no further joins are required.
type OverdueTask struct {
	TaskID                 uint
	TaskKey                model.TaskKey
	FrequencyDays          int
	NextDueOn              time.Time
	LastCompletedOn        *time.Time
	PlantID                uint
	PlantName              string
	PlantCreatedAt         time.Time
	UserID                 uint
	Persona                string
	Timezone               string
	PushToken              string
	NotificationsEnabledAt *time.Time
}

func overdueTaskFromRow(row model.OverdueRow) OverdueTask {
	return OverdueTask{
		TaskID:                 row.TaskID,
		TaskKey:                model.ParseTaskKey(row.TaskKey),
		FrequencyDays:          row.FrequencyDays,
		NextDueOn:              row.NextDueOn,
		LastCompletedOn:        row.LastCompletedOn,
		PlantID:                row.PlantID,
		PlantName:              model.PlantDisplayName(row.PetName, row.CommonName, row.BotanicalName),
		PlantCreatedAt:         row.PlantCreatedAt,
		UserID:                 row.UserID,
		Persona:                row.Persona,
		Timezone:               row.Timezone,
		PushToken:              row.FCMToken,
		NotificationsEnabledAt: row.NotificationsEnabledAt,
	}
}

// OverdueGroups partitions overdue tasks by user, keeping users in the
// order their first task was seen. Users with no tasks are never present.
type OverdueGroups struct {
	order  []uint
	byUser map[uint][]OverdueTask
}

// GroupByUser partitions tasks; each user's list keeps the input order.
func GroupByUser(tasks []OverdueTask) OverdueGroups {
	g := OverdueGroups{byUser: make(map[uint][]OverdueTask)}
	for _, task := range tasks {
		if _, seen := g.byUser[task.UserID]; !seen {
			g.order = append(g.order, task.UserID)
		}
		g.byUser[task.UserID] = append(g.byUser[task.UserID], task)
	}
	return g
}

// Users returns user ids in grouping order.
func (g OverdueGroups) Users() []uint {
	out := make([]uint, len(g.order))
	copy(out, g.order)
	return out
}

func (g OverdueGroups) Tasks(userID uint) []OverdueTask {
	return g.byUser[userID]
}

func (g OverdueGroups) Len() int { return len(g.order) }

// OverdueStats are aggregate counts for status pages and the admin bot.
type OverdueStats struct {
	TotalOverdueTasks     int
	UsersWithOverdueTasks int
	TasksByType           map[string]int
}

// OverdueService finds overdue tasks for the scheduler.
//
// On a store failure every method logs the error and returns its fallback
// value (nil slice, empty groups, zero stats) along with the error, so a
// caller can keep going with the fallback.
type OverdueService struct {
	store OverdueStore
	now   Clock
	log   zerolog.Logger
}

func NewOverdueService(store OverdueStore, clock Clock, log zerolog.Logger) *OverdueService {
	if clock == nil {
		clock = systemClock
	}
	return &OverdueService{store: store, now: clock, log: log}
}

func (s *OverdueService) FindOverdueTasks(ctx context.Context) ([]OverdueTask, error) {
	return s.find(ctx, nil)
}

func (s *OverdueService) FindOverdueTasksForUser(ctx context.Context, userID uint) ([]OverdueTask, error) {
	return s.find(ctx, &userID)
}

func (s *OverdueService) find(ctx context.Context, userID *uint) ([]OverdueTask, error) {
	rows, err := s.store.FindActiveOverdue(ctx, s.now(), userID)
	if err != nil {
		ev := s.log.Error().Err(err)
		if userID != nil {
			ev = ev.Uint("user_id", *userID)
		}
		ev.Msg("overdue query failed")
		return nil, err
	}
	tasks := make([]OverdueTask, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, overdueTaskFromRow(row))
	}
	return tasks, nil
}

func (s *OverdueService) GetOverdueTasksGroupedByUser(ctx context.Context) (OverdueGroups, error) {
	tasks, err := s.FindOverdueTasks(ctx)
	if err != nil {
		return GroupByUser(nil), err
	}
	return GroupByUser(tasks), nil
}

func (s *OverdueService) GetOverdueTaskStats(ctx context.Context) (OverdueStats, error) {
	stats := OverdueStats{TasksByType: map[string]int{}}
	tasks, err := s.FindOverdueTasks(ctx)
	if err != nil {
		return stats, err
	}
	users := make(map[uint]struct{})
	for _, task := range tasks {
		stats.TotalOverdueTasks++
		stats.TasksByType[task.TaskKey.String()]++
		users[task.UserID] = struct{}{}
	}
	stats.UsersWithOverdueTasks = len(users)
	return stats, nil
}

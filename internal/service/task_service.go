package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"plant-care/internal/model"
	"plant-care/internal/repository"
)

var (
	ErrInvalidFrequency = errors.New("frequency must be a positive number of days")
	ErrTaskKeyRequired  = errors.New("task key is required")
	ErrTaskNotFound     = errors.New("task not found")
	ErrPlantNotFound    = errors.New("plant not found")
	ErrUserNotFound     = errors.New("user settings not found")
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	PlantID       uint
	TaskKey       string
	FrequencyDays int
	// FirstDueOn overrides the computed first due date.
	FirstDueOn *time.Time
}

// PlantHealth is the read-only care summary of a plant.
type PlantHealth struct {
	PlantID uint
	Name    string
	Score   int
	Streak  int
	Badge   Badge
}

// TaskService wraps task lifecycle logic. Every due date it writes comes
// from ComputeNextDueDate in the owner's timezone.
type TaskService struct {
	tasks    *repository.TaskRepository
	plants   *repository.PlantRepository
	settings *repository.SettingsRepository
	now      Clock
	log      zerolog.Logger
}

func NewTaskService(tasks *repository.TaskRepository, plants *repository.PlantRepository, settings *repository.SettingsRepository, clock Clock, log zerolog.Logger) *TaskService {
	if clock == nil {
		clock = systemClock
	}
	return &TaskService{tasks: tasks, plants: plants, settings: settings, now: clock, log: log}
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	key := model.ParseTaskKey(input.TaskKey)
	if key == "" {
		return nil, ErrTaskKeyRequired
	}
	if input.FrequencyDays <= 0 {
		return nil, ErrInvalidFrequency
	}

	plant, err := s.plants.FindByID(ctx, input.PlantID)
	if err != nil {
		return nil, notFound(err, ErrPlantNotFound)
	}

	var nextDue time.Time
	if input.FirstDueOn != nil {
		nextDue = input.FirstDueOn.UTC()
	} else {
		loc := s.userLocation(ctx, plant.UserID)
		nextDue = ComputeNextDueDate(input.FrequencyDays, s.now(), loc)
	}

	if !key.Known() {
		s.log.Warn().Str("task_key", key.String()).Msg("creating task with unknown key")
	}

	task := model.Task{
		PlantID:       plant.ID,
		TaskKey:       key,
		FrequencyDays: input.FrequencyDays,
		NextDueOn:     nextDue,
		Active:        true,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CompleteTask records a completion and moves the due date forward from it.
// A zero completedAt means now.
func (s *TaskService) CompleteTask(ctx context.Context, taskID uint, completedAt time.Time) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}
	if completedAt.IsZero() {
		completedAt = s.now()
	}

	loc, err := s.plantLocation(ctx, task.PlantID)
	if err != nil {
		return nil, err
	}
	nextDue := ComputeNextDueDate(task.FrequencyDays, completedAt, loc)

	if err := s.tasks.UpdateCompletion(ctx, task.ID, completedAt, nextDue); err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}

	completed := completedAt.UTC()
	task.LastCompletedOn = &completed
	task.NextDueOn = nextDue
	s.log.Info().Uint("task_id", task.ID).Time("next_due_on", nextDue).Msg("task completed")
	return task, nil
}

// UpdateFrequency changes the interval and re-derives the due date from
// the last completion, or from creation when the task was never done.
func (s *TaskService) UpdateFrequency(ctx context.Context, taskID uint, frequencyDays int) (*model.Task, error) {
	if frequencyDays <= 0 {
		return nil, ErrInvalidFrequency
	}
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}

	base := task.CreatedAt
	if task.LastCompletedOn != nil {
		base = *task.LastCompletedOn
	}
	loc, err := s.plantLocation(ctx, task.PlantID)
	if err != nil {
		return nil, err
	}
	nextDue := ComputeNextDueDate(frequencyDays, base, loc)

	if err := s.tasks.UpdateSchedule(ctx, task.ID, frequencyDays, nextDue); err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}
	task.FrequencyDays = frequencyDays
	task.NextDueOn = nextDue
	return task, nil
}

// SetActive pauses or resumes a task. Inactive tasks never count as overdue.
func (s *TaskService) SetActive(ctx context.Context, taskID uint, active bool) error {
	if err := s.tasks.SetActive(ctx, taskID, active); err != nil {
		return notFound(err, ErrTaskNotFound)
	}
	return nil
}

// SetNotificationsEnabled toggles push for a user. Enabling stamps the
// opt-in cutoff with the current time.
func (s *TaskService) SetNotificationsEnabled(ctx context.Context, userID uint, enabled bool) error {
	if err := s.settings.SetNotificationsEnabled(ctx, userID, enabled, s.now()); err != nil {
		return notFound(err, ErrUserNotFound)
	}
	s.log.Info().Uint("user_id", userID).Bool("enabled", enabled).Msg("notifications toggled")
	return nil
}

// PlantHealth computes score, streak and badge in the owner's timezone.
func (s *TaskService) PlantHealth(ctx context.Context, plantID uint) (PlantHealth, error) {
	plant, err := s.plants.FindWithTasks(ctx, plantID)
	if err != nil {
		return PlantHealth{}, notFound(err, ErrPlantNotFound)
	}
	loc := s.userLocation(ctx, plant.UserID)
	now := s.now()
	streak := CareStreak(plant.CreatedAt, plant.Tasks, now, loc)
	return PlantHealth{
		PlantID: plant.ID,
		Name:    plant.DisplayName(),
		Score:   HealthScore(plant.Tasks, now, loc),
		Streak:  streak,
		Badge:   BadgeFor(streak),
	}, nil
}

func (s *TaskService) plantLocation(ctx context.Context, plantID uint) (*time.Location, error) {
	plant, err := s.plants.FindByID(ctx, plantID)
	if err != nil {
		return nil, notFound(err, ErrPlantNotFound)
	}
	return s.userLocation(ctx, plant.UserID), nil
}

// userLocation falls back to UTC when settings are missing or the zone is unknown.
func (s *TaskService) userLocation(ctx context.Context, userID uint) *time.Location {
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn().Err(err).Uint("user_id", userID).Msg("load user settings")
		}
		return time.UTC
	}
	loc, ok := LoadLocation(settings.Timezone)
	if !ok {
		s.log.Warn().Str("timezone", strings.TrimSpace(settings.Timezone)).Uint("user_id", userID).Msg("unknown timezone; using UTC")
	}
	return loc
}

func notFound(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}

package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"plant-care/internal/model"
)

// TaskRepository handles reads and writes of care tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	task.NextDueOn = task.NextDueOn.UTC()
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *TaskRepository) ListByPlant(ctx context.Context, plantID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("plant_id = ?", plantID).
		Order("next_due_on ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateCompletion records a completion and the recomputed due date.
func (r *TaskRepository) UpdateCompletion(ctx context.Context, taskID uint, completedAt, nextDueOn time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"last_completed_on": completedAt.UTC(),
			"next_due_on":       nextDueOn.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("complete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSchedule changes the frequency together with the derived due date.
func (r *TaskRepository) UpdateSchedule(ctx context.Context, taskID uint, frequencyDays int, nextDueOn time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"frequency_days": frequencyDays,
			"next_due_on":    nextDueOn.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update task schedule: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) SetActive(ctx context.Context, taskID uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("set task active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindActiveOverdue returns active tasks due at or before now whose owner
// has a push token and notifications enabled, most overdue first.
// A non-nil userID restricts the scan to that user.
func (r *TaskRepository) FindActiveOverdue(ctx context.Context, now time.Time, userID *uint) ([]model.OverdueRow, error) {
	q := r.db.WithContext(ctx).Table("tasks").
		Select(`tasks.id AS task_id,
			tasks.task_key AS task_key,
			tasks.frequency_days AS frequency_days,
			tasks.next_due_on AS next_due_on,
			tasks.last_completed_on AS last_completed_on,
			plants.id AS plant_id,
			plants.pet_name AS pet_name,
			plants.common_name AS common_name,
			plants.botanical_name AS botanical_name,
			plants.created_at AS plant_created_at,
			users.id AS user_id,
			user_settings.persona AS persona,
			user_settings.timezone AS timezone,
			user_settings.fcm_token AS fcm_token,
			user_settings.notifications_enabled_at AS notifications_enabled_at`).
		Joins("JOIN plants ON plants.id = tasks.plant_id").
		Joins("JOIN users ON users.id = plants.user_id").
		Joins("JOIN user_settings ON user_settings.user_id = users.id").
		Where("tasks.active = ?", true).
		Where("tasks.next_due_on <= ?", now.UTC()).
		Where("user_settings.fcm_token IS NOT NULL AND user_settings.fcm_token <> ''").
		Where("user_settings.notifications_enabled = ?", true)

	if userID != nil {
		q = q.Where("users.id = ?", *userID)
	}

	var rows []model.OverdueRow
	if err := q.Order("tasks.next_due_on ASC, tasks.id ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("find overdue tasks: %w", err)
	}
	return rows, nil
}

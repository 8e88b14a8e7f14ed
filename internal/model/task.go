package model

import "time"

// Task is a recurring care action attached to a plant.
type Task struct {
	ID              uint      `gorm:"primaryKey"`
	PlantID         uint      `gorm:"index;not null"`
	TaskKey         TaskKey   `gorm:"size:64;not null"`
	FrequencyDays   int       `gorm:"not null"`
	NextDueOn       time.Time `gorm:"index;not null"`
	LastCompletedOn *time.Time
	Active          bool `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOverdue reports whether the task is active and due at or before now.
func (t Task) IsOverdue(now time.Time) bool {
	return t.Active && !t.NextDueOn.After(now)
}

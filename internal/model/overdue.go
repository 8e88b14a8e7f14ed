package model

import "time"

// OverdueRow is a task row joined with its plant, user and settings.
type OverdueRow struct {
	TaskID                 uint
	TaskKey                string
	FrequencyDays          int
	NextDueOn              time.Time
	LastCompletedOn        *time.Time
	PlantID                uint
	PetName                string
	CommonName             string
	BotanicalName          string
	PlantCreatedAt         time.Time
	UserID                 uint
	Persona                string
	Timezone               string
	FCMToken               string
	NotificationsEnabledAt *time.Time
}

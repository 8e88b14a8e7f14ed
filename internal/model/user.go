package model

import (
	"strings"
	"time"
)

// User owns plants and has exactly one settings row.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Settings  *UserSettings `gorm:"foreignKey:UserID"`
	Plants    []Plant       `gorm:"foreignKey:UserID"`
}

// UserSettings carries push registration and notification preferences.
type UserSettings struct {
	ID                     uint `gorm:"primaryKey"`
	UserID                 uint `gorm:"uniqueIndex;not null"`
	FCMToken               *string
	NotificationsEnabled   bool `gorm:"default:false"`
	NotificationsEnabledAt *time.Time
	Persona                string
	Timezone               string `gorm:"default:UTC"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// CanReceivePush reports whether the user has a token and opted in.
func (s UserSettings) CanReceivePush() bool {
	return s.NotificationsEnabled && s.FCMToken != nil && strings.TrimSpace(*s.FCMToken) != ""
}

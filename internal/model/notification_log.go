package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationLog is a write-once record of a delivered notification.
// Payload holds the serialized notification; it is searched by substring
// to detect whether a task occurrence was already notified.
type NotificationLog struct {
	ID      string         `gorm:"primaryKey;size:36"`
	UserID  uint           `gorm:"index:idx_notification_user_sent;not null"`
	Payload datatypes.JSON `gorm:"not null"`
	Channel string         `gorm:"size:32;not null"`
	SentAt  time.Time      `gorm:"index:idx_notification_user_sent;not null"`
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"plant-care/internal/model"
)

// NotificationLogRepository is append-only: there is no update or delete.
type NotificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

func (r *NotificationLogRepository) Append(ctx context.Context, entry *model.NotificationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	entry.SentAt = entry.SentAt.UTC()
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append notification log: %w", err)
	}
	return nil
}

// FindRecentContaining returns the newest entry for the user sent at or
// after since whose payload contains substring, or nil when none exists.
func (r *NotificationLogRepository) FindRecentContaining(ctx context.Context, userID uint, since time.Time, substring string) (*model.NotificationLog, error) {
	var entries []model.NotificationLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND sent_at >= ?", userID, since.UTC()).
		Where("payload LIKE ? ESCAPE '\\'", "%"+escapeLike(substring)+"%").
		Order("sent_at DESC").
		Limit(1).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("find notification log: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// FindSentSince returns every entry for the user sent at or after since,
// newest first.
func (r *NotificationLogRepository) FindSentSince(ctx context.Context, userID uint, since time.Time) ([]model.NotificationLog, error) {
	var entries []model.NotificationLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND sent_at >= ?", userID, since.UTC()).
		Order("sent_at DESC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("find notification logs since: %w", err)
	}
	return entries, nil
}

func (r *NotificationLogRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.NotificationLog{}).
		Where("sent_at >= ?", since.UTC()).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count notification logs: %w", err)
	}
	return n, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

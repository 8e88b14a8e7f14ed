package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"plant-care/internal/model"
)

// SettingsRepository reads and updates per-user notification settings.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context, userID uint) (*model.UserSettings, error) {
	var settings model.UserSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, translate(err)
	}
	return &settings, nil
}

// ClearFCMToken drops a push registration the provider rejected.
func (r *SettingsRepository) ClearFCMToken(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Model(&model.UserSettings{}).Where("user_id = ?", userID).
		Update("fcm_token", nil).Error; err != nil {
		return fmt.Errorf("clear fcm token: %w", err)
	}
	return nil
}

// SetNotificationsEnabled toggles notifications; enabling stamps the opt-in
// time so tasks that were already overdue stay quiet.
func (r *SettingsRepository) SetNotificationsEnabled(ctx context.Context, userID uint, enabled bool, at time.Time) error {
	updates := map[string]interface{}{"notifications_enabled": enabled}
	if enabled {
		updates["notifications_enabled_at"] = at.UTC()
	}
	res := r.db.WithContext(ctx).Model(&model.UserSettings{}).Where("user_id = ?", userID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("set notifications enabled: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

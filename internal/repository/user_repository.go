package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"plant-care/internal/model"
)

// UserRepository handles users and their settings rows.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and, when present, its settings row.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.Settings != nil && user.Settings.Timezone == "" {
		user.Settings.Timezone = "UTC"
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Preload("Settings").First(&user, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

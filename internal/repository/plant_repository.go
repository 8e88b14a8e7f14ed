package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"plant-care/internal/model"
)

// PlantRepository reads plants; plant CRUD lives outside the scheduling core.
type PlantRepository struct {
	db *gorm.DB
}

func NewPlantRepository(db *gorm.DB) *PlantRepository {
	return &PlantRepository{db: db}
}

func (r *PlantRepository) Create(ctx context.Context, plant *model.Plant) error {
	if err := r.db.WithContext(ctx).Create(plant).Error; err != nil {
		return fmt.Errorf("create plant: %w", err)
	}
	return nil
}

func (r *PlantRepository) FindByID(ctx context.Context, plantID uint) (*model.Plant, error) {
	var plant model.Plant
	if err := r.db.WithContext(ctx).First(&plant, plantID).Error; err != nil {
		return nil, translate(err)
	}
	return &plant, nil
}

// FindWithTasks loads a plant and all of its tasks.
func (r *PlantRepository) FindWithTasks(ctx context.Context, plantID uint) (*model.Plant, error) {
	var plant model.Plant
	if err := r.db.WithContext(ctx).Preload("Tasks").First(&plant, plantID).Error; err != nil {
		return nil, translate(err)
	}
	return &plant, nil
}

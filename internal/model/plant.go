package model

import (
	"strings"
	"time"
)

// FallbackPlantName is used in notifications when a plant has no name at all.
const FallbackPlantName = "your plant"

// Plant owns a set of care tasks and belongs to a single user.
type Plant struct {
	ID            uint `gorm:"primaryKey"`
	UserID        uint `gorm:"index;not null"`
	PetName       string
	CommonName    string
	BotanicalName string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Tasks         []Task `gorm:"foreignKey:PlantID;constraint:OnDelete:CASCADE"`
}

// DisplayName picks pet name, then common name, then botanical name.
func (p Plant) DisplayName() string {
	return PlantDisplayName(p.PetName, p.CommonName, p.BotanicalName)
}

func PlantDisplayName(petName, commonName, botanicalName string) string {
	for _, name := range []string{petName, commonName, botanicalName} {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			return trimmed
		}
	}
	return FallbackPlantName
}

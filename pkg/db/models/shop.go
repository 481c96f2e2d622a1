package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

// Shop represents an independently owned tenant that can buy from and sell to
// other shops.
type Shop struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name      string           `gorm:"column:name;not null"`
	Status    enums.ShopStatus `gorm:"column:status;type:text;not null;default:'active'"`
	OwnerID   uuid.UUID        `gorm:"column:owner_user_id;type:uuid;not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt   `gorm:"column:deleted_at;index"`
}

func (s *Shop) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

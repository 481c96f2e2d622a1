package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

// ShopMembership links a user with a shop and captures their role, status and
// any capabilities granted on top of the role defaults.
type ShopMembership struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ShopID      uuid.UUID              `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:ux_shop_memberships_shop_user"`
	UserID      uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_shop_memberships_shop_user"`
	Role        enums.MemberRole       `gorm:"column:role;type:text;not null"`
	Status      enums.MembershipStatus `gorm:"column:status;type:text;not null"`
	Permissions []string               `gorm:"column:permissions;type:jsonb;serializer:json"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *ShopMembership) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

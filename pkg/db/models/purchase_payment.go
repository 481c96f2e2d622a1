package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

// PurchasePayment is an append-only record of money settled against a
// purchase order outside the platform.
type PurchasePayment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseOrderID  uuid.UUID           `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Method           enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	ReferenceNumber  *string             `gorm:"column:reference_number"`
	Notes            *string             `gorm:"column:notes"`
	RecordedByUserID uuid.UUID           `gorm:"column:recorded_by_user_id;type:uuid;not null"`
	PaidAt           time.Time           `gorm:"column:paid_at;not null"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	DeletedAt        gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

func (p *PurchasePayment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

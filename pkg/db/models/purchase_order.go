package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

// PurchaseOrder is raised by a buyer shop against a seller shop.
type PurchaseOrder struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ReferenceNumber  string                    `gorm:"column:reference_number;not null;uniqueIndex:ux_purchase_orders_reference_number"`
	BuyerShopID      uuid.UUID                 `gorm:"column:buyer_shop_id;type:uuid;not null;index"`
	SellerShopID     uuid.UUID                 `gorm:"column:seller_shop_id;type:uuid;not null;index"`
	Status           enums.PurchaseOrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount      decimal.Decimal           `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	TotalPaid        decimal.Decimal           `gorm:"column:total_paid;type:numeric(14,2);not null;default:0"`
	Notes            string                    `gorm:"column:notes;not null;default:''"`
	CreatedByUserID  uuid.UUID                 `gorm:"column:created_by_user_id;type:uuid;not null"`
	ApprovedByUserID *uuid.UUID                `gorm:"column:approved_by_user_id;type:uuid"`
	ApprovedAt       *time.Time                `gorm:"column:approved_at"`
	RejectedAt       *time.Time                `gorm:"column:rejected_at"`
	CancelledAt      *time.Time                `gorm:"column:cancelled_at"`
	CompletedAt      *time.Time                `gorm:"column:completed_at"`
	Items            []PurchaseOrderItem       `gorm:"foreignKey:PurchaseOrderID"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt        gorm.DeletedAt            `gorm:"column:deleted_at;index"`
}

func (o *PurchaseOrder) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// RemainingBalance is the amount still owed on the order.
func (o PurchaseOrder) RemainingBalance() decimal.Decimal {
	remaining := o.TotalAmount.Sub(o.TotalPaid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsFullyPaid reports whether payments cover the order total.
func (o PurchaseOrder) IsFullyPaid() bool {
	return o.TotalPaid.GreaterThanOrEqual(o.TotalAmount)
}

// PurchaseOrderItem is a line of a purchase order. ProductID references the
// seller's product; name and sku are captured when the line is written.
type PurchaseOrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseOrderID uuid.UUID       `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string          `gorm:"column:product_name;not null"`
	SKU             string          `gorm:"column:sku;not null"`
	Quantity        int             `gorm:"column:quantity;not null;check:chk_purchase_order_items_quantity,quantity > 0"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	TotalPrice      decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	DeletedAt       gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (i *PurchaseOrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

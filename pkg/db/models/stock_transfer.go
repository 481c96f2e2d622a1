package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockTransfer is the receipt of one stock move from the seller's product to
// the buyer's product for a purchase order.
type StockTransfer struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseOrderID     uuid.UUID      `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	ProductID           uuid.UUID      `gorm:"column:product_id;type:uuid;not null"`
	BuyerProductID      uuid.UUID      `gorm:"column:buyer_product_id;type:uuid;not null"`
	BuyerProductCreated bool           `gorm:"column:buyer_product_created;not null;default:false"`
	Quantity            int            `gorm:"column:quantity;not null;check:chk_stock_transfers_quantity,quantity > 0"`
	Notes               *string        `gorm:"column:notes"`
	TransferredByUserID uuid.UUID      `gorm:"column:transferred_by_user_id;type:uuid;not null"`
	TransferredAt       time.Time      `gorm:"column:transferred_at;not null"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	DeletedAt           gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (t *StockTransfer) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

// PurchaseOrderCreatedEvent is emitted when a buyer shop raises an order.
type PurchaseOrderCreatedEvent struct {
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	ReferenceNumber string          `json:"reference_number"`
	BuyerShopID     uuid.UUID       `json:"buyer_shop_id"`
	SellerShopID    uuid.UUID       `json:"seller_shop_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ItemCount       int             `json:"item_count"`
}

// PurchaseOrderUpdatedEvent is emitted when a pending order's items are replaced.
type PurchaseOrderUpdatedEvent struct {
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	ReferenceNumber string          `json:"reference_number"`
	BuyerShopID     uuid.UUID       `json:"buyer_shop_id"`
	SellerShopID    uuid.UUID       `json:"seller_shop_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ItemCount       int             `json:"item_count"`
}

// PurchaseOrderStatusChangedEvent is emitted for every state transition.
type PurchaseOrderStatusChangedEvent struct {
	PurchaseOrderID uuid.UUID                 `json:"purchase_order_id"`
	ReferenceNumber string                    `json:"reference_number"`
	BuyerShopID     uuid.UUID                 `json:"buyer_shop_id"`
	SellerShopID    uuid.UUID                 `json:"seller_shop_id"`
	From            enums.PurchaseOrderStatus `json:"from"`
	To              enums.PurchaseOrderStatus `json:"to"`
	ActingShopID    uuid.UUID                 `json:"acting_shop_id"`
	ChangedAt       time.Time                 `json:"changed_at"`
}

// PurchaseOrderDeletedEvent is emitted when a pending order is soft-deleted.
type PurchaseOrderDeletedEvent struct {
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	ReferenceNumber string    `json:"reference_number"`
	BuyerShopID     uuid.UUID `json:"buyer_shop_id"`
	SellerShopID    uuid.UUID `json:"seller_shop_id"`
	DeletedAt       time.Time `json:"deleted_at"`
}

// PurchasePaymentRecordedEvent is emitted after a payment is appended.
type PurchasePaymentRecordedEvent struct {
	PurchaseOrderID  uuid.UUID           `json:"purchase_order_id"`
	PaymentID        uuid.UUID           `json:"payment_id"`
	BuyerShopID      uuid.UUID           `json:"buyer_shop_id"`
	SellerShopID     uuid.UUID           `json:"seller_shop_id"`
	Amount           decimal.Decimal     `json:"amount"`
	Method           enums.PaymentMethod `json:"method"`
	TotalPaid        decimal.Decimal     `json:"total_paid"`
	RemainingBalance decimal.Decimal     `json:"remaining_balance"`
	IsFullyPaid      bool                `json:"is_fully_paid"`
}

// StockTransferredLine describes one moved product within a batch.
type StockTransferredLine struct {
	TransferID          uuid.UUID `json:"transfer_id"`
	SellerProductID     uuid.UUID `json:"seller_product_id"`
	BuyerProductID      uuid.UUID `json:"buyer_product_id"`
	BuyerProductCreated bool      `json:"buyer_product_created"`
	Quantity            int       `json:"quantity"`
}

// StockTransferredEvent is emitted once per committed transfer batch.
type StockTransferredEvent struct {
	PurchaseOrderID uuid.UUID              `json:"purchase_order_id"`
	BuyerShopID     uuid.UUID              `json:"buyer_shop_id"`
	SellerShopID    uuid.UUID              `json:"seller_shop_id"`
	Lines           []StockTransferredLine `json:"lines"`
}

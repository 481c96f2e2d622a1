package stocktransfers

import (
	"github.com/google/uuid"

	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
)

// LineInput moves quantity of one seller product.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
	Notes     string
}

// TransferInput is one batch of stock moves for an order.
type TransferInput struct {
	Actor   purchaseorders.Actor
	OrderID uuid.UUID
	Items   []LineInput
}

// TransferResult lists the receipts created by a batch.
type TransferResult struct {
	PurchaseOrderID uuid.UUID                    `json:"purchase_order_id"`
	Transfers       []purchaseorders.TransferDTO `json:"transfers"`
}

package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

// RecordInput is a payment settled outside the platform.
type RecordInput struct {
	Actor     purchaseorders.Actor
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	Method    enums.PaymentMethod
	Reference string
	Notes     string
}

// Result is the recorded payment and the order's balances after it.
type Result struct {
	Payment          purchaseorders.PaymentDTO `json:"payment"`
	TotalPaid        decimal.Decimal           `json:"total_paid"`
	RemainingBalance decimal.Decimal           `json:"remaining_balance"`
	IsFullyPaid      bool                      `json:"is_fully_paid"`
}

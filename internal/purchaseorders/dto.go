package purchaseorders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	"github.com/shopbridge/shopbridge-backend/pkg/pagination"
)

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateInput raises a new order for the actor's shop.
type CreateInput struct {
	Actor        Actor
	SellerShopID uuid.UUID
	Items        []ItemInput
	Notes        string
}

// UpdateItemsInput replaces a pending order's items.
type UpdateItemsInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Items   []ItemInput
	Notes   string
}

// TransitionInput requests a status change.
type TransitionInput struct {
	Actor   Actor
	OrderID uuid.UUID
	To      enums.PurchaseOrderStatus
	Note    string
}

// DeleteInput soft-deletes a pending order.
type DeleteInput struct {
	Actor   Actor
	OrderID uuid.UUID
}

// ListInput pages through the acting shop's orders.
type ListInput struct {
	Actor  Actor
	Party  enums.OrderParty
	Status *enums.PurchaseOrderStatus
	Params pagination.Params
}

// ItemDTO is an order line.
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// PaymentDTO is one payment ledger entry.
type PaymentDTO struct {
	ID               uuid.UUID           `json:"id"`
	PurchaseOrderID  uuid.UUID           `json:"purchase_order_id"`
	Amount           decimal.Decimal     `json:"amount"`
	Method           enums.PaymentMethod `json:"payment_method"`
	ReferenceNumber  *string             `json:"reference_number,omitempty"`
	Notes            *string             `json:"notes,omitempty"`
	RecordedByUserID uuid.UUID           `json:"recorded_by_user_id"`
	PaidAt           time.Time           `json:"paid_at"`
}

// TransferDTO is one stock transfer receipt.
type TransferDTO struct {
	ID                  uuid.UUID `json:"id"`
	PurchaseOrderID     uuid.UUID `json:"purchase_order_id"`
	SellerProductID     uuid.UUID `json:"seller_product_id"`
	BuyerProductID      uuid.UUID `json:"buyer_product_id"`
	BuyerProductCreated bool      `json:"buyer_product_created"`
	Quantity            int       `json:"quantity"`
	Notes               *string   `json:"notes,omitempty"`
	TransferredByUserID uuid.UUID `json:"transferred_by_user_id"`
	TransferredAt       time.Time `json:"transferred_at"`
}

// FulfillmentLine compares ordered and transferred quantity for a product.
type FulfillmentLine struct {
	ProductID   uuid.UUID `json:"product_id"`
	Ordered     int       `json:"ordered"`
	Transferred int       `json:"transferred"`
	Outstanding int       `json:"outstanding"`
}

// OrderSummary is the list view of an order.
type OrderSummary struct {
	ID               uuid.UUID                 `json:"id"`
	ReferenceNumber  string                    `json:"reference_number"`
	BuyerShopID      uuid.UUID                 `json:"buyer_shop_id"`
	SellerShopID     uuid.UUID                 `json:"seller_shop_id"`
	Status           enums.PurchaseOrderStatus `json:"status"`
	TotalAmount      decimal.Decimal           `json:"total_amount"`
	TotalPaid        decimal.Decimal           `json:"total_paid"`
	RemainingBalance decimal.Decimal           `json:"remaining_balance"`
	IsFullyPaid      bool                      `json:"is_fully_paid"`
	ItemCount        int                       `json:"item_count"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// OrderDetail is the full view of an order.
type OrderDetail struct {
	ID                 uuid.UUID                   `json:"id"`
	ReferenceNumber    string                      `json:"reference_number"`
	BuyerShopID        uuid.UUID                   `json:"buyer_shop_id"`
	SellerShopID       uuid.UUID                   `json:"seller_shop_id"`
	Status             enums.PurchaseOrderStatus   `json:"status"`
	TotalAmount        decimal.Decimal             `json:"total_amount"`
	TotalPaid          decimal.Decimal             `json:"total_paid"`
	RemainingBalance   decimal.Decimal             `json:"remaining_balance"`
	IsFullyPaid        bool                        `json:"is_fully_paid"`
	Notes              string                      `json:"notes"`
	CreatedByUserID    uuid.UUID                   `json:"created_by_user_id"`
	ApprovedByUserID   *uuid.UUID                  `json:"approved_by_user_id,omitempty"`
	ApprovedAt         *time.Time                  `json:"approved_at,omitempty"`
	RejectedAt         *time.Time                  `json:"rejected_at,omitempty"`
	CancelledAt        *time.Time                  `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time                  `json:"completed_at,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
	Items              []ItemDTO                   `json:"items"`
	Payments           []PaymentDTO                `json:"payments"`
	Transfers          []TransferDTO               `json:"transfers"`
	Fulfillment        []FulfillmentLine           `json:"fulfillment"`
	AllowedTransitions []enums.PurchaseOrderStatus `json:"allowed_transitions"`
}

// ListResult is one page of orders.
type ListResult struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// PaymentToDTO maps a payment row.
func PaymentToDTO(p models.PurchasePayment) PaymentDTO {
	return PaymentDTO{
		ID:               p.ID,
		PurchaseOrderID:  p.PurchaseOrderID,
		Amount:           p.Amount,
		Method:           p.Method,
		ReferenceNumber:  p.ReferenceNumber,
		Notes:            p.Notes,
		RecordedByUserID: p.RecordedByUserID,
		PaidAt:           p.PaidAt,
	}
}

// TransferToDTO maps a transfer receipt row.
func TransferToDTO(t models.StockTransfer) TransferDTO {
	return TransferDTO{
		ID:                  t.ID,
		PurchaseOrderID:     t.PurchaseOrderID,
		SellerProductID:     t.ProductID,
		BuyerProductID:      t.BuyerProductID,
		BuyerProductCreated: t.BuyerProductCreated,
		Quantity:            t.Quantity,
		Notes:               t.Notes,
		TransferredByUserID: t.TransferredByUserID,
		TransferredAt:       t.TransferredAt,
	}
}

func itemToDTO(item models.PurchaseOrderItem) ItemDTO {
	return ItemDTO{
		ID:          item.ID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		SKU:         item.SKU,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		TotalPrice:  item.TotalPrice,
	}
}

func toSummary(order models.PurchaseOrder, itemCount int) OrderSummary {
	return OrderSummary{
		ID:               order.ID,
		ReferenceNumber:  order.ReferenceNumber,
		BuyerShopID:      order.BuyerShopID,
		SellerShopID:     order.SellerShopID,
		Status:           order.Status,
		TotalAmount:      order.TotalAmount,
		TotalPaid:        order.TotalPaid,
		RemainingBalance: order.RemainingBalance(),
		IsFullyPaid:      order.IsFullyPaid(),
		ItemCount:        itemCount,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

func buildDetail(order models.PurchaseOrder, party enums.OrderParty, payments []models.PurchasePayment, transfers []models.StockTransfer) *OrderDetail {
	detail := &OrderDetail{
		ID:                 order.ID,
		ReferenceNumber:    order.ReferenceNumber,
		BuyerShopID:        order.BuyerShopID,
		SellerShopID:       order.SellerShopID,
		Status:             order.Status,
		TotalAmount:        order.TotalAmount,
		TotalPaid:          order.TotalPaid,
		RemainingBalance:   order.RemainingBalance(),
		IsFullyPaid:        order.IsFullyPaid(),
		Notes:              order.Notes,
		CreatedByUserID:    order.CreatedByUserID,
		ApprovedByUserID:   order.ApprovedByUserID,
		ApprovedAt:         order.ApprovedAt,
		RejectedAt:         order.RejectedAt,
		CancelledAt:        order.CancelledAt,
		CompletedAt:        order.CompletedAt,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
		Items:              make([]ItemDTO, 0, len(order.Items)),
		Payments:           make([]PaymentDTO, 0, len(payments)),
		Transfers:          make([]TransferDTO, 0, len(transfers)),
		AllowedTransitions: AllowedTargetsFor(order.Status, party),
	}
	for _, item := range order.Items {
		detail.Items = append(detail.Items, itemToDTO(item))
	}
	for _, p := range payments {
		detail.Payments = append(detail.Payments, PaymentToDTO(p))
	}

	transferred := make(map[uuid.UUID]int, len(transfers))
	for _, t := range transfers {
		detail.Transfers = append(detail.Transfers, TransferToDTO(t))
		transferred[t.ProductID] += t.Quantity
	}
	detail.Fulfillment = fulfillment(order.Items, transferred)
	return detail
}

// fulfillment lists ordered products first, then anything transferred
// without being ordered.
func fulfillment(items []models.PurchaseOrderItem, transferred map[uuid.UUID]int) []FulfillmentLine {
	lines := make([]FulfillmentLine, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		moved := transferred[item.ProductID]
		outstanding := item.Quantity - moved
		if outstanding < 0 {
			outstanding = 0
		}
		lines = append(lines, FulfillmentLine{
			ProductID:   item.ProductID,
			Ordered:     item.Quantity,
			Transferred: moved,
			Outstanding: outstanding,
		})
		seen[item.ProductID] = struct{}{}
	}
	extra := make([]uuid.UUID, 0)
	for productID := range transferred {
		if _, ok := seen[productID]; !ok {
			extra = append(extra, productID)
		}
	}
	sortUUIDs(extra)
	for _, productID := range extra {
		lines = append(lines, FulfillmentLine{
			ProductID:   productID,
			Transferred: transferred[productID],
		})
	}
	return lines
}

package purchasing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopbridge/shopbridge-backend/api/validators"
	"github.com/shopbridge/shopbridge-backend/internal/purchaseorders"
	"github.com/shopbridge/shopbridge-backend/internal/stocktransfers"
)

const maxNotesLength = 2000

type itemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"money"`
}

type createOrderRequest struct {
	SellerShopID string        `json:"seller_shop_id" validate:"required,uuid"`
	Items        []itemRequest `json:"items" validate:"required,min=1,dive"`
	Notes        string        `json:"notes" validate:"max=2000"`
}

type updateItemsRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,dive"`
	Notes string        `json:"notes" validate:"max=2000"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

type paymentRequest struct {
	Amount          decimal.Decimal `json:"amount" validate:"money"`
	PaymentMethod   string          `json:"payment_method" validate:"required"`
	ReferenceNumber string          `json:"reference_number" validate:"max=100"`
	Notes           string          `json:"notes" validate:"max=2000"`
}

type transferLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Notes     string `json:"notes" validate:"max=500"`
}

type transferRequest struct {
	Items []transferLineRequest `json:"items" validate:"required,min=1,dive"`
}

// Ids are validated by the decoder before these conversions run.
func toItemInputs(items []itemRequest) []purchaseorders.ItemInput {
	out := make([]purchaseorders.ItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, purchaseorders.ItemInput{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return out
}

func toLineInputs(items []transferLineRequest) []stocktransfers.LineInput {
	out := make([]stocktransfers.LineInput, 0, len(items))
	for _, item := range items {
		out = append(out, stocktransfers.LineInput{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
			Notes:     validators.SanitizeString(item.Notes, 500),
		})
	}
	return out
}

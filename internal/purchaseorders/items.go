package purchaseorders

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopbridge/shopbridge-backend/pkg/db/models"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	for i, item := range items {
		details := map[string]any{"index": i, "product_id": item.ProductID}
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required").WithDetails(details)
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").WithDetails(details)
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative").WithDetails(details)
		}
		if !item.UnitPrice.Equal(item.UnitPrice.Round(2)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "unit price allows at most two decimal places").WithDetails(details)
		}
		if _, dup := seen[item.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "product listed more than once").WithDetails(details)
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

func itemProductIDs(items []ItemInput) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// buildItems snapshots each seller product onto an order line and returns
// the order total.
func buildItems(inputs []ItemInput, sellerShopID uuid.UUID, products map[uuid.UUID]models.Product, now time.Time) ([]models.PurchaseOrderItem, decimal.Decimal, error) {
	items := make([]models.PurchaseOrderItem, 0, len(inputs))
	total := decimal.Zero
	for i, input := range inputs {
		product, ok := products[input.ProductID]
		if !ok || product.ShopID != sellerShopID {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is not sold by the seller shop", input.ProductID)).
				WithDetails(map[string]any{"index": i, "product_id": input.ProductID, "seller_shop_id": sellerShopID})
		}
		lineTotal := input.UnitPrice.Mul(decimal.NewFromInt(int64(input.Quantity))).Round(2)
		total = total.Add(lineTotal)
		items = append(items, models.PurchaseOrderItem{
			ProductID:   input.ProductID,
			ProductName: product.Name,
			SKU:         product.SKU,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice.Round(2),
			TotalPrice:  lineTotal,
			// distinct timestamps keep insertion order stable when sorted
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
	}
	return items, total, nil
}

// appendNote adds note below the existing notes; history is never replaced.
func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}

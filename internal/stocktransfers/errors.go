package stocktransfers

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

var (
	ErrTransferNotAllowed      = errors.New("transfer not allowed")
	ErrProductNotOwnedBySeller = errors.New("product not owned by seller")
	ErrTransferExceedsOrdered  = errors.New("transfer exceeds ordered quantity")
)

func notSeller(shopID uuid.UUID) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrTransferNotAllowed, "only the seller shop can transfer stock").
		WithDetails(map[string]any{"shop_id": shopID})
}

func notApproved(status enums.PurchaseOrderStatus) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrTransferNotAllowed, fmt.Sprintf("stock can only be transferred for approved orders; order is %s", status)).
		WithDetails(map[string]any{
			"current":  status,
			"required": enums.PurchaseOrderStatusApproved,
		})
}

func productNotOwned(productID, sellerShopID uuid.UUID) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrProductNotOwnedBySeller, fmt.Sprintf("product %s does not belong to the seller shop", productID)).
		WithDetails(map[string]any{
			"product_id":     productID,
			"seller_shop_id": sellerShopID,
		})
}

func exceedsOrdered(productID uuid.UUID, ordered, transferred, requested int) *pkgerrors.Error {
	msg := fmt.Sprintf("transfer of %d exceeds ordered quantity: ordered %d, already transferred %d", requested, ordered, transferred)
	if ordered == 0 {
		msg = fmt.Sprintf("product %s is not on the purchase order", productID)
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrTransferExceedsOrdered, msg).
		WithDetails(map[string]any{
			"product_id":  productID,
			"ordered":     ordered,
			"transferred": transferred,
			"requested":   requested,
		})
}
